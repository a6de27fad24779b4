package noise

// DaySegment is one calendar day of residual gravity.
type DaySegment struct {
	Index  int       // day number from the start of the series
	Start  int       // offset of the first sample in the full series
	Values []float64 // exactly samplesPerDay values
}

// Split partitions residual into whole days. Trailing samples that do not
// fill a day are not returned; their count is reported as dropped.
// The segments share memory with residual.
func Split(residual []float64, samplesPerDay int) (days []DaySegment, dropped int) {
	if samplesPerDay <= 0 {
		return nil, len(residual)
	}

	n := len(residual) / samplesPerDay
	days = make([]DaySegment, n)
	for j := 0; j < n; j++ {
		start := j * samplesPerDay
		days[j] = DaySegment{
			Index:  j,
			Start:  start,
			Values: residual[start : start+samplesPerDay : start+samplesPerDay],
		}
	}

	return days, len(residual) - n*samplesPerDay
}

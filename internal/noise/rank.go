package noise

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/chrissnell/gravnoise/internal/spectrum"
)

// Level is an optional real value. Invalid levels stand in for the NaN a
// day with an empty analysis band or zero power would otherwise produce.
type Level struct {
	Value float64
	Valid bool
}

// ValidLevel wraps v; NaN and infinities become invalid.
func ValidLevel(v float64) Level {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Level{}
	}
	return Level{Value: v, Valid: true}
}

// Float returns the value, or NaN when the level is invalid.
func (l Level) Float() float64 {
	if !l.Valid {
		return math.NaN()
	}
	return l.Value
}

func (l Level) String() string {
	if !l.Valid {
		return "NaN"
	}
	return strconv.FormatFloat(l.Value, 'g', -1, 64)
}

// Record is the noise summary of one day.
type Record struct {
	DayIndex    int
	MeanBandPSD Level // mean PSD strictly inside the analysis band
	SNM         Level // log10(MeanBandPSD) + calibration offset
	BandBins    int   // number of bins averaged
}

// EmptyBand reports whether no frequency bin fell inside the band.
func (r Record) EmptyBand() bool {
	return r.BandBins == 0
}

// BandMean averages the power of bins whose frequency lies strictly between
// low and high. It returns an invalid level when no bin qualifies.
func BandMean(c spectrum.Curve, low, high float64) (Level, int) {
	sum := 0.0
	n := 0
	for i, f := range c.Frequencies {
		if f > low && f < high {
			sum += c.Power[i]
			n++
		}
	}
	if n == 0 {
		return Level{}, 0
	}
	return ValidLevel(sum / float64(n)), n
}

// Magnitude converts a band mean into the station noise magnitude. Zero or
// negative power has no logarithm and yields an invalid level.
func Magnitude(mean Level, offset float64) Level {
	if !mean.Valid || !(mean.Value > 0) {
		return Level{}
	}
	return ValidLevel(math.Log10(mean.Value) + offset)
}

// NewRecord derives the record of day from its PSD curve.
func NewRecord(day int, c spectrum.Curve, p Params) Record {
	mean, bins := BandMean(c, p.BandLow, p.BandHigh)
	return Record{
		DayIndex:    day,
		MeanBandPSD: mean,
		SNM:         Magnitude(mean, p.CalibrationOffset),
		BandBins:    bins,
	}
}

// Rank returns the records ordered from quietest to noisiest. Days without
// a valid SNM go last, in day order. Equal magnitudes keep day order.
func Rank(records []Record) []Record {
	ranked := append([]Record(nil), records...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].SNM, ranked[j].SNM
		switch {
		case a.Valid && b.Valid:
			return a.Value < b.Value
		case a.Valid != b.Valid:
			return a.Valid
		default:
			return ranked[i].DayIndex < ranked[j].DayIndex
		}
	})
	return ranked
}

// SelectQuietest picks the n quietest valid days. Every day tied with the
// n-th one is included as well, so more than n records may be returned.
func SelectQuietest(records []Record, n int) ([]Record, error) {
	ranked := Rank(records)

	valid := 0
	for _, r := range ranked {
		if r.SNM.Valid {
			valid++
		}
	}
	if n <= 0 || valid < n {
		return nil, fmt.Errorf("%w: %d valid of %d days, need %d", ErrInsufficientDays, valid, len(records), n)
	}

	boundary := ranked[n-1].SNM.Value
	end := n
	for end < valid && ranked[end].SNM.Value == boundary {
		end++
	}

	return ranked[:end:end], nil
}

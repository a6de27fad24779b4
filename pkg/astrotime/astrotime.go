// Package astrotime converts station calendar timestamps into the continuous
// time base used by the tide model: a Julian-Day-like day count and the
// fraction of Julian centuries since the 1900 reference epoch.
//
// The day count uses the plain quadrennial leap rule (every year divisible by
// four is a leap year). This matches the Gregorian calendar between 1901 and
// 2099 and the tide coefficients downstream were fitted against it, so it must
// not be replaced with a full Gregorian conversion.
package astrotime

// ReferenceEpoch is the day count of 1900 January 0.5 (JD 2415020.0).
const ReferenceEpoch = 2415020.0

// DaysPerCentury is the length of a Julian century.
const DaysPerCentury = 36525.0

const (
	epochOffset = 15019.5
	jdOffset    = 2400000.0
)

var monthLengths = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear reports whether year gets a 29-day February under the
// quadrennial rule. 1900 and 2100 are leap years here.
func IsLeapYear(year int) bool {
	return year-(year/4)*4 == 0
}

// DayCount returns the day count at 00:00 of the given calendar date.
// For dates between 1901 and 2099 this equals the Julian Day at midnight.
func DayCount(year, month, day int) float64 {
	nd := monthLengths
	if IsLeapYear(year) {
		nd[2] = 29
	}

	k := 0
	for m := 1; m < month && m <= 12; m++ {
		k += nd[m]
	}

	// (year-1901)/4 truncates toward zero, as the reference formula does.
	return float64(365*(year-1900)+(year-1901)/4+k+day) + epochOffset + jdOffset
}

// LocalHours returns the clock time of day in fractional hours.
func LocalHours(hour, minute, second int) float64 {
	return float64(hour) + float64(minute)/60.0 + float64(second)/3600.0
}

// CenturyFraction returns T, the Julian centuries elapsed between the
// reference epoch and the local clock time (hour, minute, second) on the day
// identified by dayCount, for a station tz hours east of UTC.
func CenturyFraction(dayCount float64, hour, minute, second int, tz float64) float64 {
	t := LocalHours(hour, minute, second)
	return (dayCount - ReferenceEpoch + (t-tz)/24.0) / DaysPerCentury
}

// Centuries is a convenience wrapper combining DayCount and CenturyFraction.
func Centuries(year, month, day, hour, minute, second int, tz float64) float64 {
	return CenturyFraction(DayCount(year, month, day), hour, minute, second, tz)
}

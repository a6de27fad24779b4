package astrotime

import (
	"math"
	"testing"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/stretchr/testify/assert"
)

func TestDayCountKnownValues(t *testing.T) {
	tests := []struct {
		name             string
		year, month, day int
		expected         float64
	}{
		{"J2000 midnight", 2000, 1, 1, 2451544.5},
		{"last day of 1999", 1999, 12, 31, 2451543.5},
		{"first day of 1901", 1901, 1, 1, 2415385.5},
		{"day after leap day 2020", 2020, 3, 1, 2458909.5},
		{"new year 2021", 2021, 1, 1, 2459215.5},
		{"reference record start", 2021, 6, 7, 2459372.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DayCount(tt.year, tt.month, tt.day))
		})
	}
}

func TestDayCountMatchesJulianDayInValidRange(t *testing.T) {
	for year := 1901; year <= 2099; year += 7 {
		for month := 1; month <= 12; month++ {
			for _, day := range []int{1, 15, 28} {
				want := julian.CalendarGregorianToJD(year, month, float64(day))
				got := DayCount(year, month, day)
				if got != want {
					t.Fatalf("%04d-%02d-%02d: DayCount = %.1f, JD = %.1f", year, month, day, got, want)
				}
			}
		}
	}
}

func TestDayCountKeepsQuadrennialRule(t *testing.T) {
	// 2100 is not a Gregorian leap year, but the model treats it as one, so the
	// day count runs one day ahead of the true Julian Day from March onward.
	assert.True(t, IsLeapYear(2100))
	assert.Equal(t, 2488129.5, DayCount(2100, 3, 1))
	assert.Equal(t, 1.0, DayCount(2100, 3, 1)-julian.CalendarGregorianToJD(2100, 3, 1))
}

func TestDayCountMonotonicWithinYear(t *testing.T) {
	for _, year := range []int{2019, 2020, 2021} {
		prev := math.Inf(-1)
		for month := 1; month <= 12; month++ {
			for day := 1; day <= 28; day++ {
				dc := DayCount(year, month, day)
				if dc <= prev {
					t.Fatalf("%d-%02d-%02d: day count %.1f not greater than %.1f", year, month, day, dc, prev)
				}
				prev = dc
			}
		}
	}
}

func TestCenturyFraction(t *testing.T) {
	// J2000.0 is 2000-01-01 12:00 UT, which is 100 Julian years minus half a
	// day after the 1900 reference epoch.
	got := Centuries(2000, 1, 1, 12, 0, 0, 0)
	assert.InDelta(t, (2451545.0-ReferenceEpoch)/DaysPerCentury, got, 1e-15)

	// The same instant expressed in UTC+8 local time.
	local := Centuries(2000, 1, 1, 20, 0, 0, 8)
	assert.InDelta(t, got, local, 1e-15)

	assert.InDelta(t, 12.5+1.0/240.0, LocalHours(12, 30, 15), 1e-12)
}

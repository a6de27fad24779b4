package tide

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/gravnoise/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mengcheng = types.Station{
	Name:        "Mengcheng",
	Longitude:   116.79,
	Latitude:    33.98,
	Timezone:    8,
	TidalFactor: 1.16,
	Elevation:   160,
}

func TestCorrectionGoldenValues(t *testing.T) {
	seattle := types.Station{Longitude: -122.3, Latitude: 47.6, Timezone: -8, TidalFactor: 1.16}
	origin := types.Station{Longitude: 0, Latitude: 0, Timezone: 0, TidalFactor: 1.0}

	tests := []struct {
		name     string
		station  types.Station
		ts       types.Timestamp
		expected float64
	}{
		{"Mengcheng midnight", mengcheng, types.Timestamp{Year: 2021, Month: 6, Day: 7}, 7.7588848426602945},
		{"Mengcheng half past noon", mengcheng, types.Timestamp{Year: 2021, Month: 6, Day: 7, Hour: 12, Minute: 30}, -87.07746884054337},
		{"Mengcheng last minute of day", mengcheng, types.Timestamp{Year: 2021, Month: 6, Day: 8, Hour: 23, Minute: 59}, 2.606394526806005},
		{"Mengcheng leap day", mengcheng, types.Timestamp{Year: 2020, Month: 2, Day: 29, Hour: 6, Minute: 15, Second: 30}, 24.49418726733843},
		{"Seattle western timezone", seattle, types.Timestamp{Year: 2023, Month: 2, Day: 5, Hour: 10, Minute: 29}, 57.637277108117736},
		{"equator at J2000", origin, types.Timestamp{Year: 2000, Month: 1, Day: 1, Hour: 12}, -31.11026356141246},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewModel(tt.station).Correction(tt.ts)
			assert.InEpsilon(t, tt.expected, got, 1e-6)
		})
	}
}

func TestCorrectionIsDeterministic(t *testing.T) {
	ts := types.Timestamp{Year: 2021, Month: 6, Day: 9, Hour: 3, Minute: 17, Second: 42}

	a := NewModel(mengcheng).Correction(ts)
	b := NewModel(mengcheng).Correction(ts)
	assert.Equal(t, math.Float64bits(a), math.Float64bits(b))
}

func TestCorrectionScalesWithTidalFactor(t *testing.T) {
	ts := types.Timestamp{Year: 2021, Month: 6, Day: 7, Hour: 5}

	unit := mengcheng
	unit.TidalFactor = 1
	m := NewModel(mengcheng)

	assert.InDelta(t, 1.16*NewModel(unit).Correction(ts), m.Correction(ts), 1e-12)
	assert.Equal(t, m.Potential(ts)*1.16, m.Correction(ts))
}

func TestCorrectionAmplitudeIsPhysical(t *testing.T) {
	// Solid-earth tide in gravity never exceeds roughly 300 microgal.
	m := NewModel(mengcheng)
	for minute := 0; minute < 3*1440; minute += 7 {
		ts := types.Timestamp{Year: 2021, Month: 6, Day: 7 + minute/1440, Hour: (minute / 60) % 24, Minute: minute % 60}
		if v := m.Correction(ts); math.Abs(v) > 300 || math.IsNaN(v) {
			t.Fatalf("%v: implausible tide %.3f", ts, v)
		}
	}
}

func TestSeriesAlignment(t *testing.T) {
	series := make(types.Series, 1440+17)
	for i := range series {
		series[i] = types.Sample{Timestamp: types.Timestamp{Year: 2021, Month: 6, Day: 7 + i/1440, Hour: (i / 60) % 24, Minute: i % 60}}
	}

	m := NewModel(mengcheng)
	out := m.SeriesFor(series)
	require.Len(t, out, len(series))
	assert.Equal(t, m.Correction(series[100].Timestamp), out[100])
}

func TestCompute(t *testing.T) {
	timestamps := []types.Timestamp{
		{Year: 2021, Month: 6, Day: 7},
		{Year: 2021, Month: 6, Day: 7, Minute: 1},
	}

	out, err := Compute(mengcheng, timestamps, 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = Compute(mengcheng, timestamps, 3)
	assert.True(t, errors.Is(err, ErrInvalidInputLength))
}

func TestSeriesFromColumns(t *testing.T) {
	cols := Columns{
		Year:   []int{2021, 2021, 2021},
		Month:  []int{6, 6, 6},
		Day:    []int{7, 7, 8},
		Hour:   []int{0, 12, 23},
		Minute: []int{0, 30, 59},
		Second: []int{0, 0, 0},
	}
	m := NewModel(mengcheng)

	out, err := m.SeriesFromColumns(cols, 3)
	require.NoError(t, err)
	assert.InEpsilon(t, 7.7588848426602945, out[0], 1e-6)
	assert.InEpsilon(t, -87.07746884054337, out[1], 1e-6)
	assert.InEpsilon(t, 2.606394526806005, out[2], 1e-6)

	tests := []struct {
		name       string
		cols       Columns
		gravityLen int
	}{
		{"gravity longer", cols, 4},
		{"gravity shorter", cols, 2},
		{"ragged column", Columns{
			Year: []int{2021, 2021}, Month: []int{6, 6}, Day: []int{7, 7},
			Hour: []int{0}, Minute: []int{0, 1}, Second: []int{0, 0},
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SeriesFromColumns(tt.cols, tt.gravityLen)
			assert.ErrorIs(t, err, ErrInvalidInputLength)
		})
	}
}

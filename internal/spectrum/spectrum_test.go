package spectrum

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minuteRate = 1.0 / 60.0

func TestPaddedLength(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		maxExp   int
		expected int
		wantErr  bool
	}{
		{"single sample", 1, 20, 2, false},
		{"one day of minutes", 1440, 20, 2048, false},
		{"just below power of two", 2047, 20, 2048, false},
		{"exact power of two is strict", 2048, 20, 4096, false},
		{"largest supported", 1<<20 - 1, 20, 1 << 20, false},
		{"at the cap", 1 << 20, 20, 0, true},
		{"cap too small for a day", 1440, 10, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PaddedLength(tt.n, tt.maxExp)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSegmentTooLarge)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPeriodogramKnownValues(t *testing.T) {
	tests := []struct {
		name    string
		x       []float64
		fs      float64
		detrend bool
		freqs   []float64
		power   []float64
	}{
		{"alternating pair lands in Nyquist", []float64{1, -1}, 1, false, []float64{0, 0.5}, []float64{0, 2}},
		{"constant without detrend is all DC", []float64{1, 1, 1, 1}, 1, false, []float64{0, 0.25, 0.5}, []float64{4, 0, 0}},
		{"constant with detrend vanishes", []float64{1, 1, 1, 1}, 1, true, []float64{0, 0.25, 0.5}, []float64{0, 0, 0}},
		{"interior bins are doubled", []float64{1, 0, -1, 0}, 2, false, []float64{0, 0.5, 1}, []float64{0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Periodogram(tt.x, tt.fs, tt.detrend)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.freqs, c.Frequencies, 1e-12)
			assert.InDeltaSlice(t, tt.power, c.Power, 1e-12)
		})
	}
}

func TestPeriodogramParseval(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := make([]float64, 2048)
	for i := range x {
		x[i] = 3 + rng.NormFloat64()
	}

	for _, detrend := range []bool{false, true} {
		c, err := Periodogram(x, minuteRate, detrend)
		require.NoError(t, err)

		mean := 0.0
		if detrend {
			for _, v := range x {
				mean += v
			}
			mean /= float64(len(x))
		}
		power := 0.0
		for _, v := range x {
			power += (v - mean) * (v - mean)
		}
		power /= float64(len(x))

		total := 0.0
		for _, p := range c.Power {
			total += p
		}
		assert.InEpsilon(t, power, total*c.Resolution(), 1e-9, "detrend=%v", detrend)
	}
}

func TestEstimateShape(t *testing.T) {
	e, err := NewEstimator(minuteRate)
	require.NoError(t, err)

	segment := make([]float64, 1440)
	for i := range segment {
		segment[i] = math.Sin(float64(i) / 10)
	}
	orig := append([]float64(nil), segment...)

	c, err := e.Estimate(segment)
	require.NoError(t, err)

	assert.Equal(t, 1025, c.Len())
	assert.Len(t, c.Power, 1025)
	assert.InDelta(t, minuteRate/2048, c.Resolution(), 1e-18)
	assert.Equal(t, 0.0, c.Frequencies[0])
	assert.InDelta(t, minuteRate/2, c.Frequencies[1024], 1e-15)
	assert.Equal(t, orig, segment, "input must not be modified")
}

func TestEstimateLocatesSinusoid(t *testing.T) {
	e, err := NewEstimator(minuteRate)
	require.NoError(t, err)

	f0 := 1.0 / 300.0
	segment := make([]float64, 1440)
	for i := range segment {
		segment[i] = 10 * math.Sin(2*math.Pi*f0*float64(i)*60)
	}

	c, err := e.Estimate(segment)
	require.NoError(t, err)

	peak := 0
	for k := range c.Power {
		if c.Power[k] > c.Power[peak] {
			peak = k
		}
	}
	assert.InDelta(t, f0, c.Frequencies[peak], c.Resolution())
}

func TestEstimateZeroSegment(t *testing.T) {
	e, err := NewEstimator(minuteRate)
	require.NoError(t, err)

	c, err := e.Estimate(make([]float64, 1440))
	require.NoError(t, err)
	for k, p := range c.Power {
		if p != 0 {
			t.Fatalf("bin %d: expected zero power, got %g", k, p)
		}
	}
}

func TestEstimateErrors(t *testing.T) {
	e, err := NewEstimator(minuteRate, WithMaxPadExponent(10))
	require.NoError(t, err)

	_, err = e.Estimate(nil)
	assert.ErrorIs(t, err, ErrEmptySegment)

	_, err = e.Estimate(make([]float64, 1440))
	assert.ErrorIs(t, err, ErrSegmentTooLarge)

	_, err = NewEstimator(0)
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
	_, err = NewEstimator(math.NaN())
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
	_, err = NewEstimator(minuteRate, WithMaxPadExponent(0))
	assert.Error(t, err)
}

func TestEstimateSinglePoint(t *testing.T) {
	e, err := NewEstimator(1, WithoutDetrend())
	require.NoError(t, err)

	c, err := e.Estimate([]float64{2})
	require.NoError(t, err)
	// [2, 0] padded: X0 = 2, X1 = 2, scale 1/2.
	assert.InDeltaSlice(t, []float64{2, 2}, c.Power, 1e-12)
}

func TestEstimateConcurrentUse(t *testing.T) {
	e, err := NewEstimator(minuteRate)
	require.NoError(t, err)

	segment := make([]float64, 1440)
	for i := range segment {
		segment[i] = math.Cos(float64(i) / 33)
	}
	want, err := e.Estimate(segment)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Curve, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = e.Estimate(segment)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want.Power, got.Power)
	}
}

func TestMean(t *testing.T) {
	a := Curve{Frequencies: []float64{0, 1, 2}, Power: []float64{1, 2, 3}}
	b := Curve{Frequencies: []float64{0, 1, 2}, Power: []float64{3, 4, 5}}

	m, err := Mean([]Curve{a, b})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, m.Power)
	assert.Equal(t, a.Frequencies, m.Frequencies)
	assert.Equal(t, []float64{1, 2, 3}, a.Power, "inputs must not be modified")

	_, err = Mean([]Curve{a, {Frequencies: []float64{0, 1}, Power: []float64{1, 1}}})
	assert.ErrorIs(t, err, ErrMismatchedBins)

	_, err = Mean(nil)
	assert.Error(t, err)
}

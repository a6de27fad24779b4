package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chrissnell/gravnoise/internal/correction"
	"github.com/chrissnell/gravnoise/internal/noise"
	"github.com/chrissnell/gravnoise/internal/types"
	"github.com/chrissnell/gravnoise/pkg/tide"
)

var mengcheng = types.Station{
	Name:        "Mengcheng",
	Longitude:   116.79,
	Latitude:    33.98,
	Timezone:    8,
	TidalFactor: 1.16,
	Elevation:   160,
}

// syntheticRecord builds one-minute samples holding the station tide, a
// slow instrument drift and an in-band oscillation whose amplitude changes
// day by day. Pressure sits at the normal pressure of the station.
func syntheticRecord(amplitudes []float64, extra int) types.Series {
	model := tide.NewModel(mengcheng)
	start := time.Date(2021, 6, 7, 0, 0, 0, 0, time.UTC)
	n := len(amplitudes)*1440 + extra
	pn := correction.NormalPressure(mengcheng.Elevation)

	series := make(types.Series, n)
	for i := range series {
		ts := types.TimestampFromTime(start.Add(time.Duration(i) * time.Minute))
		a := 1.0
		if d := i / 1440; d < len(amplitudes) {
			a = amplitudes[d]
		}
		series[i] = types.Sample{
			Timestamp: ts,
			Gravity:   model.Correction(ts) + 40 + 0.002*float64(i) + a*math.Sin(2*math.Pi*float64(i)/5),
			Pressure:  pn,
		}
	}
	return series
}

func TestRunSelectsQuietDays(t *testing.T) {
	p, err := New(DefaultOptions(mengcheng), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	out, err := p.Run(context.Background(), syntheticRecord([]float64{5, 1, 4, 2, 3}, 0))
	require.NoError(t, err)

	assert.Equal(t, 5*1440, out.Samples)
	assert.Len(t, out.Tide, 5*1440)
	assert.Len(t, out.Residual, 5*1440)
	assert.Equal(t, []int{1, 3, 4}, out.Result.SelectedDays())
	assert.Equal(t, 0, out.Result.Dropped)
}

func TestResidualRemovesTideAndDrift(t *testing.T) {
	series := syntheticRecord([]float64{1, 1, 1}, 0)
	p, err := New(DefaultOptions(mengcheng), nil)
	require.NoError(t, err)

	_, residual, err := p.Residual(series)
	require.NoError(t, err)

	for i := 0; i < len(residual); i += 37 {
		want := math.Sin(2 * math.Pi * float64(i) / 5)
		require.InDelta(t, want, residual[i], 0.05, "sample %d", i)
	}
}

func TestResidualTideOnly(t *testing.T) {
	series := syntheticRecord([]float64{1, 1}, 0)
	opts := DefaultOptions(mengcheng)
	opts.Detrend = false
	opts.PressureCorrection = false
	opts.PolynomialDegree = 0

	p, err := New(opts, nil)
	require.NoError(t, err)

	tideSeries, residual, err := p.Residual(series)
	require.NoError(t, err)

	gravity := series.Gravity()
	for i := range residual {
		require.Equal(t, gravity[i]-tideSeries[i], residual[i])
	}
}

func TestResidualBarometric(t *testing.T) {
	series := syntheticRecord([]float64{1, 1}, 0)
	for i := range series {
		series[i].Pressure = 1005
	}
	opts := DefaultOptions(mengcheng)
	opts.Detrend = false
	opts.PolynomialDegree = 0

	p, err := New(opts, nil)
	require.NoError(t, err)

	tideSeries, residual, err := p.Residual(series)
	require.NoError(t, err)
	assert.InDelta(t, series[0].Gravity-tideSeries[0]+3.2472186027199315, residual[0], 1e-9)
}

func TestRunLogsDroppedSamples(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p, err := New(DefaultOptions(mengcheng), zap.New(core).Sugar())
	require.NoError(t, err)

	out, err := p.Run(context.Background(), syntheticRecord([]float64{3, 2, 1}, 200))
	require.NoError(t, err)
	assert.Equal(t, 200, out.Result.Dropped)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(200), warnings[0].ContextMap()["dropped"])
	assert.Equal(t, 3, logs.FilterMessage("day noise").Len())
}

func TestRunInsufficientDays(t *testing.T) {
	p, err := New(DefaultOptions(mengcheng), nil)
	require.NoError(t, err)

	out, err := p.Run(context.Background(), syntheticRecord([]float64{1, 2}, 0))
	assert.ErrorIs(t, err, noise.ErrInsufficientDays)
	require.NotNil(t, out)
	assert.Len(t, out.Result.Days, 2)
}

func TestRunTooShortForDrift(t *testing.T) {
	p, err := New(DefaultOptions(mengcheng), nil)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), syntheticRecord(nil, 5))
	assert.ErrorIs(t, err, correction.ErrTooFewSamples)
}

func TestNewRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions(mengcheng)
	opts.PolynomialDegree = -1
	_, err := New(opts, nil)
	assert.Error(t, err)

	opts = DefaultOptions(mengcheng)
	opts.Noise.QuietDays = 0
	_, err = New(opts, nil)
	assert.ErrorIs(t, err, noise.ErrInvalidParams)
}

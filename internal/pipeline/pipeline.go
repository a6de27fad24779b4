// Package pipeline turns a raw gravimeter record into the station noise
// magnitude of each day. Stages run in a fixed order:
//
//	raw gravity -> linear detrend -> minus tide -> minus barometric effect
//	-> minus polynomial drift -> per-day noise analysis
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chrissnell/gravnoise/internal/correction"
	"github.com/chrissnell/gravnoise/internal/noise"
	"github.com/chrissnell/gravnoise/internal/types"
	"github.com/chrissnell/gravnoise/pkg/tide"
)

// Options selects the correction stages and the analysis parameters.
type Options struct {
	Station            types.Station
	Detrend            bool
	PressureCorrection bool
	Admittance         float64
	PolynomialDegree   int // 0 disables the drift stage
	Noise              noise.Params
}

// DefaultOptions enables every stage with the usual gPhone settings.
func DefaultOptions(station types.Station) Options {
	return Options{
		Station:            station,
		Detrend:            true,
		PressureCorrection: true,
		Admittance:         correction.DefaultAdmittance,
		PolynomialDegree:   9,
		Noise:              noise.DefaultParams(),
	}
}

// Output carries the intermediate series next to the analysis result.
type Output struct {
	Samples  int
	Tide     []float64
	Residual []float64
	Result   *noise.Result
}

// Pipeline is safe for concurrent use once built.
type Pipeline struct {
	opts   Options
	model  *tide.Model
	ranker *noise.Ranker
	logger *zap.SugaredLogger
}

// New validates opts and builds the tide model and ranker.
func New(opts Options, logger *zap.SugaredLogger) (*Pipeline, error) {
	if opts.PolynomialDegree < 0 {
		return nil, fmt.Errorf("polynomial degree must be >= 0: %d", opts.PolynomialDegree)
	}

	ranker, err := noise.NewRanker(opts.Noise)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Pipeline{
		opts:   opts,
		model:  tide.NewModel(opts.Station),
		ranker: ranker,
		logger: logger,
	}, nil
}

// Residual applies the correction stages and returns the theoretical tide
// and the corrected gravity series.
func (p *Pipeline) Residual(series types.Series) ([]float64, []float64, error) {
	gravity := series.Gravity()

	if p.opts.Detrend {
		detrended, err := correction.LinearDetrend(gravity)
		if err != nil {
			return nil, nil, fmt.Errorf("detrend: %w", err)
		}
		gravity = detrended
	}

	tideSeries := p.model.SeriesFor(series)
	residual, err := correction.Subtract(gravity, tideSeries)
	if err != nil {
		return nil, nil, fmt.Errorf("tide: %w", err)
	}

	if p.opts.PressureCorrection {
		air := correction.Barometric(series.Pressure(), p.opts.Station.Elevation, p.opts.Admittance)
		residual, err = correction.Subtract(residual, air)
		if err != nil {
			return nil, nil, fmt.Errorf("barometric: %w", err)
		}
	}

	if p.opts.PolynomialDegree > 0 {
		residual, err = correction.RemovePolynomialDrift(residual, p.opts.PolynomialDegree)
		if err != nil {
			return nil, nil, fmt.Errorf("drift: %w", err)
		}
	}

	return tideSeries, residual, nil
}

// Run corrects series and analyses the residual. When the record holds too
// few usable days the partial output is returned along with an error
// wrapping noise.ErrInsufficientDays.
func (p *Pipeline) Run(ctx context.Context, series types.Series) (*Output, error) {
	p.logger.Infow("processing gravity record",
		"station", p.opts.Station.Name,
		"samples", len(series))

	tideSeries, residual, err := p.Residual(series)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Samples:  len(series),
		Tide:     tideSeries,
		Residual: residual,
	}

	res, err := p.ranker.Analyze(ctx, residual)
	if res == nil {
		return nil, fmt.Errorf("noise analysis: %w", err)
	}
	out.Result = res

	if res.Dropped > 0 {
		p.logger.Warnw("dropping trailing samples that do not form a whole day",
			"dropped", res.Dropped,
			"samples_per_day", p.opts.Noise.SamplesPerDay)
	}
	for _, rec := range res.Records() {
		p.logger.Debugw("day noise",
			"day", rec.DayIndex,
			"mean_psd", rec.MeanBandPSD.String(),
			"snm", rec.SNM.String(),
			"band_bins", rec.BandBins)
	}

	if err != nil {
		if errors.Is(err, noise.ErrInsufficientDays) {
			p.logger.Warnw("not enough valid days to select quiet days",
				"days", len(res.Days),
				"wanted", p.opts.Noise.QuietDays)
		}
		return out, fmt.Errorf("noise analysis: %w", err)
	}

	p.logger.Infow("selected quiet days",
		"days", res.SelectedDays(),
		"of", len(res.Days))

	return out, nil
}

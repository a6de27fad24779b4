// Package noise estimates the station noise magnitude (SNM) of a residual
// gravity record: per-day PSD, band-limited average, ranking of the days and
// the mean spectrum of the quietest ones.
package noise

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/gravnoise/internal/spectrum"
)

// Day couples a segment with its spectrum.
type Day struct {
	Segment DaySegment
	PSD     spectrum.Curve
}

// Result is the outcome of one analysis. Records are derived from the day
// spectra and cannot be edited independently of them.
type Result struct {
	Params     Params
	Days       []Day
	Dropped    int            // trailing samples not forming a whole day
	Ranked     []Record       // quietest first, invalid days last
	Selected   []Record       // quiet days including ties, quietest first
	Background spectrum.Curve // mean PSD of the selected days

	records []Record
}

// Records returns the per-day table in day order.
func (r *Result) Records() []Record {
	return append([]Record(nil), r.records...)
}

// SelectedDays returns the indices of the selected quiet days, quietest
// first. Its length may exceed Params.QuietDays when days tie.
func (r *Result) SelectedDays() []int {
	out := make([]int, len(r.Selected))
	for i, rec := range r.Selected {
		out[i] = rec.DayIndex
	}
	return out
}

// Ranker runs the day-by-day analysis with a fixed set of parameters.
type Ranker struct {
	params    Params
	estimator *spectrum.Estimator
}

// NewRanker validates params and prepares the spectral estimator.
func NewRanker(params Params) (*Ranker, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	est, err := spectrum.NewEstimator(params.SampleRate,
		spectrum.WithMaxPadExponent(params.MaxPadExponent),
		spectrum.WithDetrend(params.Detrend),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spectral estimator: %w", err)
	}

	return &Ranker{params: params, estimator: est}, nil
}

// Params returns the ranker configuration.
func (r *Ranker) Params() Params {
	return r.params
}

// Analyze splits residual into days, estimates each day's PSD and selects
// the quiet days.
//
// When too few valid days exist, Analyze returns the per-day part of the
// result together with an error wrapping ErrInsufficientDays. Spectral
// estimation errors abort the analysis and return a nil result.
func (r *Ranker) Analyze(ctx context.Context, residual []float64) (*Result, error) {
	segments, dropped := Split(residual, r.params.SamplesPerDay)

	days, err := r.estimate(ctx, segments)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Params:  r.params,
		Days:    days,
		Dropped: dropped,
		records: make([]Record, len(days)),
	}
	for i, d := range days {
		res.records[i] = NewRecord(d.Segment.Index, d.PSD, r.params)
	}
	res.Ranked = Rank(res.records)

	selected, err := SelectQuietest(res.records, r.params.QuietDays)
	if err != nil {
		return res, err
	}
	res.Selected = selected

	curves := make([]spectrum.Curve, len(selected))
	for i, rec := range selected {
		curves[i] = days[rec.DayIndex].PSD
	}
	res.Background, err = spectrum.Mean(curves)
	if err != nil {
		return res, fmt.Errorf("averaging quiet day spectra: %w", err)
	}

	return res, nil
}

func (r *Ranker) estimate(ctx context.Context, segments []DaySegment) ([]Day, error) {
	days := make([]Day, len(segments))

	if r.params.Workers <= 1 {
		for i, seg := range segments {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			psd, err := r.estimator.Estimate(seg.Values)
			if err != nil {
				return nil, fmt.Errorf("day %d: %w", seg.Index, err)
			}
			days[i] = Day{Segment: seg, PSD: psd}
		}
		return days, nil
	}

	// Days are independent; each goroutine writes only its own slot.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.params.Workers)
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			psd, err := r.estimator.Estimate(seg.Values)
			if err != nil {
				return fmt.Errorf("day %d: %w", seg.Index, err)
			}
			days[i] = Day{Segment: seg, PSD: psd}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return days, nil
}

// Analyze is a one-shot helper around NewRanker and Ranker.Analyze.
func Analyze(ctx context.Context, residual []float64, params Params) (*Result, error) {
	r, err := NewRanker(params)
	if err != nil {
		return nil, err
	}
	return r.Analyze(ctx, residual)
}

// Package storage defines the persistence model for analysis runs and the
// interface every storage backend implements.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/gravnoise/internal/noise"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunStore persists analysis runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	// ListRuns returns every run newest first, without records or PSD bins.
	ListRuns(ctx context.Context) ([]Run, error)
	Close() error
}

// DayRecord is the stored form of noise.Record. Nil values stand for days
// whose band was empty or whose power had no logarithm.
type DayRecord struct {
	DayIndex int      `json:"day"`
	MeanPSD  *float64 `json:"mean_psd"`
	SNM      *float64 `json:"snm"`
	BandBins int      `json:"band_bins"`
}

// PSDBin is one point of the representative spectrum.
type PSDBin struct {
	Frequency float64 `json:"frequency"`
	Power     float64 `json:"power"`
}

// Run is one analysis of a station record.
type Run struct {
	ID                uuid.UUID   `json:"id"`
	Station           string      `json:"station"`
	CreatedAt         time.Time   `json:"created_at"`
	Samples           int         `json:"samples"`
	Dropped           int         `json:"dropped"`
	BandLow           float64     `json:"band_low_hz"`
	BandHigh          float64     `json:"band_high_hz"`
	CalibrationOffset float64     `json:"calibration_offset"`
	Selected          []int       `json:"selected"`
	Records           []DayRecord `json:"records,omitempty"`
	PSD               []PSDBin    `json:"psd,omitempty"`
}

// NewRun converts an analysis result into a storable run with a fresh ID.
// A result without a representative spectrum yields a run without PSD bins.
func NewRun(station string, samples int, res *noise.Result) *Run {
	run := &Run{
		ID:                uuid.New(),
		Station:           station,
		CreatedAt:         time.Now().UTC(),
		Samples:           samples,
		Dropped:           res.Dropped,
		BandLow:           res.Params.BandLow,
		BandHigh:          res.Params.BandHigh,
		CalibrationOffset: res.Params.CalibrationOffset,
		Selected:          res.SelectedDays(),
	}

	for _, rec := range res.Records() {
		run.Records = append(run.Records, DayRecord{
			DayIndex: rec.DayIndex,
			MeanPSD:  levelPtr(rec.MeanBandPSD),
			SNM:      levelPtr(rec.SNM),
			BandBins: rec.BandBins,
		})
	}

	bg := res.Background
	for i := 0; i < bg.Len(); i++ {
		run.PSD = append(run.PSD, PSDBin{Frequency: bg.Frequencies[i], Power: bg.Power[i]})
	}

	return run
}

func levelPtr(l noise.Level) *float64 {
	if !l.Valid {
		return nil
	}
	v := l.Value
	return &v
}

// SelectedRanks maps each selected day to its position in the quiet-day
// ranking, starting at 0.
func (r *Run) SelectedRanks() map[int]int {
	ranks := make(map[int]int, len(r.Selected))
	for i, d := range r.Selected {
		ranks[d] = i
	}
	return ranks
}

// Summary returns a copy of the run without records and PSD bins.
func (r *Run) Summary() Run {
	s := *r
	s.Selected = append([]int(nil), r.Selected...)
	s.Records = nil
	s.PSD = nil
	return s
}

package noise

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/gravnoise/internal/spectrum"
)

var (
	// ErrInsufficientDays means fewer valid days exist than the number of
	// quiet days requested.
	ErrInsufficientDays = errors.New("not enough valid days to select quiet days")
	// ErrInvalidParams wraps every parameter validation failure.
	ErrInvalidParams = errors.New("invalid noise analysis parameters")
)

// Params holds the instrument and analysis constants. Defaults describe a
// one-minute gravimeter record.
type Params struct {
	SamplesPerDay     int     // samples in one day segment
	SampleRate        float64 // Hz
	BandLow           float64 // Hz, exclusive
	BandHigh          float64 // Hz, exclusive
	CalibrationOffset float64 // added to log10 of the band mean
	QuietDays         int     // days to select before ties
	MaxPadExponent    int     // zero padding search cap
	Detrend           bool    // remove the padded mean before the FFT
	Workers           int     // parallel day estimation, <= 1 runs sequentially
}

// DefaultParams returns the constants used for one-minute gravimeter data:
// a 200-600 s period band and a 2.5 calibration offset.
func DefaultParams() Params {
	return Params{
		SamplesPerDay:     1440,
		SampleRate:        1.0 / 60.0,
		BandLow:           1.0 / 600.0,
		BandHigh:          1.0 / 200.0,
		CalibrationOffset: 2.5,
		QuietDays:         3,
		MaxPadExponent:    spectrum.DefaultMaxPadExponent,
		Detrend:           true,
	}
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	switch {
	case p.SamplesPerDay <= 0:
		return fmt.Errorf("%w: samples per day must be > 0: %d", ErrInvalidParams, p.SamplesPerDay)
	case !(p.SampleRate > 0) || math.IsInf(p.SampleRate, 0):
		return fmt.Errorf("%w: sample rate must be > 0: %v", ErrInvalidParams, p.SampleRate)
	case p.BandLow < 0 || !(p.BandHigh > p.BandLow):
		return fmt.Errorf("%w: band must satisfy 0 <= low < high: [%v, %v]", ErrInvalidParams, p.BandLow, p.BandHigh)
	case math.IsNaN(p.CalibrationOffset) || math.IsInf(p.CalibrationOffset, 0):
		return fmt.Errorf("%w: calibration offset must be finite", ErrInvalidParams)
	case p.QuietDays <= 0:
		return fmt.Errorf("%w: quiet days must be > 0: %d", ErrInvalidParams, p.QuietDays)
	case p.MaxPadExponent < 1 || p.MaxPadExponent > 30:
		return fmt.Errorf("%w: max pad exponent must be in [1,30]: %d", ErrInvalidParams, p.MaxPadExponent)
	}
	return nil
}

// Package spectrum estimates the power spectral density of one day of
// residual gravity: Hann window, zero padding to a power of two and a
// one-sided periodogram (scipy.signal.periodogram compatible).
package spectrum

import (
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultMaxPadExponent caps the zero-padding search at 2^20 samples.
const DefaultMaxPadExponent = 20

var (
	ErrSegmentTooLarge    = errors.New("segment exceeds supported zero-padding range")
	ErrEmptySegment       = errors.New("segment must not be empty")
	ErrInvalidSampleRate  = errors.New("sample rate must be positive")
	ErrMismatchedBins     = errors.New("curves have different frequency bins")
	errInvalidPadExponent = errors.New("max pad exponent must be between 1 and 30")
)

// Curve is a one-sided power spectral density. Frequencies are ascending
// and Power has the same length.
type Curve struct {
	Frequencies []float64 // Hz
	Power       []float64 // input units^2 / Hz
}

// Len returns the number of frequency bins.
func (c Curve) Len() int { return len(c.Frequencies) }

// Resolution returns the bin spacing in Hz.
func (c Curve) Resolution() float64 {
	if len(c.Frequencies) < 2 {
		return 0
	}
	return c.Frequencies[1] - c.Frequencies[0]
}

// PaddedLength returns the smallest power of two strictly greater than n,
// searching exponents 1..maxExponent.
func PaddedLength(n, maxExponent int) (int, error) {
	for i := 1; i <= maxExponent; i++ {
		if 1<<i > n {
			return 1 << i, nil
		}
	}
	return 0, fmt.Errorf("%w: %d samples needs more than 2^%d", ErrSegmentTooLarge, n, maxExponent)
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithMaxPadExponent changes the zero-padding search cap.
func WithMaxPadExponent(exp int) Option {
	return func(e *Estimator) {
		e.maxExponent = exp
	}
}

// WithoutDetrend disables removal of the padded buffer mean before the FFT.
func WithoutDetrend() Option {
	return func(e *Estimator) {
		e.detrend = false
	}
}

// WithDetrend sets whether the padded buffer mean is removed before the FFT.
func WithDetrend(on bool) Option {
	return func(e *Estimator) {
		e.detrend = on
	}
}

// WithWindowCacheSize sets how many distinct window lengths are cached.
func WithWindowCacheSize(size int) Option {
	return func(e *Estimator) {
		if size > 0 {
			e.cacheSize = size
		}
	}
}

// Estimator turns day segments into PSD curves. It is safe for concurrent
// use; the only shared state is the read-only window cache.
type Estimator struct {
	sampleRate  float64
	maxExponent int
	detrend     bool
	cacheSize   int
	windows     *lru.Cache[int, []float64]
}

// NewEstimator creates an estimator for series sampled at sampleRate Hz.
func NewEstimator(sampleRate float64, opts ...Option) (*Estimator, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}

	e := &Estimator{
		sampleRate:  sampleRate,
		maxExponent: DefaultMaxPadExponent,
		detrend:     true,
		cacheSize:   8,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if e.maxExponent < 1 || e.maxExponent > 30 {
		return nil, fmt.Errorf("%w: %d", errInvalidPadExponent, e.maxExponent)
	}

	cache, err := lru.New[int, []float64](e.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating window cache: %w", err)
	}
	e.windows = cache

	return e, nil
}

// SampleRate returns the configured sample rate in Hz.
func (e *Estimator) SampleRate() float64 { return e.sampleRate }

// hann returns symmetric Hann coefficients of length n. The returned slice
// is shared and must not be modified.
func (e *Estimator) hann(n int) []float64 {
	if w, ok := e.windows.Get(n); ok {
		return w
	}

	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	// A single-point Hann window is [1]; gonum would divide by n-1.
	if n > 1 {
		window.Hann(w)
	}

	e.windows.Add(n, w)
	return w
}

// Estimate windows segment, zero pads it and returns its periodogram. The
// input is not modified.
func (e *Estimator) Estimate(segment []float64) (Curve, error) {
	if len(segment) == 0 {
		return Curve{}, ErrEmptySegment
	}

	nfft, err := PaddedLength(len(segment), e.maxExponent)
	if err != nil {
		return Curve{}, err
	}

	buf := make([]float64, nfft)
	floats.MulTo(buf[:len(segment)], segment, e.hann(len(segment)))

	return periodogram(buf, e.sampleRate, e.detrend), nil
}

// Periodogram returns the one-sided density periodogram of x with a boxcar
// window and no padding. When detrend is set the mean of x is removed first.
func Periodogram(x []float64, sampleRate float64, detrend bool) (Curve, error) {
	if len(x) == 0 {
		return Curve{}, ErrEmptySegment
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return Curve{}, fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}
	return periodogram(append([]float64(nil), x...), sampleRate, detrend), nil
}

// periodogram consumes buf.
func periodogram(buf []float64, fs float64, detrend bool) Curve {
	n := len(buf)
	if detrend {
		floats.AddConst(-stat.Mean(buf, nil), buf)
	}

	coeffs := fourier.NewFFT(n).Coefficients(nil, buf)

	bins := n/2 + 1
	out := Curve{
		Frequencies: make([]float64, bins),
		Power:       make([]float64, bins),
	}

	scale := 1 / (fs * float64(n))
	for k := 0; k < bins; k++ {
		c := coeffs[k]
		p := (real(c)*real(c) + imag(c)*imag(c)) * scale

		// Fold negative frequencies onto positive ones. DC and, for even n,
		// Nyquist have no mirror image.
		if k != 0 && !(n%2 == 0 && k == n/2) {
			p *= 2
		}

		out.Frequencies[k] = float64(k) * fs / float64(n)
		out.Power[k] = p
	}

	return out
}

// Mean averages curves bin by bin. All curves must share the same
// frequency bins.
func Mean(curves []Curve) (Curve, error) {
	if len(curves) == 0 {
		return Curve{}, errors.New("no curves to average")
	}

	ref := curves[0]
	out := Curve{
		Frequencies: append([]float64(nil), ref.Frequencies...),
		Power:       make([]float64, ref.Len()),
	}

	for i, c := range curves {
		if c.Len() != ref.Len() || len(c.Power) != ref.Len() || !floats.Equal(c.Frequencies, ref.Frequencies) {
			return Curve{}, fmt.Errorf("%w: curve %d", ErrMismatchedBins, i)
		}
		floats.Add(out.Power, c.Power)
	}
	floats.Scale(1/float64(len(curves)), out.Power)

	return out, nil
}

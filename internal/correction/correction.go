// Package correction removes the non-tidal deterministic signals from a
// gravity record: instrument drift and barometric loading.
package correction

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultAdmittance is the barometric admittance in 10^-8 m/s^2 per hPa.
const DefaultAdmittance = -0.3

// ErrTooFewSamples is returned when a fit has fewer samples than unknowns.
var ErrTooFewSamples = errors.New("not enough samples for fit")

// NormalPressure returns the standard-atmosphere pressure in hPa at
// elevation metres above sea level.
func NormalPressure(elevation float64) float64 {
	return 1.01325e3 * math.Pow(1-0.0065*elevation/288.15, 5.2559)
}

// Barometric returns the gravity effect of the pressure deviation from the
// normal pressure at elevation, admittance * (P - Pn), one value per sample.
func Barometric(pressure []float64, elevation, admittance float64) []float64 {
	pn := NormalPressure(elevation)
	out := make([]float64, len(pressure))
	for i, p := range pressure {
		out[i] = admittance * (p - pn)
	}
	return out
}

// Subtract returns a - b element-wise. Both slices must have equal length.
func Subtract(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("length mismatch: %d != %d", len(a), len(b))
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out, nil
}

// LinearTrend returns the least-squares straight line through series over
// the sample index.
func LinearTrend(series []float64) ([]float64, error) {
	n := len(series)
	if n < 2 {
		return nil, fmt.Errorf("%w: linear trend needs 2, have %d", ErrTooFewSamples, n)
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(x, series, nil, false)

	out := make([]float64, n)
	for i := range out {
		out[i] = intercept + slope*x[i]
	}
	return out, nil
}

// LinearDetrend removes the least-squares line from series
// (scipy.signal.detrend type='linear' compatible).
func LinearDetrend(series []float64) ([]float64, error) {
	trend, err := LinearTrend(series)
	if err != nil {
		return nil, err
	}
	return Subtract(series, trend)
}

// PolynomialDrift fits a polynomial of the given degree to series over the
// axis linspace(0, n, n) and returns the fitted curve. The axis is mapped
// onto [-1, 1] before building the Vandermonde matrix; the fitted values are
// the same, the conditioning is not.
func PolynomialDrift(series []float64, degree int) ([]float64, error) {
	n := len(series)
	if degree < 0 {
		return nil, fmt.Errorf("polynomial degree must be >= 0: %d", degree)
	}
	if n <= degree {
		return nil, fmt.Errorf("%w: degree %d needs more than %d samples, have %d", ErrTooFewSamples, degree, degree, n)
	}

	u := make([]float64, n)
	if n > 1 {
		step := float64(n) / float64(n-1)
		for i := range u {
			u[i] = 2*float64(i)*step/float64(n) - 1
		}
	}

	X := mat.NewDense(n, degree+1, nil)
	for i := 0; i < n; i++ {
		v := 1.0
		for j := 0; j <= degree; j++ {
			X.Set(i, j, v)
			v *= u[i]
		}
	}
	y := mat.NewVecDense(n, append([]float64(nil), series...))

	var qr mat.QR
	qr.Factorize(X)

	coeffs := mat.NewVecDense(degree+1, nil)
	if err := qr.SolveVecTo(coeffs, false, y); err != nil {
		return nil, fmt.Errorf("solving polynomial fit: %w", err)
	}

	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(X, coeffs)

	return fitted.RawVector().Data, nil
}

// RemovePolynomialDrift subtracts the fitted polynomial from series.
func RemovePolynomialDrift(series []float64, degree int) ([]float64, error) {
	fit, err := PolynomialDrift(series, degree)
	if err != nil {
		return nil, err
	}
	return Subtract(series, fit)
}

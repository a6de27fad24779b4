// Package tide computes the theoretical solid-earth tide in gravity for a
// station, using truncated lunar and solar series of mean orbital elements.
// Results are in 10^-8 m/s^2 (microgal) scaled by the station tidal factor.
//
// The series coefficients are empirical and must be kept verbatim; small
// "improvements" change the output well beyond the instrument noise floor.
package tide

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/gravnoise/internal/types"
	"github.com/chrissnell/gravnoise/pkg/astrotime"
)

// ErrInvalidInputLength is returned when the timestamp columns and the
// gravity series differ in length.
var ErrInvalidInputLength = errors.New("timestamp columns and gravity series must have equal length")

// pi is the literal the coefficients were fitted with, not math.Pi.
const pi = 3.1415926535

// Elements holds the mean orbital elements at a given epoch, in radians.
type Elements struct {
	S  float64 // mean longitude of the moon
	H  float64 // mean longitude of the sun
	P  float64 // longitude of lunar perigee
	N  float64 // longitude of the lunar ascending node
	Ps float64 // longitude of solar perigee
	E  float64 // mean obliquity of the ecliptic
}

func degToRad(deg float64) float64 {
	return deg * pi / 180.0
}

// MeanElements evaluates the element polynomials at T Julian centuries since
// the 1900 reference epoch.
func MeanElements(T float64) Elements {
	T2 := T * T
	T3 := T2 * T

	return Elements{
		S:  degToRad(270.43416 + 481267.8831*T - 0.001133*T2 + 0.000002*T3),
		H:  degToRad(279.696678 + 36000.738925*T + 0.0003025*T2),
		P:  degToRad(334.3295556 + 4069.034033*T - 0.010325*T2 - 0.0000125*T3),
		N:  degToRad(259.183275 - 1934.142008*T + 0.002077*T2 + 0.000002*T3),
		Ps: degToRad(281.2208333 + 1.719175*T + 0.0004527*T2 + 0.000003*T3),
		E:  degToRad(23.452294 - 0.0130125*T - 0.00000163889*T2 + 0.0000005027*T3),
	}
}

// moonParallax is the lunar parallax factor (mean distance / distance).
func moonParallax(el Elements) float64 {
	S, h, p, ps := el.S, el.H, el.P, el.Ps
	return 1 +
		0.0545*math.Cos(S-p) +
		0.0030*math.Cos(2*(S-p)) +
		0.01*math.Cos(S-2*h+p) +
		0.0082*math.Cos(2*(S-h)) +
		0.0006*math.Cos(2*S-3*h+ps) +
		0.0009*math.Cos(3*S-2*h-p)
}

// moonLongitude is the perturbed ecliptic longitude of the moon in radians.
func moonLongitude(el Elements) float64 {
	S, h, p, N, ps := el.S, el.H, el.P, el.N, el.Ps
	return S +
		0.0222*math.Sin(S-2*h+p) +
		0.1098*math.Sin(S-p) +
		0.0115*math.Sin(2*S-2*h) +
		0.0037*math.Sin(2*S-2*p) -
		0.0032*math.Sin(h-ps) -
		0.001*math.Sin(2*h-2*p) +
		0.001*math.Sin(S-3*h+p+ps) +
		0.0007*math.Sin(S-h-p+ps) -
		0.0006*math.Sin(S-h) -
		0.0005*math.Sin(S+h-p-ps) +
		0.0008*math.Sin(2*S-3*h+ps) -
		0.002*math.Sin(2*S-2*N) +
		0.0009*math.Sin(3*S-2*h-p)
}

// moonLatitude is the ecliptic latitude of the moon in radians.
func moonLatitude(el Elements) float64 {
	S, h, p, N := el.S, el.H, el.P, el.N
	return 0.003*math.Sin(S-2*h+N) +
		0.0895*math.Sin(S-N) +
		0.0049*math.Sin(2*S-p-N) -
		0.0048*math.Sin(p-N) -
		0.0008*math.Sin(2*h-p-N) +
		0.001*math.Sin(2*S-2*h+p-N) +
		0.0006*math.Sin(3*S-2*h-N)
}

// Model evaluates the tide for one station. It has no mutable state and is
// safe for concurrent use.
type Model struct {
	station types.Station

	lon     float64 // radians
	lat     float64 // geographic latitude, radians
	latGeoc float64 // geocentric latitude, radians
	f       float64 // latitude dependence of the potential
}

// NewModel prepares the station-dependent terms.
func NewModel(station types.Station) *Model {
	geoc := station.Latitude - 0.192424*math.Sin(2*station.Latitude*pi/180.0)
	lat := degToRad(station.Latitude)

	return &Model{
		station: station,
		lon:     degToRad(station.Longitude),
		lat:     lat,
		latGeoc: degToRad(geoc),
		f:       0.998327 + 0.001676*math.Cos(2*lat),
	}
}

// Potential returns the unscaled gravity tide Gt for a local timestamp.
func (m *Model) Potential(ts types.Timestamp) float64 {
	tz := m.station.Timezone
	t := astrotime.LocalHours(ts.Hour, ts.Minute, ts.Second)
	T := astrotime.CenturyFraction(astrotime.DayCount(ts.Year, ts.Month, ts.Day), ts.Hour, ts.Minute, ts.Second, tz)

	el := MeanElements(T)

	// Moon
	crm := moonParallax(el)
	lambdaM := moonLongitude(el)
	betaM := moonLatitude(el)

	delta := math.Sin(el.E)*math.Sin(lambdaM)*math.Cos(betaM) + math.Cos(el.E)*math.Sin(betaM)
	theta := (t-tz)*(15*pi/180.0) + el.H + m.lon - pi
	hm := math.Cos(betaM)*math.Cos(lambdaM)*math.Cos(theta) +
		math.Sin(theta)*(math.Cos(el.E)*math.Cos(betaM)*math.Sin(lambdaM)-math.Sin(el.E)*math.Sin(betaM))
	zm := math.Sin(m.latGeoc)*delta + math.Cos(m.latGeoc)*hm

	// Sun, ecliptic latitude taken as zero
	crs := 1 + 0.0168*math.Cos(el.H-el.Ps) + 0.0003*math.Cos(2*el.H-2*el.Ps)
	lambdaS := el.H + 0.0335*math.Sin(el.H-el.Ps) + 0.0004*math.Sin(2*el.H-2*el.Ps)
	zs := math.Sin(m.latGeoc)*math.Sin(el.E)*math.Sin(lambdaS) +
		math.Cos(m.latGeoc)*(math.Cos(lambdaS)*math.Cos(theta)+math.Sin(theta)*math.Cos(el.E)*math.Sin(lambdaS))

	f := m.f
	crm3 := crm * crm * crm
	crs3 := crs * crs * crs

	return -165.17*f*crm3*(zm*zm-1.0/3.0) -
		1.3708*f*f*crm3*crm*zm*(5*zm*zm-3) -
		76.08*f*crs3*(zs*zs-1.0/3.0)
}

// Correction returns the tidal gravity correction for ts: the potential
// scaled by the station tidal factor.
func (m *Model) Correction(ts types.Timestamp) float64 {
	return m.station.TidalFactor * m.Potential(ts)
}

// Series returns one correction per timestamp, index-aligned with the input.
func (m *Model) Series(timestamps []types.Timestamp) []float64 {
	out := make([]float64, len(timestamps))
	for i, ts := range timestamps {
		out[i] = m.Correction(ts)
	}
	return out
}

// SeriesFor computes the tide for a sample series.
func (m *Model) SeriesFor(series types.Series) []float64 {
	return m.Series(series.Timestamps())
}

// Columns holds per-field timestamp arrays, the layout produced by columnar
// file loaders.
type Columns struct {
	Year, Month, Day, Hour, Minute, Second []int
}

// Len returns the number of rows when all columns agree, or -1.
func (c Columns) Len() int {
	n := len(c.Year)
	for _, col := range [][]int{c.Month, c.Day, c.Hour, c.Minute, c.Second} {
		if len(col) != n {
			return -1
		}
	}
	return n
}

// SeriesFromColumns computes the tide for column-oriented timestamps that
// must line up with a gravity series of gravityLen samples.
func (m *Model) SeriesFromColumns(c Columns, gravityLen int) ([]float64, error) {
	n := c.Len()
	if n < 0 || n != gravityLen {
		return nil, fmt.Errorf("%w: year=%d month=%d day=%d hour=%d minute=%d second=%d gravity=%d",
			ErrInvalidInputLength, len(c.Year), len(c.Month), len(c.Day), len(c.Hour), len(c.Minute), len(c.Second), gravityLen)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = m.Correction(types.Timestamp{
			Year:   c.Year[i],
			Month:  c.Month[i],
			Day:    c.Day[i],
			Hour:   c.Hour[i],
			Minute: c.Minute[i],
			Second: c.Second[i],
		})
	}
	return out, nil
}

// Compute is the stateless entry point: the tide for every timestamp of a
// gravity series recorded at station.
func Compute(station types.Station, timestamps []types.Timestamp, gravityLen int) ([]float64, error) {
	if len(timestamps) != gravityLen {
		return nil, fmt.Errorf("%w: %d timestamps for %d gravity samples", ErrInvalidInputLength, len(timestamps), gravityLen)
	}
	return NewModel(station).Series(timestamps), nil
}

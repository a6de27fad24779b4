package types

import (
	"fmt"
	"time"
)

// Timestamp is a naive local calendar time as recorded by the gravimeter
// logger. The station's fixed UTC offset lives in Station, not here.
type Timestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// Time returns the timestamp as a time.Time in a fixed zone offset by
// tzHours from UTC.
func (t Timestamp) Time(tzHours float64) time.Time {
	loc := time.FixedZone(fmt.Sprintf("UTC%+g", tzHours), int(tzHours*3600))
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, t.Second, 0, loc)
}

// String formats the timestamp the way it appears in TSF files.
func (t Timestamp) String() string {
	return fmt.Sprintf("%04d %02d %02d %02d %02d %02d", t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

// TimestampFromTime converts t (in its own location) into a naive Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Sample is a single one-minute gravimeter reading.
type Sample struct {
	Timestamp Timestamp
	Gravity   float64 // 10^-8 m/s^2 after loader scaling
	Pressure  float64 // hPa
}

// Series is an ordered run of samples. Order is significant.
type Series []Sample

// Gravity returns the gravity column of the series.
func (s Series) Gravity() []float64 {
	out := make([]float64, len(s))
	for i, sm := range s {
		out[i] = sm.Gravity
	}
	return out
}

// Pressure returns the pressure column of the series.
func (s Series) Pressure() []float64 {
	out := make([]float64, len(s))
	for i, sm := range s {
		out[i] = sm.Pressure
	}
	return out
}

// Timestamps returns the timestamp column of the series.
func (s Series) Timestamps() []Timestamp {
	out := make([]Timestamp, len(s))
	for i, sm := range s {
		out[i] = sm.Timestamp
	}
	return out
}

// Station describes the recording site. It is set once per run.
type Station struct {
	Name        string
	Longitude   float64 // degrees, east positive
	Latitude    float64 // degrees, north positive
	Timezone    float64 // hours east of UTC (8 for China Standard Time)
	TidalFactor float64 // delta, typically ~1.16
	Elevation   float64 // metres, used for the normal pressure
}

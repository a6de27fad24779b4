package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/chrissnell/gravnoise/internal/types"
	"github.com/chrissnell/gravnoise/pkg/astrotime"
	"github.com/chrissnell/gravnoise/pkg/tide"
)

func main() {
	var (
		lon, lat, tz, delta float64
		timeStr             string
	)
	flag.Float64Var(&lon, "lon", 116.79, "Station longitude in degrees, east positive")
	flag.Float64Var(&lat, "lat", 33.98, "Station latitude in degrees, north positive")
	flag.Float64Var(&tz, "tz", 8, "Station time zone in hours east of UTC")
	flag.Float64Var(&delta, "delta", 1.16, "Tidal (gravimetric) factor")
	flag.StringVar(&timeStr, "time", "", "Local station time (2006-01-02T15:04:05); defaults to now")
	flag.Parse()

	zone := time.FixedZone("station", int(tz*3600))

	var t time.Time
	if timeStr == "" {
		t = time.Now().In(zone)
	} else {
		var err error
		t, err = time.ParseInLocation("2006-01-02T15:04:05", timeStr, zone)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing time: %v\n", err)
			os.Exit(1)
		}
	}

	ts := types.TimestampFromTime(t)
	model := tide.NewModel(types.Station{Longitude: lon, Latitude: lat, Timezone: tz, TidalFactor: delta})

	dayCount := astrotime.DayCount(ts.Year, ts.Month, ts.Day)
	T := astrotime.Centuries(ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second, tz)

	fmt.Printf("Theoretical tide for %s (UTC%+g)\n", t.Format("2006-01-02 15:04:05"), tz)
	fmt.Printf("  Station:        %.4f°E %.4f°N, δ = %.3f\n", lon, lat, delta)
	fmt.Printf("  Day count:      %.1f (Julian Day %.5f)\n", dayCount, julian.TimeToJD(t.UTC()))
	fmt.Printf("  Centuries:      %.10f since JD 2415020.0\n", T)
	fmt.Printf("  Potential:      %.6f μGal\n", model.Potential(ts))
	fmt.Printf("  Tide (δ·g):     %.6f μGal\n", model.Correction(ts))
}

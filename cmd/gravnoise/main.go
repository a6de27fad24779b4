package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"

	"github.com/chrissnell/gravnoise/internal/app"
	"github.com/chrissnell/gravnoise/internal/log"
	"github.com/chrissnell/gravnoise/internal/noise"
	"github.com/chrissnell/gravnoise/internal/storage"
	"github.com/chrissnell/gravnoise/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "station.yaml", "Path to the station YAML configuration")
	input := flag.String("input", "", "TSF file with one-minute gravity and pressure samples")
	outDir := flag.String("out", "", "Directory for report files (overrides output.directory)")
	format := flag.String("format", "", "Encoding of the run document: json or msgpack (overrides output.format)")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	logFile := flag.String("log-file", "", "Also write JSON logs to this file, rotated at 100 MB")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gravnoise %s\n", version)
		os.Exit(0)
	}

	if *input == "" {
		fmt.Fprintln(os.Stderr, "missing -input; run with -h for help")
		os.Exit(2)
	}

	// Set up logging
	if err := log.InitWithOptions(log.Options{Debug: *debug, File: *logFile, MaxSizeMB: 100, MaxBackups: 5}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	filename, _ := filepath.Abs(*cfgFile)
	provider := config.NewYAMLProvider(filename)
	defer provider.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(provider, log.GetSugaredLogger())
	res, err := application.Analyze(ctx, app.AnalyzeOptions{
		Input:     *input,
		OutputDir: *outDir,
		Format:    *format,
	})
	if res != nil {
		printTable(os.Stdout, res.Run)
	}
	if err != nil {
		if errors.Is(err, noise.ErrInsufficientDays) {
			log.Warnw("analysis incomplete", "error", err)
			os.Exit(3)
		}
		log.Errorf("analysis failed: %v", err)
		os.Exit(1)
	}
}

// printTable writes the selected quiet days in rank order, then the
// remaining days from quietest to noisiest.
func printTable(w io.Writer, run *storage.Run) {
	ranks := run.SelectedRanks()

	fmt.Fprintf(w, "Station %s, run %s\n", run.Station, run.ID)
	fmt.Fprintf(w, "  %d samples, %d days, %d trailing samples dropped\n\n", run.Samples, len(run.Records), run.Dropped)
	fmt.Fprintf(w, "  %5s  %14s  %9s  %s\n", "day", "mean PSD", "SNM", "")

	byDay := make(map[int]storage.DayRecord, len(run.Records))
	for _, rec := range run.Records {
		byDay[rec.DayIndex] = rec
	}

	printed := make(map[int]bool, len(run.Records))
	printRow := func(rec storage.DayRecord) {
		mark := ""
		if r, ok := ranks[rec.DayIndex]; ok {
			mark = fmt.Sprintf("quiet #%d", r+1)
		}
		fmt.Fprintf(w, "  %5d  %14s  %9s  %s\n", rec.DayIndex, fmtValue(rec.MeanPSD, "%.6e"), fmtValue(rec.SNM, "%.4f"), mark)
		printed[rec.DayIndex] = true
	}

	for _, d := range run.Selected {
		printRow(byDay[d])
	}

	rest := make([]storage.DayRecord, 0, len(run.Records))
	for _, rec := range run.Records {
		if !printed[rec.DayIndex] {
			rest = append(rest, rec)
		}
	}
	// Days without a magnitude go last, in day order.
	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i].SNM, rest[j].SNM
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a < *b
	})
	for _, rec := range rest {
		printRow(rec)
	}
}

func fmtValue(v *float64, verb string) string {
	if v == nil {
		return "NaN"
	}
	return fmt.Sprintf(verb, *v)
}

// Package report writes analysis runs as plain text tables and as encoded
// documents.
//
// The text files use fixed six-decimal %f formatting, so values below 1e-6
// print as 0.000000. The encoded run document keeps full precision and is
// the one to read back.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chrissnell/gravnoise/internal/storage"
	"github.com/chrissnell/gravnoise/pkg/responseformat"
)

// File name suffixes written by WriteAll.
const (
	QuietDaysSuffix = "quietday.txt"
	PSDSuffix       = "psd.txt"
	TableSuffix     = "snm.txt"
	RunSuffix       = "run"
)

// WriteQuietDays writes the selected day indices, quietest first, one per
// line in %f format.
func WriteQuietDays(w io.Writer, run *storage.Run) error {
	bw := bufio.NewWriter(w)
	for _, d := range run.Selected {
		fmt.Fprintf(bw, "%f\n", float64(d))
	}
	return bw.Flush()
}

// WritePSD writes the representative spectrum as "frequency power" lines.
// Power below 1e-6 is written as zero.
func WritePSD(w io.Writer, run *storage.Run) error {
	bw := bufio.NewWriter(w)
	for _, b := range run.PSD {
		fmt.Fprintf(bw, "%f %f\n", b.Frequency, b.Power)
	}
	return bw.Flush()
}

// WriteTable writes one "day mean_psd snm selected" line per day after a
// header line. Missing values print as NaN.
func WriteTable(w io.Writer, run *storage.Run) error {
	ranks := run.SelectedRanks()

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "day mean_psd snm selected")
	for _, rec := range run.Records {
		_, selected := ranks[rec.DayIndex]
		fmt.Fprintf(bw, "%d %s %s %t\n", rec.DayIndex, formatValue(rec.MeanPSD, "%e"), formatValue(rec.SNM, "%f"), selected)
	}
	return bw.Flush()
}

func formatValue(v *float64, verb string) string {
	if v == nil {
		return "NaN"
	}
	return fmt.Sprintf(verb, *v)
}

// Encode writes the whole run as a JSON or MessagePack document.
func Encode(w io.Writer, run *storage.Run, format responseformat.Format) error {
	return responseformat.Encode(w, format, run)
}

// WriteAll writes every report of run into dir, naming each file
// prefix + suffix. It returns the paths written.
func WriteAll(dir, prefix string, run *storage.Run, format responseformat.Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{prefix + QuietDaysSuffix, func(w io.Writer) error { return WriteQuietDays(w, run) }},
		{prefix + PSDSuffix, func(w io.Writer) error { return WritePSD(w, run) }},
		{prefix + TableSuffix, func(w io.Writer) error { return WriteTable(w, run) }},
		{prefix + RunSuffix + "." + format.Extension(), func(w io.Writer) error { return Encode(w, run, format) }},
	}

	var paths []string
	for _, wr := range writers {
		path := filepath.Join(dir, wr.name)
		if err := writeFile(path, wr.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Package tsf reads the whitespace-delimited time-series files written by
// superconducting and gPhone gravimeter loggers.
//
// A file may start with a free-form header. Everything up to and including
// the line whose first field is [DATA] is skipped. Each data line then holds
// eight fields:
//
//	Year Month Day Hour Minute Second Gravity Pressure
package tsf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chrissnell/gravnoise/internal/types"
)

// DataMarker introduces the sample block.
const DataMarker = "[DATA]"

const fieldsPerLine = 8

// ErrNoData is returned when a file holds no samples.
var ErrNoData = errors.New("no samples in input")

// Options scale the raw columns into analysis units.
type Options struct {
	GravityScale  float64
	PressureScale float64
}

// DefaultOptions converts gPhone output to 10^-8 m/s^2 and keeps pressure in hPa.
func DefaultOptions() Options {
	return Options{GravityScale: 1000, PressureScale: 1}
}

// ParseError points at the offending input line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string, opts Options) (types.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	series, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return series, nil
}

// Read parses a TSF stream. When no [DATA] marker is present the whole
// stream is treated as data.
func Read(r io.Reader, opts Options) (types.Series, error) {
	var (
		lines   []string
		numbers []int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first := strings.Fields(line)[0]; first == DataMarker {
			// Header ends here; discard what was buffered so far.
			lines = lines[:0]
			numbers = numbers[:0]
			continue
		}
		lines = append(lines, line)
		numbers = append(numbers, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	series := make(types.Series, 0, len(lines))
	for i, line := range lines {
		s, err := parseLine(line, opts)
		if err != nil {
			return nil, &ParseError{Line: numbers[i], Err: err}
		}
		series = append(series, s)
	}

	if len(series) == 0 {
		return nil, ErrNoData
	}
	return series, nil
}

func parseLine(line string, opts Options) (types.Sample, error) {
	fields := strings.Fields(line)
	if len(fields) != fieldsPerLine {
		return types.Sample{}, fmt.Errorf("expected %d fields, got %d", fieldsPerLine, len(fields))
	}

	var ints [6]int
	for i := range ints {
		v, err := parseInt(fields[i])
		if err != nil {
			return types.Sample{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		ints[i] = v
	}

	gravity, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return types.Sample{}, fmt.Errorf("gravity: %w", err)
	}
	pressure, err := strconv.ParseFloat(fields[7], 64)
	if err != nil {
		return types.Sample{}, fmt.Errorf("pressure: %w", err)
	}

	return types.Sample{
		Timestamp: types.Timestamp{
			Year:   ints[0],
			Month:  ints[1],
			Day:    ints[2],
			Hour:   ints[3],
			Minute: ints[4],
			Second: ints[5],
		},
		Gravity:  gravity * opts.GravityScale,
		Pressure: pressure * opts.PressureScale,
	}, nil
}

// parseInt accepts integral values written as floats ("30.000"), which some
// loggers emit for the seconds column. Fractions are truncated.
func parseInt(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

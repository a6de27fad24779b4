package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chrissnell/gravnoise/internal/noise"
	"github.com/chrissnell/gravnoise/internal/storage/sqlite"
	"github.com/chrissnell/gravnoise/internal/types"
	"github.com/chrissnell/gravnoise/pkg/config"
	"github.com/chrissnell/gravnoise/pkg/tide"
)

const stationYAML = `
station:
  name: Mengcheng
  longitude: 116.79
  latitude: 33.98
  timezone: 8
  tidal_factor: 1.16
  elevation: 160
input:
  gravity_scale: 1
storage:
  sqlite:
    path: %s
output:
  directory: %s
  format: json
`

// writeRecord writes a TSF file holding the station tide plus an in-band
// oscillation whose amplitude changes per day.
func writeRecord(t *testing.T, path string, amplitudes []float64) {
	t.Helper()

	st := types.Station{Longitude: 116.79, Latitude: 33.98, Timezone: 8, TidalFactor: 1.16}
	model := tide.NewModel(st)
	start := time.Date(2021, 6, 7, 0, 0, 0, 0, time.UTC)

	var b strings.Builder
	b.WriteString("[TSOFT-FORMAT]\n[INCREMENT] 60\n[DATA]\n")
	for i := 0; i < len(amplitudes)*1440; i++ {
		ts := types.TimestampFromTime(start.Add(time.Duration(i) * time.Minute))
		g := model.Correction(ts) + amplitudes[i/1440]*math.Sin(2*math.Pi*float64(i)/5)
		fmt.Fprintf(&b, "%s %.9f %.3f\n", ts, g, 994.176)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func setup(t *testing.T, amplitudes []float64) (*App, string, string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	outDir := filepath.Join(dir, "reports")
	input := filepath.Join(dir, "MC20210607.tsf")

	cfgPath := filepath.Join(dir, "station.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(stationYAML, dbPath, outDir)), 0o644))
	writeRecord(t, input, amplitudes)

	return New(config.NewYAMLProvider(cfgPath), zaptest.NewLogger(t).Sugar()), input, dbPath, outDir
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	a, input, dbPath, outDir := setup(t, []float64{4, 1, 3, 2})

	res, err := a.Analyze(ctx, AnalyzeOptions{Input: input})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 2}, res.Run.Selected)
	assert.Equal(t, "Mengcheng", res.Run.Station)
	assert.Equal(t, 4*1440, res.Run.Samples)
	require.Len(t, res.Reports, 4)
	for _, p := range res.Reports {
		assert.FileExists(t, p)
		assert.Equal(t, outDir, filepath.Dir(p))
	}
	assert.FileExists(t, filepath.Join(outDir, "MC20210607_quietday.txt"))
	assert.FileExists(t, filepath.Join(outDir, "MC20210607_run.json"))

	store, err := sqlite.New(ctx, dbPath, nil)
	require.NoError(t, err)
	defer store.Close()

	stored, err := store.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Run.Selected, stored.Selected)
	assert.Len(t, stored.PSD, len(res.Run.PSD))
}

func TestAnalyzeOverridesOutput(t *testing.T) {
	a, input, _, _ := setup(t, []float64{1, 2, 3})
	outDir := filepath.Join(t.TempDir(), "elsewhere")

	res, err := a.Analyze(context.Background(), AnalyzeOptions{Input: input, OutputDir: outDir, Format: "msgpack"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "MC20210607_run.msgpack"))
	assert.Equal(t, []int{0, 1, 2}, res.Run.Selected)

	_, err = a.Analyze(context.Background(), AnalyzeOptions{Input: input, Format: "xml"})
	assert.Error(t, err)
}

func TestAnalyzeInsufficientDays(t *testing.T) {
	a, input, _, outDir := setup(t, []float64{1, 2})

	res, err := a.Analyze(context.Background(), AnalyzeOptions{Input: input})
	assert.ErrorIs(t, err, noise.ErrInsufficientDays)
	require.NotNil(t, res)
	assert.Empty(t, res.Run.Selected)
	assert.Len(t, res.Run.Records, 2)
	assert.FileExists(t, filepath.Join(outDir, "MC20210607_snm.txt"))
}

func TestAnalyzeMissingInput(t *testing.T) {
	a, _, _, _ := setup(t, []float64{1})
	_, err := a.Analyze(context.Background(), AnalyzeOptions{Input: "/nonexistent/file.tsf"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPipelineOptions(t *testing.T) {
	cfg, err := config.ParseYAML([]byte("station:\n  longitude: 116.79\n  latitude: 33.98\n  timezone: 8\n  tidal_factor: 1.16\nanalysis:\n  workers: 3\n"))
	require.NoError(t, err)

	opts := PipelineOptions(cfg)
	assert.Equal(t, 116.79, opts.Station.Longitude)
	assert.True(t, opts.Detrend)
	assert.Equal(t, 9, opts.PolynomialDegree)
	assert.Equal(t, -0.3, opts.Admittance)

	want := noise.DefaultParams()
	want.Workers = 3
	assert.Equal(t, want, opts.Noise)
}

func TestReportPrefix(t *testing.T) {
	assert.Equal(t, "MC20210607_", ReportPrefix("/data/MC20210607.tsf"))
	assert.Equal(t, "raw_", ReportPrefix("raw"))
}

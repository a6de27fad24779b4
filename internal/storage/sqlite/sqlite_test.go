package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/gravnoise/internal/storage"
)

func ptr(v float64) *float64 { return &v }

func testRun(station string, created time.Time) *storage.Run {
	return &storage.Run{
		ID:                uuid.New(),
		Station:           station,
		CreatedAt:         created,
		Samples:           1440*4 + 17,
		Dropped:           17,
		BandLow:           1.0 / 600,
		BandHigh:          1.0 / 200,
		CalibrationOffset: 2.5,
		Selected:          []int{2, 0, 3},
		Records: []storage.DayRecord{
			{DayIndex: 0, MeanPSD: ptr(10), SNM: ptr(3.5), BandBins: 410},
			{DayIndex: 1, MeanPSD: ptr(0), SNM: nil, BandBins: 410},
			{DayIndex: 2, MeanPSD: ptr(1), SNM: ptr(2.5), BandBins: 410},
			{DayIndex: 3, MeanPSD: ptr(10), SNM: ptr(3.5), BandBins: 410},
		},
		PSD: []storage.PSDBin{
			{Frequency: 0, Power: 0},
			{Frequency: 1.0 / 122880, Power: 4.2},
			{Frequency: 2.0 / 122880, Power: 3.1},
		},
	}
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	run := testRun("Mengcheng", time.Date(2023, 4, 20, 8, 0, 0, 123, time.UTC))
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Station, got.Station)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.Samples, got.Samples)
	assert.Equal(t, run.Dropped, got.Dropped)
	assert.Equal(t, run.BandLow, got.BandLow)
	assert.Equal(t, run.Selected, got.Selected)
	assert.Equal(t, run.Records, got.Records)
	assert.Equal(t, run.PSD, got.PSD)
	assert.Nil(t, got.Records[1].SNM)
}

func TestGetRunNotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.GetRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
}

func TestSaveRunDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	run := testRun("Mengcheng", time.Now().UTC())
	require.NoError(t, s.SaveRun(ctx, run))
	assert.Error(t, s.SaveRun(ctx, run))

	// The failed save must not leave partial rows behind.
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Records, 4)
	assert.Len(t, got.PSD, 3)
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	older := testRun("Wuhan", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := testRun("Mengcheng", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	newer.Selected = []int{}
	require.NoError(t, s.SaveRun(ctx, older))
	require.NoError(t, s.SaveRun(ctx, newer))

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
	assert.Equal(t, []int{}, runs[0].Selected)
	assert.Equal(t, []int{2, 0, 3}, runs[1].Selected)
	assert.Nil(t, runs[1].Records)
	assert.Nil(t, runs[1].PSD)
}

func TestStorePersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := New(ctx, path, nil)
	require.NoError(t, err)
	run := testRun("Mengcheng", time.Now().UTC())
	require.NoError(t, s.SaveRun(ctx, run))
	require.NoError(t, s.Close())

	s, err = New(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Selected, got.Selected)
}

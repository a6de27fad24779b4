// Package sqlite stores analysis runs in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/gravnoise/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id                 TEXT PRIMARY KEY,
	station            TEXT NOT NULL,
	created_at         INTEGER NOT NULL,
	samples            INTEGER NOT NULL,
	dropped            INTEGER NOT NULL,
	band_low           REAL NOT NULL,
	band_high          REAL NOT NULL,
	calibration_offset REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS day_records (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	day_index     INTEGER NOT NULL,
	mean_psd      REAL,
	snm           REAL,
	band_bins     INTEGER NOT NULL,
	selected_rank INTEGER,
	PRIMARY KEY (run_id, day_index)
);

CREATE TABLE IF NOT EXISTS psd_bins (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	bin       INTEGER NOT NULL,
	frequency REAL NOT NULL,
	power     REAL NOT NULL,
	PRIMARY KEY (run_id, bin)
);

CREATE INDEX IF NOT EXISTS runs_created_at_idx ON runs (created_at);
`

// Store is a storage.RunStore backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

var _ storage.RunStore = (*Store)(nil)

// New opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for a throwaway database.
func New(ctx context.Context, path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// An in-memory database lives as long as its one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Infow("opened SQLite run store", "path", path)

	return &Store{db: db, path: path, logger: logger}, nil
}

// SaveRun writes the run, its day records and PSD bins in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *storage.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, station, created_at, samples, dropped, band_low, band_high, calibration_offset)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Station, run.CreatedAt.UnixNano(), run.Samples, run.Dropped,
		run.BandLow, run.BandHigh, run.CalibrationOffset)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	ranks := run.SelectedRanks()
	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO day_records (run_id, day_index, mean_psd, snm, band_bins, selected_rank)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare day record insert: %w", err)
	}
	defer recStmt.Close()

	for _, rec := range run.Records {
		var rank sql.NullInt64
		if r, ok := ranks[rec.DayIndex]; ok {
			rank = sql.NullInt64{Int64: int64(r), Valid: true}
		}
		if _, err := recStmt.ExecContext(ctx, run.ID.String(), rec.DayIndex,
			nullFloat(rec.MeanPSD), nullFloat(rec.SNM), rec.BandBins, rank); err != nil {
			return fmt.Errorf("failed to insert day %d: %w", rec.DayIndex, err)
		}
	}

	binStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO psd_bins (run_id, bin, frequency, power) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare PSD insert: %w", err)
	}
	defer binStmt.Close()

	for i, b := range run.PSD {
		if _, err := binStmt.ExecContext(ctx, run.ID.String(), i, b.Frequency, b.Power); err != nil {
			return fmt.Errorf("failed to insert PSD bin %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Debugw("stored run", "id", run.ID, "days", len(run.Records), "bins", len(run.PSD))
	return nil
}

// GetRun loads a run with its records and PSD bins.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*storage.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, station, created_at, samples, dropped, band_low, band_high, calibration_offset
		 FROM runs WHERE id = ?`, id.String())

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadRecords(ctx, run); err != nil {
		return nil, err
	}
	if err := s.loadBins(ctx, run); err != nil {
		return nil, err
	}

	return run, nil
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]storage.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, station, created_at, samples, dropped, band_low, band_high, calibration_offset
		 FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []storage.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	for i := range runs {
		if err := s.loadSelected(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*storage.Run, error) {
	var (
		run     storage.Run
		id      string
		created int64
	)
	err := sc.Scan(&id, &run.Station, &created, &run.Samples, &run.Dropped,
		&run.BandLow, &run.BandHigh, &run.CalibrationOffset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run row: %w", err)
	}

	run.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	run.Selected = []int{}

	return &run, nil
}

func (s *Store) loadRecords(ctx context.Context, run *storage.Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day_index, mean_psd, snm, band_bins, selected_rank
		 FROM day_records WHERE run_id = ? ORDER BY day_index`, run.ID.String())
	if err != nil {
		return fmt.Errorf("failed to query day records: %w", err)
	}
	defer rows.Close()

	var ranked []rankedDay
	for rows.Next() {
		var (
			rec       storage.DayRecord
			mean, snm sql.NullFloat64
			rank      sql.NullInt64
		)
		if err := rows.Scan(&rec.DayIndex, &mean, &snm, &rec.BandBins, &rank); err != nil {
			return fmt.Errorf("failed to scan day record: %w", err)
		}
		rec.MeanPSD = floatPtr(mean)
		rec.SNM = floatPtr(snm)
		run.Records = append(run.Records, rec)
		if rank.Valid {
			ranked = append(ranked, rankedDay{day: rec.DayIndex, rank: int(rank.Int64)})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate day records: %w", err)
	}

	run.Selected = orderSelected(ranked)
	return nil
}

func (s *Store) loadSelected(ctx context.Context, run *storage.Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day_index, selected_rank FROM day_records
		 WHERE run_id = ? AND selected_rank IS NOT NULL`, run.ID.String())
	if err != nil {
		return fmt.Errorf("failed to query selected days: %w", err)
	}
	defer rows.Close()

	var ranked []rankedDay
	for rows.Next() {
		var rd rankedDay
		if err := rows.Scan(&rd.day, &rd.rank); err != nil {
			return fmt.Errorf("failed to scan selected day: %w", err)
		}
		ranked = append(ranked, rd)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate selected days: %w", err)
	}

	run.Selected = orderSelected(ranked)
	return nil
}

func (s *Store) loadBins(ctx context.Context, run *storage.Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frequency, power FROM psd_bins WHERE run_id = ? ORDER BY bin`, run.ID.String())
	if err != nil {
		return fmt.Errorf("failed to query PSD bins: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b storage.PSDBin
		if err := rows.Scan(&b.Frequency, &b.Power); err != nil {
			return fmt.Errorf("failed to scan PSD bin: %w", err)
		}
		run.PSD = append(run.PSD, b)
	}
	return rows.Err()
}

type rankedDay struct {
	day  int
	rank int
}

func orderSelected(ranked []rankedDay) []int {
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].rank < ranked[j].rank })
	out := make([]int, len(ranked))
	for i, rd := range ranked {
		out[i] = rd.day
	}
	return out
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// CheckHealth pings the database and runs a trivial query.
func (s *Store) CheckHealth(ctx context.Context) *storage.HealthData {
	health := &storage.HealthData{
		LastCheck: time.Now(),
		Status:    storage.StatusHealthy,
		Message:   "SQLite database operational",
	}

	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		health.Status = storage.StatusUnhealthy
		health.Message = "SQLite query test failed"
		health.Error = err.Error()
	}
	return health
}

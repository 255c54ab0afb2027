package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/speedwagon-io/gpuglow/internal/lib/logger/sl"
	"github.com/speedwagon-io/gpuglow/internal/model"
)

// Journal is an append-only record of monitoring ticks, kept for
// diagnostics. The control loop writes to it and never reads it back.
type Journal interface {
	Record(ctx context.Context, tick *model.Tick) error
	Recent(ctx context.Context, limit int) ([]*model.Tick, error)
	Count(ctx context.Context) (int64, error)
	Cleanup(ctx context.Context, maxAge time.Duration) error
	Close() error
}

type SQLiteJournal struct {
	log *slog.Logger
	db  *sql.DB
}

func NewSQLiteJournal(log *slog.Logger, dbPath string) (*SQLiteJournal, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	j := &SQLiteJournal{
		log: log,
		db:  db,
	}

	if err := j.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS ticks (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			gpu_index INTEGER NOT NULL,
			utilization INTEGER NOT NULL,
			color TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_ticks_timestamp ON ticks(timestamp);
	`
	_, err := j.db.Exec(query)
	return err
}

func (j *SQLiteJournal) Record(ctx context.Context, tick *model.Tick) error {
	query := `
		INSERT INTO ticks (id, timestamp, gpu_index, utilization, color, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.ExecContext(ctx, query,
		tick.ID,
		tick.Timestamp.Format(time.RFC3339Nano),
		tick.GPUIndex,
		tick.Utilization,
		tick.Color.Hex(),
		tick.Status,
		tick.Error,
	)

	if err != nil {
		return fmt.Errorf("failed to record tick: %w", err)
	}

	j.log.Debug("tick recorded", slog.String("id", tick.ID))
	return nil
}

func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]*model.Tick, error) {
	query := `
		SELECT id, timestamp, gpu_index, utilization, color, status, error
		FROM ticks
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticks: %w", err)
	}
	defer rows.Close()

	var ticks []*model.Tick
	for rows.Next() {
		var (
			id, timestampStr, colorHex, status, errText string
			gpuIndex, utilization                       int
		)

		if err := rows.Scan(&id, &timestampStr, &gpuIndex, &utilization, &colorHex, &status, &errText); err != nil {
			j.log.Error("failed to scan row", sl.Err(err))
			continue
		}

		timestamp, err := time.Parse(time.RFC3339Nano, timestampStr)
		if err != nil {
			j.log.Error("failed to parse timestamp", sl.Err(err))
			continue
		}

		color, err := model.ParseHex(colorHex)
		if err != nil {
			j.log.Error("failed to parse color", sl.Err(err))
			continue
		}

		ticks = append(ticks, &model.Tick{
			ID:          id,
			Timestamp:   timestamp,
			GPUIndex:    gpuIndex,
			Utilization: utilization,
			Color:       color,
			Status:      status,
			Error:       errText,
		})
	}

	return ticks, rows.Err()
}

func (j *SQLiteJournal) Count(ctx context.Context) (int64, error) {
	var count int64
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ticks").Scan(&count)
	return count, err
}

func (j *SQLiteJournal) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)

	result, err := j.db.ExecContext(ctx, "DELETE FROM ticks WHERE timestamp < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old ticks: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		j.log.Info("cleaned up old journal entries", slog.Int64("deleted", deleted))
	}

	return nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

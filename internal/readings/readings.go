// Package readings provides the append-only sensor reading log.
//
// Every automation tick appends one row per scalar measurement. Bundle
// readings from combined probes are split by the cycle into separate
// rows named "<sensor>_temp" and "<sensor>_humid" before they reach this
// package. SQLite is the durable log; InfluxDB, when enabled, receives
// the same points as a query-friendly mirror.
package readings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoReadings is returned by Latest when a sensor has no logged rows.
var ErrNoReadings = errors.New("no readings logged for sensor")

// LogEntry is one logged measurement.
type LogEntry struct {
	ID         string    `json:"id"`
	Sensor     string    `json:"sensor"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Repository defines the reading log persistence interface.
type Repository interface {
	// Append logs one measurement. ID and RecordedAt are filled if unset.
	Append(ctx context.Context, entry *LogEntry) error

	// ListBySensor returns the most recent entries for a sensor, newest
	// first, capped at limit (0 means a default cap).
	ListBySensor(ctx context.Context, sensor string, limit int) ([]LogEntry, error)

	// Latest returns the most recent entry for a sensor.
	// Returns ErrNoReadings if none exist.
	Latest(ctx context.Context, sensor string) (*LogEntry, error)

	// Prune deletes entries older than the cutoff, returning the number
	// of rows removed.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// defaultListLimit caps ListBySensor when the caller passes 0.
const defaultListLimit = 100

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append logs one measurement.
func (r *SQLiteRepository) Append(ctx context.Context, entry *LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensor_logs (id, sensor, value, recorded_at)
		VALUES (?, ?, ?, ?)`,
		entry.ID,
		entry.Sensor,
		entry.Value,
		entry.RecordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting sensor log: %w", err)
	}
	return nil
}

// ListBySensor returns the most recent entries for a sensor, newest first.
func (r *SQLiteRepository) ListBySensor(ctx context.Context, sensor string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sensor, value, recorded_at
		FROM sensor_logs
		WHERE sensor = ?
		ORDER BY recorded_at DESC
		LIMIT ?`,
		sensor, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sensor logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var recordedAt string
		if err := rows.Scan(&e.ID, &e.Sensor, &e.Value, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning sensor log: %w", err)
		}
		e.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor logs: %w", err)
	}
	return entries, nil
}

// Latest returns the most recent entry for a sensor.
func (r *SQLiteRepository) Latest(ctx context.Context, sensor string) (*LogEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, sensor, value, recorded_at
		FROM sensor_logs
		WHERE sensor = ?
		ORDER BY recorded_at DESC
		LIMIT 1`,
		sensor)

	var e LogEntry
	var recordedAt string
	err := row.Scan(&e.ID, &e.Sensor, &e.Value, &recordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoReadings
		}
		return nil, fmt.Errorf("querying latest sensor log: %w", err)
	}
	e.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing recorded_at: %w", err)
	}
	return &e, nil
}

// Prune deletes entries older than the cutoff.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM sensor_logs WHERE recorded_at < ?",
		olderThan.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("pruning sensor logs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

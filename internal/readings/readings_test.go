package readings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the sensor_logs table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE sensor_logs (
			id          TEXT PRIMARY KEY,
			sensor      TEXT NOT NULL,
			value       REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);
		CREATE INDEX idx_sensor_logs_sensor_time ON sensor_logs (sensor, recorded_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestAppendFillsDefaults(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	entry := &LogEntry{Sensor: "co2", Value: 512}
	if err := repo.Append(ctx, entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID == "" {
		t.Error("Append should assign an ID")
	}
	if entry.RecordedAt.IsZero() {
		t.Error("Append should assign a timestamp")
	}

	got, err := repo.Latest(ctx, "co2")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.Value != 512 {
		t.Errorf("value = %v, want 512", got.Value)
	}
}

func TestListBySensorNewestFirst(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		entry := &LogEntry{
			Sensor:     "probe1_temp",
			Value:      float64(60 + i),
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	// A different sensor's rows must not leak in.
	if err := repo.Append(ctx, &LogEntry{Sensor: "probe1_humid", Value: 55, RecordedAt: base}); err != nil {
		t.Fatalf("Append other sensor: %v", err)
	}

	entries, err := repo.ListBySensor(ctx, "probe1_temp", 3)
	if err != nil {
		t.Fatalf("ListBySensor: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	for i, want := range []float64{64, 63, 62} {
		if entries[i].Value != want {
			t.Errorf("entries[%d].Value = %v, want %v", i, entries[i].Value, want)
		}
	}
}

func TestListBySensorDefaultCap(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	for i := range defaultListLimit + 20 {
		entry := &LogEntry{
			ID:         fmt.Sprintf("e%03d", i),
			Sensor:     "light1",
			Value:      float64(i),
			RecordedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	entries, err := repo.ListBySensor(ctx, "light1", 0)
	if err != nil {
		t.Fatalf("ListBySensor: %v", err)
	}
	if len(entries) != defaultListLimit {
		t.Errorf("len = %d, want default cap %d", len(entries), defaultListLimit)
	}
}

func TestLatestNoReadings(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	if _, err := repo.Latest(context.Background(), "ghost"); !errors.Is(err, ErrNoReadings) {
		t.Errorf("Latest error = %v, want ErrNoReadings", err)
	}
}

func TestPrune(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	cutoff := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	old := &LogEntry{Sensor: "co2", Value: 400, RecordedAt: cutoff.Add(-time.Hour)}
	fresh := &LogEntry{Sensor: "co2", Value: 450, RecordedAt: cutoff.Add(time.Hour)}
	for _, e := range []*LogEntry{old, fresh} {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	n, err := repo.Prune(ctx, cutoff)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}

	got, err := repo.Latest(ctx, "co2")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.Value != 450 {
		t.Errorf("surviving value = %v, want 450", got.Value)
	}
}

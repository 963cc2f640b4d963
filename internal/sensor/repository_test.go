package sensor

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the sensors table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE sensors (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			kind       TEXT NOT NULL CHECK (kind IN (
				'temperature', 'humidity', 'co2', 'light',
				'soil_moisture', 'wind_speed')),
			config     TEXT NOT NULL DEFAULT '{}',
			simulate   INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestSensorRepositoryRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	desc := &Descriptor{
		ID:     "s1",
		Name:   "probe1",
		Kind:   KindTemperature,
		Config: map[string]any{"pin": 4},
	}
	if err := repo.Create(ctx, desc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if desc.CreatedAt.IsZero() || desc.UpdatedAt.IsZero() {
		t.Error("Create should stamp timestamps")
	}

	got, err := repo.GetByName(ctx, "probe1")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got.ID != "s1" || got.Kind != KindTemperature {
		t.Errorf("got %+v", got)
	}
	// Config round-trips through JSON; numbers come back as float64.
	if pin, ok := got.Pin(); !ok || pin != 4 {
		t.Errorf("Pin() = %d, %v; want 4, true", pin, ok)
	}

	byID, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Name != "probe1" {
		t.Errorf("GetByID name = %q", byID.Name)
	}
}

func TestSensorRepositoryNilConfigDefaults(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	desc := &Descriptor{ID: "s1", Name: "sim", Kind: KindHumidity, Simulate: true}
	if err := repo.Create(ctx, desc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Config == nil {
		t.Error("Config should scan to an empty map, not nil")
	}
	if !got.Simulate {
		t.Error("Simulate flag lost")
	}
}

func TestSensorRepositoryDuplicateName(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &Descriptor{ID: "s1", Name: "x", Kind: KindCO2, Simulate: true}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, &Descriptor{ID: "s2", Name: "x", Kind: KindCO2, Simulate: true})
	if !errors.Is(err, ErrSensorExists) {
		t.Errorf("duplicate Create error = %v, want ErrSensorExists", err)
	}
}

func TestSensorRepositoryNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "ghost"); !errors.Is(err, ErrSensorNotFound) {
		t.Errorf("GetByID error = %v, want ErrSensorNotFound", err)
	}
	if _, err := repo.GetByName(ctx, "ghost"); !errors.Is(err, ErrSensorNotFound) {
		t.Errorf("GetByName error = %v, want ErrSensorNotFound", err)
	}
	err := repo.Update(ctx, &Descriptor{ID: "ghost", Name: "g", Kind: KindCO2})
	if !errors.Is(err, ErrSensorNotFound) {
		t.Errorf("Update error = %v, want ErrSensorNotFound", err)
	}
	if err := repo.Delete(ctx, "ghost"); !errors.Is(err, ErrSensorNotFound) {
		t.Errorf("Delete error = %v, want ErrSensorNotFound", err)
	}
}

func TestSensorRepositoryUpdateAndList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"wind", "light1", "co2"} {
		desc := &Descriptor{ID: "id-" + name, Name: name, Kind: KindLight, Simulate: true}
		if err := repo.Create(ctx, desc); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	desc, err := repo.GetByName(ctx, "light1")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	desc.Simulate = false
	desc.Config = map[string]any{"pin": 22}
	if err := repo.Update(ctx, desc); err != nil {
		t.Fatalf("Update: %v", err)
	}

	descs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(descs) != 3 {
		t.Fatalf("len = %d, want 3", len(descs))
	}
	for i, want := range []string{"co2", "light1", "wind"} {
		if descs[i].Name != want {
			t.Errorf("descs[%d].Name = %q, want %q", i, descs[i].Name, want)
		}
	}
}

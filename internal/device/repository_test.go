package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mossburn/greenhouse-core/internal/control"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL UNIQUE,
			kind              TEXT NOT NULL,
			control_mode      TEXT NOT NULL CHECK (control_mode IN ('time', 'sensor')),
			mode              TEXT NOT NULL DEFAULT 'auto' CHECK (mode IN ('auto', 'manual')),
			current_status    INTEGER NOT NULL DEFAULT 0,
			auto_time         TEXT,
			auto_duration_min INTEGER NOT NULL DEFAULT 0,
			auto_enabled      INTEGER NOT NULL DEFAULT 0,
			last_auto_on      TEXT,
			gpio_pin          INTEGER NOT NULL,
			sensor_name       TEXT,
			threshold         REAL,
			control_logic     TEXT CHECK (control_logic IN ('below', 'above')),
			hysteresis        REAL NOT NULL DEFAULT 0,
			simulate          INTEGER NOT NULL DEFAULT 1,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testTimeDevice(id, name string) *Device {
	return &Device{
		ID:                  id,
		Name:                name,
		Kind:                "light",
		ControlMode:         ControlModeTime,
		Mode:                ModeAuto,
		AutoTime:            "06:00",
		AutoDurationMinutes: 120,
		AutoEnabled:         true,
		GPIOPin:             17,
		Simulate:            true,
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	sensorName := "temp1"
	threshold := 68.0
	logic := control.LogicBelow
	d := &Device{
		ID:           "d1",
		Name:         "heater",
		Kind:         "heater",
		ControlMode:  ControlModeSensor,
		Mode:         ModeAuto,
		GPIOPin:      22,
		SensorName:   &sensorName,
		Threshold:    &threshold,
		ControlLogic: &logic,
		Hysteresis:   2,
	}

	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
		t.Error("Create should stamp timestamps")
	}

	got, err := repo.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "heater" || got.ControlMode != ControlModeSensor {
		t.Errorf("got %+v", got)
	}
	if got.SensorName == nil || *got.SensorName != "temp1" {
		t.Errorf("SensorName = %v, want temp1", got.SensorName)
	}
	if got.Threshold == nil || *got.Threshold != 68.0 {
		t.Errorf("Threshold = %v, want 68", got.Threshold)
	}
	if got.ControlLogic == nil || *got.ControlLogic != control.LogicBelow {
		t.Errorf("ControlLogic = %v, want below", got.ControlLogic)
	}

	byName, err := repo.GetByName(ctx, "heater")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if byName.ID != "d1" {
		t.Errorf("GetByName ID = %q, want d1", byName.ID)
	}
}

func TestRepositoryNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "ghost"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID error = %v, want ErrDeviceNotFound", err)
	}
	if _, err := repo.GetByName(ctx, "ghost"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByName error = %v, want ErrDeviceNotFound", err)
	}
	if err := repo.Update(ctx, testTimeDevice("ghost", "g")); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update error = %v, want ErrDeviceNotFound", err)
	}
	if err := repo.Delete(ctx, "ghost"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Delete error = %v, want ErrDeviceNotFound", err)
	}
	if err := repo.SetStatus(ctx, "ghost", true, nil); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("SetStatus error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRepositoryDuplicateName(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testTimeDevice("d1", "light")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, testTimeDevice("d2", "light")); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("duplicate Create error = %v, want ErrDeviceExists", err)
	}
}

func TestRepositoryListOrdersByName(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"valve", "fan", "heater"} {
		if err := repo.Create(ctx, testTimeDevice("id-"+name, name)); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	devs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(devs) != 3 {
		t.Fatalf("len = %d, want 3", len(devs))
	}
	for i, want := range []string{"fan", "heater", "valve"} {
		if devs[i].Name != want {
			t.Errorf("devs[%d].Name = %q, want %q", i, devs[i].Name, want)
		}
	}
}

func TestRepositoryUpdate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testTimeDevice("d1", "light")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	d.AutoTime = "07:30"
	d.Mode = ModeManual
	if err := repo.Update(ctx, d); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AutoTime != "07:30" || got.Mode != ModeManual {
		t.Errorf("got auto_time=%q mode=%q", got.AutoTime, got.Mode)
	}
}

func TestRepositorySetStatus(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testTimeDevice("d1", "light")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	firedAt := time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC)
	if err := repo.SetStatus(ctx, "d1", true, &firedAt); err != nil {
		t.Fatalf("SetStatus on: %v", err)
	}

	got, err := repo.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.CurrentStatus {
		t.Error("current_status not set")
	}
	if got.LastAutoOn == nil || !got.LastAutoOn.Equal(firedAt) {
		t.Errorf("last_auto_on = %v, want %v", got.LastAutoOn, firedAt)
	}

	// Off-edge with nil lastAutoOn must preserve the stored value.
	if err := repo.SetStatus(ctx, "d1", false, nil); err != nil {
		t.Fatalf("SetStatus off: %v", err)
	}
	got, err = repo.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.CurrentStatus {
		t.Error("current_status not cleared")
	}
	if got.LastAutoOn == nil || !got.LastAutoOn.Equal(firedAt) {
		t.Errorf("last_auto_on changed: %v, want %v", got.LastAutoOn, firedAt)
	}
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testTimeDevice("d1", "light")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(ctx, "d1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "d1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID after delete = %v, want ErrDeviceNotFound", err)
	}
}

package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mossburn/greenhouse-core/internal/control"
)

// Repository defines the interface for device persistence operations.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetByName retrieves a device by its unique name.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByName(ctx context.Context, name string) (*Device, error)

	// List retrieves all devices ordered by name.
	List(ctx context.Context) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if the name or ID is already taken.
	Create(ctx context.Context, d *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, d *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// SetStatus updates only the runtime actuation state. lastAutoOn is
	// written when non-nil (a time-based on-edge); the stored value is
	// otherwise preserved.
	SetStatus(ctx context.Context, id string, on bool, lastAutoOn *time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, kind, control_mode, mode, current_status,
	auto_time, auto_duration_min, auto_enabled, last_auto_on,
	gpio_pin, sensor_name, threshold, control_logic, hysteresis, simulate,
	created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE id = ?", id)
	return scanDevice(row)
}

// GetByName retrieves a device by its unique name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE name = ?", name)
	return scanDevice(row)
}

// List retrieves all devices ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+deviceColumns+" FROM devices ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.Name,
		d.Kind,
		string(d.ControlMode),
		string(d.Mode),
		boolToInt(d.CurrentStatus),
		nullableStr(d.AutoTime),
		d.AutoDurationMinutes,
		boolToInt(d.AutoEnabled),
		nullableTime(d.LastAutoOn),
		d.GPIOPin,
		nullableString(d.SensorName),
		nullableFloat(d.Threshold),
		nullableLogic(d.ControlLogic),
		d.Hysteresis,
		boolToInt(d.Simulate),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	d.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			name = ?, kind = ?, control_mode = ?, mode = ?, current_status = ?,
			auto_time = ?, auto_duration_min = ?, auto_enabled = ?, last_auto_on = ?,
			gpio_pin = ?, sensor_name = ?, threshold = ?, control_logic = ?,
			hysteresis = ?, simulate = ?, updated_at = ?
		WHERE id = ?`,
		d.Name,
		d.Kind,
		string(d.ControlMode),
		string(d.Mode),
		boolToInt(d.CurrentStatus),
		nullableStr(d.AutoTime),
		d.AutoDurationMinutes,
		boolToInt(d.AutoEnabled),
		nullableTime(d.LastAutoOn),
		d.GPIOPin,
		nullableString(d.SensorName),
		nullableFloat(d.Threshold),
		nullableLogic(d.ControlLogic),
		d.Hysteresis,
		boolToInt(d.Simulate),
		d.UpdatedAt.Format(time.RFC3339),
		d.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("updating device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// SetStatus updates only the runtime actuation state.
func (r *SQLiteRepository) SetStatus(ctx context.Context, id string, on bool, lastAutoOn *time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var result sql.Result
	var err error
	if lastAutoOn != nil {
		result, err = r.db.ExecContext(ctx, `
			UPDATE devices SET current_status = ?, last_auto_on = ?, updated_at = ?
			WHERE id = ?`,
			boolToInt(on), lastAutoOn.UTC().Format(time.RFC3339), now, id)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE devices SET current_status = ?, updated_at = ?
			WHERE id = ?`,
			boolToInt(on), now, id)
	}
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a row into a Device.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var controlMode, mode, createdAt, updatedAt string
	var currentStatus, autoEnabled, simulate int
	var autoTime, sensorName, controlLogic, lastAutoOn sql.NullString
	var threshold sql.NullFloat64

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&d.Kind,
		&controlMode,
		&mode,
		&currentStatus,
		&autoTime,
		&d.AutoDurationMinutes,
		&autoEnabled,
		&lastAutoOn,
		&d.GPIOPin,
		&sensorName,
		&threshold,
		&controlLogic,
		&d.Hysteresis,
		&simulate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	d.ControlMode = ControlMode(controlMode)
	d.Mode = Mode(mode)
	d.CurrentStatus = currentStatus != 0
	d.AutoEnabled = autoEnabled != 0
	d.Simulate = simulate != 0

	if autoTime.Valid {
		d.AutoTime = autoTime.String
	}
	if sensorName.Valid {
		d.SensorName = &sensorName.String
	}
	if threshold.Valid {
		d.Threshold = &threshold.Float64
	}
	if controlLogic.Valid {
		logic := control.Logic(controlLogic.String)
		d.ControlLogic = &logic
	}
	if lastAutoOn.Valid {
		if t, err := time.Parse(time.RFC3339, lastAutoOn.String); err == nil {
			d.LastAutoOn = &t
		}
	}

	d.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &d, nil
}

// nullableStr returns a sql.NullString for optional plain strings.
func nullableStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableFloat returns a sql.NullFloat64 for optional float pointers.
func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// nullableLogic returns a sql.NullString for optional control logic.
func nullableLogic(l *control.Logic) sql.NullString {
	if l == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*l), Valid: true}
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}

package sensor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for sensor descriptor persistence.
// This abstraction allows for different implementations (SQLite, mock)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a descriptor by its unique identifier.
	// Returns ErrSensorNotFound if the sensor does not exist.
	GetByID(ctx context.Context, id string) (*Descriptor, error)

	// GetByName retrieves a descriptor by its unique name.
	// Returns ErrSensorNotFound if the sensor does not exist.
	GetByName(ctx context.Context, name string) (*Descriptor, error)

	// List retrieves all descriptors ordered by name.
	List(ctx context.Context) ([]Descriptor, error)

	// Create inserts a new descriptor.
	// Returns ErrSensorExists if the name or ID is already taken.
	Create(ctx context.Context, desc *Descriptor) error

	// Update modifies an existing descriptor.
	// Returns ErrSensorNotFound if the sensor does not exist.
	Update(ctx context.Context, desc *Descriptor) error

	// Delete removes a descriptor by ID.
	// Returns ErrSensorNotFound if the sensor does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sensorColumns = "id, name, kind, config, simulate, created_at, updated_at"

// GetByID retrieves a descriptor by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Descriptor, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sensorColumns+" FROM sensors WHERE id = ?", id)
	return scanSensor(row)
}

// GetByName retrieves a descriptor by its unique name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Descriptor, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sensorColumns+" FROM sensors WHERE name = ?", name)
	return scanSensor(row)
}

// List retrieves all descriptors ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Descriptor, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sensorColumns+" FROM sensors ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying sensors: %w", err)
	}
	defer rows.Close()

	var descs []Descriptor
	for rows.Next() {
		d, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sensor: %w", err)
		}
		descs = append(descs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensors: %w", err)
	}
	return descs, nil
}

// Create inserts a new descriptor.
func (r *SQLiteRepository) Create(ctx context.Context, desc *Descriptor) error {
	if desc.Config == nil {
		desc.Config = map[string]any{}
	}
	configJSON, err := json.Marshal(desc.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC()
	if desc.CreatedAt.IsZero() {
		desc.CreatedAt = now
	}
	desc.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sensors (id, name, kind, config, simulate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		desc.ID,
		desc.Name,
		string(desc.Kind),
		string(configJSON),
		boolToInt(desc.Simulate),
		desc.CreatedAt.Format(time.RFC3339),
		desc.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSensorExists
		}
		return fmt.Errorf("inserting sensor: %w", err)
	}
	return nil
}

// Update modifies an existing descriptor.
func (r *SQLiteRepository) Update(ctx context.Context, desc *Descriptor) error {
	if desc.Config == nil {
		desc.Config = map[string]any{}
	}
	configJSON, err := json.Marshal(desc.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	desc.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE sensors
		SET name = ?, kind = ?, config = ?, simulate = ?, updated_at = ?
		WHERE id = ?`,
		desc.Name,
		string(desc.Kind),
		string(configJSON),
		boolToInt(desc.Simulate),
		desc.UpdatedAt.Format(time.RFC3339),
		desc.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSensorExists
		}
		return fmt.Errorf("updating sensor: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSensorNotFound
	}
	return nil
}

// Delete removes a descriptor by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sensors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sensor: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSensorNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSensor scans a row into a Descriptor.
func scanSensor(scanner rowScanner) (*Descriptor, error) {
	var d Descriptor
	var kind, configJSON, createdAt, updatedAt string
	var simulate int

	err := scanner.Scan(&d.ID, &d.Name, &kind, &configJSON, &simulate, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSensorNotFound
		}
		return nil, err
	}

	d.Kind = Kind(kind)
	d.Simulate = simulate != 0

	if err := json.Unmarshal([]byte(configJSON), &d.Config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
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

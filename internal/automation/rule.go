package automation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mossburn/greenhouse-core/internal/control"
)

// Rule is an explicit sensor-to-actuator hysteresis binding. At most one
// rule exists per sensor/actuator pair; an explicit rule overrides any
// control binding embedded on the device row.
type Rule struct {
	ID           string        `json:"id"`
	SensorName   string        `json:"sensor_name"`
	ActuatorName string        `json:"actuator_name"`
	Threshold    float64       `json:"threshold"`
	ControlLogic control.Logic `json:"control_logic"`
	Hysteresis   float64       `json:"hysteresis"`

	// Measurement selects a named value from bundle readings
	// ("temp", "humid"). Empty for scalar sensors.
	Measurement string `json:"measurement,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the rule for configuration errors.
func (r *Rule) Validate() error {
	if r.SensorName == "" {
		return fmt.Errorf("rule sensor_name is required")
	}
	if r.ActuatorName == "" {
		return fmt.Errorf("rule actuator_name is required")
	}
	if !control.ValidLogic(r.ControlLogic) {
		return fmt.Errorf("rule control_logic must be below or above")
	}
	if r.Hysteresis < 0 {
		return fmt.Errorf("rule hysteresis must not be negative")
	}
	return nil
}

// RuleRepository defines the rule persistence interface.
type RuleRepository interface {
	// GetByID retrieves a rule by its unique identifier.
	// Returns ErrRuleNotFound if the rule does not exist.
	GetByID(ctx context.Context, id string) (*Rule, error)

	// List retrieves all rules.
	List(ctx context.Context) ([]Rule, error)

	// Create inserts a new rule.
	// Returns ErrRuleExists if the sensor/actuator pair already has one.
	Create(ctx context.Context, rule *Rule) error

	// Update modifies an existing rule.
	// Returns ErrRuleNotFound if the rule does not exist.
	Update(ctx context.Context, rule *Rule) error

	// Delete removes a rule by ID.
	// Returns ErrRuleNotFound if the rule does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRuleRepository implements RuleRepository using SQLite.
type SQLiteRuleRepository struct {
	db *sql.DB
}

// NewSQLiteRuleRepository creates a new SQLite-backed rule repository.
func NewSQLiteRuleRepository(db *sql.DB) *SQLiteRuleRepository {
	return &SQLiteRuleRepository{db: db}
}

const ruleColumns = "id, sensor_name, actuator_name, threshold, control_logic, hysteresis, measurement, created_at, updated_at"

// GetByID retrieves a rule by its unique identifier.
func (r *SQLiteRuleRepository) GetByID(ctx context.Context, id string) (*Rule, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM rules WHERE id = ?", id)
	return scanRule(row)
}

// List retrieves all rules ordered by sensor then actuator.
func (r *SQLiteRuleRepository) List(ctx context.Context) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ruleColumns+" FROM rules ORDER BY sensor_name, actuator_name")
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

// Create inserts a new rule.
func (r *SQLiteRuleRepository) Create(ctx context.Context, rule *Rule) error {
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.SensorName,
		rule.ActuatorName,
		rule.Threshold,
		string(rule.ControlLogic),
		rule.Hysteresis,
		nullableMeasurement(rule.Measurement),
		rule.CreatedAt.Format(time.RFC3339),
		rule.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrRuleExists
		}
		return fmt.Errorf("inserting rule: %w", err)
	}
	return nil
}

// Update modifies an existing rule.
func (r *SQLiteRuleRepository) Update(ctx context.Context, rule *Rule) error {
	rule.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE rules SET
			sensor_name = ?, actuator_name = ?, threshold = ?,
			control_logic = ?, hysteresis = ?, measurement = ?, updated_at = ?
		WHERE id = ?`,
		rule.SensorName,
		rule.ActuatorName,
		rule.Threshold,
		string(rule.ControlLogic),
		rule.Hysteresis,
		nullableMeasurement(rule.Measurement),
		rule.UpdatedAt.Format(time.RFC3339),
		rule.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrRuleExists
		}
		return fmt.Errorf("updating rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Delete removes a rule by ID.
func (r *SQLiteRuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRule scans a row into a Rule.
func scanRule(scanner rowScanner) (*Rule, error) {
	var rule Rule
	var logic, createdAt, updatedAt string
	var measurement sql.NullString

	err := scanner.Scan(
		&rule.ID,
		&rule.SensorName,
		&rule.ActuatorName,
		&rule.Threshold,
		&logic,
		&rule.Hysteresis,
		&measurement,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	rule.ControlLogic = control.Logic(logic)
	if measurement.Valid {
		rule.Measurement = measurement.String
	}

	rule.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	rule.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &rule, nil
}

// nullableMeasurement returns a sql.NullString for the optional measurement key.
func nullableMeasurement(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
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

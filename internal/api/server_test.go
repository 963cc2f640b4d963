package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mossburn/greenhouse-core/internal/actuator"
	"github.com/mossburn/greenhouse-core/internal/auth"
	"github.com/mossburn/greenhouse-core/internal/automation"
	"github.com/mossburn/greenhouse-core/internal/device"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/config"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/logging"
	"github.com/mossburn/greenhouse-core/internal/readings"
	"github.com/mossburn/greenhouse-core/internal/sensor"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

// testEnv bundles a router and the repositories behind it so tests can
// seed state directly.
type testEnv struct {
	handler http.Handler
	devices device.Repository
	sensors sensor.Repository
	users   auth.UserRepository
}

func setupSchema(t *testing.T, db *sql.DB) {
	t.Helper()

	schema := `
		CREATE TABLE sensors (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			kind       TEXT NOT NULL,
			config     TEXT NOT NULL DEFAULT '{}',
			simulate   INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE devices (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL UNIQUE,
			kind              TEXT NOT NULL,
			control_mode      TEXT NOT NULL,
			mode              TEXT NOT NULL DEFAULT 'auto',
			current_status    INTEGER NOT NULL DEFAULT 0,
			auto_time         TEXT,
			auto_duration_min INTEGER NOT NULL DEFAULT 0,
			auto_enabled      INTEGER NOT NULL DEFAULT 0,
			last_auto_on      TEXT,
			gpio_pin          INTEGER NOT NULL,
			sensor_name       TEXT,
			threshold         REAL,
			control_logic     TEXT,
			hysteresis        REAL NOT NULL DEFAULT 0,
			simulate          INTEGER NOT NULL DEFAULT 1,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL
		);
		CREATE TABLE rules (
			id            TEXT PRIMARY KEY,
			sensor_name   TEXT NOT NULL,
			actuator_name TEXT NOT NULL,
			threshold     REAL NOT NULL,
			control_logic TEXT NOT NULL,
			hysteresis    REAL NOT NULL DEFAULT 0,
			measurement   TEXT,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL,
			UNIQUE (sensor_name, actuator_name)
		);
		CREATE TABLE sensor_logs (
			id          TEXT PRIMARY KEY,
			sensor      TEXT NOT NULL,
			value       REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);
		CREATE TABLE users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logging.Default()
	sim := actuator.NewSimulatedDriver(log)
	return newTestEnvWithPool(t, actuator.NewPool(sim, sim, log))
}

func newTestEnvWithPool(t *testing.T, pool *actuator.Pool) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	setupSchema(t, db)

	log := logging.Default()
	deviceRepo := device.NewSQLiteRepository(db)
	commander := automation.NewCommander(deviceRepo, pool, nil, log)

	deps := Deps{
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testJWTSecret, AccessTokenTTL: 60},
		},
		Logger:    log,
		Version:   "test",
		Sensors:   sensor.NewSQLiteRepository(db),
		Devices:   deviceRepo,
		Rules:     automation.NewSQLiteRuleRepository(db),
		Readings:  readings.NewSQLiteRepository(db),
		Users:     auth.NewSQLiteUserRepository(db),
		Pool:      pool,
		Commander: commander,
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return &testEnv{
		handler: srv.buildRouter(),
		devices: deps.Devices,
		sensors: deps.Sensors,
		users:   deps.Users,
	}
}

// createUser seeds a user and returns a bearer token for it.
func (e *testEnv) createUser(t *testing.T, username, password string, role auth.Role) string {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &auth.User{Username: username, PasswordHash: hash, Role: role}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}

	token, err := auth.GenerateAccessToken(u, testJWTSecret, 60)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

// do performs a request against the router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthIsOpen(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "keeper", "garden-gate-42", auth.RoleSenior)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "keeper",
		"password": "garden-gate-42",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var login struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Role        string `json:"role"`
	}
	decodeBody(t, rec, &login)
	if login.AccessToken == "" || login.TokenType != "Bearer" {
		t.Fatalf("login response = %+v", login)
	}
	if login.Role != "senior" {
		t.Errorf("role = %q, want senior", login.Role)
	}

	me := env.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil)
	if me.Code != http.StatusOK {
		t.Fatalf("auth/me status = %d", me.Code)
	}
	var user struct {
		Username string `json:"username"`
	}
	decodeBody(t, me, &user)
	if user.Username != "keeper" {
		t.Errorf("auth/me username = %q", user.Username)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "keeper", "garden-gate-42", auth.RoleSenior)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "keeper", "wrong"},
		{"unknown user", "nobody", "garden-gate-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
				"username": tt.username,
				"password": tt.password,
			})
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/sensors", "/api/v1/devices", "/api/v1/rules"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d, want 401", path, rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/v1/sensors", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", rec.Code)
	}
}

func TestMutationsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	junior := env.createUser(t, "junior", "garden-gate-42", auth.RoleJunior)
	admin := env.createUser(t, "boss", "garden-gate-42", auth.RoleAdmin)

	body := map[string]any{"name": "probe1", "kind": "temperature", "simulate": true}

	rec := env.do(t, http.MethodPost, "/api/v1/sensors", junior, body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("junior create: status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/sensors", admin, body)
	if rec.Code != http.StatusCreated {
		t.Errorf("admin create: status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Reads remain open to the junior role.
	rec = env.do(t, http.MethodGet, "/api/v1/sensors", junior, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("junior list: status = %d, want 200", rec.Code)
	}
}

func TestUserManagementIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	junior := env.createUser(t, "junior", "garden-gate-42", auth.RoleJunior)

	rec := env.do(t, http.MethodGet, "/api/v1/users", junior, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("junior list users: status = %d, want 403", rec.Code)
	}
}

func TestDeviceControl(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "boss", "garden-gate-42", auth.RoleAdmin)
	ctx := context.Background()

	manual := &device.Device{
		ID:       "d-manual",
		Name:     "pump",
		Kind:     "pump",
		Mode:     device.ModeManual,
		GPIOPin:  23,
		Simulate: true,
	}
	if err := env.devices.Create(ctx, manual); err != nil {
		t.Fatalf("creating device: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/devices/d-manual/control", admin, map[string]bool{"on": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("control status = %d, body %s", rec.Code, rec.Body.String())
	}

	got, err := env.devices.GetByID(ctx, "d-manual")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.CurrentStatus {
		t.Error("device status not persisted by control endpoint")
	}
}

func TestDeviceControlRejectsAutoMode(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "boss", "garden-gate-42", auth.RoleAdmin)

	auto := &device.Device{
		ID:                  "d-auto",
		Name:                "grow-light",
		Kind:                "light",
		ControlMode:         device.ControlModeTime,
		Mode:                device.ModeAuto,
		AutoTime:            "06:00",
		AutoDurationMinutes: 60,
		AutoEnabled:         true,
		GPIOPin:             17,
		Simulate:            true,
	}
	if err := env.devices.Create(context.Background(), auto); err != nil {
		t.Fatalf("creating device: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/devices/d-auto/control", admin, map[string]bool{"on": true})
	if rec.Code != http.StatusConflict {
		t.Errorf("control of auto device: status = %d, want 409", rec.Code)
	}
}

// stuckPinDriver claims and writes pins fine but refuses to release
// them, as a wedged sysfs unexport would.
type stuckPinDriver struct{}

func (stuckPinDriver) Setup(_ int) error         { return nil }
func (stuckPinDriver) Write(_ int, _ bool) error { return nil }
func (stuckPinDriver) Release(_ int) error       { return errors.New("unexport: device busy") }

func TestDeleteDeviceSurvivesPinReleaseFailure(t *testing.T) {
	driver := stuckPinDriver{}
	pool := actuator.NewPool(driver, driver, logging.Default())
	env := newTestEnvWithPool(t, pool)
	admin := env.createUser(t, "boss", "garden-gate-42", auth.RoleAdmin)
	ctx := context.Background()

	d := &device.Device{
		ID:       "d1",
		Name:     "pump",
		Kind:     "pump",
		Mode:     device.ModeManual,
		GPIOPin:  23,
		Simulate: true,
	}
	if err := env.devices.Create(ctx, d); err != nil {
		t.Fatalf("creating device: %v", err)
	}
	if _, err := pool.Get(d.Name, d.GPIOPin, d.Simulate); err != nil {
		t.Fatalf("claiming pin: %v", err)
	}

	// The release failure is logged, not surfaced; the delete succeeds.
	rec := env.do(t, http.MethodDelete, "/api/v1/devices/d1", admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204, body %s", rec.Code, rec.Body.String())
	}
	if _, err := env.devices.GetByID(ctx, "d1"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("device still present after delete: %v", err)
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "boss", "garden-gate-42", auth.RoleAdmin)

	rec := env.do(t, http.MethodGet, "/api/v1/devices/ghost", admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var errBody Error
	decodeBody(t, rec, &errBody)
	if errBody.Code != ErrCodeNotFound {
		t.Errorf("error code = %q, want %q", errBody.Code, ErrCodeNotFound)
	}
}

func TestSensorCRUDOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "boss", "garden-gate-42", auth.RoleAdmin)

	create := env.do(t, http.MethodPost, "/api/v1/sensors", admin, map[string]any{
		"name":     "probe1",
		"kind":     "temperature",
		"simulate": true,
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", create.Code, create.Body.String())
	}

	get := env.do(t, http.MethodGet, "/api/v1/sensors/probe1", admin, nil)
	if get.Code != http.StatusOK {
		t.Fatalf("get status = %d", get.Code)
	}

	update := env.do(t, http.MethodPut, "/api/v1/sensors/probe1", admin, map[string]any{
		"name":     "probe1",
		"kind":     "temperature",
		"simulate": false,
		"config":   map[string]any{"pin": 4},
	})
	if update.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", update.Code, update.Body.String())
	}

	del := env.do(t, http.MethodDelete, "/api/v1/sensors/probe1", admin, nil)
	if del.Code != http.StatusOK && del.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", del.Code)
	}

	gone := env.do(t, http.MethodGet, "/api/v1/sensors/probe1", admin, nil)
	if gone.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", gone.Code)
	}
}

func TestInvalidDeviceRejected(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "boss", "garden-gate-42", auth.RoleAdmin)

	// Missing GPIO pin fails validation.
	rec := env.do(t, http.MethodPost, "/api/v1/devices", admin, map[string]any{
		"name":         "broken",
		"kind":         "fan",
		"control_mode": "time",
		"mode":         "manual",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}

	var errBody Error
	decodeBody(t, rec, &errBody)
	if errBody.Code != ErrCodeValidationError {
		t.Errorf("error code = %q, want %q", errBody.Code, ErrCodeValidationError)
	}
}

func TestRequestsCarryRequestID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	echo := httptest.NewRecorder()
	env.handler.ServeHTTP(echo, req)
	if got := echo.Header().Get("X-Request-ID"); got != "caller-supplied" {
		t.Errorf("X-Request-ID = %q, want caller-supplied", got)
	}
}

func TestBodySizeLimit(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "boss", "garden-gate-42", auth.RoleAdmin)

	huge := map[string]any{
		"name": "big",
		"kind": "temperature",
		"config": map[string]any{
			"blob": fmt.Sprintf("%01048577d", 0), // just over 1 MiB
		},
	}
	rec := env.do(t, http.MethodPost, "/api/v1/sensors", admin, huge)
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body: status = %d, want 400 or 413", rec.Code)
	}
}

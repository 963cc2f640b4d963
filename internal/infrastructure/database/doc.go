// Package database provides the SQLite persistence layer for Greenhouse Core.
//
// It wraps database/sql with connection setup (WAL mode, busy timeout,
// foreign keys), embedded schema migrations, and health checks. SQLite is
// the single source of truth for sensors, devices, rules, users, and the
// sensor reading log; InfluxDB, when enabled, is a derived time-series
// mirror only.
//
// # Migrations
//
// Schema migrations are SQL files embedded into the binary by the
// top-level migrations package and applied on startup:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil { ... }
//	if err := db.Migrate(ctx); err != nil { ... }
//
// Filenames follow YYYYMMDD_HHMMSS_description.up.sql with an optional
// matching .down.sql. Each migration runs in its own transaction.
package database

// Greenhouse Core - greenhouse monitoring and automation daemon
//
// This is the main entry point for the Greenhouse Core application.
// The daemon polls sensors, applies time-based and hysteresis control to
// actuators, logs measurements, and serves a REST API. Designed for:
//   - Unattended operation on small single-board computers
//   - Offline-first control (MQTT and InfluxDB are optional mirrors)
//   - Simulated hardware for development without a greenhouse
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/mossburn/greenhouse-core/migrations"

	"github.com/mossburn/greenhouse-core/internal/actuator"
	"github.com/mossburn/greenhouse-core/internal/api"
	"github.com/mossburn/greenhouse-core/internal/auth"
	"github.com/mossburn/greenhouse-core/internal/automation"
	"github.com/mossburn/greenhouse-core/internal/device"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/config"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/database"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/influxdb"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/logging"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/mqtt"
	"github.com/mossburn/greenhouse-core/internal/readings"
	"github.com/mossburn/greenhouse-core/internal/sensor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Greenhouse Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "site", cfg.Site.Name)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	sensorRepo := sensor.NewSQLiteRepository(db.DB)
	deviceRepo := device.NewSQLiteRepository(db.DB)
	ruleRepo := automation.NewSQLiteRuleRepository(db.DB)
	readingsRepo := readings.NewSQLiteRepository(db.DB)
	userRepo := auth.NewSQLiteUserRepository(db.DB)

	// First-boot admin account
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin user: %w", seedErr)
	}

	// Actuator pool: hardware pins go through sysfs GPIO, simulated
	// devices only log.
	pool := actuator.NewPool(actuator.NewGPIODriver(), actuator.NewSimulatedDriver(log), log)

	// Shared probe cache for combined temperature/humidity hardware
	env := sensor.Environment{
		Probes: sensor.NewProbeCache(
			sensor.NewIIOProbeDriver(),
			cfg.ProbeCacheTTL(),
			cfg.Automation.ReadRetries,
			cfg.RetryDelay(),
		),
	}

	// Optional publishers mirror readings and device state outward
	var publishers []automation.Publisher

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, log)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		publishers = append(publishers, mqtt.NewStatePublisher(mqttClient, log))
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		publishers = append(publishers, influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Manual override path shared by the REST API and MQTT commands
	commander := automation.NewCommander(deviceRepo, pool, publishers, log)

	if mqttClient != nil {
		subErr := mqttClient.SubscribeDeviceCommands(func(name string, on bool) error {
			return commander.OverrideByName(ctx, name, on)
		})
		if subErr != nil {
			return fmt.Errorf("subscribing to device commands: %w", subErr)
		}
		log.Info("MQTT device command subscription active")
	}

	// Automation cycle and scheduler
	cycle := automation.NewCycle(automation.CycleConfig{
		Sensors:    sensorRepo,
		Devices:    deviceRepo,
		Rules:      ruleRepo,
		Readings:   readingsRepo,
		Pool:       pool,
		Env:        env,
		Logger:     log,
		Publishers: publishers,
		Location:   cfg.Location(),
	})
	scheduler := automation.NewScheduler(cycle, pool, cfg.TickInterval(), log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()
	log.Info("automation scheduler started", "interval", cfg.TickInterval())

	// Retention sweep for the sensor log
	if retention := cfg.RetentionPeriod(); retention > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runRetentionSweep(ctx, readingsRepo, retention, log)
		}()
		log.Info("sensor log retention active", "period", retention)
	} else {
		log.Info("sensor log retention disabled")
	}

	// REST API server
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Security:  cfg.Security,
		Logger:    log,
		Version:   version,
		Sensors:   sensorRepo,
		Devices:   deviceRepo,
		Rules:     ruleRepo,
		Readings:  readingsRepo,
		Users:     userRepo,
		Pool:      pool,
		Commander: commander,
		SensorEnv: env,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Wait for the scheduler to finish its tick and release GPIO pins
	// before the deferred Close() calls tear down MQTT and the database.
	wg.Wait()

	log.Info("Greenhouse Core stopped")
	return nil
}

// retentionSweepInterval is how often the retention sweep runs.
const retentionSweepInterval = 12 * time.Hour

// runRetentionSweep deletes sensor log rows older than the retention
// period, once at startup and then on a fixed interval until ctx is
// cancelled.
func runRetentionSweep(ctx context.Context, repo readings.Repository, retention time.Duration, log *logging.Logger) {
	sweep := func() {
		pruned, err := repo.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			log.Error("sensor log retention sweep failed", "error", err)
			return
		}
		if pruned > 0 {
			log.Info("sensor log retention sweep", "pruned", pruned)
		}
	}

	sweep()
	ticker := time.NewTicker(retentionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses GREENHOUSE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GREENHOUSE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

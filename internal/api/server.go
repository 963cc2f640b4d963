package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mossburn/greenhouse-core/internal/actuator"
	"github.com/mossburn/greenhouse-core/internal/auth"
	"github.com/mossburn/greenhouse-core/internal/automation"
	"github.com/mossburn/greenhouse-core/internal/device"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/config"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/logging"
	"github.com/mossburn/greenhouse-core/internal/readings"
	"github.com/mossburn/greenhouse-core/internal/sensor"
)

// gracefulShutdownTimeout is how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// Deps carries everything the HTTP server needs. All repository fields
// are required; Pool is needed only so deleted or re-pinned devices
// release their GPIO claims.
type Deps struct {
	Config   config.APIConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Version  string

	Sensors  sensor.Repository
	Devices  device.Repository
	Rules    automation.RuleRepository
	Readings readings.Repository
	Users    auth.UserRepository

	// Pool releases GPIO pins when devices are deleted or re-pinned.
	Pool *actuator.Pool

	// Commander applies manual override commands.
	Commander *automation.Commander

	// SensorEnv supplies probe access for live sensor reads.
	SensorEnv sensor.Environment
}

// Server is the REST API server for Greenhouse Core.
type Server struct {
	cfg      config.APIConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	version  string
	deps     Deps
	httpSrv  *http.Server
	shutdown chan struct{}
}

// New creates a Server from its dependencies.
//
// Returns an error if any required dependency is missing.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("api: logger is required")
	}
	if deps.Sensors == nil || deps.Devices == nil || deps.Rules == nil || deps.Readings == nil || deps.Users == nil {
		return nil, errors.New("api: all repositories are required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, errors.New("api: JWT secret is required")
	}
	if deps.Commander == nil {
		return nil, errors.New("api: commander is required")
	}

	return &Server{
		cfg:      deps.Config,
		secCfg:   deps.Security,
		logger:   deps.Logger,
		version:  deps.Version,
		deps:     deps,
		shutdown: make(chan struct{}),
	}, nil
}

// Start begins serving HTTP requests in a background goroutine.
//
// The server binds to Config.Host:Config.Port, with TLS if configured.
// Start returns immediately; fatal listen errors are logged.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("api server starting", "addr", addr, "tls", true)
			err = s.httpSrv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("api server starting", "addr", addr, "tls", false)
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", "error", err)
		}
		close(s.shutdown)
	}()

	return nil
}

// Close gracefully shuts down the server, waiting up to
// gracefulShutdownTimeout for in-flight requests to complete.
func (s *Server) Close() error {
	if s.httpSrv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	<-s.shutdown
	s.logger.Info("api server stopped")
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(_ context.Context) error {
	if s.httpSrv == nil {
		return errors.New("api server not started")
	}
	return nil
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-records/internal/audit"
	"github.com/nerrad567/gray-logic-records/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-records/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-records/internal/notify"
	"github.com/nerrad567/gray-logic-records/internal/store"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every backing component the health
// endpoint reports on.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Store    *store.Store

	// Events feeds the WebSocket hub. Optional.
	Events *notify.Broker

	// Checks are reported by /health, keyed by component name. Optional.
	Checks map[string]HealthChecker

	// DB supplies pool statistics for /metrics. Optional.
	DB StatsProvider

	// Audit serves /audit. Optional; the route is absent without it.
	Audit audit.Repository

	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	secCfg  config.SecurityConfig
	logger  *logging.Logger
	store   *store.Store
	events  *notify.Broker
	checks  map[string]HealthChecker
	db      StatsProvider
	audit   audit.Repository
	version string

	startTime time.Time

	limiter *clientLimiter
	hub     *Hub
	server  *http.Server
	cancel  context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("record store is required")
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		secCfg:  deps.Security,
		logger:  deps.Logger,
		store:   deps.Store,
		events:  deps.Events,
		checks:  deps.Checks,
		db:      deps.DB,
		audit:   deps.Audit,
		version: deps.Version,
		hub:     NewHub(deps.WS, deps.Logger),

		startTime: time.Now(),
	}
	if rl := deps.Security.RateLimit; rl.Enabled && rl.RequestsPerMinute > 0 {
		s.limiter = newClientLimiter(rl.RequestsPerMinute, rl.Burst)
	}
	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, relays broker events into it and launches
// the HTTP listener in a background goroutine. The server can be stopped
// with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	if s.events != nil {
		sub := s.events.Subscribe(wsSendBufferSize)
		go func() {
			defer s.events.Unsubscribe(sub)
			s.hub.Relay(srvCtx, sub)
		}()
	}
	if s.limiter != nil {
		go s.limiter.cleanupLoop(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

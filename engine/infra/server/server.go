package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/monitoring"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/appstate"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/config"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
)

const (
	httpIdleTimeout       = 60 * time.Second
	healthCheckTimeout    = 2 * time.Second
	statusHealthy         = "healthy"
	statusDegraded        = "degraded"
	defaultShutdownBudget = 10 * time.Second
)

// Dependencies are the collaborators the HTTP server routes requests to.
type Dependencies struct {
	State      *appstate.State
	Monitoring *monitoring.Service
	// Redis backs the shared rate limiter store. Nil selects the in-process
	// store.
	Redis redis.UniversalClient
}

func (d Dependencies) meter() metric.Meter {
	if d.Monitoring == nil {
		return nil
	}
	return d.Monitoring.Meter()
}

type Server struct {
	cfg    *config.Config
	deps   Dependencies
	router *gin.Engine
}

func NewServer(ctx context.Context, cfg *config.Config, deps Dependencies) (*Server, error) {
	if cfg == nil {
		cfg = config.FromContext(ctx)
	}
	if deps.State == nil {
		return nil, fmt.Errorf("server requires application state")
	}
	s := &Server{cfg: cfg, deps: deps}
	if err := s.buildRouter(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Server.Timeout,
		ReadTimeout:       s.cfg.Server.Timeout,
		// Synchronous executions hold the response open for up to the
		// execution timeout.
		WriteTimeout: s.cfg.Executions.Timeout + s.cfg.Server.Timeout,
		IdleTimeout:  httpIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	budget := s.cfg.Server.ShutdownTimeout
	if budget <= 0 {
		budget = defaultShutdownBudget
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)
	defer cancel()
	log.Info("Shutting down HTTP server", "timeout", budget)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

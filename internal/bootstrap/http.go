package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/stockcam/config"
	httpx "github.com/target/stockcam/internal/http"
)

// HTTPServerConfig contains configuration for the shell HTTP server.
type HTTPServerConfig struct {
	HTTP   config.HTTPConfig
	Core   *AuthCore
	Checks []httpx.HealthCheck
	Logger *slog.Logger
}

// BuildHTTPHandler builds the router over core with the standard middleware.
func BuildHTTPHandler(core *AuthCore, checks []httpx.HealthCheck, logger *slog.Logger) http.Handler {
	router := httpx.NewRouter(httpx.RouterServices{
		Machine: core.Machine,
		Guard:   core.Guard,
		Prefs:   core.Persistence,
		Checks:  checks,
		Logger:  logger,
	})
	return httpx.Chain(router, logger)
}

// RunHTTPServer serves until ctx is done, then shuts down gracefully within
// the configured timeout.
func RunHTTPServer(ctx context.Context, cfg HTTPServerConfig) error {
	if cfg.Core == nil {
		return errors.New("http server: auth core is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
	}
	return serve(ctx, ln, cfg, logger)
}

func serve(ctx context.Context, ln net.Listener, cfg HTTPServerConfig, logger *slog.Logger) error {
	server := &http.Server{
		Handler:      BuildHTTPHandler(cfg.Core, cfg.Checks, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		// ctx is already done here; shutdown gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return g.Wait()
}

// DependencyChecks probes the record database and the session store.
func DependencyChecks(db *sql.DB, client redis.UniversalClient) []httpx.HealthCheck {
	var checks []httpx.HealthCheck
	if db != nil {
		checks = append(checks, httpx.HealthCheck{Name: "postgres", Check: db.PingContext})
	}
	if client != nil {
		checks = append(checks, httpx.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}
	return checks
}

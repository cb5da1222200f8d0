package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/target/stockcam/config"
	"github.com/target/stockcam/internal/adapters/devauth"
	"github.com/target/stockcam/internal/adapters/oidc"
	redisadapter "github.com/target/stockcam/internal/adapters/redis"
	"github.com/target/stockcam/internal/data"
	"github.com/target/stockcam/internal/devseed"
	domainauth "github.com/target/stockcam/internal/domain/auth"
	"github.com/target/stockcam/internal/observability/statsd"
	"github.com/target/stockcam/internal/ports"
	"github.com/target/stockcam/internal/service"
)

// AuthCoreConfig contains everything needed to assemble the auth core.
type AuthCoreConfig struct {
	Auth    config.AuthConfig
	Routes  config.RoutesConfig
	Session config.SessionConfig

	// Records overrides the Postgres record store when set; DB is then unused.
	Records ports.UserRecordStore
	DB      *sql.DB
	// KV overrides the Redis key/value store when set; RedisClient is then unused.
	KV          ports.KeyValueStore
	RedisClient redis.UniversalClient

	Metrics statsd.Sink
	Logger  *slog.Logger
}

// AuthCore is the assembled authentication stack.
type AuthCore struct {
	Backend     ports.IdentityBackend
	Records     ports.UserRecordStore
	Gateway     *service.IdentityGateway
	Repository  *service.SessionRepository
	Persistence *service.SessionPersistence
	Machine     *service.AuthStateMachine
	Guard       *service.RouteGuard
}

// Close stops the state machine and waits for background gateway work.
func (c *AuthCore) Close() {
	if c == nil {
		return
	}
	if c.Machine != nil {
		c.Machine.Close()
	}
	if c.Gateway != nil {
		c.Gateway.Wait()
	}
}

// BuildAuthCore wires stores, the identity backend and the services on top
// of them. The state machine is returned unstarted.
func BuildAuthCore(ctx context.Context, cfg AuthCoreConfig) (*AuthCore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	records := cfg.Records
	if records == nil {
		if cfg.DB == nil {
			return nil, errors.New("auth core: database or record store is required")
		}
		records = data.NewUserRecordRepo(cfg.DB)
	}
	kv := cfg.KV
	if kv == nil {
		if cfg.RedisClient == nil {
			return nil, errors.New("auth core: redis client or key/value store is required")
		}
		kv = redisadapter.NewKVStoreWithPrefix(cfg.RedisClient, cfg.Session.KeyPrefix)
	}

	backend, err := BuildIdentityBackend(ctx, IdentityBackendConfig{Auth: cfg.Auth, Records: records, Logger: logger})
	if err != nil {
		return nil, err
	}

	gateway := service.NewIdentityGateway(service.IdentityGatewayOptions{
		Backend: backend,
		Records: records,
		Logger:  logger,
	})
	repo := service.NewSessionRepository(service.SessionRepositoryOptions{
		Identity: gateway,
		Limits:   service.AttemptLimits{Rate: rate.Limit(cfg.Auth.AttemptRate), Burst: cfg.Auth.AttemptBurst},
		Logger:   logger,
	})
	persistence := service.NewSessionPersistence(kv, logger)
	machine := service.NewAuthStateMachine(service.AuthStateMachineOptions{
		Sessions: repo,
		Hints:    persistence,
		Config: service.AuthStateConfig{
			RevertDelay: cfg.Auth.RevertDelay,
			Logger:      logger,
			Metrics:     cfg.Metrics,
		},
	})
	guard := service.NewRouteGuard(RouteTable(cfg.Routes), service.RouteGuardOptions{
		Destinations: persistence,
		States:       machine,
		Logger:       logger,
	})

	logger.Info("auth core ready", "mode", cfg.Auth.Mode)
	return &AuthCore{
		Backend:     backend,
		Records:     records,
		Gateway:     gateway,
		Repository:  repo,
		Persistence: persistence,
		Machine:     machine,
		Guard:       guard,
	}, nil
}

// RouteTable converts routes configuration into the guard's table.
func RouteTable(cfg config.RoutesConfig) service.RouteTable {
	return service.RouteTable{
		Protected:      cfg.Protected,
		AuthOnly:       cfg.AuthOnly,
		Public:         cfg.Public,
		Startup:        cfg.Startup,
		AuthEntry:      cfg.AuthEntry,
		DefaultLanding: cfg.DefaultLanding,
	}
}

// IdentityBackendConfig contains configuration for the identity backend.
type IdentityBackendConfig struct {
	Auth    config.AuthConfig
	Records ports.UserRecordStore // Required in mock mode for role seeding
	Logger  *slog.Logger
}

// BuildIdentityBackend creates the identity backend for the configured auth mode.
//
//nolint:ireturn // the backend implementation is chosen by configuration.
func BuildIdentityBackend(ctx context.Context, cfg IdentityBackendConfig) (ports.IdentityBackend, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		return buildDevBackend(ctx, cfg, logger)
	case config.AuthModeOAuth:
		return buildOAuthBackend(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func buildDevBackend(ctx context.Context, cfg IdentityBackendConfig, logger *slog.Logger) (*devauth.Provider, error) {
	users, err := cfg.Auth.DevAuth.ParseUsers()
	if err != nil {
		return nil, fmt.Errorf("dev auth users: %w", err)
	}

	seeds := make([]devauth.SeedUser, 0, len(users))
	roles := make(map[string]domainauth.Role, len(users))
	for _, u := range users {
		seeds = append(seeds, devauth.SeedUser{Email: u.Email, Password: u.Password})
		roles[u.Email] = domainauth.Role(u.Role)
	}

	prov, err := devauth.NewProvider(devauth.Config{
		Users:             seeds,
		MaxFailedAttempts: cfg.Auth.DevAuth.MaxFailedAttempts,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create dev auth provider: %w", err)
	}

	if cfg.Records != nil {
		accounts := make([]devseed.Account, 0, len(seeds))
		for _, id := range prov.Accounts() {
			accounts = append(accounts, devseed.Account{Identity: id, Role: roles[id.Email]})
		}
		if err := devseed.Run(ctx, devseed.Options{Records: cfg.Records, Logger: logger}, accounts); err != nil {
			// Seeded accounts still sign in; they fall back to the employee role.
			logger.WarnContext(ctx, "dev user records not fully seeded", "error", err)
		}
	}

	logger.Warn("dev auth enabled; do not use in production", "users", len(seeds))
	return prov, nil
}

func buildOAuthBackend(cfg IdentityBackendConfig, logger *slog.Logger) (*oidc.Provider, error) {
	o := cfg.Auth.OAuth
	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		Scope:        o.Scope,
		DiscoveryURL: o.DiscoveryURL,
		Claims: oidc.ClaimPaths{
			Subject:       o.SubjectClaim,
			Email:         o.EmailClaim,
			DisplayName:   o.DisplayNameClaim,
			Picture:       o.PictureClaim,
			EmailVerified: o.EmailVerifiedClaim,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create oauth provider: %w", err)
	}
	return prov, nil
}

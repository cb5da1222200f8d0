package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	redisadapter "github.com/target/stockcam/internal/adapters/redis"
	"github.com/target/stockcam/internal/bootstrap"
	domainauth "github.com/target/stockcam/internal/domain/auth"
	"github.com/target/stockcam/internal/service"
)

const (
	envAdminEmail    = "STOCKCAM_ADMIN_EMAIL"
	envAdminPassword = "STOCKCAM_ADMIN_PASSWORD"

	// adminKeySuffix keeps CLI session hints apart from the device session.
	adminKeySuffix = "admin-cli:"
)

// userAdmin is the administrative surface the user commands drive.
type userAdmin interface {
	SignIn(ctx context.Context, email, password string) (domainauth.User, error)
	SignOut(ctx context.Context) error
	ListUsers(ctx context.Context, req service.ListUsersRequest) (service.UserList, error)
	SearchUsersByEmailPrefix(ctx context.Context, req service.SearchUsersRequest) ([]domainauth.User, error)
	GetUserByID(ctx context.Context, userID string) (*domainauth.User, error)
	UpdateUserRole(ctx context.Context, userID, role string) (domainauth.User, error)
	UpdateUserStatus(ctx context.Context, userID, status string) (domainauth.User, error)
}

var _ userAdmin = (*service.SessionRepository)(nil)

type adminCredentials struct {
	Email    string
	Password string
}

func resolveCredentials(as string) (adminCredentials, error) {
	creds := adminCredentials{
		Email:    strings.TrimSpace(as),
		Password: os.Getenv(envAdminPassword),
	}
	if creds.Email == "" {
		creds.Email = strings.TrimSpace(os.Getenv(envAdminEmail))
	}
	if creds.Email == "" {
		return adminCredentials{}, fmt.Errorf("--as or %s is required", envAdminEmail)
	}
	if creds.Password == "" {
		return adminCredentials{}, fmt.Errorf("%s is required", envAdminPassword)
	}
	return creds, nil
}

// withAdminSession connects the stores, signs in as the administrator and
// runs fn. The session is signed out afterwards.
func withAdminSession(cmdCtx *commandContext, creds adminCredentials, fn func(ctx context.Context, admin userAdmin) error) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	cfg := cmdCtx.Config
	dbCfg := bootstrap.DatabaseConfig{
		DBConfig:    cfg.Postgres,
		RedisConfig: cfg.Redis,
		Logger:      cmdCtx.Logger,
	}
	db, err := bootstrap.ConnectDB(dbCfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	client, err := bootstrap.ConnectRedis(dbCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	core, err := bootstrap.BuildAuthCore(ctx, bootstrap.AuthCoreConfig{
		Auth:    cfg.Auth,
		Routes:  cfg.Routes,
		Session: cfg.Session,
		DB:      db,
		KV:      redisadapter.NewKVStoreWithPrefix(client, cfg.Session.KeyPrefix+adminKeySuffix),
		Logger:  cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("build auth core: %w", err)
	}
	defer core.Close()

	return runAsAdmin(ctx, core.Repository, creds, fn)
}

func runAsAdmin(ctx context.Context, admin userAdmin, creds adminCredentials, fn func(ctx context.Context, admin userAdmin) error) error {
	user, err := admin.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		return fmt.Errorf("sign in as %s: %w", creds.Email, err)
	}
	if !user.HasRole(domainauth.RoleAdmin) {
		runErr := fmt.Errorf("%s is not an active admin", user.Email)
		return errors.Join(runErr, admin.SignOut(ctx))
	}

	runErr := fn(ctx, admin)
	if signOutErr := admin.SignOut(ctx); signOutErr != nil {
		runErr = errors.Join(runErr, fmt.Errorf("sign out: %w", signOutErr))
	}
	return runErr
}

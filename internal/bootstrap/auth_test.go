package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/stockcam/config"
	"github.com/target/stockcam/internal/adapters/devauth"
	domainauth "github.com/target/stockcam/internal/domain/auth"
	authmocks "github.com/target/stockcam/internal/mocks/auth"
	"github.com/target/stockcam/internal/service"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mockAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Mode: config.AuthModeMock,
		DevAuth: config.DevAuthConfig{
			Users:             []string{"boss@example.com:devpass1:admin", "clerk@example.com:devpass1"},
			MaxFailedAttempts: 5,
		},
		RevertDelay:  time.Second,
		AttemptBurst: 5,
	}
}

func TestBuildAuthCore_RequiresStores(t *testing.T) {
	ctx := context.Background()

	_, err := BuildAuthCore(ctx, AuthCoreConfig{Auth: mockAuthConfig(), KV: authmocks.NewMemoryKVStore(), Logger: quietLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record store")

	_, err = BuildAuthCore(ctx, AuthCoreConfig{Auth: mockAuthConfig(), Records: authmocks.NewMemoryRecordStore(), Logger: quietLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key/value store")
}

func TestBuildIdentityBackend_UnsupportedMode(t *testing.T) {
	_, err := BuildIdentityBackend(context.Background(), IdentityBackendConfig{Auth: config.AuthConfig{Mode: "saml"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saml")
}

func TestBuildIdentityBackend_OAuthNeedsDiscovery(t *testing.T) {
	_, err := BuildIdentityBackend(context.Background(), IdentityBackendConfig{
		Auth:   config.AuthConfig{Mode: config.AuthModeOAuth, OAuth: config.OAuthConfig{ClientID: "stockcam"}},
		Logger: quietLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery URL")
}

func TestBuildAuthCore_DevMode(t *testing.T) {
	ctx := context.Background()
	records := authmocks.NewMemoryRecordStore()
	routes := config.RoutesConfig{
		Protected:      []string{"/stock"},
		AuthOnly:       []string{"/signin"},
		Public:         []string{"/"},
		Startup:        "/boot",
		AuthEntry:      "/signin",
		DefaultLanding: "/stock",
	}

	core, err := BuildAuthCore(ctx, AuthCoreConfig{
		Auth:    mockAuthConfig(),
		Routes:  routes,
		Records: records,
		KV:      authmocks.NewMemoryKVStore(),
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(core.Close)

	boss, err := records.Get(ctx, devauth.SeedUID("boss@example.com"))
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, boss.Role)
	clerk, err := records.Get(ctx, devauth.SeedUID("clerk@example.com"))
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleEmployee, clerk.Role)

	assert.Equal(t, "/boot", core.Guard.EvaluateCurrent(ctx, "/stock").Redirect)

	require.NoError(t, core.Machine.Start(ctx))
	require.Eventually(t, func() bool {
		return core.Machine.State().Kind() == domainauth.KindUnauthenticated
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "/signin", core.Guard.EvaluateCurrent(ctx, "/stock").Redirect)

	require.True(t, core.Machine.Login(ctx, service.LoginInput{Email: "boss@example.com", Password: "devpass1"}))
	require.Eventually(t, func() bool {
		return core.Machine.HasPermission(ctx, domainauth.RoleAdmin)
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "/stock", core.Guard.NextAfterLogin(ctx))
}

func TestRouteTable(t *testing.T) {
	table := RouteTable(config.RoutesConfig{Protected: []string{"/a"}, Startup: "/s", AuthEntry: "/l", DefaultLanding: "/a"})
	assert.Equal(t, []string{"/a"}, table.Protected)
	assert.Equal(t, "/s", table.Startup)
	assert.Equal(t, "/l", table.AuthEntry)
	assert.Equal(t, "/a", table.DefaultLanding)
}

package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/stockcam/config"
	httpx "github.com/target/stockcam/internal/http"
	authmocks "github.com/target/stockcam/internal/mocks/auth"
)

func TestServe_ShutsDownOnCancel(t *testing.T) {
	core, err := BuildAuthCore(context.Background(), AuthCoreConfig{
		Auth:    mockAuthConfig(),
		Routes:  config.RoutesConfig{Startup: "/splash", AuthEntry: "/login", DefaultLanding: "/inventory"},
		Records: authmocks.NewMemoryRecordStore(),
		KV:      authmocks.NewMemoryKVStore(),
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(core.Close)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, HTTPServerConfig{
			HTTP:   config.HTTPConfig{ReadTimeout: time.Second, WriteTimeout: time.Second, ShutdownTimeout: time.Second},
			Core:   core,
			Checks: []httpx.HealthCheck{{Name: "redis", Check: func(context.Context) error { return errors.New("down") }}},
			Logger: quietLogger(),
		}, quietLogger())
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, err = http.Get("http://" + ln.Addr().String() + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunHTTPServer_RequiresCore(t *testing.T) {
	assert.Error(t, RunHTTPServer(context.Background(), HTTPServerConfig{}))
}

func TestDependencyChecks_SkipsMissingClients(t *testing.T) {
	assert.Empty(t, DependencyChecks(nil, nil))
}

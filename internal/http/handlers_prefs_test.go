package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmocks "github.com/target/stockcam/internal/mocks/auth"
	"github.com/target/stockcam/internal/service"
)

type failingPrefs struct{ err error }

func (f failingPrefs) Preferences(context.Context) (service.Preferences, error) {
	return service.Preferences{}, f.err
}
func (f failingPrefs) SavePreferences(context.Context, service.Preferences) error { return f.err }
func (f failingPrefs) CompleteFirstLaunch(context.Context) error                  { return f.err }

func decodePrefs(t *testing.T, body []byte) service.Preferences {
	t.Helper()
	var prefs service.Preferences
	require.NoError(t, json.Unmarshal(body, &prefs))
	return prefs
}

func TestPrefsHandlers_Defaults(t *testing.T) {
	h := &PrefsHandlers{Store: service.NewSessionPersistence(authmocks.NewMemoryKVStore(), nil)}

	rec := doJSON(t, h.Get, http.MethodGet, "/api/prefs", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.Preferences{Theme: "system", Locale: "en", FirstLaunch: true}, decodePrefs(t, rec.Body.Bytes()))
}

func TestPrefsHandlers_Save(t *testing.T) {
	store := service.NewSessionPersistence(authmocks.NewMemoryKVStore(), nil)
	h := &PrefsHandlers{Store: store}

	rec := doJSON(t, h.Save, http.MethodPut, "/api/prefs", `{"theme":"dark","first_launch_done":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, service.Preferences{Theme: "dark", Locale: "en", FirstLaunch: false}, decodePrefs(t, rec.Body.Bytes()))

	rec = doJSON(t, h.Save, http.MethodPut, "/api/prefs", `{"locale":"pt-BR"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, service.Preferences{Theme: "dark", Locale: "pt-BR", FirstLaunch: false}, decodePrefs(t, rec.Body.Bytes()))
}

func TestPrefsHandlers_RejectsInvalidValues(t *testing.T) {
	store := service.NewSessionPersistence(authmocks.NewMemoryKVStore(), nil)
	h := &PrefsHandlers{Store: store}

	for name, body := range map[string]string{
		"theme":  `{"theme":"neon"}`,
		"locale": `{"locale":"<en>"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, h.Save, http.MethodPut, "/api/prefs", body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid_preferences")
		})
	}

	prefs, err := store.Preferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "system", prefs.Theme)
	assert.Equal(t, "en", prefs.Locale)
}

func TestPrefsHandlers_StoreFailure(t *testing.T) {
	h := &PrefsHandlers{Store: failingPrefs{err: errors.New("redis down")}}

	rec := doJSON(t, h.Get, http.MethodGet, "/api/prefs", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "prefs_unavailable")

	rec = doJSON(t, h.Save, http.MethodPut, "/api/prefs", `{"theme":"light"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/target/stockcam/internal/service"
)

// PreferenceStore reads and writes the device's app preferences.
type PreferenceStore interface {
	Preferences(ctx context.Context) (service.Preferences, error)
	SavePreferences(ctx context.Context, prefs service.Preferences) error
	CompleteFirstLaunch(ctx context.Context) error
}

var _ PreferenceStore = (*service.SessionPersistence)(nil)

// PrefsHandlers serves /api/prefs.
type PrefsHandlers struct {
	Store  PreferenceStore // Required
	Logger *slog.Logger    // Optional
}

var localePattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

type prefsRequest struct {
	Theme           string `json:"theme"`
	Locale          string `json:"locale"`
	FirstLaunchDone bool   `json:"first_launch_done"`
}

// Validate allows empty fields; they leave the stored value alone.
func (r prefsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Theme, validation.In("system", "light", "dark")),
		validation.Field(&r.Locale, validation.Match(localePattern)),
	)
}

func (h *PrefsHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *PrefsHandlers) storeFailed(w http.ResponseWriter, r *http.Request, err error) {
	h.logger().ErrorContext(r.Context(), "preference store failed", "path", r.URL.Path, "error", err)
	WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "prefs_unavailable", Err: err})
}

// Get handles GET /api/prefs.
func (h *PrefsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.Store.Preferences(r.Context())
	if err != nil {
		h.storeFailed(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, prefs)
}

// Save handles PUT /api/prefs and responds with the stored preferences.
func (h *PrefsHandlers) Save(w http.ResponseWriter, r *http.Request) {
	var req prefsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusUnprocessableEntity, ErrCode: "invalid_preferences", Err: err})
		return
	}

	ctx := r.Context()
	if err := h.Store.SavePreferences(ctx, service.Preferences{Theme: req.Theme, Locale: req.Locale}); err != nil {
		h.storeFailed(w, r, err)
		return
	}
	if req.FirstLaunchDone {
		if err := h.Store.CompleteFirstLaunch(ctx); err != nil {
			h.storeFailed(w, r, err)
			return
		}
	}
	h.Get(w, r)
}

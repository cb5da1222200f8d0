package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/stockcam/internal/service"
)

// RouterServices holds everything the HTTP router serves.
type RouterServices struct {
	Machine AuthMachine     // Required
	Guard   Navigator       // Required
	Landing LandingResolver // Optional: defaults to Guard when it can resolve landings
	Prefs   PreferenceStore // Optional: /api/prefs is not served when nil
	Checks  []HealthCheck   // Optional: dependencies probed by /readyz
	Logger  *slog.Logger    // Optional
}

// NewRouter registers the auth, navigation and preference APIs and the guarded screens.
func NewRouter(services RouterServices) http.Handler {
	if services.Machine == nil || services.Guard == nil {
		panic("NewRouter: Machine and Guard are required")
	}
	landing := services.Landing
	if landing == nil {
		if lr, ok := services.Guard.(LandingResolver); ok {
			landing = lr
		}
	}
	var states service.StateSource
	if ss, ok := services.Machine.(service.StateSource); ok {
		states = ss
	}

	mux := http.NewServeMux()
	auth := &AuthHandlers{Machine: services.Machine, Landing: landing, Logger: services.Logger}
	nav := &NavHandlers{Nav: services.Guard, States: states}
	ready := &ReadyHandlers{Checks: services.Checks, Logger: services.Logger}

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("GET /readyz", ready.Ready)

	mux.HandleFunc("POST /api/auth/login", auth.Login)
	mux.HandleFunc("POST /api/auth/register", auth.Register)
	mux.HandleFunc("POST /api/auth/logout", auth.Logout)
	mux.HandleFunc("POST /api/auth/reset-password", auth.ResetPassword)
	mux.HandleFunc("POST /api/auth/refresh", auth.Refresh)
	mux.HandleFunc("POST /api/auth/clear-messages", auth.ClearMessages)
	mux.HandleFunc("POST /api/auth/profile", auth.UpdateProfile)
	mux.HandleFunc("DELETE /api/auth/account", auth.DeleteAccount)
	mux.HandleFunc("GET /api/auth/state", auth.State)
	mux.HandleFunc("GET /api/auth/permission", auth.Permission)

	mux.HandleFunc("GET /api/nav", nav.Decide)

	if services.Prefs != nil {
		prefs := &PrefsHandlers{Store: services.Prefs, Logger: services.Logger}
		mux.HandleFunc("GET /api/prefs", prefs.Get)
		mux.HandleFunc("PUT /api/prefs", prefs.Save)
	}
	mux.HandleFunc("GET /api/", apiNotFound)

	mux.Handle("GET /", Guard(services.Guard)(http.HandlerFunc(nav.Screen)))

	return mux
}

func apiNotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("no such endpoint")})
}

// Chain wraps h with the standard middleware stack: request id, recovery, logging.
func Chain(h http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h = Logging(logger)(h)
	h = Recover(logger)(h)
	return RequestID()(h)
}

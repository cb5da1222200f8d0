package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	"github.com/target/stockcam/internal/service"
)

// AuthMachine is the state machine surface the auth endpoints drive.
type AuthMachine interface {
	State() domainauth.State
	Login(ctx context.Context, in service.LoginInput) bool
	Register(ctx context.Context, in service.RegisterInput) bool
	Logout(ctx context.Context) bool
	ResetPassword(ctx context.Context, email string) bool
	UpdateProfile(ctx context.Context, in service.ProfileInput) bool
	DeleteAccount(ctx context.Context) bool
	RefreshSession(ctx context.Context)
	ClearMessages()
	HasPermission(ctx context.Context, role domainauth.Role) bool
}

var _ AuthMachine = (*service.AuthStateMachine)(nil)

// LandingResolver picks where to go after a successful sign-in.
type LandingResolver interface {
	NextAfterLogin(ctx context.Context) string
}

var _ LandingResolver = (*service.RouteGuard)(nil)

// AuthHandlers serves the /api/auth endpoints.
type AuthHandlers struct {
	Machine AuthMachine     // Required
	Landing LandingResolver // Optional: omits "next" when nil
	Logger  *slog.Logger    // Optional
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	RememberMe  bool   `json:"remember_me"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

type profileRequest struct {
	DisplayName *string `json:"display_name"`
	PhotoURL    *string `json:"photo_url"`
}

type authResponse struct {
	OK    bool      `json:"ok"`
	State StateView `json:"state"`
	Next  string    `json:"next,omitempty"`
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// respond writes the post-operation state. Failures use the status of the
// classified error.
func (h *AuthHandlers) respond(w http.ResponseWriter, r *http.Request, ok bool, next string) {
	st := h.Machine.State()
	status := http.StatusOK
	if !ok {
		status = statusForState(st)
		h.logger().DebugContext(r.Context(), "auth request failed",
			"path", r.URL.Path, "status", status, "state", st.Kind())
	}
	WriteJSON(w, status, authResponse{OK: ok, State: NewStateView(st), Next: next})
}

func (h *AuthHandlers) next(ctx context.Context) string {
	if h.Landing == nil {
		return ""
	}
	return h.Landing.NextAfterLogin(ctx)
}

// Login handles POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	ok := h.Machine.Login(r.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	next := ""
	if ok {
		next = h.next(r.Context())
	}
	h.respond(w, r, ok, next)
}

// Register handles POST /api/auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	ok := h.Machine.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		RememberMe:  req.RememberMe,
	})
	next := ""
	if ok {
		next = h.next(r.Context())
	}
	h.respond(w, r, ok, next)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Machine.Logout(r.Context()), "")
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	h.respond(w, r, h.Machine.ResetPassword(r.Context(), req.Email), "")
}

// Refresh handles POST /api/auth/refresh. It always succeeds; the state tells
// whether anything changed.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	h.Machine.RefreshSession(r.Context())
	h.respond(w, r, true, "")
}

// ClearMessages handles POST /api/auth/clear-messages.
func (h *AuthHandlers) ClearMessages(w http.ResponseWriter, r *http.Request) {
	h.Machine.ClearMessages()
	h.respond(w, r, true, "")
}

// UpdateProfile handles POST /api/auth/profile.
func (h *AuthHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	ok := h.Machine.UpdateProfile(r.Context(), service.ProfileInput{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	h.respond(w, r, ok, "")
}

// DeleteAccount handles DELETE /api/auth/account.
func (h *AuthHandlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Machine.DeleteAccount(r.Context()), "")
}

// State handles GET /api/auth/state.
func (h *AuthHandlers) State(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, NewStateView(h.Machine.State()))
}

// Permission handles GET /api/auth/permission?role=.
func (h *AuthHandlers) Permission(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("role"))
	role, valid := domainauth.ParseRole(raw)
	if !valid {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_role",
			Err:     errors.New("role must be one of employee, manager, admin"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"role":    role,
		"allowed": h.Machine.HasPermission(r.Context(), role),
	})
}

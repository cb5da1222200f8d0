package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/target/stockcam/internal/service"
)

// Navigator evaluates navigations and classifies paths.
type Navigator interface {
	RouteEvaluator
	Routes() service.RouteTable
}

var _ Navigator = (*service.RouteGuard)(nil)

type navResponse struct {
	Path     string             `json:"path"`
	Class    service.RouteClass `json:"class"`
	Allowed  bool               `json:"allowed"`
	Redirect string             `json:"redirect,omitempty"`
}

// NavHandlers serves guard decisions and placeholder screens.
type NavHandlers struct {
	Nav    Navigator           // Required
	States service.StateSource // Optional: screens omit state when nil
}

// Decide handles GET /api/nav?path=. A rejected protected path is
// remembered as the intended destination, as for a real navigation.
func (h *NavHandlers) Decide(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimSpace(r.URL.Query().Get("path"))
	if p == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_path", Err: errors.New("path is required")})
		return
	}
	d := h.Nav.EvaluateCurrent(r.Context(), p)
	WriteJSON(w, http.StatusOK, navResponse{
		Path:     p,
		Class:    h.Nav.Routes().Classify(p),
		Allowed:  d.Allowed(),
		Redirect: d.Redirect,
	})
}

type screenResponse struct {
	Screen string             `json:"screen"`
	Class  service.RouteClass `json:"class"`
	State  *StateView         `json:"state,omitempty"`
}

// Screen serves the placeholder for a screen the guard admitted.
func (h *NavHandlers) Screen(w http.ResponseWriter, r *http.Request) {
	resp := screenResponse{Screen: r.URL.Path, Class: h.Nav.Routes().Classify(r.URL.Path)}
	if h.States != nil {
		v := NewStateView(h.States.State())
		resp.State = &v
	}
	WriteJSON(w, http.StatusOK, resp)
}

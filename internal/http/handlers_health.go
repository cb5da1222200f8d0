package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	healthResponse      = `{"status":"ok"}`
	defaultReadyTimeout = 2 * time.Second
)

// healthHandler answers liveness probes without touching dependencies.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// HealthCheck probes one dependency for readiness.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// ReadyHandlers serves /readyz from a fixed set of dependency checks.
type ReadyHandlers struct {
	Checks  []HealthCheck
	Timeout time.Duration // Optional: defaults to 2s
	Logger  *slog.Logger  // Optional
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Ready runs every check concurrently. Any failure answers 503.
func (h *ReadyHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	results := make([]error, len(h.Checks))
	var g errgroup.Group
	for i, c := range h.Checks {
		g.Go(func() error {
			results[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	resp := readyResponse{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	status := http.StatusOK
	for i, c := range h.Checks {
		if results[i] != nil {
			resp.Status = "unavailable"
			resp.Checks[c.Name] = results[i].Error()
			status = http.StatusServiceUnavailable
			if h.Logger != nil {
				h.Logger.WarnContext(r.Context(), "readiness check failed", "check", c.Name, "error", results[i])
			}
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	WriteJSON(w, status, resp)
}

package service

import (
	"context"
	"log/slog"
	"path"
	"strings"

	domainauth "github.com/target/stockcam/internal/domain/auth"
)

// RouteClass is the access class of a screen path.
type RouteClass string

const (
	RoutePublic    RouteClass = "public"
	RouteAuthOnly  RouteClass = "auth_only"
	RouteProtected RouteClass = "protected"
)

// RouteTable classifies screen paths by prefix on segment boundaries.
type RouteTable struct {
	Protected []string
	AuthOnly  []string
	Public    []string

	Startup        string // where Initial and Loading states wait
	AuthEntry      string // sign-in screen
	DefaultLanding string // first protected screen after sign-in
}

// DefaultRouteTable is the inventory client's screen map.
func DefaultRouteTable() RouteTable {
	return RouteTable{
		Protected:      []string{"/inventory", "/products", "/scan", "/profile", "/settings", "/admin"},
		AuthOnly:       []string{"/login", "/register", "/forgot-password"},
		Public:         []string{"/", "/splash"},
		Startup:        "/splash",
		AuthEntry:      "/login",
		DefaultLanding: "/inventory",
	}
}

// Classify returns the class of p. The longest matching prefix wins, "/"
// only matches itself, the startup path is always public and anything
// unclassified is protected.
func (t RouteTable) Classify(p string) RouteClass {
	p = cleanPath(p)
	if p == cleanPath(t.Startup) {
		return RoutePublic
	}

	best, class := -1, RouteProtected
	try := func(prefixes []string, c RouteClass) {
		for _, prefix := range prefixes {
			prefix = cleanPath(prefix)
			if matchesPrefix(p, prefix) && len(prefix) > best {
				best, class = len(prefix), c
			}
		}
	}
	try(t.Public, RoutePublic)
	try(t.AuthOnly, RouteAuthOnly)
	try(t.Protected, RouteProtected)
	return class
}

func matchesPrefix(p, prefix string) bool {
	if prefix == "/" {
		return p == "/"
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Decision is the guard's answer for one navigation. An empty Redirect allows it.
type Decision struct {
	Redirect string `json:"redirect,omitempty"`
}

// Allowed reports whether navigation may proceed.
func (d Decision) Allowed() bool { return d.Redirect == "" }

// IntendedRouteStore holds the single intended-destination slot. *SessionPersistence implements it.
type IntendedRouteStore interface {
	SetIntendedRoute(ctx context.Context, path string) error
	ConsumeIntendedRoute(ctx context.Context) (string, bool, error)
	ClearIntendedRoute(ctx context.Context) error
}

var _ IntendedRouteStore = (*SessionPersistence)(nil)

// StateSource exposes the current authentication state. *AuthStateMachine implements it.
type StateSource interface {
	State() domainauth.State
}

var _ StateSource = (*AuthStateMachine)(nil)

// RouteGuardOptions groups dependencies for RouteGuard.
type RouteGuardOptions struct {
	Destinations IntendedRouteStore // Optional: without it nothing is remembered
	States       StateSource        // Optional: required for EvaluateCurrent
	Logger       *slog.Logger       // Optional
}

// RouteGuard decides whether a screen transition may proceed.
type RouteGuard struct {
	routes       RouteTable
	destinations IntendedRouteStore
	states       StateSource
	logger       *slog.Logger
}

// NewRouteGuard constructs a RouteGuard over routes.
func NewRouteGuard(routes RouteTable, opts RouteGuardOptions) *RouteGuard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteGuard{
		routes:       routes,
		destinations: opts.Destinations,
		states:       opts.States,
		logger:       logger.With("component", "route_guard"),
	}
}

// Routes returns the guard's route table.
func (g *RouteGuard) Routes() RouteTable { return g.routes }

// Evaluate decides navigation to p in state. The only side effect is
// remembering a protected path when redirecting to sign in.
func (g *RouteGuard) Evaluate(ctx context.Context, p string, state domainauth.State) Decision {
	class := g.routes.Classify(p)

	switch state.Kind() {
	case domainauth.KindInitial, domainauth.KindLoading:
		if class == RoutePublic {
			return Decision{}
		}
		return Decision{Redirect: g.routes.Startup}

	case domainauth.KindAuthenticated:
		if class == RouteAuthOnly {
			return Decision{Redirect: g.routes.DefaultLanding}
		}
		return Decision{}

	case domainauth.KindUnauthenticated, domainauth.KindError:
		if class == RouteProtected {
			g.rememberDestination(ctx, cleanPath(p))
			return Decision{Redirect: g.routes.AuthEntry}
		}
		return Decision{}

	case domainauth.KindSuccess:
		// Success is transient; decide as the state it settles into.
		return g.Evaluate(ctx, p, domainauth.Settled(state))
	}
	return Decision{Redirect: g.routes.Startup}
}

// EvaluateCurrent evaluates p against the state machine's current state.
func (g *RouteGuard) EvaluateCurrent(ctx context.Context, p string) Decision {
	var state domainauth.State = domainauth.InitialState{}
	if g.states != nil {
		state = g.states.State()
	}
	return g.Evaluate(ctx, p, state)
}

// ConsumeIntendedDestination reads and clears the remembered path.
func (g *RouteGuard) ConsumeIntendedDestination(ctx context.Context) (string, bool) {
	if g.destinations == nil {
		return "", false
	}
	dest, ok, err := g.destinations.ConsumeIntendedRoute(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "consume intended destination failed", "error", err)
		return "", false
	}
	return dest, ok
}

// ClearIntendedDestination forgets the remembered path.
func (g *RouteGuard) ClearIntendedDestination(ctx context.Context) {
	if g.destinations == nil {
		return
	}
	if err := g.destinations.ClearIntendedRoute(ctx); err != nil {
		g.logger.WarnContext(ctx, "clear intended destination failed", "error", err)
	}
}

// NextAfterLogin consumes the intended destination and returns where to go
// after a successful sign-in: the destination unless it is empty or the
// startup path, else the default landing.
func (g *RouteGuard) NextAfterLogin(ctx context.Context) string {
	dest, ok := g.ConsumeIntendedDestination(ctx)
	if !ok || cleanPath(dest) == cleanPath(g.routes.Startup) {
		return g.routes.DefaultLanding
	}
	return dest
}

// rememberDestination is best-effort: a failed write only costs the detour.
func (g *RouteGuard) rememberDestination(ctx context.Context, p string) {
	if g.destinations == nil {
		return
	}
	if err := g.destinations.SetIntendedRoute(ctx, p); err != nil {
		g.logger.WarnContext(ctx, "save intended destination failed", "path", p, "error", err)
	}
}

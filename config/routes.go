package config

import (
	"errors"
	"strings"
)

// RoutesConfig is the route guard's screen map. Paths match by prefix on
// segment boundaries; anything unlisted is treated as protected.
type RoutesConfig struct {
	Protected      []string `env:"PROTECTED"       envDefault:"/inventory,/products,/scan,/profile,/settings,/admin"`
	AuthOnly       []string `env:"AUTH_ONLY"       envDefault:"/login,/register,/forgot-password"`
	Public         []string `env:"PUBLIC"          envDefault:"/,/splash"`
	Startup        string   `env:"STARTUP"         envDefault:"/splash"`
	AuthEntry      string   `env:"AUTH_ENTRY"      envDefault:"/login"`
	DefaultLanding string   `env:"DEFAULT_LANDING" envDefault:"/inventory"`
}

// Sanitize trims entries and drops empty ones.
func (c *RoutesConfig) Sanitize() {
	c.Protected = cleanPaths(c.Protected)
	c.AuthOnly = cleanPaths(c.AuthOnly)
	c.Public = cleanPaths(c.Public)
	c.Startup = strings.TrimSpace(c.Startup)
	c.AuthEntry = strings.TrimSpace(c.AuthEntry)
	c.DefaultLanding = strings.TrimSpace(c.DefaultLanding)
}

// Validate requires the three anchor screens to be absolute paths.
func (c *RoutesConfig) Validate() error {
	var errs []error
	for name, p := range map[string]string{
		"ROUTES_STARTUP":         c.Startup,
		"ROUTES_AUTH_ENTRY":      c.AuthEntry,
		"ROUTES_DEFAULT_LANDING": c.DefaultLanding,
	} {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, errors.New(name+" must be an absolute path"))
		}
	}
	return errors.Join(errs...)
}

func cleanPaths(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

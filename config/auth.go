package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity backend the application signs users in against.
type AuthMode string

const (
	// AuthModeOAuth uses an OIDC provider with the password grant.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses the in-memory dev identity backend (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"stockcam"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`

	// Claim JMESPath expressions; empty values use the provider defaults.
	SubjectClaim       string `env:"CLAIM_SUBJECT"`
	EmailClaim         string `env:"CLAIM_EMAIL"`
	DisplayNameClaim   string `env:"CLAIM_DISPLAY_NAME"`
	PictureClaim       string `env:"CLAIM_PICTURE"`
	EmailVerifiedClaim string `env:"CLAIM_EMAIL_VERIFIED"`
}

// DevUser is one account seeded into the dev identity backend.
type DevUser struct {
	Email    string
	Password string
	Role     string
}

// DevAuthConfig controls the in-memory identity backend used when AUTH_MODE=mock.
type DevAuthConfig struct {
	// Users is a ";"-separated list of email:password[:role] entries.
	Users             []string `env:"USERS"               envDefault:"admin@stockcam.local:stockcam:admin;clerk@stockcam.local:stockcam:employee" envSeparator:";"`
	MaxFailedAttempts int      `env:"MAX_FAILED_ATTEMPTS" envDefault:"5"`
}

// ParseUsers decodes Users. Entries without a role default to employee.
func (c DevAuthConfig) ParseUsers() ([]DevUser, error) {
	users := make([]DevUser, 0, len(c.Users))
	for _, raw := range c.Users {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("dev user %q: want email:password[:role]", raw)
		}
		u := DevUser{
			Email:    strings.ToLower(strings.TrimSpace(parts[0])),
			Password: parts[1],
			Role:     "employee",
		}
		if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
			u.Role = strings.ToLower(strings.TrimSpace(parts[2]))
		}
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("dev user %q: email and password are required", raw)
		}
		users = append(users, u)
	}
	return users, nil
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity backend to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// RevertDelay is how long a success message stays before the state settles.
	RevertDelay time.Duration `env:"AUTH_SUCCESS_REVERT_DELAY" envDefault:"3s"`

	// AttemptRate is the sustained credential attempts per second per email; 0 disables throttling.
	AttemptRate  float64 `env:"AUTH_ATTEMPT_RATE"  envDefault:"0"`
	AttemptBurst int     `env:"AUTH_ATTEMPT_BURST" envDefault:"5"`
}

// Sanitize clamps auth values into usable ranges.
func (c *AuthConfig) Sanitize() {
	if c.RevertDelay <= 0 {
		c.RevertDelay = 3 * time.Second
	}
	if c.AttemptRate < 0 {
		c.AttemptRate = 0
	}
	if c.AttemptBurst < 1 {
		c.AttemptBurst = 1
	}
	if c.DevAuth.MaxFailedAttempts < 1 {
		c.DevAuth.MaxFailedAttempts = 5
	}
	c.OAuth.DiscoveryURL = strings.TrimSpace(c.OAuth.DiscoveryURL)
}

// Validate checks that the selected mode is usable. Mock mode is refused
// outside development.
func (c *AuthConfig) Validate(isDev bool) error {
	switch c.Mode {
	case AuthModeMock:
		if !isDev {
			return errors.New("AUTH_MODE=mock requires DEV=true")
		}
		if _, err := c.DevAuth.ParseUsers(); err != nil {
			return err
		}
		return nil
	case AuthModeOAuth:
		var missing []string
		if c.OAuth.DiscoveryURL == "" {
			missing = append(missing, "OAUTH_DISCOVERY_URL")
		}
		if c.OAuth.ClientID == "" {
			missing = append(missing, "OAUTH_CLIENT_ID")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing %s", strings.Join(missing, ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown auth mode %q", c.Mode)
	}
}

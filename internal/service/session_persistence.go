package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	"github.com/target/stockcam/internal/ports"
)

// Persisted key names.
const (
	KeyIsLoggedIn      = "isLoggedIn"
	KeyUserID          = "userId"
	KeyUserEmail       = "userEmail"
	KeyUserDisplayName = "userDisplayName"
	KeyLastLoginTime   = "lastLoginTime"
	KeyIntendedRoute   = "intendedRoute"
	KeyRememberMe      = "rememberMe"
	KeyTheme           = "theme"
	KeyLocale          = "locale"
	KeyIsFirstLaunch   = "isFirstLaunch"
)

const (
	defaultTheme  = "system"
	defaultLocale = "en"
)

var sessionKeys = []string{KeyIsLoggedIn, KeyUserID, KeyUserEmail, KeyUserDisplayName, KeyLastLoginTime}

// SessionHints is what a device remembers about its last session. It is a
// hint for fast startup, not proof of authentication.
type SessionHints struct {
	IsLoggedIn    bool       `json:"is_logged_in"`
	UserID        string     `json:"user_id,omitempty"`
	Email         string     `json:"email,omitempty"`
	DisplayName   string     `json:"display_name,omitempty"`
	LastLoginTime *time.Time `json:"last_login_time,omitempty"`
	RememberMe    bool       `json:"remember_me"`
}

// Preferences are app-level settings stored next to the session hints.
type Preferences struct {
	Theme       string `json:"theme"`
	Locale      string `json:"locale"`
	FirstLaunch bool   `json:"first_launch"`
}

// SessionPersistence stores session hints and the intended destination in a key/value store.
type SessionPersistence struct {
	store  ports.KeyValueStore
	logger *slog.Logger
	now    func() time.Time

	// routeMu makes read-and-clear of the intended route atomic within the process.
	routeMu sync.Mutex
}

// NewSessionPersistence constructs a SessionPersistence. It panics when store is nil.
func NewSessionPersistence(store ports.KeyValueStore, logger *slog.Logger) *SessionPersistence {
	if store == nil {
		panic("SessionPersistence: store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionPersistence{
		store:  store,
		logger: logger.With("component", "session_persistence"),
		now:    time.Now,
	}
}

// SaveSession records hints for user.
func (p *SessionPersistence) SaveSession(ctx context.Context, user domainauth.User, rememberMe bool) error {
	values := []struct{ key, value string }{
		{KeyIsLoggedIn, "true"},
		{KeyUserID, user.ID},
		{KeyUserEmail, user.Email},
		{KeyUserDisplayName, user.DisplayName},
		{KeyLastLoginTime, p.now().UTC().Format(time.RFC3339)},
		{KeyRememberMe, strconv.FormatBool(rememberMe)},
	}
	for _, kv := range values {
		if err := p.store.Set(ctx, kv.key, kv.value); err != nil {
			return fmt.Errorf("save session %s: %w", kv.key, err)
		}
	}
	return nil
}

// LoadSession reads the stored hints. Missing keys yield zero values.
func (p *SessionPersistence) LoadSession(ctx context.Context) (SessionHints, error) {
	var hints SessionHints
	read := func(key string) (string, error) {
		v, _, err := p.store.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("load session %s: %w", key, err)
		}
		return v, nil
	}

	loggedIn, err := read(KeyIsLoggedIn)
	if err != nil {
		return hints, err
	}
	hints.IsLoggedIn, _ = strconv.ParseBool(loggedIn)

	if hints.UserID, err = read(KeyUserID); err != nil {
		return hints, err
	}
	if hints.Email, err = read(KeyUserEmail); err != nil {
		return hints, err
	}
	if hints.DisplayName, err = read(KeyUserDisplayName); err != nil {
		return hints, err
	}

	last, err := read(KeyLastLoginTime)
	if err != nil {
		return hints, err
	}
	if t, perr := time.Parse(time.RFC3339, last); perr == nil {
		hints.LastLoginTime = &t
	}

	remember, err := read(KeyRememberMe)
	if err != nil {
		return hints, err
	}
	hints.RememberMe, _ = strconv.ParseBool(remember)
	return hints, nil
}

// ClearSession removes the session hints and the intended destination.
// The remember-me choice and preferences survive.
func (p *SessionPersistence) ClearSession(ctx context.Context) error {
	keys := append(append([]string(nil), sessionKeys...), KeyIntendedRoute)

	p.routeMu.Lock()
	defer p.routeMu.Unlock()
	if err := p.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (p *SessionPersistence) SetRememberMe(ctx context.Context, remember bool) error {
	if err := p.store.Set(ctx, KeyRememberMe, strconv.FormatBool(remember)); err != nil {
		return fmt.Errorf("set remember me: %w", err)
	}
	return nil
}

// RememberMe defaults to false when unset.
func (p *SessionPersistence) RememberMe(ctx context.Context) (bool, error) {
	v, _, err := p.store.Get(ctx, KeyRememberMe)
	if err != nil {
		return false, fmt.Errorf("get remember me: %w", err)
	}
	b, _ := strconv.ParseBool(v)
	return b, nil
}

// SetIntendedRoute overwrites the single intended destination slot.
func (p *SessionPersistence) SetIntendedRoute(ctx context.Context, path string) error {
	p.routeMu.Lock()
	defer p.routeMu.Unlock()
	if err := p.store.Set(ctx, KeyIntendedRoute, path); err != nil {
		return fmt.Errorf("set intended route: %w", err)
	}
	return nil
}

// IntendedRoute peeks at the slot without clearing it.
func (p *SessionPersistence) IntendedRoute(ctx context.Context) (string, bool, error) {
	v, ok, err := p.store.Get(ctx, KeyIntendedRoute)
	if err != nil {
		return "", false, fmt.Errorf("get intended route: %w", err)
	}
	return v, ok && v != "", nil
}

// ConsumeIntendedRoute reads and clears the slot. Of two concurrent callers
// at most one receives the stored path.
func (p *SessionPersistence) ConsumeIntendedRoute(ctx context.Context) (string, bool, error) {
	p.routeMu.Lock()
	defer p.routeMu.Unlock()
	v, ok, err := p.store.GetDel(ctx, KeyIntendedRoute)
	if err != nil {
		return "", false, fmt.Errorf("consume intended route: %w", err)
	}
	return v, ok && v != "", nil
}

func (p *SessionPersistence) ClearIntendedRoute(ctx context.Context) error {
	p.routeMu.Lock()
	defer p.routeMu.Unlock()
	if err := p.store.Delete(ctx, KeyIntendedRoute); err != nil {
		return fmt.Errorf("clear intended route: %w", err)
	}
	return nil
}

// Preferences returns stored preferences with defaults for missing keys.
// FirstLaunch is true until CompleteFirstLaunch is called.
func (p *SessionPersistence) Preferences(ctx context.Context) (Preferences, error) {
	prefs := Preferences{Theme: defaultTheme, Locale: defaultLocale, FirstLaunch: true}

	if v, ok, err := p.store.Get(ctx, KeyTheme); err != nil {
		return prefs, fmt.Errorf("get theme: %w", err)
	} else if ok && v != "" {
		prefs.Theme = v
	}
	if v, ok, err := p.store.Get(ctx, KeyLocale); err != nil {
		return prefs, fmt.Errorf("get locale: %w", err)
	} else if ok && v != "" {
		prefs.Locale = v
	}
	if v, ok, err := p.store.Get(ctx, KeyIsFirstLaunch); err != nil {
		return prefs, fmt.Errorf("get first launch: %w", err)
	} else if ok {
		if b, perr := strconv.ParseBool(v); perr == nil {
			prefs.FirstLaunch = b
		}
	}
	return prefs, nil
}

// SavePreferences stores theme and locale; empty values are skipped.
func (p *SessionPersistence) SavePreferences(ctx context.Context, prefs Preferences) error {
	if prefs.Theme != "" {
		if err := p.store.Set(ctx, KeyTheme, prefs.Theme); err != nil {
			return fmt.Errorf("save theme: %w", err)
		}
	}
	if prefs.Locale != "" {
		if err := p.store.Set(ctx, KeyLocale, prefs.Locale); err != nil {
			return fmt.Errorf("save locale: %w", err)
		}
	}
	return nil
}

func (p *SessionPersistence) CompleteFirstLaunch(ctx context.Context) error {
	if err := p.store.Set(ctx, KeyIsFirstLaunch, "false"); err != nil {
		return fmt.Errorf("complete first launch: %w", err)
	}
	return nil
}

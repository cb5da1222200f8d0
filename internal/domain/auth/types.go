package auth

// Package auth contains domain-level types for authentication sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents a user's authorization level.
// Keep string form for easy persistence.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Level returns the ordinal permission level; unknown roles rank lowest.
func (r Role) Level() int {
	switch r {
	case RoleEmployee:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool { return r.Level() > 0 }

// IsAtLeast reports whether r grants everything min grants.
func (r Role) IsAtLeast(minRole Role) bool {
	return r.IsValid() && minRole.IsValid() && r.Level() >= minRole.Level()
}

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// Status represents whether an account may use the application.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusInactive:
		return true
	default:
		return false
	}
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	return st, st.IsValid()
}

// Identity is the principal reported by the identity provider.
// It never carries role or status; those live in the UserRecord.
type Identity struct {
	UID           string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	CreatedAt     *time.Time
	LastSignInAt  *time.Time
}

// UserRecord is the extended per-user record persisted alongside the identity.
type UserRecord struct {
	ID            string     `json:"id"            db:"id"`
	Email         string     `json:"email"         db:"email"`
	DisplayName   string     `json:"display_name"  db:"display_name"`
	PhotoURL      string     `json:"photo_url"     db:"photo_url"`
	Role          Role       `json:"role"          db:"role"`
	Status        Status     `json:"status"        db:"status"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"    db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"    db:"updated_at"`
	LastSignInAt  *time.Time `json:"last_sign_in_at,omitempty" db:"last_sign_in_at"`
}

// NewUserRecord builds the default record for a freshly seen identity.
func NewUserRecord(id Identity, now time.Time) UserRecord {
	created := now
	if id.CreatedAt != nil {
		created = *id.CreatedAt
	}
	return UserRecord{
		ID:            id.UID,
		Email:         strings.ToLower(id.Email),
		DisplayName:   id.DisplayName,
		PhotoURL:      id.PhotoURL,
		Role:          RoleEmployee,
		Status:        StatusActive,
		EmailVerified: id.EmailVerified,
		CreatedAt:     created,
		UpdatedAt:     now,
		LastSignInAt:  id.LastSignInAt,
	}
}

// User is the session entity handed to the rest of the application.
// It is a value type: updates produce a new User.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	LastSignInAt  *time.Time `json:"last_sign_in_at,omitempty"`
	Role          Role       `json:"role"`
	Status        Status     `json:"status"`
}

// IsActive reports whether the account status permits access.
func (u User) IsActive() bool { return u.Status == StatusActive }

// HasRole reports whether the user is active and holds at least minRole.
func (u User) HasRole(minRole Role) bool {
	return u.IsActive() && u.Role.IsAtLeast(minRole)
}

// Equal compares two users field by field, including timestamps by instant.
func (u User) Equal(o User) bool {
	return u.ID == o.ID &&
		u.Email == o.Email &&
		u.DisplayName == o.DisplayName &&
		u.AvatarURL == o.AvatarURL &&
		u.EmailVerified == o.EmailVerified &&
		u.Role == o.Role &&
		u.Status == o.Status &&
		timeEqual(u.CreatedAt, o.CreatedAt) &&
		timeEqual(u.LastSignInAt, o.LastSignInAt)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// UserFromIdentity builds an identity-only user. Role and status take their
// defaults until the persisted record has been reconciled.
func UserFromIdentity(id Identity) User {
	return User{
		ID:            id.UID,
		Email:         id.Email,
		DisplayName:   id.DisplayName,
		AvatarURL:     id.PhotoURL,
		EmailVerified: id.EmailVerified,
		CreatedAt:     copyTime(id.CreatedAt),
		LastSignInAt:  copyTime(id.LastSignInAt),
		Role:          RoleEmployee,
		Status:        StatusActive,
	}
}

// UserFromRecord builds a user from the persisted record alone.
func UserFromRecord(rec UserRecord) User {
	created := rec.CreatedAt
	u := User{
		ID:            rec.ID,
		Email:         rec.Email,
		DisplayName:   rec.DisplayName,
		AvatarURL:     rec.PhotoURL,
		EmailVerified: rec.EmailVerified,
		LastSignInAt:  copyTime(rec.LastSignInAt),
		Role:          rec.Role,
		Status:        rec.Status,
	}
	if !created.IsZero() {
		u.CreatedAt = &created
	}
	return normalizeDefaults(u)
}

// MergeUser reconciles a fresh identity with its persisted record.
//
// Provider-owned fields (email, display name, avatar, creation time) take the
// identity value when set and fall back to the record. Email verification is
// true if either side reports it. Role, status and last sign-in always come
// from the record.
func MergeUser(id Identity, rec *UserRecord) User {
	if rec == nil {
		return UserFromIdentity(id)
	}

	u := UserFromIdentity(id)
	u.Email = firstNonEmpty(id.Email, rec.Email)
	u.DisplayName = firstNonEmpty(id.DisplayName, rec.DisplayName)
	u.AvatarURL = firstNonEmpty(id.PhotoURL, rec.PhotoURL)
	u.EmailVerified = id.EmailVerified || rec.EmailVerified
	if u.CreatedAt == nil && !rec.CreatedAt.IsZero() {
		created := rec.CreatedAt
		u.CreatedAt = &created
	}
	u.LastSignInAt = copyTime(rec.LastSignInAt)
	u.Role = rec.Role
	u.Status = rec.Status
	return normalizeDefaults(u)
}

func normalizeDefaults(u User) User {
	if !u.Role.IsValid() {
		u.Role = RoleEmployee
	}
	if !u.Status.IsValid() {
		u.Status = StatusActive
	}
	return u
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

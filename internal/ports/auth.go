package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"errors"
	"strings"
	"time"

	domainauth "github.com/target/stockcam/internal/domain/auth"
)

// ErrRecordNotFound is returned by UserRecordStore when no record exists for an id.
var ErrRecordNotFound = errors.New("user record not found")

// ProfileUpdate carries optional profile changes; nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// IsEmpty reports whether the update changes nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.DisplayName == nil && p.PhotoURL == nil
}

// IdentityBackend is the external identity provider. Failures are reported as
// *errors.BackendError values using the provider's own codes.
type IdentityBackend interface {
	// WatchIdentity streams the signed-in identity, starting with the current
	// value. A nil identity means signed out. The channel closes when ctx is done.
	WatchIdentity(ctx context.Context) (<-chan *domainauth.Identity, error)
	CurrentIdentity(ctx context.Context) (*domainauth.Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (domainauth.Identity, error)
	CreateUserWithPassword(ctx context.Context, email, password string) (domainauth.Identity, error)
	SignOut(ctx context.Context) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	SendEmailVerification(ctx context.Context) error
	UpdateProfile(ctx context.Context, update ProfileUpdate) (domainauth.Identity, error)
	UpdatePassword(ctx context.Context, newPassword string) error
	Reauthenticate(ctx context.Context, password string) error
	Reload(ctx context.Context) (domainauth.Identity, error)
	DeleteCurrentUser(ctx context.Context) error
}

// RecordPatch carries a partial update to a UserRecord; nil fields are left untouched.
type RecordPatch struct {
	Email         *string
	DisplayName   *string
	PhotoURL      *string
	Role          *domainauth.Role
	Status        *domainauth.Status
	EmailVerified *bool
	LastSignInAt  *time.Time
}

// Apply copies the set fields of p onto rec. Emails are stored lowercased.
func (p RecordPatch) Apply(rec *domainauth.UserRecord) {
	if p.Email != nil {
		rec.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.DisplayName != nil {
		rec.DisplayName = *p.DisplayName
	}
	if p.PhotoURL != nil {
		rec.PhotoURL = *p.PhotoURL
	}
	if p.Role != nil {
		rec.Role = *p.Role
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.EmailVerified != nil {
		rec.EmailVerified = *p.EmailVerified
	}
	if p.LastSignInAt != nil {
		t := *p.LastSignInAt
		rec.LastSignInAt = &t
	}
}

// ListUsersInput pages through records ordered by email.
type ListUsersInput struct {
	Limit  int
	Cursor string
}

// UserPage is one page of records. NextCursor is empty on the last page.
type UserPage struct {
	Users      []domainauth.UserRecord
	NextCursor string
}

// UserRecordStore persists extended user records keyed by identity id.
type UserRecordStore interface {
	// Get returns ErrRecordNotFound when no record exists.
	Get(ctx context.Context, id string) (*domainauth.UserRecord, error)
	// Set creates or replaces the record.
	Set(ctx context.Context, rec domainauth.UserRecord) (*domainauth.UserRecord, error)
	// Merge applies patch to an existing record; ErrRecordNotFound when absent.
	Merge(ctx context.Context, id string, patch RecordPatch) (*domainauth.UserRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, in ListUsersInput) (UserPage, error)
	SearchByEmailPrefix(ctx context.Context, prefix string, limit int) ([]domainauth.UserRecord, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// KeyValueStore is durable string storage for device-local session hints.
type KeyValueStore interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	// GetDel atomically reads and removes key.
	GetDel(ctx context.Context, key string) (value string, ok bool, err error)
}

package service

import (
	"context"
	"html"
	"log/slog"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	apperrors "github.com/target/stockcam/internal/errors"
	"github.com/target/stockcam/internal/ports"
)

// MinPasswordLength is the shortest password accepted for registration and password changes.
const MinPasswordLength = 6

// maxTrackedLimiters bounds the per-email limiter table.
const maxTrackedLimiters = 10_000

// IdentityOperations is the account surface the repository validates in front of.
// *IdentityGateway implements it.
type IdentityOperations interface {
	WatchSession(ctx context.Context) (<-chan *domainauth.User, error)
	CurrentSession(ctx context.Context) (*domainauth.User, error)
	SignIn(ctx context.Context, email, password string) (domainauth.User, error)
	Register(ctx context.Context, email, password, displayName string) (domainauth.User, error)
	SignOut(ctx context.Context) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, update ports.ProfileUpdate) (domainauth.User, error)
	UpdatePassword(ctx context.Context, newPassword string) error
	Reauthenticate(ctx context.Context, password string) error
	SendEmailVerification(ctx context.Context) error
	ReloadSession(ctx context.Context) (domainauth.User, error)
	DeleteAccount(ctx context.Context) error
	HasPermission(ctx context.Context, required domainauth.Role) bool
	UpdateUserRole(ctx context.Context, userID string, role domainauth.Role) (domainauth.User, error)
	UpdateUserStatus(ctx context.Context, userID string, status domainauth.Status) (domainauth.User, error)
	ListUsers(ctx context.Context, limit int, cursor string) ([]domainauth.User, string, error)
	SearchUsersByEmailPrefix(ctx context.Context, query string, limit int) ([]domainauth.User, error)
	GetUserByID(ctx context.Context, userID string) (*domainauth.User, error)
	IsEmailAvailable(ctx context.Context, email string) (bool, error)
}

var _ IdentityOperations = (*IdentityGateway)(nil)

// AttemptLimits throttles credential operations per email address.
// A zero Rate disables throttling.
type AttemptLimits struct {
	Rate  rate.Limit
	Burst int
}

// SessionRepositoryOptions groups dependencies for SessionRepository.
type SessionRepositoryOptions struct {
	Identity IdentityOperations // Required
	Limits   AttemptLimits      // Optional
	Logger   *slog.Logger       // Optional
}

// SessionRepository validates and normalizes input before handing it to the
// identity gateway. Validation failures never reach the backend.
type SessionRepository struct {
	identity IdentityOperations
	logger   *slog.Logger
	policy   *bluemonday.Policy
	limits   AttemptLimits

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewSessionRepository constructs a SessionRepository. It panics when Identity is nil.
func NewSessionRepository(opts SessionRepositoryOptions) *SessionRepository {
	if opts.Identity == nil {
		panic("SessionRepository: Identity is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRepository{
		identity: opts.Identity,
		logger:   logger.With("component", "session_repository"),
		policy:   bluemonday.StrictPolicy(),
		limits:   opts.Limits,
		limiters: make(map[string]*rate.Limiter),
	}
}

// RegisterInput carries the fields of a new account. RememberMe applies to
// the session the new account is signed in with.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	RememberMe  bool
}

// ProfileInput carries optional profile changes; nil fields are left untouched.
type ProfileInput struct {
	DisplayName *string
	PhotoURL    *string
}

// ListUsersRequest pages through users. Limit, when set, must be positive.
type ListUsersRequest struct {
	Limit  *int
	Cursor string
}

// SearchUsersRequest finds users by email prefix. Limit, when set, must be positive.
type SearchUsersRequest struct {
	Query string
	Limit *int
}

// UserList is one page of users.
type UserList struct {
	Users      []domainauth.User `json:"users"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func (r *SessionRepository) WatchSession(ctx context.Context) (<-chan *domainauth.User, error) {
	ch, err := r.identity.WatchSession(ctx)
	return ch, surface(err)
}

func (r *SessionRepository) CurrentSession(ctx context.Context) (*domainauth.User, error) {
	u, err := r.identity.CurrentSession(ctx)
	return u, surface(err)
}

// SignIn validates the credentials' shape and signs in.
func (r *SessionRepository) SignIn(ctx context.Context, email, password string) (domainauth.User, error) {
	email, err := validateEmail("email", email)
	if err != nil {
		return domainauth.User{}, err
	}
	if err := validateRequired("password", password); err != nil {
		return domainauth.User{}, err
	}
	if err := r.throttle("sign-in", email); err != nil {
		return domainauth.User{}, err
	}
	u, err := r.identity.SignIn(ctx, email, password)
	return u, surface(err)
}

// Register validates the new account, sanitizes the display name and registers.
func (r *SessionRepository) Register(ctx context.Context, in RegisterInput) (domainauth.User, error) {
	email, err := validateEmail("email", in.Email)
	if err != nil {
		return domainauth.User{}, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return domainauth.User{}, err
	}
	if err := r.throttle("register", email); err != nil {
		return domainauth.User{}, err
	}
	u, err := r.identity.Register(ctx, email, in.Password, r.sanitizeName(in.DisplayName))
	return u, surface(err)
}

func (r *SessionRepository) SignOut(ctx context.Context) error {
	return surface(r.identity.SignOut(ctx))
}

func (r *SessionRepository) SendPasswordResetEmail(ctx context.Context, email string) error {
	email, err := validateEmail("email", email)
	if err != nil {
		return err
	}
	if err := r.throttle("password-reset", email); err != nil {
		return err
	}
	return surface(r.identity.SendPasswordResetEmail(ctx, email))
}

// UpdateProfile requires at least one field. A provided display name must
// not be blank; a provided photo URL must be empty or a valid URL.
func (r *SessionRepository) UpdateProfile(ctx context.Context, in ProfileInput) (domainauth.User, error) {
	if in.DisplayName == nil && in.PhotoURL == nil {
		return domainauth.User{}, apperrors.RequiredField("profile")
	}
	var update ports.ProfileUpdate
	if in.DisplayName != nil {
		name := r.sanitizeName(*in.DisplayName)
		if name == "" {
			return domainauth.User{}, apperrors.RequiredField("displayName")
		}
		update.DisplayName = &name
	}
	if in.PhotoURL != nil {
		photo := strings.TrimSpace(*in.PhotoURL)
		if err := validation.Validate(photo, is.URL); err != nil {
			return domainauth.User{}, apperrors.InvalidField("photoUrl", "photo URL: "+err.Error())
		}
		update.PhotoURL = &photo
	}
	u, err := r.identity.UpdateProfile(ctx, update)
	return u, surface(err)
}

func (r *SessionRepository) UpdatePassword(ctx context.Context, newPassword string) error {
	if err := validatePassword("newPassword", newPassword); err != nil {
		return err
	}
	return surface(r.identity.UpdatePassword(ctx, newPassword))
}

func (r *SessionRepository) Reauthenticate(ctx context.Context, password string) error {
	if err := validateRequired("password", password); err != nil {
		return err
	}
	return surface(r.identity.Reauthenticate(ctx, password))
}

func (r *SessionRepository) SendEmailVerification(ctx context.Context) error {
	return surface(r.identity.SendEmailVerification(ctx))
}

func (r *SessionRepository) ReloadSession(ctx context.Context) (domainauth.User, error) {
	u, err := r.identity.ReloadSession(ctx)
	return u, surface(err)
}

func (r *SessionRepository) DeleteAccount(ctx context.Context) error {
	return surface(r.identity.DeleteAccount(ctx))
}

// HasPermission never fails; unknown roles and lookup errors answer false.
func (r *SessionRepository) HasPermission(ctx context.Context, required domainauth.Role) bool {
	if !required.IsValid() {
		return false
	}
	return r.identity.HasPermission(ctx, required)
}

func (r *SessionRepository) UpdateUserRole(ctx context.Context, userID, role string) (domainauth.User, error) {
	userID = strings.TrimSpace(userID)
	if err := validateRequired("userId", userID); err != nil {
		return domainauth.User{}, err
	}
	parsed, ok := domainauth.ParseRole(role)
	if !ok {
		return domainauth.User{}, apperrors.InvalidField("role", "unknown role "+role)
	}
	u, err := r.identity.UpdateUserRole(ctx, userID, parsed)
	return u, surface(err)
}

func (r *SessionRepository) UpdateUserStatus(ctx context.Context, userID, status string) (domainauth.User, error) {
	userID = strings.TrimSpace(userID)
	if err := validateRequired("userId", userID); err != nil {
		return domainauth.User{}, err
	}
	parsed, ok := domainauth.ParseStatus(status)
	if !ok {
		return domainauth.User{}, apperrors.InvalidField("status", "unknown status "+status)
	}
	u, err := r.identity.UpdateUserStatus(ctx, userID, parsed)
	return u, surface(err)
}

func (r *SessionRepository) ListUsers(ctx context.Context, req ListUsersRequest) (UserList, error) {
	limit, err := validateLimit(req.Limit)
	if err != nil {
		return UserList{}, err
	}
	users, next, err := r.identity.ListUsers(ctx, limit, strings.TrimSpace(req.Cursor))
	if err != nil {
		return UserList{}, surface(err)
	}
	return UserList{Users: users, NextCursor: next}, nil
}

func (r *SessionRepository) SearchUsersByEmailPrefix(ctx context.Context, req SearchUsersRequest) ([]domainauth.User, error) {
	query := normalizeEmail(req.Query)
	if err := validateRequired("query", query); err != nil {
		return nil, err
	}
	limit, err := validateLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	users, err := r.identity.SearchUsersByEmailPrefix(ctx, query, limit)
	return users, surface(err)
}

func (r *SessionRepository) GetUserByID(ctx context.Context, userID string) (*domainauth.User, error) {
	userID = strings.TrimSpace(userID)
	if err := validateRequired("userId", userID); err != nil {
		return nil, err
	}
	u, err := r.identity.GetUserByID(ctx, userID)
	return u, surface(err)
}

func (r *SessionRepository) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	email, err := validateEmail("email", email)
	if err != nil {
		return false, err
	}
	ok, err := r.identity.IsEmailAvailable(ctx, email)
	return ok, surface(err)
}

// throttle spends one token for (op, email). Exhausted buckets fail without a backend call.
func (r *SessionRepository) throttle(op, email string) error {
	if r.limits.Rate <= 0 || r.limits.Rate == rate.Inf {
		return nil
	}
	key := op + ":" + email

	r.mu.Lock()
	lim, ok := r.limiters[key]
	if !ok {
		if len(r.limiters) >= maxTrackedLimiters {
			r.limiters = make(map[string]*rate.Limiter)
		}
		burst := r.limits.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(r.limits.Rate, burst)
		r.limiters[key] = lim
	}
	r.mu.Unlock()

	if !lim.Allow() {
		r.logger.Warn("attempt throttled", "operation", op)
		return apperrors.TooManyRequests(op + " attempts exhausted")
	}
	return nil
}

// angleBrackets never survive in a display name, whatever encoding they arrived in.
var angleBrackets = strings.NewReplacer("<", "", ">", "")

// sanitizeName strips markup from a display name and trims it. Input is
// decoded before sanitizing so entity-encoded tags are stripped too; the
// result is plain text.
func (r *SessionRepository) sanitizeName(name string) string {
	decoded := html.UnescapeString(strings.TrimSpace(name))
	plain := html.UnescapeString(r.policy.Sanitize(decoded))
	return strings.TrimSpace(angleBrackets.Replace(plain))
}

// surface passes domain errors through and classifies anything else.
func surface(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.ClassifyError(err)
}

func validateEmail(field, email string) (string, error) {
	email = normalizeEmail(email)
	if err := validateRequired(field, email); err != nil {
		return "", err
	}
	if err := validation.Validate(email, is.Email); err != nil {
		return "", apperrors.InvalidEmail(field)
	}
	return email, nil
}

func validatePassword(field, password string) error {
	if err := validateRequired(field, password); err != nil {
		return err
	}
	if err := validation.Validate(password, validation.Length(MinPasswordLength, 0)); err != nil {
		return apperrors.PasswordTooShort(field, MinPasswordLength)
	}
	return nil
}

func validateRequired(field, value string) error {
	if err := validation.Validate(strings.TrimSpace(value), validation.Required); err != nil {
		return apperrors.RequiredField(field)
	}
	return nil
}

// validateLimit returns 0 (store default) when limit is unset.
func validateLimit(limit *int) (int, error) {
	if limit == nil {
		return 0, nil
	}
	if err := validation.Validate(*limit, validation.Required, validation.Min(1)); err != nil {
		return 0, apperrors.InvalidField("limit", "limit must be greater than zero")
	}
	return *limit, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

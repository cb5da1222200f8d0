package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	apperrors "github.com/target/stockcam/internal/errors"
	"github.com/target/stockcam/internal/ports"
)

const defaultVerificationTimeout = 15 * time.Second

// IdentityGatewayOptions groups dependencies for IdentityGateway.
type IdentityGatewayOptions struct {
	Backend ports.IdentityBackend // Required
	Records ports.UserRecordStore // Required
	Logger  *slog.Logger          // Optional
}

// IdentityGateway performs account operations against the identity backend
// and keeps the extended user record in step. Every error it returns is an
// *apperrors.AppError.
type IdentityGateway struct {
	backend ports.IdentityBackend
	records ports.UserRecordStore
	logger  *slog.Logger

	now                 func() time.Time
	verificationTimeout time.Duration
	background          sync.WaitGroup
}

// NewIdentityGateway constructs an IdentityGateway. It panics when a required dependency is nil.
func NewIdentityGateway(opts IdentityGatewayOptions) *IdentityGateway {
	if opts.Backend == nil {
		panic("IdentityGateway: Backend is required")
	}
	if opts.Records == nil {
		panic("IdentityGateway: Records is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityGateway{
		backend:             opts.Backend,
		records:             opts.Records,
		logger:              logger.With("component", "identity_gateway"),
		now:                 time.Now,
		verificationTimeout: defaultVerificationTimeout,
	}
}

// WatchSession streams the merged session for every identity change. A nil
// value means signed out. Record lookups that fail degrade to the identity
// alone; the stream only ends when the backend feed ends or ctx is done.
func (g *IdentityGateway) WatchSession(ctx context.Context) (<-chan *domainauth.User, error) {
	identities, err := g.backend.WatchIdentity(ctx)
	if err != nil {
		return nil, apperrors.ClassifyError(err)
	}

	out := make(chan *domainauth.User)
	go func() {
		defer close(out)
		for id := range identities {
			var session *domainauth.User
			if id != nil {
				u := g.resolveUser(ctx, *id)
				session = &u
			}
			select {
			case out <- session:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// CurrentSession returns the signed-in session, or nil when signed out.
func (g *IdentityGateway) CurrentSession(ctx context.Context) (*domainauth.User, error) {
	id, err := g.backend.CurrentIdentity(ctx)
	if err != nil {
		return nil, apperrors.ClassifyError(err)
	}
	if id == nil {
		return nil, nil
	}
	u := g.resolveUser(ctx, *id)
	return &u, nil
}

// SignIn authenticates with email and password and stamps the record's last sign-in time.
func (g *IdentityGateway) SignIn(ctx context.Context, email, password string) (domainauth.User, error) {
	id, err := g.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		return domainauth.User{}, apperrors.ClassifyError(err)
	}

	// Best-effort: a failed timestamp write never fails the sign-in.
	rec, err := g.recordSignIn(ctx, id)
	if err != nil {
		g.logger.WarnContext(ctx, "record sign-in time failed", "uid", id.UID, "error", err)
		return g.resolveUser(ctx, id), nil
	}
	return domainauth.MergeUser(id, rec), nil
}

func (g *IdentityGateway) recordSignIn(ctx context.Context, id domainauth.Identity) (*domainauth.UserRecord, error) {
	now := g.now().UTC()
	rec, err := g.records.Merge(ctx, id.UID, ports.RecordPatch{LastSignInAt: &now})
	if errors.Is(err, ports.ErrRecordNotFound) {
		fresh := domainauth.NewUserRecord(id, now)
		fresh.LastSignInAt = &now
		return g.records.Set(ctx, fresh)
	}
	return rec, err
}

// Register creates an account. The email is checked against existing
// records before the backend is called.
func (g *IdentityGateway) Register(ctx context.Context, email, password, displayName string) (domainauth.User, error) {
	taken, err := g.records.EmailExists(ctx, email)
	if err != nil {
		return domainauth.User{}, apperrors.ClassifyError(err)
	}
	if taken {
		return domainauth.User{}, apperrors.EmailAlreadyInUse(email)
	}

	id, err := g.backend.CreateUserWithPassword(ctx, email, password)
	if err != nil {
		return domainauth.User{}, apperrors.ClassifyError(err)
	}

	if displayName != "" {
		updated, upErr := g.backend.UpdateProfile(ctx, ports.ProfileUpdate{DisplayName: &displayName})
		if upErr != nil {
			g.logger.WarnContext(ctx, "set display name failed", "uid", id.UID, "error", upErr)
			id.DisplayName = displayName
		} else {
			id = updated
		}
	}

	rec := domainauth.NewUserRecord(id, g.now().UTC())
	saved, err := g.records.Set(ctx, rec)
	if err != nil {
		// The record is recreated with defaults on the next session lookup.
		g.logger.WarnContext(ctx, "create user record failed", "uid", id.UID, "error", err)
		saved = &rec
	}

	g.sendVerificationAsync(ctx, id.UID)
	return domainauth.MergeUser(id, saved), nil
}

// sendVerificationAsync fires the verification email without holding up the
// caller. It outlives ctx cancellation but not verificationTimeout.
func (g *IdentityGateway) sendVerificationAsync(ctx context.Context, uid string) {
	g.background.Add(1)
	go func() {
		defer g.background.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.verificationTimeout)
		defer cancel()
		if err := g.backend.SendEmailVerification(sendCtx); err != nil {
			g.logger.WarnContext(sendCtx, "send verification email failed", "uid", uid, "error", err)
			return
		}
		g.logger.DebugContext(sendCtx, "verification email sent", "uid", uid)
	}()
}

// Wait blocks until background sends started by Register have finished.
func (g *IdentityGateway) Wait() {
	g.background.Wait()
}

func (g *IdentityGateway) SignOut(ctx context.Context) error {
	if err := g.backend.SignOut(ctx); err != nil {
		return apperrors.ClassifyError(err)
	}
	return nil
}

func (g *IdentityGateway) SendPasswordResetEmail(ctx context.Context, email string) error {
	if err := g.backend.SendPasswordResetEmail(ctx, email); err != nil {
		return apperrors.ClassifyError(err)
	}
	return nil
}

// UpdateProfile changes the display name and/or photo and returns the
// re-fetched merged session.
func (g *IdentityGateway) UpdateProfile(ctx context.Context, update ports.ProfileUpdate) (domainauth.User, error) {
	if update.IsEmpty() {
		return domainauth.User{}, apperrors.RequiredField("profile")
	}
	id, err := g.backend.UpdateProfile(ctx, update)
	if err != nil {
		return domainauth.User{}, apperrors.ClassifyError(err)
	}

	// Mirroring into the record is best-effort; the identity already holds the change.
	patch := ports.RecordPatch{DisplayName: update.DisplayName, PhotoURL: update.PhotoURL}
	if _, mErr := g.records.Merge(ctx, id.UID, patch); mErr != nil {
		g.logger.WarnContext(ctx, "mirror profile to record failed", "uid", id.UID, "error", mErr)
	}

	current, err := g.CurrentSession(ctx)
	if err != nil {
		return domainauth.User{}, err
	}
	if current == nil {
		return domainauth.User{}, apperrors.SessionExpired("signed out during profile update")
	}
	return *current, nil
}

func (g *IdentityGateway) UpdatePassword(ctx context.Context, newPassword string) error {
	if err := g.backend.UpdatePassword(ctx, newPassword); err != nil {
		return apperrors.ClassifyError(err)
	}
	return nil
}

func (g *IdentityGateway) Reauthenticate(ctx context.Context, password string) error {
	if err := g.backend.Reauthenticate(ctx, password); err != nil {
		return apperrors.ClassifyError(err)
	}
	return nil
}

func (g *IdentityGateway) SendEmailVerification(ctx context.Context) error {
	if err := g.backend.SendEmailVerification(ctx); err != nil {
		return apperrors.ClassifyError(err)
	}
	return nil
}

// ReloadSession refreshes the identity from the backend and re-merges the record.
func (g *IdentityGateway) ReloadSession(ctx context.Context) (domainauth.User, error) {
	id, err := g.backend.Reload(ctx)
	if err != nil {
		return domainauth.User{}, apperrors.ClassifyError(err)
	}
	return g.resolveUser(ctx, id), nil
}

// DeleteAccount removes the record first, then the identity. A failure in
// between leaves an identity without a record, which the next session lookup repairs.
func (g *IdentityGateway) DeleteAccount(ctx context.Context) error {
	id, err := g.backend.CurrentIdentity(ctx)
	if err != nil {
		return apperrors.ClassifyError(err)
	}
	if id == nil {
		return apperrors.SessionExpired("no signed in user")
	}
	if err := g.records.Delete(ctx, id.UID); err != nil {
		return apperrors.ClassifyError(fmt.Errorf("delete user record: %w", err))
	}
	if err := g.backend.DeleteCurrentUser(ctx); err != nil {
		return apperrors.ClassifyError(err)
	}
	return nil
}

// HasPermission reports whether the signed-in user holds at least required
// and is active. Any failure answers false.
func (g *IdentityGateway) HasPermission(ctx context.Context, required domainauth.Role) bool {
	id, err := g.backend.CurrentIdentity(ctx)
	if err != nil || id == nil {
		return false
	}
	rec, err := g.records.Get(ctx, id.UID)
	if err != nil {
		if !errors.Is(err, ports.ErrRecordNotFound) {
			g.logger.WarnContext(ctx, "permission lookup failed", "uid", id.UID, "error", err)
		}
		return false
	}
	return rec.Status == domainauth.StatusActive && rec.Role.IsAtLeast(required)
}

func (g *IdentityGateway) requireAdmin(ctx context.Context) error {
	if !g.HasPermission(ctx, domainauth.RoleAdmin) {
		return apperrors.InsufficientPermissions("admin role required")
	}
	return nil
}

// UpdateUserRole sets another user's role. Admin only.
func (g *IdentityGateway) UpdateUserRole(ctx context.Context, userID string, role domainauth.Role) (domainauth.User, error) {
	return g.patchUser(ctx, userID, ports.RecordPatch{Role: &role})
}

// UpdateUserStatus sets another user's status. Admin only.
func (g *IdentityGateway) UpdateUserStatus(ctx context.Context, userID string, status domainauth.Status) (domainauth.User, error) {
	return g.patchUser(ctx, userID, ports.RecordPatch{Status: &status})
}

func (g *IdentityGateway) patchUser(ctx context.Context, userID string, patch ports.RecordPatch) (domainauth.User, error) {
	if err := g.requireAdmin(ctx); err != nil {
		return domainauth.User{}, err
	}
	rec, err := g.records.Merge(ctx, userID, patch)
	if err != nil {
		return domainauth.User{}, classifyRecordErr(err)
	}
	g.logger.InfoContext(ctx, "user record updated", "target_uid", userID)
	return domainauth.UserFromRecord(*rec), nil
}

// ListUsers pages through users ordered by email. Admin only.
func (g *IdentityGateway) ListUsers(ctx context.Context, limit int, cursor string) ([]domainauth.User, string, error) {
	if err := g.requireAdmin(ctx); err != nil {
		return nil, "", err
	}
	page, err := g.records.List(ctx, ports.ListUsersInput{Limit: limit, Cursor: cursor})
	if err != nil {
		return nil, "", apperrors.ClassifyError(err)
	}
	return usersFromRecords(page.Users), page.NextCursor, nil
}

// SearchUsersByEmailPrefix finds users whose email starts with query. Admin only.
func (g *IdentityGateway) SearchUsersByEmailPrefix(ctx context.Context, query string, limit int) ([]domainauth.User, error) {
	if err := g.requireAdmin(ctx); err != nil {
		return nil, err
	}
	recs, err := g.records.SearchByEmailPrefix(ctx, query, limit)
	if err != nil {
		return nil, apperrors.ClassifyError(err)
	}
	return usersFromRecords(recs), nil
}

// GetUserByID returns a user by id, or nil when no record exists. Admin only.
func (g *IdentityGateway) GetUserByID(ctx context.Context, userID string) (*domainauth.User, error) {
	if err := g.requireAdmin(ctx); err != nil {
		return nil, err
	}
	rec, err := g.records.Get(ctx, userID)
	if errors.Is(err, ports.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ClassifyError(err)
	}
	u := domainauth.UserFromRecord(*rec)
	return &u, nil
}

// IsEmailAvailable reports whether no record uses email.
func (g *IdentityGateway) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	taken, err := g.records.EmailExists(ctx, email)
	if err != nil {
		return false, apperrors.ClassifyError(err)
	}
	return !taken, nil
}

// resolveUser merges id with its record, creating a default record on first
// sight. Store failures degrade to the identity alone.
func (g *IdentityGateway) resolveUser(ctx context.Context, id domainauth.Identity) domainauth.User {
	rec, err := g.records.Get(ctx, id.UID)
	if errors.Is(err, ports.ErrRecordNotFound) {
		rec, err = g.records.Set(ctx, domainauth.NewUserRecord(id, g.now().UTC()))
	}
	if err != nil {
		g.logger.WarnContext(ctx, "merge user record failed; using identity only", "uid", id.UID, "error", err)
		return domainauth.UserFromIdentity(id)
	}
	return domainauth.MergeUser(id, rec)
}

func classifyRecordErr(err error) error {
	if errors.Is(err, ports.ErrRecordNotFound) {
		return apperrors.Wrap(err, apperrors.KindUserNotFound, "user record not found")
	}
	return apperrors.ClassifyError(err)
}

func usersFromRecords(recs []domainauth.UserRecord) []domainauth.User {
	out := make([]domainauth.User, 0, len(recs))
	for _, rec := range recs {
		out = append(out, domainauth.UserFromRecord(rec))
	}
	return out
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/stockcam/internal/adapters/devauth"
	domainauth "github.com/target/stockcam/internal/domain/auth"
	apperrors "github.com/target/stockcam/internal/errors"
	"github.com/target/stockcam/internal/mocks"
	authmocks "github.com/target/stockcam/internal/mocks/auth"
	"github.com/target/stockcam/internal/ports"
)

type gatewayFixture struct {
	gateway  *IdentityGateway
	provider *devauth.Provider
	records  *authmocks.MemoryRecordStore
}

func newGatewayFixture(t *testing.T, seeds ...devauth.SeedUser) gatewayFixture {
	t.Helper()
	provider, err := devauth.NewProvider(devauth.Config{Users: seeds})
	require.NoError(t, err)
	records := authmocks.NewMemoryRecordStore()
	gw := NewIdentityGateway(IdentityGatewayOptions{Backend: provider, Records: records})
	t.Cleanup(gw.Wait)
	return gatewayFixture{gateway: gw, provider: provider, records: records}
}

func promote(t *testing.T, records *authmocks.MemoryRecordStore, uid string, role domainauth.Role) {
	t.Helper()
	_, err := records.Merge(context.Background(), uid, ports.RecordPatch{Role: &role})
	require.NoError(t, err)
}

func TestNewIdentityGateway_PanicsWithoutDeps(t *testing.T) {
	records := authmocks.NewMemoryRecordStore()
	provider, err := devauth.NewProvider(devauth.Config{})
	require.NoError(t, err)

	assert.Panics(t, func() { NewIdentityGateway(IdentityGatewayOptions{Records: records}) })
	assert.Panics(t, func() { NewIdentityGateway(IdentityGatewayOptions{Backend: provider}) })
}

func TestIdentityGateway_SignInCreatesRecord(t *testing.T) {
	f := newGatewayFixture(t, devauth.SeedUser{Email: "dev@example.com", Password: "devpass1", DisplayName: "Dev"})
	ctx := context.Background()

	user, err := f.gateway.SignIn(ctx, "dev@example.com", "devpass1")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", user.Email)
	assert.Equal(t, "Dev", user.DisplayName)
	assert.Equal(t, domainauth.RoleEmployee, user.Role)
	assert.Equal(t, domainauth.StatusActive, user.Status)
	require.NotNil(t, user.LastSignInAt)

	rec, err := f.records.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, rec.LastSignInAt)
}

func TestIdentityGateway_SignInKeepsRecordRole(t *testing.T) {
	f := newGatewayFixture(t, devauth.SeedUser{Email: "dev@example.com", Password: "devpass1"})
	ctx := context.Background()

	first, err := f.gateway.SignIn(ctx, "dev@example.com", "devpass1")
	require.NoError(t, err)
	promote(t, f.records, first.ID, domainauth.RoleManager)

	again, err := f.gateway.SignIn(ctx, "dev@example.com", "devpass1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleManager, again.Role)
}

func TestIdentityGateway_SignInClassifiesFailures(t *testing.T) {
	f := newGatewayFixture(t, devauth.SeedUser{Email: "dev@example.com", Password: "devpass1"})

	_, err := f.gateway.SignIn(context.Background(), "dev@example.com", "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredentials(err))
	assert.Equal(t, "Invalid email or password. Please try again.", apperrors.UserMessageOf(err))
}

func TestIdentityGateway_SignInSurvivesRecordFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockIdentityBackend(ctrl)
	records := mocks.NewMockUserRecordStore(ctrl)
	gw := NewIdentityGateway(IdentityGatewayOptions{Backend: backend, Records: records})

	id := domainauth.Identity{UID: "u1", Email: "a@example.com"}
	storeDown := errors.New("connection refused")
	backend.EXPECT().SignInWithPassword(gomock.Any(), "a@example.com", "secret1").Return(id, nil)
	records.EXPECT().Merge(gomock.Any(), "u1", gomock.Any()).Return(nil, storeDown)
	records.EXPECT().Get(gomock.Any(), "u1").Return(nil, storeDown)

	user, err := gw.SignIn(context.Background(), "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, domainauth.RoleEmployee, user.Role)
}

func TestIdentityGateway_Register(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	user, err := f.gateway.Register(ctx, "new@example.com", "secret1", "New Person")
	require.NoError(t, err)
	f.gateway.Wait()

	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, "New Person", user.DisplayName)
	assert.Equal(t, domainauth.RoleEmployee, user.Role)

	rec, err := f.records.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Person", rec.DisplayName)

	outbox := f.provider.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, "email-verification", outbox[0].Kind)
	assert.Equal(t, "new@example.com", outbox[0].To)
}

func TestIdentityGateway_RegisterRejectsKnownEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockIdentityBackend(ctrl)
	records := authmocks.NewMemoryRecordStore()
	records.Put(domainauth.UserRecord{ID: "u1", Email: "taken@example.com"})
	gw := NewIdentityGateway(IdentityGatewayOptions{Backend: backend, Records: records})

	// No backend expectations: the record check answers first.
	_, err := gw.Register(context.Background(), "taken@example.com", "secret1", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsEmailAlreadyInUse(err))
}

func TestIdentityGateway_UpdateProfile(t *testing.T) {
	f := newGatewayFixture(t, devauth.SeedUser{Email: "dev@example.com", Password: "devpass1", DisplayName: "Dev"})
	ctx := context.Background()
	_, err := f.gateway.SignIn(ctx, "dev@example.com", "devpass1")
	require.NoError(t, err)

	name := "Renamed"
	photo := "https://cdn.example.com/me.png"
	user, err := f.gateway.UpdateProfile(ctx, ports.ProfileUpdate{DisplayName: &name, PhotoURL: &photo})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.DisplayName)
	assert.Equal(t, photo, user.AvatarURL)

	rec, err := f.records.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", rec.DisplayName)

	_, err = f.gateway.UpdateProfile(ctx, ports.ProfileUpdate{})
	assert.True(t, apperrors.Is(err, apperrors.KindRequiredField))
}

func TestIdentityGateway_DeleteAccountRemovesRecordFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockIdentityBackend(ctrl)
	records := mocks.NewMockUserRecordStore(ctrl)
	gw := NewIdentityGateway(IdentityGatewayOptions{Backend: backend, Records: records})

	id := &domainauth.Identity{UID: "u1", Email: "a@example.com"}
	gomock.InOrder(
		backend.EXPECT().CurrentIdentity(gomock.Any()).Return(id, nil),
		records.EXPECT().Delete(gomock.Any(), "u1").Return(nil),
		backend.EXPECT().DeleteCurrentUser(gomock.Any()).Return(nil),
	)

	require.NoError(t, gw.DeleteAccount(context.Background()))
}

func TestIdentityGateway_DeleteAccountRequiresSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockIdentityBackend(ctrl)
	records := mocks.NewMockUserRecordStore(ctrl)
	gw := NewIdentityGateway(IdentityGatewayOptions{Backend: backend, Records: records})

	backend.EXPECT().CurrentIdentity(gomock.Any()).Return(nil, nil)

	err := gw.DeleteAccount(context.Background())
	assert.True(t, apperrors.IsSessionExpired(err))
}

func TestIdentityGateway_HasPermission(t *testing.T) {
	f := newGatewayFixture(t, devauth.SeedUser{Email: "boss@example.com", Password: "devpass1"})
	ctx := context.Background()

	assert.False(t, f.gateway.HasPermission(ctx, domainauth.RoleEmployee), "signed out")

	user, err := f.gateway.SignIn(ctx, "boss@example.com", "devpass1")
	require.NoError(t, err)
	assert.True(t, f.gateway.HasPermission(ctx, domainauth.RoleEmployee))
	assert.False(t, f.gateway.HasPermission(ctx, domainauth.RoleAdmin))

	promote(t, f.records, user.ID, domainauth.RoleAdmin)
	assert.True(t, f.gateway.HasPermission(ctx, domainauth.RoleManager))

	suspended := domainauth.StatusSuspended
	_, err = f.records.Merge(ctx, user.ID, ports.RecordPatch{Status: &suspended})
	require.NoError(t, err)
	assert.False(t, f.gateway.HasPermission(ctx, domainauth.RoleEmployee), "inactive users hold nothing")
}

func TestIdentityGateway_AdminOperations(t *testing.T) {
	f := newGatewayFixture(t,
		devauth.SeedUser{Email: "admin@example.com", Password: "devpass1"},
		devauth.SeedUser{Email: "worker@example.com", Password: "devpass1"},
	)
	ctx := context.Background()

	worker, err := f.gateway.SignIn(ctx, "worker@example.com", "devpass1")
	require.NoError(t, err)

	_, _, err = f.gateway.ListUsers(ctx, 10, "")
	assert.True(t, apperrors.IsInsufficientPermissions(err))

	admin, err := f.gateway.SignIn(ctx, "admin@example.com", "devpass1")
	require.NoError(t, err)
	promote(t, f.records, admin.ID, domainauth.RoleAdmin)

	users, next, err := f.gateway.ListUsers(ctx, 10, "")
	require.NoError(t, err)
	assert.Empty(t, next)
	require.Len(t, users, 2)
	assert.Equal(t, "admin@example.com", users[0].Email)

	found, err := f.gateway.SearchUsersByEmailPrefix(ctx, "work", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, worker.ID, found[0].ID)

	updated, err := f.gateway.UpdateUserRole(ctx, worker.ID, domainauth.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleManager, updated.Role)

	updated, err = f.gateway.UpdateUserStatus(ctx, worker.ID, domainauth.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, domainauth.StatusInactive, updated.Status)

	got, err := f.gateway.GetUserByID(ctx, worker.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domainauth.RoleManager, got.Role)

	missing, err := f.gateway.GetUserByID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = f.gateway.UpdateUserRole(ctx, "nobody", domainauth.RoleAdmin)
	assert.True(t, apperrors.IsUserNotFound(err))
}

func TestIdentityGateway_IsEmailAvailable(t *testing.T) {
	f := newGatewayFixture(t)
	f.records.Put(domainauth.UserRecord{ID: "u1", Email: "used@example.com"})
	ctx := context.Background()

	ok, err := f.gateway.IsEmailAvailable(ctx, "used@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.gateway.IsEmailAvailable(ctx, "free@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdentityGateway_WatchSession(t *testing.T) {
	f := newGatewayFixture(t, devauth.SeedUser{Email: "dev@example.com", Password: "devpass1"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions, err := f.gateway.WatchSession(ctx)
	require.NoError(t, err)

	assert.Nil(t, nextSession(t, sessions), "starts signed out")

	_, err = f.gateway.SignIn(ctx, "dev@example.com", "devpass1")
	require.NoError(t, err)
	got := nextSession(t, sessions)
	require.NotNil(t, got)
	assert.Equal(t, "dev@example.com", got.Email)

	require.NoError(t, f.gateway.SignOut(ctx))
	assert.Nil(t, nextSession(t, sessions))
}

func nextSession(t *testing.T, ch <-chan *domainauth.User) *domainauth.User {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "session stream closed")
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session event")
		return nil
	}
}

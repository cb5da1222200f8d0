package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/stockcam/internal/adapters/devauth"
	domainauth "github.com/target/stockcam/internal/domain/auth"
	apperrors "github.com/target/stockcam/internal/errors"
	authmocks "github.com/target/stockcam/internal/mocks/auth"
	"github.com/target/stockcam/internal/observability/metrics"
	"github.com/target/stockcam/internal/observability/statsd"
)

// fakeSessions is a scriptable SessionOperations. Unset funcs succeed.
type fakeSessions struct {
	mu    sync.Mutex
	calls map[string]int

	stream chan *domainauth.User

	current    *domainauth.User
	currentErr error

	signIn        func(ctx context.Context, email, password string) (domainauth.User, error)
	register      func(ctx context.Context, in RegisterInput) (domainauth.User, error)
	signOutErr    error
	resetErr      error
	reload        func(ctx context.Context) (domainauth.User, error)
	updateProfile func(ctx context.Context, in ProfileInput) (domainauth.User, error)
	deleteErr     error
	permission    func(ctx context.Context, role domainauth.Role) bool
}

var _ SessionOperations = (*fakeSessions)(nil)

func newFakeSessions() *fakeSessions {
	return &fakeSessions{calls: make(map[string]int), stream: make(chan *domainauth.User)}
}

func (f *fakeSessions) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeSessions) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeSessions) WatchSession(ctx context.Context) (<-chan *domainauth.User, error) {
	f.record("watch")
	out := make(chan *domainauth.User)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-f.stream:
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeSessions) CurrentSession(context.Context) (*domainauth.User, error) {
	f.record("current")
	return f.current, f.currentErr
}

func (f *fakeSessions) SignIn(ctx context.Context, email, password string) (domainauth.User, error) {
	f.record("sign_in")
	if f.signIn != nil {
		return f.signIn(ctx, email, password)
	}
	return testUser(email), nil
}

func (f *fakeSessions) Register(ctx context.Context, in RegisterInput) (domainauth.User, error) {
	f.record("register")
	if f.register != nil {
		return f.register(ctx, in)
	}
	return testUser(in.Email), nil
}

func (f *fakeSessions) SignOut(context.Context) error {
	f.record("sign_out")
	return f.signOutErr
}

func (f *fakeSessions) SendPasswordResetEmail(context.Context, string) error {
	f.record("reset")
	return f.resetErr
}

func (f *fakeSessions) ReloadSession(ctx context.Context) (domainauth.User, error) {
	f.record("reload")
	if f.reload != nil {
		return f.reload(ctx)
	}
	return domainauth.User{}, errors.New("reload not scripted")
}

func (f *fakeSessions) UpdateProfile(ctx context.Context, in ProfileInput) (domainauth.User, error) {
	f.record("update_profile")
	if f.updateProfile != nil {
		return f.updateProfile(ctx, in)
	}
	return domainauth.User{}, errors.New("update not scripted")
}

func (f *fakeSessions) DeleteAccount(context.Context) error {
	f.record("delete")
	return f.deleteErr
}

func (f *fakeSessions) HasPermission(ctx context.Context, role domainauth.Role) bool {
	f.record("permission")
	if f.permission != nil {
		return f.permission(ctx, role)
	}
	return false
}

func testUser(email string) domainauth.User {
	return domainauth.User{
		ID:     "uid-" + email,
		Email:  email,
		Role:   domainauth.RoleEmployee,
		Status: domainauth.StatusActive,
	}
}

func newTestMachine(t *testing.T, sessions SessionOperations, hints SessionHintStore, cfg AuthStateConfig) *AuthStateMachine {
	t.Helper()
	if cfg.RevertDelay == 0 {
		cfg.RevertDelay = 20 * time.Millisecond
	}
	m := NewAuthStateMachine(AuthStateMachineOptions{Sessions: sessions, Hints: hints, Config: cfg})
	t.Cleanup(m.Close)
	return m
}

func startMachine(t *testing.T, m *AuthStateMachine) {
	t.Helper()
	require.NoError(t, m.Start(context.Background()))
}

func waitForKind(t *testing.T, m *AuthStateMachine, kind domainauth.StateKind) domainauth.State {
	t.Helper()
	require.Eventually(t, func() bool { return m.State().Kind() == kind },
		2*time.Second, 5*time.Millisecond, "state never became %s (last %s)", kind, m.State().Kind())
	return m.State()
}

// signedIn drives m into Authenticated as email through Login.
func signedIn(t *testing.T, m *AuthStateMachine, email string) domainauth.User {
	t.Helper()
	require.True(t, m.Login(context.Background(), LoginInput{Email: email, Password: "secret1"}))
	st, ok := m.State().(domainauth.AuthenticatedState)
	require.True(t, ok, "expected authenticated, got %s", m.State().Kind())
	return st.User
}

func TestNewAuthStateMachine(t *testing.T) {
	assert.Panics(t, func() { NewAuthStateMachine(AuthStateMachineOptions{}) })

	m := NewAuthStateMachine(AuthStateMachineOptions{Sessions: newFakeSessions()})
	assert.Equal(t, domainauth.KindInitial, m.State().Kind())
	assert.Equal(t, DefaultRevertDelay, m.revertDelay)
}

func TestAuthStateMachine_StartWithoutSession(t *testing.T) {
	sessions := newFakeSessions()
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})
	startMachine(t, m)

	waitForKind(t, m, domainauth.KindUnauthenticated)
	assert.Equal(t, 1, sessions.count("watch"))
	assert.Equal(t, 1, sessions.count("current"))

	// Start is idempotent.
	startMachine(t, m)
	assert.Equal(t, 1, sessions.count("watch"))
}

func TestAuthStateMachine_StartWithSession(t *testing.T) {
	sessions := newFakeSessions()
	u := testUser("a@example.com")
	sessions.current = &u
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})
	startMachine(t, m)

	st := waitForKind(t, m, domainauth.KindAuthenticated)
	assert.Equal(t, "a@example.com", st.(domainauth.AuthenticatedState).User.Email)
}

func TestAuthStateMachine_StartCheckFailureSignsOut(t *testing.T) {
	sessions := newFakeSessions()
	sessions.currentErr = apperrors.Backend("network-request-failed", "offline")
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})
	startMachine(t, m)

	waitForKind(t, m, domainauth.KindUnauthenticated)
}

func TestAuthStateMachine_LoginSuccessSavesHints(t *testing.T) {
	hints := NewSessionPersistence(authmocks.NewMemoryKVStore(), nil)
	rec := &statsd.Recorder{}
	m := newTestMachine(t, newFakeSessions(), hints, AuthStateConfig{Metrics: rec})

	user := signedIn(t, m, "a@example.com")
	assert.Equal(t, "a@example.com", user.Email)

	saved, err := hints.LoadSession(context.Background())
	require.NoError(t, err)
	assert.True(t, saved.IsLoggedIn)
	assert.Equal(t, user.ID, saved.UserID)

	ops := rec.Find(metrics.AuthOperationCount)
	require.NotEmpty(t, ops)
	assert.Equal(t, "login", ops[len(ops)-1].Tags["operation"])
	assert.Equal(t, metrics.ResultSuccess, ops[len(ops)-1].Tags["result"])

	var kinds []string
	for _, tr := range rec.Find(metrics.AuthTransitionCount) {
		kinds = append(kinds, tr.Tags["to"])
	}
	assert.Equal(t, []string{"loading", "authenticated"}, kinds)
}

func TestAuthStateMachine_LoginFailure(t *testing.T) {
	sessions := newFakeSessions()
	sessions.signIn = func(context.Context, string, string) (domainauth.User, error) {
		return domainauth.User{}, apperrors.Backend("auth/wrong-password", "bad password")
	}
	rec := &statsd.Recorder{}
	m := newTestMachine(t, sessions, nil, AuthStateConfig{Metrics: rec})

	assert.False(t, m.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "nope"}))

	st, ok := m.State().(domainauth.ErrorState)
	require.True(t, ok)
	assert.Equal(t, "Invalid email or password. Please try again.", st.UserMessage)
	assert.Equal(t, "wrong-password", st.Code)
	assert.Nil(t, st.Session)

	ops := rec.Find(metrics.AuthOperationCount)
	require.Len(t, ops, 1)
	assert.Equal(t, "invalid_credentials", ops[0].Tags["error_class"])

	m.ClearMessages()
	assert.Equal(t, domainauth.KindUnauthenticated, m.State().Kind())
}

func TestAuthStateMachine_FailureKeepsSession(t *testing.T) {
	sessions := newFakeSessions()
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})
	user := signedIn(t, m, "a@example.com")

	sessions.signOutErr = apperrors.Backend("network-request-failed", "offline")
	assert.False(t, m.Logout(context.Background()))

	st, ok := m.State().(domainauth.ErrorState)
	require.True(t, ok)
	require.NotNil(t, st.Session)
	assert.Equal(t, user.ID, st.Session.ID)

	m.ClearMessages()
	assert.True(t, domainauth.IsAuthenticated(m.State()))
}

func TestAuthStateMachine_RegisterValidationNeverReachesBackend(t *testing.T) {
	repo, _ := newStrictRepository(t)
	m := newTestMachine(t, repo, nil, AuthStateConfig{})

	ok := m.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "12345"})
	assert.False(t, ok)

	st, isErr := m.State().(domainauth.ErrorState)
	require.True(t, isErr)
	assert.Equal(t, "Password must be at least 6 characters long.", st.UserMessage)
}

func TestAuthStateMachine_ResetPasswordRevertsToSession(t *testing.T) {
	m := newTestMachine(t, newFakeSessions(), nil, AuthStateConfig{RevertDelay: 30 * time.Millisecond})
	user := signedIn(t, m, "a@example.com")

	require.True(t, m.ResetPassword(context.Background(), " A@Example.com "))
	st, ok := m.State().(domainauth.SuccessState)
	require.True(t, ok)
	assert.Equal(t, "Password reset email sent to a@example.com.", st.Message)

	reverted := waitForKind(t, m, domainauth.KindAuthenticated)
	assert.True(t, user.Equal(reverted.(domainauth.AuthenticatedState).User))
}

func TestAuthStateMachine_ResetPasswordSignedOutRevertsToUnauthenticated(t *testing.T) {
	m := newTestMachine(t, newFakeSessions(), nil, AuthStateConfig{RevertDelay: 10 * time.Millisecond})

	require.True(t, m.ResetPassword(context.Background(), "a@example.com"))
	assert.Equal(t, domainauth.KindSuccess, m.State().Kind())
	waitForKind(t, m, domainauth.KindUnauthenticated)
}

func TestAuthStateMachine_LaterTransitionCancelsRevert(t *testing.T) {
	m := newTestMachine(t, newFakeSessions(), nil, AuthStateConfig{RevertDelay: 40 * time.Millisecond})
	signedIn(t, m, "a@example.com")

	require.True(t, m.ResetPassword(context.Background(), "a@example.com"))
	require.True(t, m.Logout(context.Background()))

	time.Sleep(80 * time.Millisecond)
	st, ok := m.State().(domainauth.UnauthenticatedState)
	require.True(t, ok, "revert must not resurrect the old session, got %s", m.State().Kind())
	assert.Equal(t, "You have been signed out.", st.Message)
}

func TestAuthStateMachine_StreamIgnoredWhileLoading(t *testing.T) {
	sessions := newFakeSessions()
	entered := make(chan struct{})
	release := make(chan struct{})
	sessions.signIn = func(_ context.Context, email, _ string) (domainauth.User, error) {
		close(entered)
		<-release
		return testUser(email), nil
	}
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})

	done := make(chan bool)
	go func() { done <- m.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "secret1"}) }()
	<-entered

	m.applyStream(nil)
	other := testUser("b@example.com")
	m.applyStream(&other)
	assert.Equal(t, domainauth.KindLoading, m.State().Kind())

	close(release)
	require.True(t, <-done)
	st := m.State().(domainauth.AuthenticatedState)
	assert.Equal(t, "a@example.com", st.User.Email)
}

func TestAuthStateMachine_StreamUpdates(t *testing.T) {
	sessions := newFakeSessions()
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})
	startMachine(t, m)
	waitForKind(t, m, domainauth.KindUnauthenticated)

	u := testUser("a@example.com")
	sessions.stream <- &u
	waitForKind(t, m, domainauth.KindAuthenticated)

	sessions.stream <- nil
	waitForKind(t, m, domainauth.KindUnauthenticated)
}

func TestAuthStateMachine_StreamUpdatesCarriedSession(t *testing.T) {
	sessions := newFakeSessions()
	sessions.resetErr = apperrors.Backend("too-many-requests", "slow down")
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})
	signedIn(t, m, "a@example.com")

	assert.False(t, m.ResetPassword(context.Background(), "a@example.com"))
	renamed := testUser("a@example.com")
	renamed.DisplayName = "Renamed"
	m.applyStream(&renamed)

	st, ok := m.State().(domainauth.ErrorState)
	require.True(t, ok)
	require.NotNil(t, st.Session)
	assert.Equal(t, "Renamed", st.Session.DisplayName)
}

func TestAuthStateMachine_StreamUpdateKeepsRevert(t *testing.T) {
	m := newTestMachine(t, newFakeSessions(), nil, AuthStateConfig{RevertDelay: 30 * time.Millisecond})
	signedIn(t, m, "a@example.com")

	require.True(t, m.ResetPassword(context.Background(), "a@example.com"))
	renamed := testUser("a@example.com")
	renamed.DisplayName = "Renamed"
	m.applyStream(&renamed)

	st, ok := m.State().(domainauth.SuccessState)
	require.True(t, ok, "got %s", m.State().Kind())
	require.NotNil(t, st.Session)
	assert.Equal(t, "Renamed", st.Session.DisplayName)

	reverted := waitForKind(t, m, domainauth.KindAuthenticated)
	assert.Equal(t, "Renamed", reverted.(domainauth.AuthenticatedState).User.DisplayName)
}

// stateReadingSink reads the machine state on every count, as a sink that
// tags metrics with the current state would.
type stateReadingSink struct {
	statsd.Recorder
	machine *AuthStateMachine
}

func (s *stateReadingSink) Count(name string, value int64, tags map[string]string) {
	if name == metrics.AuthTransitionCount {
		_ = s.machine.State()
	}
	s.Recorder.Count(name, value, tags)
}

func TestAuthStateMachine_TransitionMetricsAfterUnlock(t *testing.T) {
	sink := &stateReadingSink{}
	m := newTestMachine(t, newFakeSessions(), nil, AuthStateConfig{Metrics: sink})
	sink.machine = m

	done := make(chan bool, 1)
	go func() {
		done <- m.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "secret1"})
	}()
	select {
	case ok := <-done:
		require.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("login blocked while emitting transition metrics")
	}
	assert.Len(t, sink.Find(metrics.AuthTransitionCount), 2)
}

func TestAuthStateMachine_LogoutFailureStillForgetsDevice(t *testing.T) {
	sessions := newFakeSessions()
	hints := NewSessionPersistence(authmocks.NewMemoryKVStore(), nil)
	m := newTestMachine(t, sessions, hints, AuthStateConfig{})
	guard := NewRouteGuard(DefaultRouteTable(), RouteGuardOptions{Destinations: hints, States: m})
	ctx := context.Background()

	signedIn(t, m, "a@example.com")
	require.NoError(t, hints.SetIntendedRoute(ctx, "/scan"))

	sessions.signOutErr = apperrors.Backend("network-request-failed", "offline")
	assert.False(t, m.Logout(ctx))

	st, ok := m.State().(domainauth.ErrorState)
	require.True(t, ok, "got %s", m.State().Kind())
	assert.NotNil(t, st.Session, "a failed sign-out keeps the session")

	_, ok = guard.ConsumeIntendedDestination(ctx)
	assert.False(t, ok, "intended destination is forgotten")
	saved, err := hints.LoadSession(ctx)
	require.NoError(t, err)
	assert.False(t, saved.IsLoggedIn)
}

func TestAuthStateMachine_RememberMeSavedWithHints(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		run      func(m *AuthStateMachine) bool
		remember bool
	}{
		{"login", func(m *AuthStateMachine) bool {
			return m.Login(ctx, LoginInput{Email: "a@example.com", Password: "secret1", RememberMe: true})
		}, true},
		{"login default", func(m *AuthStateMachine) bool {
			return m.Login(ctx, LoginInput{Email: "a@example.com", Password: "secret1"})
		}, false},
		{"register", func(m *AuthStateMachine) bool {
			return m.Register(ctx, RegisterInput{Email: "a@example.com", Password: "secret1", RememberMe: true})
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := NewSessionPersistence(authmocks.NewMemoryKVStore(), nil)
			m := newTestMachine(t, newFakeSessions(), hints, AuthStateConfig{})

			require.True(t, tt.run(m))
			saved, err := hints.LoadSession(ctx)
			require.NoError(t, err)
			assert.True(t, saved.IsLoggedIn)
			assert.Equal(t, tt.remember, saved.RememberMe)
		})
	}
}

func TestAuthStateMachine_StartHonorsRememberMe(t *testing.T) {
	ctx := context.Background()
	u := testUser("a@example.com")

	t.Run("not remembered", func(t *testing.T) {
		sessions := newFakeSessions()
		sessions.current = &u
		hints := NewSessionPersistence(authmocks.NewMemoryKVStore(), nil)
		require.NoError(t, hints.SaveSession(ctx, u, false))
		m := newTestMachine(t, sessions, hints, AuthStateConfig{})

		startMachine(t, m)
		waitForKind(t, m, domainauth.KindUnauthenticated)
		assert.Equal(t, 1, sessions.count("sign_out"))
		saved, err := hints.LoadSession(ctx)
		require.NoError(t, err)
		assert.False(t, saved.IsLoggedIn)
	})

	t.Run("remembered", func(t *testing.T) {
		sessions := newFakeSessions()
		sessions.current = &u
		hints := NewSessionPersistence(authmocks.NewMemoryKVStore(), nil)
		require.NoError(t, hints.SaveSession(ctx, u, true))
		m := newTestMachine(t, sessions, hints, AuthStateConfig{})

		startMachine(t, m)
		waitForKind(t, m, domainauth.KindAuthenticated)
		assert.Zero(t, sessions.count("sign_out"))
	})

	t.Run("no hints", func(t *testing.T) {
		sessions := newFakeSessions()
		sessions.current = &u
		m := newTestMachine(t, sessions, NewSessionPersistence(authmocks.NewMemoryKVStore(), nil), AuthStateConfig{})

		startMachine(t, m)
		waitForKind(t, m, domainauth.KindAuthenticated)
		assert.Zero(t, sessions.count("sign_out"))
	})
}

func TestAuthStateMachine_HasPermission(t *testing.T) {
	sessions := newFakeSessions()
	sessions.permission = func(_ context.Context, role domainauth.Role) bool { return role == domainauth.RoleEmployee }
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})
	ctx := context.Background()

	assert.False(t, m.HasPermission(ctx, domainauth.RoleAdmin))
	assert.Zero(t, sessions.count("permission"), "no backend call while signed out")

	signedIn(t, m, "a@example.com")
	assert.True(t, m.HasPermission(ctx, domainauth.RoleEmployee))
	assert.False(t, m.HasPermission(ctx, domainauth.RoleAdmin))
	assert.Equal(t, 2, sessions.count("permission"))
}

func TestAuthStateMachine_ProfileAndDeleteRequireSession(t *testing.T) {
	sessions := newFakeSessions()
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})
	ctx := context.Background()

	name := "New"
	assert.False(t, m.UpdateProfile(ctx, ProfileInput{DisplayName: &name}))
	assert.False(t, m.DeleteAccount(ctx))
	assert.Zero(t, sessions.count("update_profile"))
	assert.Zero(t, sessions.count("delete"))
	assert.Equal(t, domainauth.KindInitial, m.State().Kind())
}

func TestAuthStateMachine_UpdateProfile(t *testing.T) {
	sessions := newFakeSessions()
	m := newTestMachine(t, sessions, nil, AuthStateConfig{RevertDelay: 10 * time.Millisecond})
	user := signedIn(t, m, "a@example.com")

	sessions.updateProfile = func(_ context.Context, in ProfileInput) (domainauth.User, error) {
		u := user
		u.DisplayName = *in.DisplayName
		return u, nil
	}
	name := "Ann"
	require.True(t, m.UpdateProfile(context.Background(), ProfileInput{DisplayName: &name}))
	st, ok := m.State().(domainauth.SuccessState)
	require.True(t, ok)
	assert.Equal(t, "Profile updated.", st.Message)

	settled := waitForKind(t, m, domainauth.KindAuthenticated)
	assert.Equal(t, "Ann", settled.(domainauth.AuthenticatedState).User.DisplayName)
}

func TestAuthStateMachine_DeleteAccount(t *testing.T) {
	hints := NewSessionPersistence(authmocks.NewMemoryKVStore(), nil)
	m := newTestMachine(t, newFakeSessions(), hints, AuthStateConfig{})
	signedIn(t, m, "a@example.com")

	require.True(t, m.DeleteAccount(context.Background()))
	st, ok := m.State().(domainauth.UnauthenticatedState)
	require.True(t, ok)
	assert.Equal(t, "Your account has been deleted.", st.Message)

	saved, err := hints.LoadSession(context.Background())
	require.NoError(t, err)
	assert.False(t, saved.IsLoggedIn)
}

func TestAuthStateMachine_RefreshSession(t *testing.T) {
	sessions := newFakeSessions()
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})
	ctx := context.Background()

	m.RefreshSession(ctx)
	assert.Zero(t, sessions.count("reload"), "no reload while signed out")

	user := signedIn(t, m, "a@example.com")

	m.RefreshSession(ctx)
	assert.True(t, user.Equal(m.State().(domainauth.AuthenticatedState).User), "failed reload keeps state")

	sessions.reload = func(context.Context) (domainauth.User, error) {
		u := user
		u.EmailVerified = true
		return u, nil
	}
	m.RefreshSession(ctx)
	st := m.State().(domainauth.AuthenticatedState)
	assert.True(t, st.User.EmailVerified)
}

func TestAuthStateMachine_SubscribeLatestWins(t *testing.T) {
	m := newTestMachine(t, newFakeSessions(), nil, AuthStateConfig{})

	ch, unsubscribe := m.Subscribe()
	signedIn(t, m, "a@example.com")
	require.True(t, m.Logout(context.Background()))

	got := <-ch
	assert.Equal(t, domainauth.KindUnauthenticated, got.Kind())

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestAuthStateMachine_Close(t *testing.T) {
	sessions := newFakeSessions()
	m := NewAuthStateMachine(AuthStateMachineOptions{Sessions: sessions})
	startMachine(t, m)
	ch, _ := m.Subscribe()

	m.Close()
	m.Close()

	for range ch {
	}
	assert.ErrorIs(t, m.Start(context.Background()), ErrStateMachineClosed)

	late, _ := m.Subscribe()
	_, open := <-late
	assert.False(t, open)
}

// devStack wires the real components over the dev identity backend and
// in-memory stores.
type devStack struct {
	machine     *AuthStateMachine
	guard       *RouteGuard
	persistence *SessionPersistence
}

func newDevStack(t *testing.T, seeds ...devauth.SeedUser) devStack {
	t.Helper()
	repo, _ := newDevRepository(t, AttemptLimits{}, seeds...)
	persistence := NewSessionPersistence(authmocks.NewMemoryKVStore(), nil)
	m := newTestMachine(t, repo, persistence, AuthStateConfig{})
	startMachine(t, m)
	waitForKind(t, m, domainauth.KindUnauthenticated)
	guard := NewRouteGuard(DefaultRouteTable(), RouteGuardOptions{Destinations: persistence, States: m})
	return devStack{machine: m, guard: guard, persistence: persistence}
}

func TestAuthFlow_IntendedDestination(t *testing.T) {
	s := newDevStack(t, devauth.SeedUser{Email: "clerk@example.com", Password: "devpass1"})
	ctx := context.Background()

	d := s.guard.EvaluateCurrent(ctx, "/inventory")
	assert.Equal(t, "/login", d.Redirect)

	require.True(t, s.machine.Login(ctx, LoginInput{Email: "clerk@example.com", Password: "devpass1"}))
	assert.Equal(t, "/inventory", s.guard.NextAfterLogin(ctx))

	_, ok := s.guard.ConsumeIntendedDestination(ctx)
	assert.False(t, ok, "destination is consumed once")

	assert.Equal(t, "/inventory", s.guard.EvaluateCurrent(ctx, "/login").Redirect)
	assert.True(t, s.guard.EvaluateCurrent(ctx, "/profile").Allowed())
}

func TestAuthFlow_LogoutForgetsDestination(t *testing.T) {
	s := newDevStack(t, devauth.SeedUser{Email: "clerk@example.com", Password: "devpass1"})
	ctx := context.Background()

	require.True(t, s.machine.Login(ctx, LoginInput{Email: "clerk@example.com", Password: "devpass1"}))
	require.NoError(t, s.persistence.SetIntendedRoute(ctx, "/scan"))

	require.True(t, s.machine.Logout(ctx))
	_, ok := s.guard.ConsumeIntendedDestination(ctx)
	assert.False(t, ok)
	waitForKind(t, s.machine, domainauth.KindUnauthenticated)
}

func TestAuthFlow_RegisterThenLoginNormalizesEmail(t *testing.T) {
	s := newDevStack(t)
	ctx := context.Background()

	require.True(t, s.machine.Register(ctx, RegisterInput{Email: " New.Clerk@Example.COM", Password: "secret1", DisplayName: "New"}))
	require.True(t, s.machine.Logout(ctx))

	require.True(t, s.machine.Login(ctx, LoginInput{Email: "new.clerk@example.com", Password: "secret1"}))
	st := waitForKind(t, s.machine, domainauth.KindAuthenticated).(domainauth.AuthenticatedState)
	assert.Equal(t, "new.clerk@example.com", st.User.Email)
	assert.True(t, s.machine.HasPermission(ctx, domainauth.RoleEmployee))
	assert.False(t, s.machine.HasPermission(ctx, domainauth.RoleAdmin))
}

func TestAuthFlow_GuardWaitsWhileLoading(t *testing.T) {
	sessions := newFakeSessions()
	entered := make(chan struct{})
	release := make(chan struct{})
	sessions.signIn = func(_ context.Context, email, _ string) (domainauth.User, error) {
		close(entered)
		<-release
		return testUser(email), nil
	}
	m := newTestMachine(t, sessions, nil, AuthStateConfig{})
	guard := NewRouteGuard(DefaultRouteTable(), RouteGuardOptions{States: m})

	done := make(chan bool)
	go func() { done <- m.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "secret1"}) }()
	<-entered

	var wg sync.WaitGroup
	decisions := make([]Decision, 8)
	for i := range decisions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i] = guard.EvaluateCurrent(context.Background(), "/profile")
		}(i)
	}
	wg.Wait()
	for _, d := range decisions {
		assert.Equal(t, "/splash", d.Redirect)
	}

	close(release)
	require.True(t, <-done)
	assert.True(t, guard.EvaluateCurrent(context.Background(), "/profile").Allowed())
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	apperrors "github.com/target/stockcam/internal/errors"
	"github.com/target/stockcam/internal/observability/metrics"
	"github.com/target/stockcam/internal/observability/statsd"
)

// DefaultRevertDelay is how long a Success state stays visible.
const DefaultRevertDelay = 3 * time.Second

// Loading and result messages shown while operations run.
const (
	msgSigningIn        = "Signing in..."
	msgCreatingAccount  = "Creating account..."
	msgSigningOut       = "Signing out..."
	msgSendingReset     = "Sending reset email..."
	msgUpdatingProfile  = "Updating profile..."
	msgDeletingAccount  = "Deleting account..."
	msgSignedOut        = "You have been signed out."
	msgAccountDeleted   = "Your account has been deleted."
	msgProfileUpdated   = "Profile updated."
	msgResetEmailFormat = "Password reset email sent to %s."
)

// ErrStateMachineClosed is returned by Start after Close.
var ErrStateMachineClosed = errors.New("auth state machine closed")

// SessionOperations is what the state machine drives. *SessionRepository implements it.
type SessionOperations interface {
	WatchSession(ctx context.Context) (<-chan *domainauth.User, error)
	CurrentSession(ctx context.Context) (*domainauth.User, error)
	SignIn(ctx context.Context, email, password string) (domainauth.User, error)
	Register(ctx context.Context, in RegisterInput) (domainauth.User, error)
	SignOut(ctx context.Context) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	ReloadSession(ctx context.Context) (domainauth.User, error)
	UpdateProfile(ctx context.Context, in ProfileInput) (domainauth.User, error)
	DeleteAccount(ctx context.Context) error
	HasPermission(ctx context.Context, required domainauth.Role) bool
}

var _ SessionOperations = (*SessionRepository)(nil)

// SessionHintStore remembers the last session on the device. *SessionPersistence implements it.
type SessionHintStore interface {
	SaveSession(ctx context.Context, user domainauth.User, rememberMe bool) error
	LoadSession(ctx context.Context) (SessionHints, error)
	ClearSession(ctx context.Context) error
}

// LoginInput carries credentials for Login. RememberMe keeps the session
// across restarts of the process.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

var _ SessionHintStore = (*SessionPersistence)(nil)

// AuthStateConfig holds optional tuning for the state machine.
type AuthStateConfig struct {
	RevertDelay time.Duration // defaults to DefaultRevertDelay
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// AuthStateMachineOptions groups dependencies for AuthStateMachine.
type AuthStateMachineOptions struct {
	Sessions SessionOperations // Required
	Hints    SessionHintStore  // Optional
	Config   AuthStateConfig   // Optional
}

// AuthStateMachine owns the single current authentication state. Operations
// move it through Loading to a result; the backend session stream keeps it
// in sync between operations. Observers receive the latest state.
type AuthStateMachine struct {
	sessions    SessionOperations
	hints       SessionHintStore
	logger      *slog.Logger
	metrics     statsd.Sink
	revertDelay time.Duration

	mu      sync.Mutex
	state   domainauth.State
	gen     uint64
	revert  *time.Timer
	subs    map[int]chan domainauth.State
	nextSub int
	started bool
	closed  bool
	cancel  context.CancelFunc

	// changes collects transitions made under mu; unlock reports them.
	changes []stateChange

	refresh singleflight.Group
	wg      sync.WaitGroup
}

type stateChange struct{ from, to domainauth.StateKind }

// NewAuthStateMachine constructs a state machine in the Initial state. Call
// Start to attach it to the session stream. It panics when Sessions is nil.
func NewAuthStateMachine(opts AuthStateMachineOptions) *AuthStateMachine {
	if opts.Sessions == nil {
		panic("AuthStateMachine: Sessions is required")
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.Config.RevertDelay
	if delay <= 0 {
		delay = DefaultRevertDelay
	}
	return &AuthStateMachine{
		sessions:    opts.Sessions,
		hints:       opts.Hints,
		logger:      logger.With("component", "auth_state"),
		metrics:     opts.Config.Metrics,
		revertDelay: delay,
		state:       domainauth.InitialState{},
		subs:        make(map[int]chan domainauth.State),
	}
}

// Start subscribes to the session stream and runs one current-session check
// concurrently. The subscription lives until Close or until ctx is done.
func (m *AuthStateMachine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrStateMachineClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	streamCtx, cancel := context.WithCancel(ctx)
	sessions, err := m.sessions.WatchSession(streamCtx)
	if err != nil {
		cancel()
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		return fmt.Errorf("watch session: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return ErrStateMachineClosed
	}
	m.cancel = cancel
	m.wg.Add(2)
	m.mu.Unlock()

	go m.consumeStream(sessions)
	go m.initialCheck(streamCtx)
	return nil
}

// Close cancels the session stream, stops a pending revert and closes all
// subscriber channels. It is safe to call more than once.
func (m *AuthStateMachine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.gen++
	if m.revert != nil {
		m.revert.Stop()
		m.revert = nil
	}
	cancel := m.cancel
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// State returns the current state.
func (m *AuthStateMachine) State() domainauth.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe returns a channel that immediately holds the current state and
// afterwards the latest state after each transition. A slow reader skips
// intermediate states but never misses the latest one. Call the returned
// function to unsubscribe.
func (m *AuthStateMachine) Subscribe() (<-chan domainauth.State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan domainauth.State, 1)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if c, ok := m.subs[id]; ok {
				close(c)
				delete(m.subs, id)
			}
		})
	}
}

// Login signs in and reports success. The result is also reflected in State.
func (m *AuthStateMachine) Login(ctx context.Context, in LoginInput) bool {
	start := time.Now()
	prev := m.begin(msgSigningIn)

	user, err := m.sessions.SignIn(ctx, in.Email, in.Password)
	if err != nil {
		m.fail("login", err, prev, start)
		return false
	}
	m.authenticated(ctx, "login", user, in.RememberMe, start)
	return true
}

// Register creates an account and signs in with it.
func (m *AuthStateMachine) Register(ctx context.Context, in RegisterInput) bool {
	start := time.Now()
	prev := m.begin(msgCreatingAccount)

	user, err := m.sessions.Register(ctx, in)
	if err != nil {
		m.fail("register", err, prev, start)
		return false
	}
	m.authenticated(ctx, "register", user, in.RememberMe, start)
	return true
}

// Logout signs out and clears the device's session hints and intended
// destination. The device forgets them even when the backend sign-out fails.
func (m *AuthStateMachine) Logout(ctx context.Context) bool {
	start := time.Now()
	prev := m.begin(msgSigningOut)

	err := m.sessions.SignOut(ctx)
	m.clearHints(ctx)
	if err != nil {
		m.fail("logout", err, prev, start)
		return false
	}
	m.set(domainauth.UnauthenticatedState{Message: msgSignedOut})
	m.emit("logout", metrics.ResultSuccess, start, nil)
	return true
}

// ResetPassword sends a reset email without changing sign-in status. The
// Success state reverts after the configured delay.
func (m *AuthStateMachine) ResetPassword(ctx context.Context, email string) bool {
	start := time.Now()
	prev := m.begin(msgSendingReset)

	if err := m.sessions.SendPasswordResetEmail(ctx, email); err != nil {
		m.fail("reset_password", err, prev, start)
		return false
	}
	m.succeed(domainauth.SuccessState{
		Message: fmt.Sprintf(msgResetEmailFormat, normalizeEmail(email)),
		Session: prev,
	})
	m.emit("reset_password", metrics.ResultSuccess, start, nil)
	return true
}

// UpdateProfile changes the signed-in user's profile.
func (m *AuthStateMachine) UpdateProfile(ctx context.Context, in ProfileInput) bool {
	start := time.Now()
	if !domainauth.IsAuthenticated(m.State()) {
		m.emit("update_profile", metrics.ResultNoop, start, nil)
		return false
	}
	prev := m.begin(msgUpdatingProfile)

	user, err := m.sessions.UpdateProfile(ctx, in)
	if err != nil {
		m.fail("update_profile", err, prev, start)
		return false
	}
	m.succeed(domainauth.SuccessState{Message: msgProfileUpdated, Session: &user})
	m.emit("update_profile", metrics.ResultSuccess, start, nil)
	return true
}

// DeleteAccount removes the signed-in account and signs out.
func (m *AuthStateMachine) DeleteAccount(ctx context.Context) bool {
	start := time.Now()
	if !domainauth.IsAuthenticated(m.State()) {
		m.emit("delete_account", metrics.ResultNoop, start, nil)
		return false
	}
	prev := m.begin(msgDeletingAccount)

	if err := m.sessions.DeleteAccount(ctx); err != nil {
		m.fail("delete_account", err, prev, start)
		return false
	}
	m.clearHints(ctx)
	m.set(domainauth.UnauthenticatedState{Message: msgAccountDeleted})
	m.emit("delete_account", metrics.ResultSuccess, start, nil)
	return true
}

// RefreshSession reloads the signed-in session in place. It does nothing
// unless authenticated; failures are logged and never change state.
// Concurrent calls share one backend reload.
func (m *AuthStateMachine) RefreshSession(ctx context.Context) {
	start := time.Now()
	if !domainauth.IsAuthenticated(m.State()) {
		m.emit("refresh", metrics.ResultNoop, start, nil)
		return
	}

	v, err, _ := m.refresh.Do("refresh", func() (any, error) {
		return m.sessions.ReloadSession(ctx)
	})
	if err != nil {
		m.logger.WarnContext(ctx, "session refresh failed", "error", err)
		m.emit("refresh", metrics.ResultError, start, err)
		return
	}
	user, ok := v.(domainauth.User)
	if !ok {
		return
	}

	m.mu.Lock()
	if cur, isAuth := m.state.(domainauth.AuthenticatedState); isAuth && !cur.User.Equal(user) {
		m.transition(domainauth.AuthenticatedState{User: user})
	}
	m.unlock()
	m.emit("refresh", metrics.ResultSuccess, start, nil)
}

// ClearMessages settles an Error or Success state back to Authenticated or
// Unauthenticated depending on the attached session.
func (m *AuthStateMachine) ClearMessages() {
	m.mu.Lock()
	defer m.unlock()
	switch m.state.(type) {
	case domainauth.ErrorState, domainauth.SuccessState:
		m.transition(domainauth.Settled(m.state))
	}
}

// HasPermission is false without a backend call unless authenticated.
func (m *AuthStateMachine) HasPermission(ctx context.Context, role domainauth.Role) bool {
	if !domainauth.IsAuthenticated(m.State()) {
		return false
	}
	return m.sessions.HasPermission(ctx, role)
}

func (m *AuthStateMachine) consumeStream(sessions <-chan *domainauth.User) {
	defer m.wg.Done()
	for user := range sessions {
		m.applyStream(user)
	}
}

// applyStream folds a session stream event into the current state. Events
// never override Loading so an operation in flight decides its own outcome.
// Refreshing the session carried by Error or Success keeps a pending revert.
func (m *AuthStateMachine) applyStream(user *domainauth.User) {
	m.mu.Lock()
	defer m.unlock()

	switch st := m.state.(type) {
	case domainauth.LoadingState:
		return
	case domainauth.ErrorState:
		if user != nil {
			st.Session = user
			m.replace(st)
			return
		}
	case domainauth.SuccessState:
		if user != nil {
			st.Session = user
			m.replace(st)
			return
		}
	case domainauth.AuthenticatedState:
		if user != nil && st.User.Equal(*user) {
			return
		}
	case domainauth.UnauthenticatedState:
		if user == nil {
			return
		}
	}

	if user == nil {
		m.transition(domainauth.UnauthenticatedState{})
		return
	}
	m.transition(domainauth.AuthenticatedState{User: *user})
}

// initialCheck applies the current session only if nothing else has moved
// the state out of Initial yet.
func (m *AuthStateMachine) initialCheck(ctx context.Context) {
	defer m.wg.Done()
	user, err := m.sessions.CurrentSession(ctx)
	if err == nil && user != nil && m.forgetUnremembered(ctx, *user) {
		user = nil
	}

	m.mu.Lock()
	defer m.unlock()
	if _, initial := m.state.(domainauth.InitialState); !initial {
		return
	}
	if err != nil {
		m.logger.WarnContext(ctx, "initial session check failed", "error", err)
		m.transition(domainauth.UnauthenticatedState{})
		return
	}
	if user == nil {
		m.transition(domainauth.UnauthenticatedState{})
		return
	}
	m.transition(domainauth.AuthenticatedState{User: *user})
}

// forgetUnremembered signs out a session left over from a previous run when
// the device hints say its user did not choose remember-me. It reports
// whether the session was dropped.
func (m *AuthStateMachine) forgetUnremembered(ctx context.Context, user domainauth.User) bool {
	if m.hints == nil {
		return false
	}
	saved, err := m.hints.LoadSession(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "load session hints failed", "error", err)
		return false
	}
	if !saved.IsLoggedIn || saved.RememberMe || saved.UserID != user.ID {
		return false
	}
	if err := m.sessions.SignOut(ctx); err != nil {
		m.logger.WarnContext(ctx, "sign out of unremembered session failed", "error", err)
		return false
	}
	m.clearHints(ctx)
	m.logger.InfoContext(ctx, "dropped session without remember-me", "user_id", user.ID)
	return true
}

// begin enters Loading and returns the session attached to the state it left.
func (m *AuthStateMachine) begin(message string) *domainauth.User {
	m.mu.Lock()
	defer m.unlock()
	prev := domainauth.SessionOf(m.state)
	m.transition(domainauth.LoadingState{Message: message})
	return prev
}

func (m *AuthStateMachine) authenticated(ctx context.Context, op string, user domainauth.User, rememberMe bool, start time.Time) {
	m.set(domainauth.AuthenticatedState{User: user})
	if m.hints != nil {
		// A failed hint write is not an auth failure.
		if err := m.hints.SaveSession(ctx, user, rememberMe); err != nil {
			m.logger.WarnContext(ctx, "save session hints failed", "error", err)
		}
	}
	m.emit(op, metrics.ResultSuccess, start, nil)
}

func (m *AuthStateMachine) clearHints(ctx context.Context) {
	if m.hints == nil {
		return
	}
	if err := m.hints.ClearSession(ctx); err != nil {
		m.logger.WarnContext(ctx, "clear session hints failed", "error", err)
	}
}

// fail classifies err into an Error state that remembers prev.
func (m *AuthStateMachine) fail(op string, err error, prev *domainauth.User, start time.Time) {
	appErr := apperrors.ClassifyError(err)
	m.set(domainauth.ErrorState{
		Message:     appErr.Error(),
		UserMessage: appErr.UserMessage,
		Code:        appErr.Code,
		Session:     prev,
	})
	m.logger.Info("auth operation failed", "operation", op, "kind", appErr.Kind, "code", appErr.Code)
	m.emit(op, metrics.ResultError, start, appErr)
}

// succeed enters a Success state and schedules its revert.
func (m *AuthStateMachine) succeed(st domainauth.SuccessState) {
	m.mu.Lock()
	defer m.unlock()
	m.transition(st)
	if m.closed {
		return
	}
	gen := m.gen
	m.revert = time.AfterFunc(m.revertDelay, func() {
		m.mu.Lock()
		defer m.unlock()
		// Any transition since scheduling bumps gen and cancels the revert.
		if m.gen != gen || m.closed {
			return
		}
		m.transition(domainauth.Settled(m.state))
	})
}

func (m *AuthStateMachine) set(next domainauth.State) {
	m.mu.Lock()
	defer m.unlock()
	m.transition(next)
}

// transition replaces the state, cancels a pending revert and notifies
// subscribers. Caller holds m.mu and releases it with unlock.
func (m *AuthStateMachine) transition(next domainauth.State) {
	m.gen++
	if m.revert != nil {
		m.revert.Stop()
		m.revert = nil
	}
	m.replace(next)
}

// replace swaps the state and notifies subscribers without touching a
// pending revert. Caller holds m.mu.
func (m *AuthStateMachine) replace(next domainauth.State) {
	m.changes = append(m.changes, stateChange{from: m.state.Kind(), to: next.Kind()})
	m.state = next
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}

// unlock releases m.mu, then reports the transitions made while it was held.
func (m *AuthStateMachine) unlock() {
	changes := m.changes
	m.changes = nil
	m.mu.Unlock()
	for _, c := range changes {
		metrics.EmitStateTransition(m.metrics, string(c.from), string(c.to))
	}
}

func (m *AuthStateMachine) emit(op, result string, start time.Time, err error) {
	metrics.EmitAuthOperation(m.metrics, metrics.AuthOperation{
		Operation: op,
		Result:    result,
		Duration:  time.Since(start),
		Err:       err,
	})
}

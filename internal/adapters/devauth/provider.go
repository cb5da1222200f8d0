package devauth

// Package devauth provides an in-memory, config-seeded identity backend for
// local development and tests. Passwords are bcrypt hashed and emails that a
// real provider would send are logged and kept in an outbox.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/stockcam/internal/adapters/identityfeed"
	domainauth "github.com/target/stockcam/internal/domain/auth"
	apperrors "github.com/target/stockcam/internal/errors"
	"github.com/target/stockcam/internal/ports"
)

const (
	defaultMinPasswordLength = 6
	defaultMaxFailedAttempts = 5
)

// SeedUser is an account created when the provider starts.
type SeedUser struct {
	Email       string
	Password    string
	DisplayName string
	Disabled    bool
}

// Config controls the dev identity backend behavior.
type Config struct {
	Users             []SeedUser
	MinPasswordLength int // default 6 when zero
	MaxFailedAttempts int // default 5 when zero
	// BcryptCost defaults to bcrypt.MinCost to keep local startup fast.
	BcryptCost int
	Logger     *slog.Logger
	Now        func() time.Time
}

// Email is a message the provider would have delivered.
type Email struct {
	Kind   string
	To     string
	SentAt time.Time
}

type account struct {
	identity       domainauth.Identity
	passwordHash   []byte
	disabled       bool
	failedAttempts int
}

// Provider implements ports.IdentityBackend in memory.
type Provider struct {
	mu          sync.Mutex
	accounts    map[string]*account
	byEmail     map[string]string
	currentUID  string
	feed        *identityfeed.Feed
	outbox      []Email
	minLen      int
	maxFailures int
	cost        int
	logger      *slog.Logger
	now         func() time.Time
}

var _ ports.IdentityBackend = (*Provider)(nil)

// NewProvider constructs a dev identity backend from Config.
func NewProvider(cfg Config) (*Provider, error) {
	p := &Provider{
		accounts:    make(map[string]*account),
		byEmail:     make(map[string]string),
		feed:        identityfeed.New(),
		minLen:      cfg.MinPasswordLength,
		maxFailures: cfg.MaxFailedAttempts,
		cost:        cfg.BcryptCost,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if p.minLen <= 0 {
		p.minLen = defaultMinPasswordLength
	}
	if p.maxFailures <= 0 {
		p.maxFailures = defaultMaxFailedAttempts
	}
	if p.cost == 0 {
		p.cost = bcrypt.MinCost
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "devauth")
	if p.now == nil {
		p.now = time.Now
	}

	for _, u := range cfg.Users {
		acct, err := p.createAccount(SeedUID(u.Email), u.Email, u.Password)
		if err != nil {
			return nil, fmt.Errorf("dev auth: seed %q: %w", u.Email, err)
		}
		acct.identity.DisplayName = u.DisplayName
		acct.identity.EmailVerified = true
		acct.disabled = u.Disabled
	}
	return p, nil
}

// WatchIdentity streams the signed-in identity starting with the current value.
func (p *Provider) WatchIdentity(ctx context.Context) (<-chan *domainauth.Identity, error) {
	return p.feed.Watch(ctx), nil
}

func (p *Provider) CurrentIdentity(_ context.Context) (*domainauth.Identity, error) {
	return p.feed.Current(), nil
}

func (p *Provider) SignInWithPassword(_ context.Context, email, password string) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	uid, ok := p.byEmail[normalizeEmail(email)]
	if !ok {
		return domainauth.Identity{}, apperrors.Backend("user-not-found", "no account for email")
	}
	acct := p.accounts[uid]
	if acct.disabled {
		return domainauth.Identity{}, apperrors.Backend("user-disabled", "account disabled")
	}
	if acct.failedAttempts >= p.maxFailures {
		return domainauth.Identity{}, apperrors.Backend("too-many-requests", "account temporarily locked")
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		acct.failedAttempts++
		return domainauth.Identity{}, apperrors.Backend("invalid-credential", "password mismatch")
	}

	acct.failedAttempts = 0
	now := p.now()
	acct.identity.LastSignInAt = &now
	p.currentUID = uid
	p.feed.Publish(&acct.identity)
	p.logger.Info("dev sign in", "uid", uid)
	return acct.identity, nil
}

func (p *Provider) CreateUserWithPassword(_ context.Context, email, password string) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, err := p.createAccount(uuid.NewString(), email, password)
	if err != nil {
		return domainauth.Identity{}, err
	}
	now := p.now()
	acct.identity.LastSignInAt = &now
	p.currentUID = acct.identity.UID
	p.feed.Publish(&acct.identity)
	p.logger.Info("dev account created", "uid", acct.identity.UID)
	return acct.identity, nil
}

// createAccount must be called with p.mu held or before the provider is shared.
func (p *Provider) createAccount(uid, email, password string) (*account, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.Backend("invalid-email", "malformed email")
	}
	if _, exists := p.byEmail[email]; exists {
		return nil, apperrors.Backend("email-already-in-use", "email registered")
	}
	if len(password) < p.minLen {
		return nil, apperrors.Backend("weak-password", "password too weak")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, apperrors.BackendWrap(err, "internal-error", "hash password")
	}

	created := p.now()
	acct := &account{
		identity: domainauth.Identity{
			UID:       uid,
			Email:     email,
			CreatedAt: &created,
		},
		passwordHash: hash,
	}
	p.accounts[acct.identity.UID] = acct
	p.byEmail[email] = acct.identity.UID
	return acct, nil
}

func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentUID = ""
	p.feed.Publish(nil)
	return nil
}

func (p *Provider) SendPasswordResetEmail(_ context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	email = normalizeEmail(email)
	if _, ok := p.byEmail[email]; !ok {
		return apperrors.Backend("user-not-found", "no account for email")
	}
	p.sendLocked("password-reset", email)
	return nil
}

func (p *Provider) SendEmailVerification(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, err := p.currentLocked()
	if err != nil {
		return err
	}
	p.sendLocked("email-verification", acct.identity.Email)
	return nil
}

func (p *Provider) UpdateProfile(_ context.Context, update ports.ProfileUpdate) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, err := p.currentLocked()
	if err != nil {
		return domainauth.Identity{}, err
	}
	if update.DisplayName != nil {
		acct.identity.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		acct.identity.PhotoURL = *update.PhotoURL
	}
	p.feed.Publish(&acct.identity)
	return acct.identity, nil
}

func (p *Provider) UpdatePassword(_ context.Context, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, err := p.currentLocked()
	if err != nil {
		return err
	}
	if len(newPassword) < p.minLen {
		return apperrors.Backend("weak-password", "password too weak")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cost)
	if err != nil {
		return apperrors.BackendWrap(err, "internal-error", "hash password")
	}
	acct.passwordHash = hash
	return nil
}

func (p *Provider) Reauthenticate(_ context.Context, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, err := p.currentLocked()
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)) != nil {
		return apperrors.Backend("wrong-password", "password mismatch")
	}
	return nil
}

func (p *Provider) Reload(_ context.Context) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, err := p.currentLocked()
	if err != nil {
		return domainauth.Identity{}, err
	}
	if acct.disabled {
		return domainauth.Identity{}, apperrors.Backend("user-disabled", "account disabled")
	}
	return acct.identity, nil
}

func (p *Provider) DeleteCurrentUser(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, err := p.currentLocked()
	if err != nil {
		return err
	}
	delete(p.byEmail, acct.identity.Email)
	delete(p.accounts, acct.identity.UID)
	p.currentUID = ""
	p.feed.Publish(nil)
	return nil
}

// SeedUID derives a stable uid for a seeded email so records survive restarts.
func SeedUID(email string) string {
	return uuid.NewSHA1(seedNamespace, []byte(normalizeEmail(email))).String()
}

var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://stockcam.local/devauth"))

// Accounts returns every known identity ordered by email.
func (p *Provider) Accounts() []domainauth.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domainauth.Identity, 0, len(p.accounts))
	for _, acct := range p.accounts {
		out = append(out, acct.identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// Outbox returns the emails sent so far.
func (p *Provider) Outbox() []Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Email(nil), p.outbox...)
}

// SetDisabled toggles an account's disabled flag; used to simulate admin action at the provider.
func (p *Provider) SetDisabled(email string, disabled bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	uid, ok := p.byEmail[normalizeEmail(email)]
	if !ok {
		return false
	}
	p.accounts[uid].disabled = disabled
	return true
}

func (p *Provider) currentLocked() (*account, error) {
	if p.currentUID == "" {
		return nil, apperrors.Backend("no-current-user", "no signed in user")
	}
	acct, ok := p.accounts[p.currentUID]
	if !ok {
		return nil, apperrors.Backend("user-token-expired", "signed in user no longer exists")
	}
	return acct, nil
}

func (p *Provider) sendLocked(kind, to string) {
	p.outbox = append(p.outbox, Email{Kind: kind, To: to, SentAt: p.now()})
	p.logger.Info("dev email sent", "kind", kind, "to", to)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

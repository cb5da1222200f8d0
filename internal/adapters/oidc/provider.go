package oidc

// Package oidc provides an identity backend that signs users in against an
// OpenID Connect provider with the resource owner password grant.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	"github.com/target/stockcam/internal/adapters/identityfeed"
	domainauth "github.com/target/stockcam/internal/domain/auth"
	apperrors "github.com/target/stockcam/internal/errors"
	"github.com/target/stockcam/internal/ports"
)

// ClaimPaths are JMESPath expressions locating identity fields in the
// provider's claims. Empty fields use the defaults below.
type ClaimPaths struct {
	Subject       string
	Email         string
	DisplayName   string
	Picture       string
	EmailVerified string
}

// DefaultClaimPaths match standard OIDC claims with common AD/ADFS fallbacks.
var DefaultClaimPaths = ClaimPaths{
	Subject:       "sub",
	Email:         "email || mail || upn",
	DisplayName:   "name || preferred_username",
	Picture:       "picture",
	EmailVerified: "email_verified",
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a client with a 30s timeout
	Claims       ClaimPaths
	Logger       *slog.Logger
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// Provider implements ports.IdentityBackend using OIDC/OAuth2.
// Account management operations are owned by the provider's own tooling and
// report operation-not-allowed.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client
	claims     ClaimPaths
	logger     *slog.Logger

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	mu       sync.Mutex
	token    *oauth2.Token
	identity *domainauth.Identity
	feed     *identityfeed.Feed
}

var _ ports.IdentityBackend = (*Provider)(nil)

// NewProvider creates a new OIDC provider, fetching discovery once.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	claims, err := resolveClaimPaths(config.Claims)
	if err != nil {
		return nil, err
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		httpClient: httpClient,
		claims:     claims,
		logger:     logger.With("component", "oidc"),
		feed:       identityfeed.New(),
	}

	ctx := p.clientContext(context.Background())
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: config.ClientID})

	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       strings.Fields(config.Scope),
		Endpoint:     op.Endpoint(),
	}

	return p, nil
}

func resolveClaimPaths(c ClaimPaths) (ClaimPaths, error) {
	out := ClaimPaths{
		Subject:       firstNonEmpty(c.Subject, DefaultClaimPaths.Subject),
		Email:         firstNonEmpty(c.Email, DefaultClaimPaths.Email),
		DisplayName:   firstNonEmpty(c.DisplayName, DefaultClaimPaths.DisplayName),
		Picture:       firstNonEmpty(c.Picture, DefaultClaimPaths.Picture),
		EmailVerified: firstNonEmpty(c.EmailVerified, DefaultClaimPaths.EmailVerified),
	}
	for name, expr := range map[string]string{
		"subject":        out.Subject,
		"email":          out.Email,
		"display name":   out.DisplayName,
		"picture":        out.Picture,
		"email verified": out.EmailVerified,
	} {
		if _, err := jmespath.Compile(expr); err != nil {
			return ClaimPaths{}, fmt.Errorf("invalid %s claim expression %q: %w", name, expr, err)
		}
	}
	return out, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func (p *Provider) WatchIdentity(ctx context.Context) (<-chan *domainauth.Identity, error) {
	return p.feed.Watch(ctx), nil
}

func (p *Provider) CurrentIdentity(_ context.Context) (*domainauth.Identity, error) {
	return p.feed.Current(), nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Identity, error) {
	ctx = p.clientContext(ctx)
	tok, err := p.config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return domainauth.Identity{}, mapTokenError(err, "invalid-credential")
	}

	id, err := p.identityFromToken(ctx, tok)
	if err != nil {
		return domainauth.Identity{}, err
	}
	if id.Email == "" {
		id.Email = strings.ToLower(strings.TrimSpace(email))
	}
	now := time.Now()
	id.LastSignInAt = &now

	p.mu.Lock()
	p.token = tok
	p.identity = &id
	p.feed.Publish(&id)
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "oidc sign in", "subject", id.UID)
	return id, nil
}

func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = nil
	p.identity = nil
	p.feed.Publish(nil)
	return nil
}

// Reload refreshes the access token and re-reads identity claims.
func (p *Provider) Reload(ctx context.Context) (domainauth.Identity, error) {
	p.mu.Lock()
	tok, cur := p.token, p.identity
	p.mu.Unlock()
	if tok == nil || cur == nil {
		return domainauth.Identity{}, apperrors.Backend("no-current-user", "no signed in user")
	}

	ctx = p.clientContext(ctx)
	fresh, err := p.config.TokenSource(ctx, tok).Token()
	if err != nil {
		return domainauth.Identity{}, mapTokenError(err, "token-expired")
	}

	id := *cur
	if fresh.AccessToken != tok.AccessToken {
		updated, idErr := p.identityFromToken(ctx, fresh)
		if idErr != nil {
			return domainauth.Identity{}, idErr
		}
		updated.CreatedAt = cur.CreatedAt
		updated.LastSignInAt = cur.LastSignInAt
		if updated.Email == "" {
			updated.Email = cur.Email
		}
		id = updated
	}

	p.mu.Lock()
	p.token = fresh
	p.identity = &id
	p.feed.Publish(&id)
	p.mu.Unlock()
	return id, nil
}

// Reauthenticate repeats the password grant for the signed-in user.
func (p *Provider) Reauthenticate(ctx context.Context, password string) error {
	p.mu.Lock()
	cur := p.identity
	p.mu.Unlock()
	if cur == nil {
		return apperrors.Backend("no-current-user", "no signed in user")
	}

	ctx = p.clientContext(ctx)
	tok, err := p.config.PasswordCredentialsToken(ctx, cur.Email, password)
	if err != nil {
		return mapTokenError(err, "wrong-password")
	}

	p.mu.Lock()
	p.token = tok
	p.mu.Unlock()
	return nil
}

func (p *Provider) CreateUserWithPassword(context.Context, string, string) (domainauth.Identity, error) {
	return domainauth.Identity{}, notSupported("registration")
}

func (p *Provider) SendPasswordResetEmail(context.Context, string) error {
	return notSupported("password reset")
}

func (p *Provider) SendEmailVerification(context.Context) error {
	return notSupported("email verification")
}

func (p *Provider) UpdateProfile(context.Context, ports.ProfileUpdate) (domainauth.Identity, error) {
	return domainauth.Identity{}, notSupported("profile update")
}

func (p *Provider) UpdatePassword(context.Context, string) error {
	return notSupported("password update")
}

func (p *Provider) DeleteCurrentUser(context.Context) error {
	return notSupported("account deletion")
}

func notSupported(op string) error {
	return apperrors.Backend("operation-not-allowed", op+" is managed by the identity provider")
}

// identityFromToken reads claims from the verified id_token when the openid
// scope was requested, otherwise from the userinfo endpoint.
func (p *Provider) identityFromToken(ctx context.Context, tok *oauth2.Token) (domainauth.Identity, error) {
	var raw map[string]any

	if p.hasOpenIDScope() {
		rawID, err := getIDTokenFromToken(tok)
		if err != nil {
			return domainauth.Identity{}, apperrors.BackendWrap(err, "internal-error", "token response")
		}
		idTok, err := p.verifier.Verify(ctx, rawID)
		if err != nil {
			return domainauth.Identity{}, apperrors.BackendWrap(err, "user-token-expired", "verify id_token")
		}
		if claimsErr := idTok.Claims(&raw); claimsErr != nil {
			return domainauth.Identity{}, apperrors.BackendWrap(claimsErr, "internal-error", "parse id_token claims")
		}
	} else {
		ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
		if err != nil {
			return domainauth.Identity{}, mapTokenError(err, "internal-error")
		}
		if claimsErr := ui.Claims(&raw); claimsErr != nil {
			return domainauth.Identity{}, apperrors.BackendWrap(claimsErr, "internal-error", "decode user info")
		}
	}

	id := mapClaims(p.claims, raw)
	if id.UID == "" {
		return domainauth.Identity{}, apperrors.Backend("internal-error", "identity claims missing subject")
	}
	return id, nil
}

// mapClaims evaluates the claim expressions against raw claims.
func mapClaims(paths ClaimPaths, raw map[string]any) domainauth.Identity {
	return domainauth.Identity{
		UID:           searchString(paths.Subject, raw),
		Email:         strings.ToLower(searchString(paths.Email, raw)),
		DisplayName:   searchString(paths.DisplayName, raw),
		PhotoURL:      searchString(paths.Picture, raw),
		EmailVerified: searchBool(paths.EmailVerified, raw),
	}
}

func searchString(expr string, data map[string]any) string {
	v, err := jmespath.Search(expr, data)
	if err != nil || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return fmt.Sprintf("%.0f", s)
	default:
		return ""
	}
}

func searchBool(expr string, data map[string]any) bool {
	v, err := jmespath.Search(expr, data)
	if err != nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	default:
		return false
	}
}

// mapTokenError converts token endpoint failures into backend errors.
// fallback is the code used when the provider rejects the grant without a code.
func mapTokenError(err error, fallback string) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		code := re.ErrorCode
		switch {
		case code == "invalid_grant" && fallback == "token-expired":
			code = "token-expired"
		case code == "":
			code = fallbackForStatus(re.Response, fallback)
		}
		return apperrors.BackendWrap(err, code, firstNonEmpty(re.ErrorDescription, "token request rejected"))
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.BackendWrap(err, "network-request-failed", "identity provider unreachable")
	}
	return apperrors.BackendWrap(err, "internal-error", "identity provider request failed")
}

func fallbackForStatus(resp *http.Response, fallback string) string {
	if resp == nil {
		return fallback
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "too-many-requests"
	case resp.StatusCode == http.StatusServiceUnavailable:
		return "unavailable"
	case resp.StatusCode >= http.StatusInternalServerError:
		return "internal-error"
	default:
		return fallback
	}
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// hasOpenIDScope reports whether the configured scopes include "openid".
func (p *Provider) hasOpenIDScope() bool {
	for _, sc := range p.config.Scopes {
		if sc == "openid" {
			return true
		}
	}
	return false
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

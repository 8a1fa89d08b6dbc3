package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"payshield/internal/auth"
	"payshield/internal/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const providerName = "keycloak"

// Provider authenticates email/password pairs against a Keycloak realm
// with the resource-owner password grant and verifies the returned
// ID token. It returns identity facts only.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	endSession  string
	httpClient  *http.Client

	mu            sync.Mutex
	refreshTokens map[string]string // subject -> refresh token, for sign-out
}

// New initializes a Keycloak OIDC provider using discovery.
// issuer must be the realm issuer URL, e.g.
// http://localhost:8081/realms/payshield
func New(
	ctx context.Context,
	issuer string,
	clientID string,
	clientSecret string,
) (*Provider, error) {

	if issuer == "" || clientID == "" {
		return nil, errors.New("keycloak config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init keycloak oidc provider: %w", err)
	}

	var discovery struct {
		EndSession string `json:"end_session_endpoint"`
	}
	_ = oidcProvider.Claims(&discovery)

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"email",
			"profile",
		},
	}

	return &Provider{
		oauthConfig:   oauthCfg,
		verifier:      verifier,
		endSession:    discovery.EndSession,
		httpClient:    http.DefaultClient,
		refreshTokens: make(map[string]string),
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// SignIn exchanges the credentials for tokens and returns the identity
// asserted by the verified ID token.
func (p *Provider) SignIn(
	ctx context.Context,
	email string,
	secret string,
) (*auth.ExternalIdentity, error) {

	token, err := p.oauthConfig.PasswordCredentialsToken(ctx, email, secret)
	if err != nil {
		logger.Warn("keycloak password grant failed", map[string]any{
			"error": err.Error(),
		})
		return nil, classify(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: keycloak did not return id_token", auth.ErrProviderUnavailable)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Error("keycloak id_token verification failed", map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: id_token verification: %v", auth.ErrProviderUnavailable, err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}

	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("keycloak id_token claims parse failed: %w", err)
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("keycloak id_token missing required claims")
	}

	if token.RefreshToken != "" {
		p.mu.Lock()
		p.refreshTokens[claims.Subject] = token.RefreshToken
		p.mu.Unlock()
	}

	logger.Info("keycloak oidc verified", map[string]any{
		"issuer":         idToken.Issuer,
		"email_verified": claims.EmailVerified,
		"expiry_unix":    idToken.Expiry.Unix(),
	})

	return &auth.ExternalIdentity{
		Provider:       providerName,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
	}, nil
}

// SignUp is not offered by the password grant; accounts are created in
// Keycloak itself.
func (p *Provider) SignUp(context.Context, string, string) (*auth.ExternalIdentity, error) {
	return nil, auth.ErrSignUpUnsupported
}

// SignOut revokes the refresh token issued at sign-in, when there is one.
func (p *Provider) SignOut(ctx context.Context, identity *auth.ExternalIdentity) error {
	if identity == nil {
		return nil
	}

	p.mu.Lock()
	refresh, ok := p.refreshTokens[identity.ProviderUserID]
	delete(p.refreshTokens, identity.ProviderUserID)
	p.mu.Unlock()

	if !ok || p.endSession == "" {
		return nil
	}

	form := url.Values{
		"client_id":     {p.oauthConfig.ClientID},
		"refresh_token": {refresh},
	}
	if p.oauthConfig.ClientSecret != "" {
		form.Set("client_secret", p.oauthConfig.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endSession, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: keycloak logout: %v", auth.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: keycloak logout returned %d", auth.ErrProviderUnavailable, resp.StatusCode)
	}
	return nil
}

// classify maps token endpoint failures onto the credential error taxonomy.
func classify(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("%w: %v", auth.ErrProviderUnavailable, err)
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", auth.ErrThrottled, err)
	case re.ErrorCode == "invalid_grant", status == http.StatusUnauthorized, status == http.StatusBadRequest:
		return fmt.Errorf("%w: %v", auth.ErrInvalidCredentials, err)
	default:
		return fmt.Errorf("%w: %v", auth.ErrProviderUnavailable, err)
	}
}

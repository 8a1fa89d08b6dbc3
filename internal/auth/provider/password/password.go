package password

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"payshield/internal/auth"
)

const providerName = "password"

// Provider is the client side of the profile service's own
// email/password identity endpoints.
type Provider struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) (*Provider, error) {
	if baseURL == "" {
		return nil, errors.New("password provider: missing base url")
	}
	return &Provider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResponse struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func (p *Provider) SignIn(ctx context.Context, email, secret string) (*auth.ExternalIdentity, error) {
	return p.credentials(ctx, "/auth/signin", email, secret)
}

func (p *Provider) SignUp(ctx context.Context, email, secret string) (*auth.ExternalIdentity, error) {
	return p.credentials(ctx, "/auth/signup", email, secret)
}

func (p *Provider) SignOut(ctx context.Context, identity *auth.ExternalIdentity) error {
	if identity == nil {
		return nil
	}
	resp, err := p.post(ctx, "/auth/signout", map[string]string{"uid": identity.ProviderUserID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode)
	}
	return nil
}

func (p *Provider) credentials(ctx context.Context, path, email, secret string) (*auth.ExternalIdentity, error) {
	resp, err := p.post(ctx, path, credentialsRequest{Email: email, Password: secret})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, statusError(resp.StatusCode)
	}

	var body identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode identity: %v", auth.ErrProviderUnavailable, err)
	}
	if body.UID == "" {
		return nil, fmt.Errorf("%w: empty uid", auth.ErrProviderUnavailable)
	}

	return &auth.ExternalIdentity{
		Provider:       providerName,
		ProviderUserID: body.UID,
		Email:          body.Email,
		EmailVerified:  body.EmailVerified,
	}, nil
}

func (p *Provider) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrProviderUnavailable, err)
	}
	return resp, nil
}

func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return auth.ErrInvalidCredentials
	case http.StatusConflict:
		return auth.ErrEmailInUse
	case http.StatusTooManyRequests:
		return auth.ErrThrottled
	default:
		return fmt.Errorf("%w: status %d", auth.ErrProviderUnavailable, status)
	}
}

package provider

import (
	"context"

	"payshield/internal/auth"
)

// Provider defines the contract every external identity provider
// must implement. Implementations return identity facts only and
// must not touch profiles, tab stores, or other sessions.
type Provider interface {
	// Name returns the provider identifier (e.g. "password", "keycloak").
	Name() string

	// SignIn verifies the email/secret pair with the provider and returns
	// the normalized identity it asserts.
	SignIn(ctx context.Context, email string, secret string) (*auth.ExternalIdentity, error)

	// SignUp registers a new account with the provider. Providers that
	// cannot register accounts return auth.ErrSignUpUnsupported.
	SignUp(ctx context.Context, email string, secret string) (*auth.ExternalIdentity, error)

	// SignOut ends the provider-side session of identity.
	SignOut(ctx context.Context, identity *auth.ExternalIdentity) error
}

package auth

import (
	"context"
	"errors"
)

// Credential errors, reported by identity providers.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailInUse          = errors.New("email already in use")
	ErrThrottled           = errors.New("too many attempts")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrSignUpUnsupported   = errors.New("provider does not support sign-up")
)

// Profile desync errors, reported by resolvers and the bridge.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileCreate   = errors.New("profile creation failed")
	ErrStaleResolution = errors.New("external session changed during resolution")
	ErrInvalidRecord   = errors.New("invalid identity record")
)

// Message maps an error to the text shown to the user. Unknown errors
// fall back to a generic message so internals never leak into the UI.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrEmailInUse):
		return "Email already in use"
	case errors.Is(err, ErrThrottled):
		return "Too many attempts. Please try again later"
	case errors.Is(err, ErrProviderUnavailable):
		return "Network error. Please check your connection and try again"
	case errors.Is(err, ErrSignUpUnsupported):
		return "Sign-up is not available for this sign-in method"
	case errors.Is(err, ErrProfileNotFound):
		return "User not found in database"
	case errors.Is(err, ErrProfileCreate):
		return "Failed to create user in database"
	case errors.Is(err, ErrStaleResolution):
		return "Your session changed while signing in. Please try again"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Request timed out. Please try again"
	default:
		return "Something went wrong. Please try again"
	}
}

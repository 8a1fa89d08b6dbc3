package resolver

import (
	"context"

	"payshield/internal/auth"
)

// Request carries what is known about an external identity when it is
// resolved. Role and Name are only used when a profile must be created.
type Request struct {
	Email        string
	ExternalID   string
	Role         auth.Role
	Name         string
	BusinessName string
}

// Resolver turns an external identity into an identity record by
// looking the backend profile up by email and creating it when absent.
// It is the ONLY place where the identity-to-profile join lives.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*auth.Record, error)
}

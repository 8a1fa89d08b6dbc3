package profile

import (
	"context"
	"errors"
	"time"

	"payshield/internal/auth"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("profile not found")
)

// Profile is the backend user record an identity record is built from.
// Accounts, contacts and transactions hang off it server side.
type Profile struct {
	ID           string          `json:"id"`
	ExternalID   string          `json:"external_id"`
	Email        string          `json:"email"`
	Role         auth.Role       `json:"role"`
	Name         string          `json:"name"`
	Balance      decimal.Decimal `json:"balance"`
	BusinessName *string         `json:"business_name,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Record projects the profile onto the client-side identity record.
func (p *Profile) Record() *auth.Record {
	return &auth.Record{
		ExternalID: p.ExternalID,
		Email:      p.Email,
		Role:       p.Role,
		Name:       p.Name,
		Balance:    p.Balance,
	}
}

// ByEmailRequest is the body of POST /api/user/by-email.
type ByEmailRequest struct {
	Email      string `json:"email"`
	ExternalID string `json:"external_id"`
}

// CreateRequest is the body of POST /api/user/create.
type CreateRequest struct {
	ExternalID   string          `json:"external_id"`
	Email        string          `json:"email"`
	Role         auth.Role       `json:"role"`
	Name         string          `json:"name"`
	Balance      decimal.Decimal `json:"balance"`
	BusinessName *string         `json:"business_name,omitempty"`
}

// CreateResponse is the reply of POST /api/user/create. Message is only
// set when a new profile was inserted.
type CreateResponse struct {
	User    Profile `json:"user"`
	Message string  `json:"message,omitempty"`
}

// Repository stores profiles. Create is idempotent on email: when a
// profile already exists it is returned with created=false.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	Create(ctx context.Context, req CreateRequest) (p *Profile, created bool, err error)
	UpdateExternalID(ctx context.Context, email, externalID string) error
	Ping(ctx context.Context) error
}

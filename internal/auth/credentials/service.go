package credentials

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
	ErrNotFound           = errors.New("credentials not found")
)

// Repository persists credentials. Insert must fail with
// ErrAlreadyRegistered when the email is taken (case-insensitive).
type Repository interface {
	Insert(ctx context.Context, c Credential) (id string, err error)
	FindByEmail(ctx context.Context, email string) (*Credential, error)
}

// Service is the password identity provider: it registers and
// authenticates email/password pairs and never touches profiles.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register stores a new credential and returns its id.
func (s *Service) Register(
	ctx context.Context,
	email string,
	password string,
) (string, error) {

	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", errors.New("invalid email")
	}

	// 1. Hash password
	hash, version, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	// 2. Insert credentials
	return s.repo.Insert(ctx, Credential{
		Email:        email,
		PasswordHash: hash,
		HashVersion:  version,
	})
}

// Authenticate returns the credential id for a valid email/password pair.
func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (string, error) {

	// 1. Find credentials
	c, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		// hide whether user exists or not
		return "", ErrInvalidCredentials
	}

	// 2. Verify password
	if err := VerifyPassword(c.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	return c.ID, nil
}

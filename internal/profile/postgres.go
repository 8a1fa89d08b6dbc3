package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"payshield/internal/db"

	"github.com/google/uuid"
)

const profileColumns = `id, external_id, email, role, name, balance, business_name, status, created_at`

// PostgresRepository stores profiles in the users table.
type PostgresRepository struct {
	db *db.DB
}

func NewPostgresRepository(db *db.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM public.users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: find by email: %w", err)
	}
	return p, nil
}

// Create inserts the profile unless one already exists for the email,
// in which case the existing profile is returned untouched.
func (r *PostgresRepository) Create(ctx context.Context, req CreateRequest) (*Profile, bool, error) {
	// 1. Insert, losing gracefully to an existing row
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO public.users (id, external_id, email, role, name, balance, business_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ((LOWER(email))) DO NOTHING
		RETURNING `+profileColumns+`
	`,
		uuid.New(),
		req.ExternalID,
		req.Email,
		string(req.Role),
		req.Name,
		req.Balance,
		req.BusinessName,
	)

	p, err := scanProfile(row)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("profile: create: %w", err)
	}

	// 2. Conflict: return the existing profile
	p, err = r.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, false, err
	}
	return p, false, nil
}

func (r *PostgresRepository) UpdateExternalID(ctx context.Context, email, externalID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE public.users
		SET external_id = $2, updated_at = NOW()
		WHERE LOWER(email) = LOWER($1)
	`, email, externalID)
	if err != nil {
		return fmt.Errorf("profile: update external id: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanProfile(row *sql.Row) (*Profile, error) {
	var (
		p            Profile
		id           uuid.UUID
		businessName sql.NullString
	)

	err := row.Scan(
		&id,
		&p.ExternalID,
		&p.Email,
		&p.Role,
		&p.Name,
		&p.Balance,
		&businessName,
		&p.Status,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ID = id.String()
	if businessName.Valid {
		p.BusinessName = &businessName.String
	}
	return &p, nil
}

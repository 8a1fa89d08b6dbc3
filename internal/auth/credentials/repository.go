package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"payshield/internal/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db *db.DB
}

func NewPostgresRepository(db *db.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, c Credential) (string, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO credentials (id, email, password_hash, hash_version)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, uuid.New(), c.Email, c.PasswordHash, c.HashVersion).Scan(&id)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return "", ErrAlreadyRegistered
	}
	if err != nil {
		return "", fmt.Errorf("credentials: insert: %w", err)
	}

	return id.String(), nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	var (
		c  Credential
		id uuid.UUID
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, hash_version, created_at, updated_at
		FROM credentials
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&id, &c.Email, &c.PasswordHash, &c.HashVersion, &c.CreatedAt, &c.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credentials: find: %w", err)
	}

	c.ID = id.String()
	return &c, nil
}

// MemoryRepository backs the password provider when no database is
// configured.
type MemoryRepository struct {
	mu    sync.Mutex
	creds map[string]Credential // lower(email) -> credential
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{creds: make(map[string]Credential)}
}

func (m *MemoryRepository) Insert(_ context.Context, c Credential) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(c.Email)
	if _, ok := m.creds[key]; ok {
		return "", ErrAlreadyRegistered
	}

	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	m.creds[key] = c
	return c.ID, nil
}

func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.creds[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

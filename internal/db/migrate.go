package db

import (
	"context"
	"database/sql"
)

const profileMigration = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS users (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    external_id text NOT NULL,
    email text NOT NULL,
    role text NOT NULL CHECK (role IN ('customer', 'admin', 'developer')),
    name text NOT NULL,
    balance numeric(18, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
    business_name text,
    status text NOT NULL DEFAULT 'active',
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_unique
ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS credentials (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    email text NOT NULL,
    password_hash text NOT NULL,
    hash_version text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS credentials_email_lower_unique
ON credentials (LOWER(email));
`

// RunProfileMigration creates the profile and credential tables.
// It is idempotent and safe to run on every start.
func RunProfileMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, profileMigration)
	return err
}

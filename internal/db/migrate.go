package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaMigration = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS users (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    name text NOT NULL DEFAULT '',
    phone_number text NOT NULL,
    email text,
    password_hash text NOT NULL,
    role text NOT NULL DEFAULT 'student',
    school_id text,
    gender text,
    avatar_url text,
    is_email_verified boolean NOT NULL DEFAULT false,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW(),
    deleted_at timestamptz
);

CREATE UNIQUE INDEX IF NOT EXISTS users_phone_active_unique
ON users (phone_number) WHERE deleted_at IS NULL;

CREATE UNIQUE INDEX IF NOT EXISTS users_email_active_unique
ON users (LOWER(email)) WHERE deleted_at IS NULL AND email IS NOT NULL;

CREATE TABLE IF NOT EXISTS sessions (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    access_token text NOT NULL UNIQUE,
    expires_at timestamptz NOT NULL,
    refresh_token text NOT NULL DEFAULT '',
    user_agent text NOT NULL DEFAULT '',
    sso_agent text NOT NULL DEFAULT 'sms-nucleus',
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS sessions_user_agent_idx
ON sessions (user_id, sso_agent);

CREATE TABLE IF NOT EXISTS allow_list (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    phone text NOT NULL,
    created_by uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    deleted_at timestamptz
);

CREATE UNIQUE INDEX IF NOT EXISTS allow_list_phone_active_unique
ON allow_list (phone) WHERE deleted_at IS NULL;
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaMigration)
	return err
}

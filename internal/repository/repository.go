package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arnabBaruah009/sms-nucleus/internal/model"
)

// active is the soft-delete predicate composed into every user and
// allow-list query. Session rows are hard-deleted and never carry it.
const active = "deleted_at IS NULL"

const userColumns = "id, name, phone_number, email, password_hash, role, school_id, gender, avatar_url, is_email_verified, created_at, updated_at, deleted_at"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.PhoneNumber,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.SchoolID,
		&user.Gender,
		&user.AvatarURL,
		&user.IsEmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	return user, err
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, phone_number, email, password_hash, role, school_id, gender, avatar_url, is_email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, user.ID, user.Name, user.PhoneNumber, user.Email, user.PasswordHash, user.Role, user.SchoolID, user.Gender, user.AvatarURL, user.IsEmailVerified, user.CreatedAt, user.UpdatedAt)
	return err
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE phone_number = $1 AND `+active+`
	`, phone)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1) AND `+active+`
	`, email)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND `+active+`
	`, userID)
	return scanUser(row)
}

// UserUpdate is a pointer-field patch: nil fields are left untouched.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *string
	SchoolID     *string
	Gender       *string
	AvatarURL    *string
}

func (s *Store) UpdateUser(ctx context.Context, userID string, update UserUpdate) (model.User, error) {
	sets := []string{}
	args := []any{}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.PasswordHash != nil {
		add("password_hash", *update.PasswordHash)
	}
	if update.Role != nil {
		add("role", *update.Role)
	}
	if update.SchoolID != nil {
		add("school_id", *update.SchoolID)
	}
	if update.Gender != nil {
		add("gender", *update.Gender)
	}
	if update.AvatarURL != nil {
		add("avatar_url", *update.AvatarURL)
	}
	if len(sets) == 0 {
		return s.GetUserByID(ctx, userID)
	}

	add("updated_at", time.Now().UTC())
	args = append(args, userID)

	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET `+strings.Join(sets, ", ")+`
		WHERE id = $`+fmt.Sprint(len(args))+` AND `+active+`
		RETURNING `+userColumns+`
	`, args...)
	return scanUser(row)
}

func (s *Store) SoftDeleteUser(ctx context.Context, userID string, deletedAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET deleted_at = $1 WHERE id = $2 AND `+active+`
	`, deletedAt, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, access_token, expires_at, refresh_token, user_agent, sso_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, session.ID, session.UserID, session.AccessToken, session.ExpiresAt, session.RefreshToken, session.UserAgent, session.SSOAgent, session.CreatedAt)
	return err
}

func (s *Store) GetSessionByToken(ctx context.Context, token string) (model.Session, error) {
	var session model.Session
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, access_token, expires_at, refresh_token, user_agent, sso_agent, created_at
		FROM sessions
		WHERE access_token = $1
	`, token)
	err := row.Scan(&session.ID, &session.UserID, &session.AccessToken, &session.ExpiresAt, &session.RefreshToken, &session.UserAgent, &session.SSOAgent, &session.CreatedAt)
	return session, err
}

func (s *Store) ListSessionsByUserAgent(ctx context.Context, userID, ssoAgent string) ([]model.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, access_token, expires_at, refresh_token, user_agent, sso_agent, created_at
		FROM sessions
		WHERE user_id = $1 AND sso_agent = $2
		ORDER BY created_at ASC
	`, userID, ssoAgent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var session model.Session
		if err := rows.Scan(&session.ID, &session.UserID, &session.AccessToken, &session.ExpiresAt, &session.RefreshToken, &session.UserAgent, &session.SSOAgent, &session.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *Store) DeleteSessionByToken(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE access_token = $1`, token)
	return err
}

func (s *Store) DeleteSessionsByUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arnabBaruah009/sms-nucleus/internal/auth"
	"github.com/arnabBaruah009/sms-nucleus/internal/model"
)

// DefaultAgent tags sessions issued to clients that do not identify their
// channel. Web and mobile front-ends send their own tag so their sessions
// coexist without invalidating each other.
const DefaultAgent = "sms-nucleus"

var (
	// ErrNotAuthenticated covers every token rejection: unknown token,
	// expired session and missing or soft-deleted owner all collapse into
	// one signal so callers cannot probe which case they hit.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrUserNotFound is returned when issuance is requested for an
	// identity that does not exist or is soft-deleted.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound is returned by Rotate when the presented token
	// has no backing session row.
	ErrSessionNotFound = errors.New("session not found")
)

type Store interface {
	CreateSession(ctx context.Context, session model.Session) error
	GetSessionByToken(ctx context.Context, token string) (model.Session, error)
	ListSessionsByUserAgent(ctx context.Context, userID, ssoAgent string) ([]model.Session, error)
	DeleteSessionByToken(ctx context.Context, token string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error
}

type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (model.User, error)
}

// Manager owns the token lifecycle: issuance with reuse, per-request
// resolution, and invalidation. It holds no state between calls; the
// session store is the single source of truth.
type Manager struct {
	store  Store
	users  UserStore
	issuer *auth.Issuer
	now    func() time.Time
}

func NewManager(store Store, users UserStore, issuer *auth.Issuer) *Manager {
	return &Manager{
		store:  store,
		users:  users,
		issuer: issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// IssueOrReuse returns the caller's current token for (userID, ssoAgent),
// minting one only when no valid session exists. An expired session found
// on the way is deleted and replaced, so repeated logins rotate dead
// tokens without growing the sessions table.
//
// Two concurrent calls for the same pair can each observe "no valid
// session" and both insert a row. There is no uniqueness constraint on
// (user_id, sso_agent); the next IssueOrReuse simply reuses the oldest
// valid row.
func (m *Manager) IssueOrReuse(ctx context.Context, userID, userAgent, ssoAgent string) (string, error) {
	if ssoAgent == "" {
		ssoAgent = DefaultAgent
	}

	sessions, err := m.store.ListSessionsByUserAgent(ctx, userID, ssoAgent)
	if err != nil {
		return "", err
	}

	if len(sessions) > 0 {
		existing := sessions[0]
		if existing.ExpiresAt.After(m.now()) {
			return existing.AccessToken, nil
		}
		if err := m.store.DeleteSessionByToken(ctx, existing.AccessToken); err != nil {
			return "", err
		}
	}

	return m.mint(ctx, userID, userAgent, ssoAgent)
}

func (m *Manager) mint(ctx context.Context, userID, userAgent, ssoAgent string) (string, error) {
	user, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	token, err := m.issuer.Sign(auth.Claims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		SchoolID: user.SchoolID,
	})
	if err != nil {
		return "", err
	}

	now := m.now()
	session := model.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		AccessToken: token,
		ExpiresAt:   now.Add(m.issuer.TTL()),
		UserAgent:   userAgent,
		SSOAgent:    ssoAgent,
		CreatedAt:   now,
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve maps a bearer token to its owning user. The stored expiry is
// the authoritative check; the token's own exp claim is not re-verified.
// An expired row is left in place here, cleanup happens on the issuance
// path or on logout.
func (m *Manager) Resolve(ctx context.Context, token string) (model.User, error) {
	session, err := m.store.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotAuthenticated
		}
		return model.User{}, err
	}

	if !session.ExpiresAt.After(m.now()) {
		return model.User{}, ErrNotAuthenticated
	}

	user, err := m.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotAuthenticated
		}
		return model.User{}, err
	}
	return user, nil
}

// Invalidate deletes the session backing the token. Unknown tokens are a
// no-op.
func (m *Manager) Invalidate(ctx context.Context, token string) error {
	return m.store.DeleteSessionByToken(ctx, token)
}

// InvalidateAll logs the user out everywhere.
func (m *Manager) InvalidateAll(ctx context.Context, userID string) error {
	return m.store.DeleteSessionsByUser(ctx, userID)
}

// Rotate replaces the session behind token with a fresh one for userID,
// carrying over the device and agent metadata. Used when claims baked
// into the token (role, school) change and the client should not be
// forced through a full re-login.
func (m *Manager) Rotate(ctx context.Context, token, userID string) (string, error) {
	session, err := m.store.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSessionNotFound
		}
		return "", err
	}

	if err := m.store.DeleteSessionByToken(ctx, token); err != nil {
		return "", err
	}

	return m.IssueOrReuse(ctx, userID, session.UserAgent, session.SSOAgent)
}

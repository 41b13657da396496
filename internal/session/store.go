// Package session keeps the logged-in user on a cookie-backed fiber
// session. Sessions persist in Postgres so they survive restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jogosescolares/internal/config"
	"jogosescolares/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	userIDKey  = "user_id"
	Expiration = 24 * time.Hour
)

var ErrUnauthenticated = errors.New("not logged in")

// UserLookup resolves the session's user id to a user.
type UserLookup interface {
	GetUser(ctx context.Context, userID uuid.UUID) (user.User, error)
}

type Store struct {
	sessions *session.Store
	users    UserLookup
}

// NewPostgresStorage persists sessions in tbl_session through the shared pool.
func NewPostgresStorage(pool *pgxpool.Pool) fiber.Storage {
	return postgres.New(postgres.Config{
		DB:         pool,
		Table:      "tbl_session",
		Reset:      false,
		GCInterval: 10 * time.Minute,
	})
}

// New builds a session store. A nil storage keeps sessions in memory.
func New(storage fiber.Storage, cfg config.ServerConfig, users UserLookup) *Store {
	return &Store{
		sessions: session.New(session.Config{
			Storage:        storage,
			KeyLookup:      "cookie:session_id",
			CookiePath:     "/",
			CookieSecure:   cfg.SessionSecure,
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
			Expiration:     Expiration,
		}),
		users: users,
	}
}

// Login rotates the session id and binds it to userID.
func (s *Store) Login(c *fiber.Ctx, userID uuid.UUID) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}
	sess.Set(userIDKey, userID.String())
	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Store) Logout(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

func (s *Store) CurrentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get session: %w", err)
	}

	raw, ok := sess.Get(userIDKey).(string)
	if !ok || raw == "" {
		return uuid.Nil, ErrUnauthenticated
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return userID, nil
}

// CurrentUser returns the user attributed to the request's session.
func (s *Store) CurrentUser(c *fiber.Ctx) (user.User, error) {
	userID, err := s.CurrentUserID(c)
	if err != nil {
		return user.User{}, err
	}
	u, err := s.users.GetUser(c.UserContext(), userID)
	if err != nil {
		return user.User{}, fmt.Errorf("failed to load session user: %w", err)
	}
	return u, nil
}

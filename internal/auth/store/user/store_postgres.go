package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medgate/internal/auth/models"
	"medgate/pkg/domain"
	"medgate/pkg/platform/sentinel"
	txcontext "medgate/pkg/platform/tx"
)

// PostgresUserStore persists users in the users table.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// Create inserts user unless the username is taken, in which case it returns
// sentinel.ErrConflict.
func (s *PostgresUserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, secret_hash, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
		RETURNING id
	`
	var id int64
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, query, user.Username, user.SecretHash, user.Role.String()).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = domain.UserID(id)
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	return s.findOne(ctx, `SELECT id, username, secret_hash, role FROM users WHERE id = $1`, int64(id))
}

func (s *PostgresUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, `SELECT id, username, secret_hash, role FROM users WHERE username = $1`, username)
}

func (s *PostgresUserStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		u    models.User
		id   int64
		role string
	)
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(&id, &u.Username, &u.SecretHash, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = domain.UserID(id)
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %d has unknown role %q: %w", id, role, sentinel.ErrInvalidState)
	}
	u.Role = r
	return &u, nil
}

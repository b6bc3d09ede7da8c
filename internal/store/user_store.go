package store

import (
	"context"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	users "github.com/AdamBeresnev/op-bracket/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserStore struct {
	db *sqlx.DB
}

const (
	getUserQuery           = "SELECT * FROM users WHERE id = ?"
	getUserByProviderQuery = `
        SELECT * FROM users
        WHERE provider = ?
        AND provider_id = ?
    `
	createUserQuery = `
		INSERT INTO users (id, email, username, provider, provider_id, avatar_url, is_admin) VALUES
		(:id, :email, :username, :provider, :provider_id, :avatar_url, :is_admin)
	`
	updateUserProfileQuery = `
		UPDATE users SET
		username = :username,
		avatar_url = :avatar_url,
		is_admin = :is_admin
		WHERE id = :id
	`
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByProvider(ctx context.Context, provider string, providerID string) (*users.User, error) {
	var user users.User
	err := s.db.GetContext(ctx, &user, getUserByProviderQuery, provider, providerID)
	if err != nil {
		return nil, WrapErr(err, "get user by provider")
	}

	return &user, nil
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var user users.User
	err := s.db.GetContext(ctx, &user, getUserQuery, id)
	if err != nil {
		return nil, WrapErr(err, "get user "+id.String())
	}
	return &user, nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *users.User) error {
	_, err := s.db.NamedExecContext(ctx, createUserQuery, user)
	return WrapErr(err, "create user")
}

// UpdateUserProfile writes the provider-derived fields back; a missing row is not_found.
func (s *UserStore) UpdateUserProfile(ctx context.Context, user *users.User) error {
	res, err := s.db.NamedExecContext(ctx, updateUserProfileQuery, user)
	if err != nil {
		return WrapErr(err, "update user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return bracket.Errorf(bracket.KindNotFound, "user %s", user.ID)
	}
	return nil
}

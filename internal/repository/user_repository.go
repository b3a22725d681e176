package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

const userColumns = `id, email, name, role, secret_hash, created_at`

// CreateUser persists a new account. Emails are stored lower-cased.
func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	defer s.observe("create_user", time.Now())
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = nowUTC(user.CreatedAt)
	id, err := s.insertReturningID(ctx,
		`INSERT INTO user_accounts (email, name, role, secret_hash, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		user.Email, user.Name, user.Role, user.SecretHash, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	user.ID = id
	return nil
}

// FindUserByEmail returns a user by email address, ignoring case.
func (s *SQLStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.observe("find_user_by_email", time.Now())
	query := s.rebind(`SELECT ` + userColumns + ` FROM user_accounts WHERE email = ? LIMIT 1`)
	var user models.User
	if err := sqlx.GetContext(ctx, s.ext, &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns accounts ordered by id. An empty role lists everyone.
func (s *SQLStore) ListUsers(ctx context.Context, role models.UserRole) ([]models.User, error) {
	defer s.observe("list_users", time.Now())
	query := `SELECT ` + userColumns + ` FROM user_accounts`
	var args []interface{}
	if role != "" {
		query += " WHERE role = ?"
		args = append(args, role)
	}
	query += " ORDER BY id ASC"

	users := []models.User{}
	if err := sqlx.SelectContext(ctx, s.ext, &users, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

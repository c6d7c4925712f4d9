package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/ossms/internal/model"
)

const userColumns = `id, username, password, firstname, lastname, email, role, permissions, created_at, updated_at`

// CreateUser inserts a user. ID and timestamps are filled in when empty.
func CreateUser(ctx context.Context, q Querier, u *model.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	u.CreatedAt = orNow(u.CreatedAt)
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	_, err := q.NamedExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (:id, :username, :password, :firstname, :lastname, :email, :role, :permissions, :created_at, :updated_at)`,
		u,
	)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q Querier, id string) (*model.User, error) {
	return getUser(ctx, q, "id", id)
}

// GetUserByUsername returns a user by username.
func GetUserByUsername(ctx context.Context, q Querier, username string) (*model.User, error) {
	return getUser(ctx, q, "username", username)
}

// GetUserByEmail returns a user by email address.
func GetUserByEmail(ctx context.Context, q Querier, email string) (*model.User, error) {
	return getUser(ctx, q, "email", email)
}

func getUser(ctx context.Context, q Querier, column, value string) (*model.User, error) {
	u := &model.User{}
	err := q.GetContext(ctx, u, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by %s: %w", column, err)
	}
	return u, nil
}

// ListUsers returns all users ordered by username.
func ListUsers(ctx context.Context, q Querier) ([]model.User, error) {
	var users []model.User
	if err := q.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// UpdateUser writes a user's profile fields (everything except the
// credential and created_at) and refreshes updated_at.
func UpdateUser(ctx context.Context, q Querier, u *model.User) error {
	u.UpdatedAt = now()
	_, err := q.NamedExecContext(ctx,
		`UPDATE users SET username = :username, firstname = :firstname, lastname = :lastname,
		        email = :email, role = :role, permissions = :permissions, updated_at = :updated_at
		 WHERE id = :id`,
		u,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password = ?, updated_at = ? WHERE id = ?`,
		passwordHash, now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser hard-deletes a user. History rows keep the dangling user id.
func DeleteUser(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// CountUsersByRole returns how many users have the given role.
func CountUsersByRole(ctx context.Context, q Querier, role string) (int, error) {
	var n int
	if err := q.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE role = ?`, role); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

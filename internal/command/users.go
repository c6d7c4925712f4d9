package command

import (
	"context"
	"time"

	"github.com/erazemk/ossms/internal/identity"
	"github.com/erazemk/ossms/internal/metrics"
	"github.com/erazemk/ossms/internal/model"
)

type CreateUserRequest struct {
	Username    string            `json:"username" validate:"required"`
	Password    string            `json:"password" validate:"required,min=6"`
	Firstname   string            `json:"firstname"`
	Lastname    string            `json:"lastname"`
	Email       string            `json:"email" validate:"required,email"`
	Role        string            `json:"role" validate:"omitempty,role"`
	Permissions model.Permissions `json:"permissions"`
}

type UpdateUserRequest struct {
	ID          string             `json:"id" validate:"required"`
	Username    *string            `json:"username" validate:"omitempty,min=1"`
	Password    *string            `json:"password" validate:"omitempty,min=6"`
	Firstname   *string            `json:"firstname"`
	Lastname    *string            `json:"lastname"`
	Email       *string            `json:"email" validate:"omitempty,email"`
	Role        *string            `json:"role" validate:"omitempty,role"`
	Permissions *model.Permissions `json:"permissions"`
}

type ChangePasswordRequest struct {
	UserID          string `json:"user_id" validate:"required"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// ListUsers returns all users without credential hashes.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	defer metrics.ObserveCommand("list_users", time.Now())

	users, err := s.identity.ListUsers(ctx)
	if err != nil {
		return nil, public(ctx, "list_users", err)
	}
	for i := range users {
		users[i] = users[i].Scrubbed()
	}
	return users, nil
}

// GetUser returns one user without its credential hash.
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	defer metrics.ObserveCommand("get_user", time.Now())

	u, err := s.identity.GetUser(ctx, id)
	if err != nil {
		return nil, public(ctx, "get_user", err)
	}
	scrubbed := u.Scrubbed()
	return &scrubbed, nil
}

// CreateUser creates an account.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	defer metrics.ObserveCommand("create_user", time.Now())

	if err := check(req); err != nil {
		return nil, err
	}
	u, err := s.identity.CreateUser(ctx, identity.NewUser{
		Username:    req.Username,
		Password:    req.Password,
		Firstname:   req.Firstname,
		Lastname:    req.Lastname,
		Email:       req.Email,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		return nil, public(ctx, "create_user", err)
	}
	scrubbed := u.Scrubbed()
	return &scrubbed, nil
}

// UpdateUser edits profile fields and optionally sets a new password.
func (s *Service) UpdateUser(ctx context.Context, req UpdateUserRequest) (*model.User, error) {
	defer metrics.ObserveCommand("update_user", time.Now())

	if err := check(req); err != nil {
		return nil, err
	}
	u, err := s.identity.UpdateUser(ctx, req.ID, identity.UserPatch{
		Username:    req.Username,
		Password:    req.Password,
		Firstname:   req.Firstname,
		Lastname:    req.Lastname,
		Email:       req.Email,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		return nil, public(ctx, "update_user", err)
	}
	scrubbed := u.Scrubbed()
	return &scrubbed, nil
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id string) (string, error) {
	defer metrics.ObserveCommand("delete_user", time.Now())

	if err := s.identity.DeleteUser(ctx, id); err != nil {
		return "", public(ctx, "delete_user", err)
	}
	return "User deleted successfully", nil
}

// ChangePassword replaces the caller's own password.
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) Result {
	defer metrics.ObserveCommand("change_password", time.Now())

	if err := check(req); err != nil {
		return rejected(err)
	}
	if err := s.identity.ChangePassword(ctx, req.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return failed(ctx, "change_password", err)
	}
	return Result{Success: true, Message: "Password changed successfully"}
}

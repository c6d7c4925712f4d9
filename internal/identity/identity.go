// Package identity manages user accounts, credential checks and the
// password reset token lifecycle.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/ossms/internal/errs"
	"github.com/erazemk/ossms/internal/model"
	"github.com/erazemk/ossms/internal/notify"
	"github.com/erazemk/ossms/internal/store"
)

// Notifier delivers password reset messages.
type Notifier interface {
	SendPasswordReset(ctx context.Context, msg notify.PasswordReset) error
}

// Authentication failures. They are kept apart internally and reported as
// one generic failure to callers outside the process.
var (
	ErrUnknownUser        = &errs.Error{Kind: errs.KindValidation, Message: "unknown user"}
	ErrInvalidCredentials = &errs.Error{Kind: errs.KindValidation, Message: "invalid credentials"}
)

// DefaultTokenTTL is how long a reset token stays valid.
const DefaultTokenTTL = time.Hour

// Options configures a Service.
type Options struct {
	BcryptCost int
	TokenTTL   time.Duration
	ResetURL   string
}

// Service implements the identity operations over a store.
type Service struct {
	store    *store.Store
	notifier Notifier
	cost     int
	tokenTTL time.Duration
	resetURL string
	now      func() time.Time
}

// New returns a Service. Zero options fall back to defaults.
func New(st *store.Store, n Notifier, opts Options) *Service {
	if n == nil {
		n = notify.LogNotifier{}
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	return &Service{
		store:    st,
		notifier: n,
		cost:     opts.BcryptCost,
		tokenTTL: opts.TokenTTL,
		resetURL: opts.ResetURL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HashPassword hashes a password with the given bcrypt cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Authenticate checks a username and password. A missing user yields
// ErrUnknownUser and a wrong password ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	var u *model.User
	err := s.store.View(ctx, func(q store.Querier) error {
		var err error
		u, err = store.GetUserByUsername(ctx, q, strings.TrimSpace(username))
		return err
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnknownUser
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.store.View(ctx, func(q store.Querier) error {
		var err error
		users, err = store.ListUsers(ctx, q)
		return err
	})
	return users, err
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u *model.User
	err := s.store.View(ctx, func(q store.Querier) error {
		var err error
		u, err = store.GetUser(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.NotFound("user not found")
	}
	return u, nil
}

// GetUserByUsername returns a user by username.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u *model.User
	err := s.store.View(ctx, func(q store.Querier) error {
		var err error
		u, err = store.GetUserByUsername(ctx, q, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.NotFound("user not found")
	}
	return u, nil
}

// GetUserByEmail returns a user by email address.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u *model.User
	err := s.store.View(ctx, func(q store.Querier) error {
		var err error
		u, err = store.GetUserByEmail(ctx, q, normalizeEmail(email))
		return err
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.NotFound("user not found")
	}
	return u, nil
}

// NewUser holds the fields for creating a user.
type NewUser struct {
	Username    string
	Password    string
	Firstname   string
	Lastname    string
	Email       string
	Role        string
	Permissions model.Permissions
}

// CreateUser hashes the password and stores a new user.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*model.User, error) {
	u := &model.User{
		Username:    strings.TrimSpace(in.Username),
		Firstname:   strings.TrimSpace(in.Firstname),
		Lastname:    strings.TrimSpace(in.Lastname),
		Email:       normalizeEmail(in.Email),
		Role:        in.Role,
		Permissions: in.Permissions,
	}
	if u.Username == "" {
		return nil, errs.Validation("username is required")
	}
	if u.Email == "" {
		return nil, errs.Validation("email is required")
	}
	if u.Role == "" {
		u.Role = model.RoleViewer
	}
	if !model.ValidRole(u.Role) {
		return nil, errs.Validation("invalid role %q", u.Role)
	}
	if err := model.ValidatePassword(in.Password); err != nil {
		return nil, errs.Validation("%s", err.Error())
	}
	if u.Permissions == nil {
		u.Permissions = model.DefaultPermissions(u.Role)
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash

	err = s.store.Update(ctx, func(q store.Querier) error {
		if err := s.checkUnique(ctx, q, "", u.Username, u.Email); err != nil {
			return err
		}
		return store.CreateUser(ctx, q, u)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user created", "user_id", u.ID, "username", u.Username, "role", u.Role)
	return u, nil
}

// UserPatch is a field mask over a user's profile. A non-nil Password also
// replaces the credential.
type UserPatch struct {
	Username    *string
	Password    *string
	Firstname   *string
	Lastname    *string
	Email       *string
	Role        *string
	Permissions *model.Permissions
}

// UpdateUser applies patch to user id.
func (s *Service) UpdateUser(ctx context.Context, id string, patch UserPatch) (*model.User, error) {
	var hash string
	if patch.Password != nil {
		if err := model.ValidatePassword(*patch.Password); err != nil {
			return nil, errs.Validation("%s", err.Error())
		}
		var err error
		if hash, err = HashPassword(*patch.Password, s.cost); err != nil {
			return nil, err
		}
	}
	if patch.Role != nil && !model.ValidRole(*patch.Role) {
		return nil, errs.Validation("invalid role %q", *patch.Role)
	}

	var u *model.User
	err := s.store.Update(ctx, func(q store.Querier) error {
		var err error
		u, err = store.GetUser(ctx, q, id)
		if err != nil {
			return err
		}
		if u == nil {
			return errs.NotFound("user not found")
		}

		if patch.Username != nil {
			u.Username = strings.TrimSpace(*patch.Username)
			if u.Username == "" {
				return errs.Validation("username is required")
			}
		}
		if patch.Email != nil {
			u.Email = normalizeEmail(*patch.Email)
			if u.Email == "" {
				return errs.Validation("email is required")
			}
		}
		if patch.Firstname != nil {
			u.Firstname = strings.TrimSpace(*patch.Firstname)
		}
		if patch.Lastname != nil {
			u.Lastname = strings.TrimSpace(*patch.Lastname)
		}
		if patch.Role != nil {
			if u.Role == model.RoleAdmin && *patch.Role != model.RoleAdmin {
				if err := requireOtherAdmin(ctx, q, "cannot demote the last administrator"); err != nil {
					return err
				}
			}
			u.Role = *patch.Role
		}
		if patch.Permissions != nil {
			u.Permissions = *patch.Permissions
		}

		if err := s.checkUnique(ctx, q, u.ID, u.Username, u.Email); err != nil {
			return err
		}
		if err := store.UpdateUser(ctx, q, u); err != nil {
			return err
		}
		if hash != "" {
			u.PasswordHash = hash
			return store.UpdateUserPassword(ctx, q, u.ID, hash)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user updated", "user_id", u.ID, "username", u.Username, "password_changed", hash != "")
	return u, nil
}

// SetPassword replaces a user's credential.
func (s *Service) SetPassword(ctx context.Context, id, password string) error {
	_, err := s.UpdateUser(ctx, id, UserPatch{Password: &password})
	return err
}

// ChangePassword replaces a user's credential after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id, current, password string) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return errs.Validation("current password is incorrect")
	}
	return s.SetPassword(ctx, id, password)
}

// DeleteUser removes a user. History rows attributed to the user are kept.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	var u *model.User
	err := s.store.Update(ctx, func(q store.Querier) error {
		var err error
		u, err = store.GetUser(ctx, q, id)
		if err != nil {
			return err
		}
		if u == nil {
			return errs.NotFound("user not found")
		}
		if u.Role == model.RoleAdmin {
			if err := requireOtherAdmin(ctx, q, "cannot delete the last administrator"); err != nil {
				return err
			}
		}
		return store.DeleteUser(ctx, q, id)
	})
	if err != nil {
		return err
	}

	slog.Info("user deleted", "user_id", id, "username", u.Username)
	return nil
}

// requireOtherAdmin fails with msg unless more than one administrator exists.
func requireOtherAdmin(ctx context.Context, q store.Querier, msg string) error {
	n, err := store.CountUsersByRole(ctx, q, model.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return errs.Validation("%s", msg)
	}
	return nil
}

func (s *Service) checkUnique(ctx context.Context, q store.Querier, selfID, username, email string) error {
	other, err := store.GetUserByUsername(ctx, q, username)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return errs.Validation("username already exists")
	}
	other, err = store.GetUserByEmail(ctx, q, email)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return errs.Validation("email already exists")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAuthFailure reports whether err is one of the authentication failures.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnknownUser) || errors.Is(err, ErrInvalidCredentials)
}

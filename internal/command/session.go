package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/erazemk/ossms/internal/auth"
	"github.com/erazemk/ossms/internal/errs"
	"github.com/erazemk/ossms/internal/identity"
	"github.com/erazemk/ossms/internal/metrics"
	"github.com/erazemk/ossms/internal/model"
	"github.com/erazemk/ossms/internal/store"
)

// ErrUnauthenticated is returned when a session token is missing, invalid,
// expired, revoked or names a user that no longer exists.
var ErrUnauthenticated = &errs.Error{Kind: errs.KindValidation, Message: "authentication required"}

// invalidCredentials is the only login failure reported to callers.
const invalidCredentials = "invalid credentials"

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Success   bool        `json:"success"`
	User      *model.User `json:"user,omitempty"`
	Token     string      `json:"token,omitempty"`
	ExpiresAt time.Time   `json:"expires_at,omitzero"`
	Error     string      `json:"error,omitempty"`
}

// Login checks credentials and issues a session token. Unknown users and
// wrong passwords produce the same response.
func (s *Service) Login(ctx context.Context, req LoginRequest) LoginResponse {
	defer metrics.ObserveCommand("login", time.Now())

	if err := check(req); err != nil {
		return LoginResponse{Error: errs.Public(err)}
	}

	u, err := s.identity.Authenticate(ctx, req.Username, req.Password)
	if identity.IsAuthFailure(err) {
		metrics.LoginAttempt(metrics.LoginFailure)
		slog.WarnContext(ctx, "login failed", "username", req.Username, "reason", err)
		return LoginResponse{Error: invalidCredentials}
	}
	if err != nil {
		return LoginResponse{Error: errs.Public(public(ctx, "login", err))}
	}

	token, claims, err := s.sessions.Issue(u)
	if err != nil {
		return LoginResponse{Error: errs.Public(public(ctx, "login", err))}
	}

	metrics.LoginAttempt(metrics.LoginSuccess)
	slog.InfoContext(ctx, "user logged in", "user_id", u.ID, "username", u.Username)

	scrubbed := u.Scrubbed()
	return LoginResponse{
		Success:   true,
		User:      &scrubbed,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}

// Authorize resolves a session token to its user.
func (s *Service) Authorize(ctx context.Context, token string) (*model.User, *auth.Claims, error) {
	if token == "" {
		return nil, nil, ErrUnauthenticated
	}
	claims, err := s.sessions.Verify(token)
	if err != nil {
		slog.DebugContext(ctx, "session rejected", "error", err)
		return nil, nil, ErrUnauthenticated
	}

	var u *model.User
	err = s.store.View(ctx, func(q store.Querier) error {
		revoked, err := store.IsTokenRevoked(ctx, q, claims.ID)
		if err != nil {
			return err
		}
		if revoked {
			return ErrUnauthenticated
		}
		u, err = store.GetUser(ctx, q, claims.UserID())
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUnauthenticated
		}
		return nil
	})
	if errors.Is(err, ErrUnauthenticated) {
		return nil, nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, nil, public(ctx, "authorize", err)
	}
	return u, claims, nil
}

// Logout revokes a session token. Revoking an invalid token fails.
func (s *Service) Logout(ctx context.Context, token string) Result {
	defer metrics.ObserveCommand("logout", time.Now())

	claims, err := s.sessions.Verify(token)
	if err != nil {
		return Result{Error: ErrUnauthenticated.Message, kind: errs.KindValidation}
	}
	err = s.store.Update(ctx, func(q store.Querier) error {
		return store.RevokeToken(ctx, q, claims.ID, claims.ExpiresAt.Time)
	})
	if err != nil {
		return failed(ctx, "logout", err)
	}

	slog.InfoContext(ctx, "user logged out", "user_id", claims.UserID())
	return Result{Success: true, Message: "Logged out"}
}

package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/erazemk/ossms/internal/errs"
	"github.com/erazemk/ossms/internal/metrics"
	"github.com/erazemk/ossms/internal/model"
	"github.com/erazemk/ossms/internal/notify"
	"github.com/erazemk/ossms/internal/store"
)

// Reset token failures, in the order they are checked.
var (
	ErrTokenInvalid  = &errs.Error{Kind: errs.KindValidation, Message: "invalid reset token"}
	ErrTokenExpired  = &errs.Error{Kind: errs.KindValidation, Message: "reset token has expired"}
	ErrTokenUsed     = &errs.Error{Kind: errs.KindValidation, Message: "reset token already used"}
	ErrEmailMismatch = &errs.Error{Kind: errs.KindValidation, Message: "email does not match reset token"}
)

const tokenBytes = 32

// ForgotPassword issues a reset token for the account with email and sends
// it through the notifier.
//
// Expired and used tokens are swept first. The token is committed before the
// store lock is released and the notification is sent outside the lock, so
// a delivery failure leaves a valid token behind and is reported as an
// external service failure. An unknown email is not reported to the caller.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errs.Validation("email is required")
	}

	var (
		user  *model.User
		token *model.PasswordResetToken
	)
	err := s.store.Update(ctx, func(q store.Querier) error {
		now := s.now()
		swept, err := store.SweepResetTokens(ctx, q, now)
		if err != nil {
			return err
		}
		if swept > 0 {
			slog.Info("swept reset tokens", "count", swept)
		}

		user, err = store.GetUserByEmail(ctx, q, email)
		if err != nil || user == nil {
			return err
		}

		secret, err := newToken()
		if err != nil {
			return err
		}
		token = &model.PasswordResetToken{
			UserID:    user.ID,
			Token:     secret,
			ExpiresAt: now.Add(s.tokenTTL),
			CreatedAt: now,
		}
		return store.CreateResetToken(ctx, q, token)
	})
	if err != nil {
		return err
	}

	if user == nil {
		metrics.PasswordReset(metrics.ResetUnknownEmail)
		slog.Warn("password reset requested for unknown email", "email", email)
		return nil
	}
	metrics.PasswordReset(metrics.ResetIssued)

	msg := notify.PasswordReset{
		Email:     user.Email,
		Username:  user.Username,
		Token:     token.Token,
		ResetURL:  s.resetLink(token.Token, user.Email),
		ExpiresAt: token.ExpiresAt,
	}
	if err := s.notifier.SendPasswordReset(ctx, msg); err != nil {
		metrics.PasswordReset(metrics.ResetNotifyFailed)
		slog.Error("failed to send password reset", "user_id", user.ID, "error", err)
		return errs.External("failed to send password reset email", err)
	}

	slog.Info("password reset issued", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token and sets a new password. The token
// must exist, be unexpired and unused, and belong to the account that email
// resolves to; checks stop at the first failure.
func (s *Service) ResetPassword(ctx context.Context, email, token, password string) error {
	if err := model.ValidatePassword(password); err != nil {
		return errs.Validation("%s", err.Error())
	}
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return err
	}

	var userID string
	err = s.store.Update(ctx, func(q store.Querier) error {
		t, err := store.GetResetToken(ctx, q, token)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTokenInvalid
		}
		if t.Expired(s.now()) {
			return ErrTokenExpired
		}
		if t.Used {
			return ErrTokenUsed
		}
		u, err := store.GetUserByEmail(ctx, q, normalizeEmail(email))
		if err != nil {
			return err
		}
		if u == nil || u.ID != t.UserID {
			return ErrEmailMismatch
		}

		userID = u.ID
		if err := store.UpdateUserPassword(ctx, q, u.ID, hash); err != nil {
			return err
		}
		return store.MarkResetTokenUsed(ctx, q, t.ID)
	})
	if err != nil {
		metrics.PasswordReset(metrics.ResetRejected)
		return err
	}

	metrics.PasswordReset(metrics.ResetConsumed)
	slog.Info("password reset completed", "user_id", userID)
	return nil
}

func (s *Service) resetLink(token, email string) string {
	if s.resetURL == "" {
		return ""
	}
	v := url.Values{}
	v.Set("token", token)
	v.Set("email", email)
	return s.resetURL + "?" + v.Encode()
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

package command

import (
	"context"
	"time"

	"github.com/erazemk/ossms/internal/metrics"
)

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ForgotPassword issues a reset token and sends the reset link. The response
// is the same whether or not the email belongs to an account.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) Result {
	defer metrics.ObserveCommand("forgot_password", time.Now())

	if err := check(req); err != nil {
		return rejected(err)
	}
	if err := s.identity.ForgotPassword(ctx, req.Email); err != nil {
		return failed(ctx, "forgot_password", err)
	}
	return Result{Success: true, Message: "If the email is registered, a reset link has been sent"}
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) Result {
	defer metrics.ObserveCommand("reset_password", time.Now())

	if err := check(req); err != nil {
		return rejected(err)
	}
	if err := s.identity.ResetPassword(ctx, req.Email, req.Token, req.NewPassword); err != nil {
		return failed(ctx, "reset_password", err)
	}
	return Result{Success: true, Message: "Password reset successfully"}
}

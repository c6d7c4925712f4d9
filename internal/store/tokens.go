package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/ossms/internal/model"
)

// RevokeToken adds a session token's JTI to the revocation list.
func RevokeToken(ctx context.Context, q Querier, jti string, expiresAt time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	// Opportunistically clean up expired revocations.
	_, _ = q.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE julianday(expires_at) < julianday(?)`, now(),
	)

	return nil
}

// IsTokenRevoked checks if a session token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, q Querier, jti string) (bool, error) {
	var count int
	if err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti); err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}

const resetTokenColumns = `id, user_id, token, expires_at, used, created_at`

// CreateResetToken stores a password reset token.
func CreateResetToken(ctx context.Context, q Querier, t *model.PasswordResetToken) error {
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedAt = orNow(t.CreatedAt)
	t.ExpiresAt = t.ExpiresAt.UTC()

	_, err := q.NamedExecContext(ctx,
		`INSERT INTO password_reset_tokens (`+resetTokenColumns+`)
		 VALUES (:id, :user_id, :token, :expires_at, :used, :created_at)`,
		t,
	)
	if err != nil {
		return fmt.Errorf("creating reset token: %w", err)
	}
	return nil
}

// GetResetToken looks up a reset token by its secret value.
func GetResetToken(ctx context.Context, q Querier, token string) (*model.PasswordResetToken, error) {
	t := &model.PasswordResetToken{}
	err := q.GetContext(ctx, t, `SELECT `+resetTokenColumns+` FROM password_reset_tokens WHERE token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting reset token: %w", err)
	}
	return t, nil
}

// MarkResetTokenUsed flags a reset token as consumed.
func MarkResetTokenUsed(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx, `UPDATE password_reset_tokens SET used = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking reset token used: %w", err)
	}
	return nil
}

// SweepResetTokens deletes reset tokens that are used or expired at now and
// returns how many were removed.
func SweepResetTokens(ctx context.Context, q Querier, now time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE used = 1 OR julianday(expires_at) <= julianday(?)`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sweeping reset tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

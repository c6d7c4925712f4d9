package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/ossms/internal/model"
)

func testUser() *model.User {
	return &model.User{ID: "3f1c0e9a", Username: "admin", Role: model.RoleAdmin}
}

func TestIssueAndVerify(t *testing.T) {
	s := NewSessions("test-secret-key", 0)

	token, issued, err := s.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if claims.UserID() != "3f1c0e9a" {
		t.Errorf("expected user id '3f1c0e9a', got %q", claims.UserID())
	}
	if claims.Username != "admin" {
		t.Errorf("expected username 'admin', got %q", claims.Username)
	}
	if claims.Role != model.RoleAdmin {
		t.Errorf("expected role 'admin', got %q", claims.Role)
	}
	if claims.ID != issued.ID || claims.ID == "" {
		t.Errorf("expected token id %q, got %q", issued.ID, claims.ID)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	s := NewSessions("secret", 0)
	_, a, _ := s.Issue(testUser())
	_, b, _ := s.Issue(testUser())
	if a.ID == b.ID {
		t.Errorf("expected distinct token ids, got %q twice", a.ID)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, _ := NewSessions("secret1", 0).Issue(testUser())

	_, err := NewSessions("secret2", 0).Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyInvalid(t *testing.T) {
	_, err := NewSessions("secret", 0).Verify("not-a-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	s := NewSessions("secret", time.Minute)
	issuedAt := time.Now().Add(-time.Hour)
	s.now = func() time.Time { return issuedAt }
	token, _, err := s.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	s.now = time.Now
	if _, err := s.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    Issuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := NewSessions("secret", 0).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for unsigned token, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	s := NewSessions("test", 2*time.Hour)
	token, _, _ := s.Issue(testUser())
	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	diff := time.Now().Add(2 * time.Hour).Sub(claims.ExpiresAt.Time)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

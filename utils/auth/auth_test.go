package auth

import (
	"errors"
	"testing"
	"time"
)

func testManager() *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        "test-secret-not-for-production",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "postforge-api",
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()
	token, jti, err := m.GenerateAccessToken(42, "editor@example.com", "editor", 1)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if jti == "" {
		t.Error("empty jti")
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "editor@example.com" || claims.Role != "editor" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.TokenType != "access" {
		t.Errorf("token type = %q", claims.TokenType)
	}
	if claims.ID != jti {
		t.Errorf("claims jti = %q, want %q", claims.ID, jti)
	}
}

func TestRefreshTokenType(t *testing.T) {
	m := testManager()
	token, _, err := m.GenerateRefreshToken(7, "a@b.c", "admin", 0)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != "refresh" {
		t.Errorf("token type = %q", claims.TokenType)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, err := testManager().GenerateAccessToken(1, "a@b.c", "editor", 0)
	if err != nil {
		t.Fatal(err)
	}
	other := NewJWTManager(JWTConfig{Secret: "different", Expiry: time.Hour, RefreshExpiry: time.Hour, Issuer: "postforge-api"})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret accepted")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	m := NewJWTManager(JWTConfig{
		Secret: "test-secret", Expiry: -time.Minute, RefreshExpiry: time.Hour, Issuer: "postforge-api",
	})
	token, _, err := m.GenerateAccessToken(1, "a@b.c", "editor", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token accepted")
	}
	if !m.IsTokenExpired(token) {
		t.Error("IsTokenExpired = false for an expired token")
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("password stored in plain text")
	}
	if err := VerifyPassword(hash, "correct horse battery"); err != nil {
		t.Errorf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("wrong password err = %v, want ErrPasswordMismatch", err)
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("err = %v, want ErrPasswordTooShort", err)
	}
	if IsPasswordValid("short") {
		t.Error("7-char password accepted")
	}
	if !IsPasswordValid("12345678") {
		t.Error("8-char password rejected")
	}
}

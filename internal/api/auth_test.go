package api

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	return tokenString
}

func TestAuthManager_ValidateToken(t *testing.T) {
	authManager := NewAuthManager(testSecret)

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	userID, err := authManager.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("Expected user ID %s, got %s", "user-1", userID)
	}
}

func TestAuthManager_ValidateToken_SubjectFallback(t *testing.T) {
	authManager := NewAuthManager(testSecret)

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-2",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	userID, err := authManager.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if userID != "user-2" {
		t.Errorf("Expected user ID %s, got %s", "user-2", userID)
	}
}

func TestAuthManager_ValidateToken_InvalidSecret(t *testing.T) {
	authManager := NewAuthManager(testSecret)

	tokenString := signToken(t, "wrong-secret", jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	if _, err := authManager.ValidateToken(tokenString); err == nil {
		t.Error("Expected error for token with wrong secret")
	}
}

func TestAuthManager_ValidateToken_Expired(t *testing.T) {
	authManager := NewAuthManager(testSecret)

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := authManager.ValidateToken(tokenString); err == nil {
		t.Error("Expected error for expired token")
	}
}

func TestAuthManager_ValidateToken_MissingUser(t *testing.T) {
	authManager := NewAuthManager(testSecret)

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := authManager.ValidateToken(tokenString); err == nil {
		t.Error("Expected error for token without a user")
	}
}

func TestAuthManager_Enabled(t *testing.T) {
	if NewAuthManager("").Enabled() {
		t.Error("Expected auth to be disabled without a secret")
	}
	if !NewAuthManager(testSecret).Enabled() {
		t.Error("Expected auth to be enabled with a secret")
	}
}

func TestAuthManager_ExtractTokenFromHeader(t *testing.T) {
	authManager := NewAuthManager(testSecret)

	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{header: "Bearer test-token", want: "test-token"},
		{header: "bearer test-token", want: "test-token"},
		{header: "test-token", want: "test-token"},
		{header: "Basic abc", wantErr: true},
		{header: "Bearer a b", wantErr: true},
		{header: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := authManager.ExtractTokenFromHeader(tt.header)
		if tt.wantErr {
			if err == nil {
				t.Errorf("header %q: expected error", tt.header)
			}
			continue
		}
		if err != nil {
			t.Errorf("header %q: unexpected error %v", tt.header, err)
			continue
		}
		if got != tt.want {
			t.Errorf("header %q: expected %s, got %s", tt.header, tt.want, got)
		}
	}

	if _, err := authManager.ExtractTokenFromHeader(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("Expected ErrMissingToken, got %v", err)
	}
}

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewSigner_RequiresSecret(t *testing.T) {
	if _, err := NewSigner(""); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("Expected ErrMissingSecret, got %v", err)
	}
}

func TestSigner_RoundTrip(t *testing.T) {
	signer, err := NewSigner("s3cret")
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}

	tests := []struct {
		name          string
		generate      func() (string, error)
		wantRole      string
		wantPrincipal string
	}{
		{name: "device", generate: func() (string, error) { return signer.GenerateDeviceToken("dev-1") }, wantRole: RoleDevice, wantPrincipal: "dev-1"},
		{name: "user", generate: func() (string, error) { return signer.GenerateUserToken("user-1") }, wantRole: RoleUser, wantPrincipal: "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.generate()
			if err != nil {
				t.Fatalf("generate error = %v", err)
			}

			claims, err := signer.ValidateToken(token)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims.Role != tt.wantRole || claims.Principal() != tt.wantPrincipal {
				t.Errorf("Unexpected claims %+v", claims)
			}
		})
	}
}

func TestSigner_Rejects(t *testing.T) {
	signer, _ := NewSigner("s3cret")
	other, _ := NewSigner("different")

	foreign, _ := other.GenerateUserToken("user-1")
	if _, err := signer.ValidateToken(foreign); err == nil {
		t.Error("Expected a token signed with another secret to be rejected")
	}

	expired, _ := NewSigner("s3cret")
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	stale, _ := expired.GenerateDeviceToken("dev-1")
	if _, err := signer.ValidateToken(stale); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}

	unknownRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{UserID: "u", Role: "admin"}).SignedString([]byte("s3cret"))
	if _, err := signer.ValidateToken(unknownRole); err == nil {
		t.Error("Expected a token with an unknown role to be rejected")
	}

	if _, err := signer.ValidateToken("not-a-token"); err == nil {
		t.Error("Expected garbage to be rejected")
	}
}

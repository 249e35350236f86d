package identity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tably/checkout/internal/identity"
)

func signedToken(t *testing.T, claims identity.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("whatever"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestDecode(t *testing.T) {
	userID := uuid.New()
	token := signedToken(t, identity.Claims{
		UserID: userID,
		Name:   "Claire Dupont",
		Phone:  "0612345678",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := identity.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if got := claims.DisplayName(); got != "Claire Dupont" {
		t.Errorf("display name = %q", got)
	}
	if claims.Phone != "0612345678" {
		t.Errorf("phone = %q", claims.Phone)
	}
}

func TestDecodeExpired(t *testing.T) {
	token := signedToken(t, identity.Claims{
		Name: "Claire",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := identity.Decode(token)
	if !errors.Is(err, identity.ErrTokenExpired) {
		t.Errorf("got %v, want ErrTokenExpired", err)
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, err := identity.Decode(""); !errors.Is(err, identity.ErrNoToken) {
		t.Errorf("got %v, want ErrNoToken", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := identity.Decode("not-a-token"); err == nil {
		t.Error("want error for malformed token")
	}
}

func TestDisplayNameFallsBackToSubject(t *testing.T) {
	token := signedToken(t, identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	claims, err := identity.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := claims.DisplayName(); got != "user-42" {
		t.Errorf("display name = %q, want user-42", got)
	}
}

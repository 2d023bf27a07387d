package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("testpass123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "testpass123" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "testpass123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrongpassword") {
		t.Error("wrong password accepted")
	}
}

func TestCheckPasswordWithoutAccount(t *testing.T) {
	dummyHash()
	start := time.Now()
	if CheckPassword("", "testpass123") {
		t.Fatal("empty hash matched")
	}
	// a skipped comparison returns in microseconds; bcrypt at default cost does not
	if took := time.Since(start); took < time.Millisecond {
		t.Errorf("missing account answered in %v, without a bcrypt comparison", took)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	g := NewGuard("test-secret", time.Minute)
	tok, err := g.MakeToken("user-1")
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	c, err := g.ParseToken(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.UserID != "user-1" {
		t.Errorf("uid: got %s", c.UserID)
	}
	if got := c.ExpiresAt.Sub(c.IssuedAt.Time); got != time.Minute {
		t.Errorf("ttl: got %v", got)
	}
}

func TestDefaultTTL(t *testing.T) {
	if got := NewGuard("s", 0).TTL(); got != 15*time.Minute {
		t.Errorf("default ttl: got %v", got)
	}
}

func TestExpiredToken(t *testing.T) {
	g := NewGuard("test-secret", time.Minute)
	g.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, _ := g.MakeToken("user-1")

	g.now = time.Now
	if _, err := g.ParseToken(tok); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
	if _, err := g.Authenticate("Bearer " + tok); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}

func TestWrongSecret(t *testing.T) {
	tok, _ := NewGuard("secret-a", time.Minute).MakeToken("user-1")
	if _, err := NewGuard("secret-b", time.Minute).ParseToken(tok); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestAlgConfusionRejected(t *testing.T) {
	c := Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewGuard("test-secret", time.Minute).ParseToken(tok); err == nil {
		t.Fatal("unsigned token accepted")
	}
}

func TestAuthenticate(t *testing.T) {
	g := NewGuard("test-secret", time.Minute)
	tok, _ := g.MakeToken("user-1")

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"bearer", "Bearer " + tok, true},
		{"lowercase scheme", "bearer " + tok, true},
		{"extra spaces", "  Bearer   " + tok + " ", true},
		{"empty", "", false},
		{"no scheme", tok, false},
		{"basic scheme", "Basic " + tok, false},
		{"bearer only", "Bearer", false},
		{"garbage token", "Bearer not.a.jwt", false},
		{"trailing part", "Bearer " + tok + " extra", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uid, err := g.Authenticate(tt.header)
			if tt.ok {
				if err != nil || uid != "user-1" {
					t.Fatalf("got %q, %v", uid, err)
				}
				return
			}
			if !errors.Is(err, ErrBadToken) {
				t.Fatalf("expected ErrBadToken, got %v", err)
			}
		})
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(raw) != 64 || strings.Trim(raw, "0123456789abcdef") != "" {
		t.Errorf("raw token not 32 hex bytes: %s", raw)
	}
	if hash != HashRefreshToken(raw) {
		t.Error("hash mismatch")
	}
	raw2, _, _ := GenerateRefreshToken()
	if raw == raw2 {
		t.Error("tokens repeat")
	}
}

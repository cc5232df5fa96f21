package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(secret string) *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(secret),
		Issuer:        "plume-auth",
		Audience:      "plume-api",
		TokenTTL:      30 * time.Minute,
	})
}

func TestTokenIssuerIssuesSessionTokens(t *testing.T) {
	issuer := newTestIssuer("super-secret")

	tokenString, expiresIn, err := issuer.IssueSessionToken(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}
	if expiresIn <= 0 {
		t.Fatalf("expected positive expiry seconds, got %d", expiresIn)
	}

	parser := jwt.Parser{}
	claims := &jwt.RegisteredClaims{}
	_, err = parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	})
	if err != nil {
		t.Fatalf("failed to parse generated token: %v", err)
	}

	if claims.Subject != "user-123" {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.Issuer != "plume-auth" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != "plume-api" {
		t.Fatalf("unexpected audience %#v", claims.Audience)
	}
}

func TestTokenIssuerRejectsMissingSecret(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		Issuer:   "plume-auth",
		Audience: "plume-api",
	})
	if _, _, err := issuer.IssueSessionToken(context.Background(), "user-1"); err == nil {
		t.Fatalf("expected issuance to fail without a secret")
	}
}

func TestTokenIssuerRejectsEmptySubject(t *testing.T) {
	issuer := newTestIssuer("secret-value")
	if _, _, err := issuer.IssueSessionToken(context.Background(), ""); err == nil {
		t.Fatalf("expected issuance to fail without a subject")
	}
}

func TestTokenIssuerValidatesIssuedTokens(t *testing.T) {
	issuer := newTestIssuer("another-secret")

	tokenString, _, err := issuer.IssueSessionToken(context.Background(), "user-321")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	subject, err := issuer.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("expected validation success: %v", err)
	}
	if subject != "user-321" {
		t.Fatalf("unexpected subject %s", subject)
	}

	if _, err := issuer.ValidateToken("invalid.token"); err == nil {
		t.Fatalf("expected validation to fail for malformed token")
	}
}

func TestTokenIssuerRejectsForeignSignature(t *testing.T) {
	issuer := newTestIssuer("secret-a")
	foreign := newTestIssuer("secret-b")

	tokenString, _, err := foreign.IssueSessionToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}
	if _, err := issuer.ValidateToken(tokenString); err == nil {
		t.Fatalf("expected validation to reject a token signed with another secret")
	}
}

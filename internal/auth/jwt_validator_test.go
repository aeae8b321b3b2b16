package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var validatorNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func buildToken(t *testing.T, mutate func(*jwt.Builder) *jwt.Builder) jwt.Token {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer("tour-idp").
		Audience([]string{"backend-tour"}).
		Subject("user-1").
		IssuedAt(validatorNow).
		NotBefore(validatorNow).
		Expiration(validatorNow.Add(time.Hour))
	if mutate != nil {
		b = mutate(b)
	}
	tok, err := b.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	return tok
}

func testValidator() TokenValidator {
	return TokenValidator{Issuer: "tour-idp", Audience: "backend-tour", ClockSkew: time.Second, Algorithm: jwa.HS256}
}

func TestTokenValidatorAcceptsValidToken(t *testing.T) {
	if err := testValidator().Validate(buildToken(t, nil), jwa.HS256, validatorNow); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestTokenValidatorRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*jwt.Builder) *jwt.Builder
		alg    jwa.SignatureAlgorithm
		want   error
	}{
		{name: "issuer", mutate: func(b *jwt.Builder) *jwt.Builder { return b.Issuer("other") }, alg: jwa.HS256},
		{name: "audience", mutate: func(b *jwt.Builder) *jwt.Builder { return b.Audience([]string{"shop"}) }, alg: jwa.HS256},
		{name: "expired", mutate: func(b *jwt.Builder) *jwt.Builder { return b.Expiration(validatorNow.Add(-time.Minute)) }, alg: jwa.HS256},
		{name: "not yet valid", mutate: func(b *jwt.Builder) *jwt.Builder { return b.NotBefore(validatorNow.Add(5 * time.Minute)) }, alg: jwa.HS256},
		{name: "algorithm", alg: jwa.RS256},
		{name: "missing algorithm", alg: ""},
		{name: "subject", mutate: func(b *jwt.Builder) *jwt.Builder { return b.Subject("  ") }, alg: jwa.HS256, want: ErrMissingSubject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := testValidator().Validate(buildToken(t, tc.mutate), tc.alg, validatorNow)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTokenValidatorRequiresExpiry(t *testing.T) {
	tok, err := jwt.NewBuilder().Subject("user-1").Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	if err := (TokenValidator{Algorithm: jwa.HS256}).Validate(tok, jwa.HS256, validatorNow); !errors.Is(err, ErrMissingExpiry) {
		t.Fatalf("expected ErrMissingExpiry, got %v", err)
	}
}

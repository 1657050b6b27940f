// Package jwt verifica bearer tokens HS256 emitidos por el servicio de cuentas.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-coordination/internal/ports/auth"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var ErrNotConfigured = errors.New("jwt verifier not configured")

type Config struct {
	Secret string
	// Issuer opcional; si está, el claim iss tiene que coincidir.
	Issuer string
	Leeway time.Duration
}

// tokenClaims: sub es el user id. username y email son opcionales.
type tokenClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	gojwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	parser *gojwt.Parser
}

func NewVerifier(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrNotConfigured
	}
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithLeeway(cfg.Leeway),
	}
	if iss := strings.TrimSpace(cfg.Issuer); iss != "" {
		opts = append(opts, gojwt.WithIssuer(iss))
	}
	return &Verifier{secret: []byte(secret), parser: gojwt.NewParser(opts...)}, nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	var parsed tokenClaims
	_, err := v.parser.ParseWithClaims(strings.TrimSpace(token), &parsed, func(*gojwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	uid := strings.TrimSpace(parsed.Subject)
	if uid == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing sub", auth.ErrInvalidToken)
	}
	return auth.Claims{
		UserID:   uid,
		Username: strings.TrimSpace(parsed.Username),
		Email:    strings.TrimSpace(parsed.Email),
	}, nil
}

// Issue firma un token para userID. Lo usan los tests y herramientas locales.
func Issue(cfg Config, userID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Username: username,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

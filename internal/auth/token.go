package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the typ claim.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongKind    = errors.New("unexpected token kind")
)

// Claims mirror the subset of hosted-auth claims the board relies on.
type Claims struct {
	Email string `json:"email,omitempty"`
	Kind  string `json:"typ,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens with a shared secret.
type Tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokens builds a signer/verifier. A zero TTL falls back to one hour for
// access tokens and thirty days for refresh tokens.
func NewTokens(secret string, accessTTL, refreshTTL time.Duration) *Tokens {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Tokens{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue returns an access and a refresh token for the subject.
func (t *Tokens) Issue(subject, email string) (access, refresh string, err error) {
	access, err = t.sign(subject, email, KindAccess, t.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = t.sign(subject, email, KindRefresh, t.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *Tokens) sign(subject, email, kind string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := &Claims{
		Email: email,
		Kind:  kind,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature and expiry and returns the claims. Tokens
// issued by the hosted auth service carry no typ claim and are accepted as
// access tokens.
func (t *Tokens) Verify(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Kind == KindRefresh {
		return nil, ErrWrongKind
	}
	return claims, nil
}

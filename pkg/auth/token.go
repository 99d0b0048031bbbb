// Package auth hashes passwords and issues and verifies session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = 7 * 24 * time.Hour

var (
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("auth: token signing secret not configured")

	// ErrInvalidToken covers every token that fails verification.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is the account a token is issued for.
type Identity struct {
	UserID   string
	Email    string
	Nickname string
}

// Claims are the verified contents of a session token.
type Claims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer signs session tokens.
type Issuer interface {
	Issue(id Identity) (string, error)
}

// Verifier checks session tokens. Any failure yields ErrInvalidToken.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// tokenClaims is the JWT payload. Field names match the tokens issued by the
// web client so existing sessions keep decoding.
type tokenClaims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}

func (tc *tokenClaims) toClaims() *Claims {
	c := &Claims{UserID: tc.UserID, Email: tc.Email, Nickname: tc.Nickname}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var (
	_ Issuer   = (*TokenManager)(nil)
	_ Verifier = (*TokenManager)(nil)
)

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithTTL overrides TokenTTL.
func WithTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) { m.ttl = ttl }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager returns a manager signing with secret.
func NewTokenManager(secret string, opts ...TokenOption) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	m := &TokenManager{secret: []byte(secret), ttl: TokenTTL, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a token for id that expires after the configured TTL.
func (m *TokenManager) Issue(id Identity) (string, error) {
	now := m.now()
	claims := tokenClaims{
		UserID:   id.UserID,
		Email:    id.Email,
		Nickname: id.Nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry.
func (m *TokenManager) Verify(token string) (*Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return tc.toClaims(), nil
}

// DecodeUnverified reads the claims without checking the signature. Use it
// only to display who a locally stored token belongs to.
func DecodeUnverified(token string) (*Claims, error) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return tc.toClaims(), nil
}

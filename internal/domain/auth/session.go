// Package auth verifies session tokens issued by the identity layer.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid session token")

type accountKey struct{}

// WithAccount returns a context carrying the authenticated account id.
func WithAccount(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountKey{}, accountID)
}

// AccountID returns the authenticated account id, or "" for anonymous requests.
func AccountID(ctx context.Context) string {
	id, _ := ctx.Value(accountKey{}).(string)
	return id
}

// Sessions signs and verifies HS256 session tokens whose subject is the
// account id.
type Sessions struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewSessions creates a Sessions for the shared secret. An empty issuer
// disables the issuer check.
func NewSessions(secret []byte, issuer string) *Sessions {
	return &Sessions{secret: secret, issuer: issuer, now: time.Now}
}

// Issue mints a token for accountID valid for ttl.
func (s *Sessions) Issue(accountID string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}

// Verify parses a bearer token and returns a context carrying its account id.
func (s *Sessions) Verify(ctx context.Context, token string) (context.Context, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...); err != nil {
		return ctx, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return ctx, ErrInvalidToken
	}
	return WithAccount(ctx, claims.Subject), nil
}

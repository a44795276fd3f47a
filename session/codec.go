// Package session issues and decodes the signed session credential stored in
// the access_token cookie.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the session lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

// ErrInvalidCredential is the only error Decode returns. Bad signatures,
// algorithm mismatches, expired tokens and malformed subjects all collapse to it.
var ErrInvalidCredential = errors.New("invalid credential")

// Config holds the codec settings fixed at process start.
type Config struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
}

// Codec signs and verifies session tokens with a symmetric secret.
// It is immutable and safe for concurrent use.
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec returns a Codec for an HMAC algorithm (HS256, HS384 or HS512).
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported session algorithm %q", cfg.Algorithm)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the configured default lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subjectID that expires ttl from now.
// A non-positive ttl uses the configured default.
func (c *Codec) Issue(subjectID int64, ttl time.Duration) (string, error) {
	if subjectID <= 0 {
		return "", fmt.Errorf("invalid subject id %d", subjectID)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(subjectID, 10),
		ExpiresAt: jwt.NewNumericDate(c.now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Decode verifies the signature and expiry and returns the subject id.
// The token is rejected once the clock reaches its expiry.
func (c *Codec) Decode(token string) (int64, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidCredential
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidCredential
	}
	return id, nil
}

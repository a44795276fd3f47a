// Package googleid verifies Google-issued OpenID Connect ID tokens and
// extracts the identity they assert.
package googleid

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidIdentityToken matches every *TokenError returned by Verify
	ErrInvalidIdentityToken = errors.New("invalid identity token")

	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidIssuer    = errors.New("invalid issuer")
	ErrInvalidAudience  = errors.New("invalid audience")
	ErrMissingClaim     = errors.New("missing required claim")
	ErrNotConfigured    = errors.New("identity verification not configured")
)

// TokenError describes why a provider token was rejected.
// Reason is safe to show to the caller.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid identity token: %s: %v", e.Reason, e.Err)
	}
	return "invalid identity token: " + e.Reason
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidIdentityToken) match any TokenError.
func (e *TokenError) Is(target error) bool {
	return target == ErrInvalidIdentityToken
}

func rejected(reason string, err error) *TokenError {
	return &TokenError{Reason: reason, Err: err}
}

// KeySource resolves the provider's public signing key for a key id.
type KeySource interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Claims is the subset of the Google ID token payload this service reads
type Claims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Identity is the normalized result of a successful verification
type Identity struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// Config holds verifier settings
type Config struct {
	// ClientID is the expected audience. An empty value rejects every token.
	ClientID string
	Issuers  []string
}

// Verifier checks signature, expiry, audience and issuer of Google ID tokens.
// It holds no mutable state of its own; key caching lives in the KeySource.
type Verifier struct {
	clientID string
	issuers  map[string]struct{}
	keys     KeySource
	now      func() time.Time
}

// NewVerifier creates a Verifier that resolves signing keys through keys
func NewVerifier(cfg Config, keys KeySource) *Verifier {
	issuers := make(map[string]struct{}, len(cfg.Issuers))
	for _, iss := range cfg.Issuers {
		issuers[iss] = struct{}{}
	}
	return &Verifier{
		clientID: cfg.ClientID,
		issuers:  issuers,
		keys:     keys,
		now:      time.Now,
	}
}

// Verify validates a provider ID token and returns the identity it carries.
// All failures are *TokenError values.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if v.clientID == "" || v.keys == nil {
		return nil, rejected("Verification is not configured", ErrNotConfigured)
	}
	if strings.TrimSpace(token) == "" {
		return nil, rejected("Token is empty", ErrMalformedToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("%w: kid header not found", ErrKeyNotFound)
		}
		return v.keys.PublicKey(ctx, kid)
	})
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, rejected("Token verification failed", ErrInvalidSignature)
	}

	if _, ok := v.issuers[claims.Issuer]; !ok {
		return nil, rejected("Wrong issuer.", fmt.Errorf("%w: %q", ErrInvalidIssuer, claims.Issuer))
	}
	if claims.Subject == "" {
		return nil, rejected("Token has no subject", fmt.Errorf("%w: sub", ErrMissingClaim))
	}
	if claims.Email == "" {
		return nil, rejected("Token has no email", fmt.Errorf("%w: email", ErrMissingClaim))
	}

	return &Identity{
		Subject:    claims.Subject,
		Email:      claims.Email,
		GivenName:  strings.TrimSpace(claims.GivenName),
		FamilyName: strings.TrimSpace(claims.FamilyName),
	}, nil
}

// classify maps parser errors to a caller-facing reason.
// Expiry is checked first because the validator joins every failed claim check.
func classify(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return rejected("Token expired", ErrTokenExpired)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return rejected("Token has wrong audience", ErrInvalidAudience)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return rejected("Token has no expiry", fmt.Errorf("%w: exp", ErrMissingClaim))
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return rejected("Token is not valid yet", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return rejected("Malformed token", ErrMalformedToken)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return rejected("Could not verify token signature", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return rejected("Invalid token signature", ErrInvalidSignature)
	default:
		return rejected("Token verification failed", err)
	}
}

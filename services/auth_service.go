package services

import (
	"context"
	"errors"
	"time"

	"github.com/upb/identity-gateway/googleid"
	"github.com/upb/identity-gateway/models"
	"go.uber.org/zap"
)

// IdentityVerifier verifies a provider ID token
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*googleid.Identity, error)
}

// SessionIssuer signs session credentials for an account id
type SessionIssuer interface {
	Issue(subjectID int64, ttl time.Duration) (string, error)
}

// LoginResult is the outcome of a successful login
type LoginResult struct {
	Account      *models.Account
	Created      bool
	SessionToken string
}

// AuthService runs the login pipeline: verify, domain gate, resolve, issue
type AuthService struct {
	verifier IdentityVerifier
	policy   *AccessPolicy
	resolver *AccountResolver
	sessions SessionIssuer
	ttl      time.Duration
	logger   *zap.Logger
}

// NewAuthService creates a new auth service. A zero ttl uses the issuer's default.
func NewAuthService(verifier IdentityVerifier, policy *AccessPolicy, resolver *AccountResolver, sessions SessionIssuer, ttl time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		verifier: verifier,
		policy:   policy,
		resolver: resolver,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
	}
}

// Login exchanges a provider ID token for a session credential.
// A disallowed domain is rejected before any account is read or written.
func (s *AuthService) Login(ctx context.Context, providerToken string) (*LoginResult, error) {
	identity, err := s.verifier.Verify(ctx, providerToken)
	if err != nil {
		var tokenErr *googleid.TokenError
		if errors.As(err, &tokenErr) {
			return nil, InvalidIdentityToken(tokenErr.Reason, err)
		}
		return nil, InvalidIdentityToken("Token verification failed", err)
	}

	if !s.policy.IsDomainAllowed(identity.Email) {
		s.logger.Warn("login rejected: domain not allowed",
			zap.String("email_domain", models.EmailDomain(identity.Email)))
		return nil, ErrDomainNotAllowed
	}

	acct, created, err := s.resolver.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	token, err := s.sessions.Issue(acct.ID, s.ttl)
	if err != nil {
		return nil, WrapInternal("failed to issue session", err)
	}

	return &LoginResult{
		Account:      acct,
		Created:      created,
		SessionToken: token,
	}, nil
}

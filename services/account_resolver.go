package services

import (
	"context"
	"errors"

	"github.com/upb/identity-gateway/googleid"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/repositories"
	"go.uber.org/zap"
)

// ResolverOptions tunes AccountResolver behavior
type ResolverOptions struct {
	// SyncNamesOnLogin copies claim names onto an existing account where its names are blank
	SyncNamesOnLogin bool
}

// AccountResolver finds or provisions the local account for a verified identity.
// Callers must check the domain allow-list before calling Resolve.
type AccountResolver struct {
	accounts  repositories.AccountRepository
	policy    *AccessPolicy
	logger    *zap.Logger
	syncNames bool
}

// NewAccountResolver creates a new account resolver
func NewAccountResolver(accounts repositories.AccountRepository, policy *AccessPolicy, logger *zap.Logger, opts ResolverOptions) *AccountResolver {
	return &AccountResolver{
		accounts:  accounts,
		policy:    policy,
		logger:    logger,
		syncNames: opts.SyncNamesOnLogin,
	}
}

// Resolve returns the account for identity and whether it was created by this call.
// An existing client account is promoted when its email is on the admin list. Roles never go down.
func (r *AccountResolver) Resolve(ctx context.Context, identity *googleid.Identity) (*models.Account, bool, error) {
	acct, err := r.accounts.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		acct, err = r.reconcile(ctx, acct, identity)
		return acct, false, err
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, false, WrapInternal("failed to look up account", err)
	}

	role := models.RoleClient
	if r.policy.IsAdminEmail(identity.Email) {
		role = models.RoleAdmin
	}

	acct = models.NewAccount(identity.Email, identity.GivenName, identity.FamilyName, role)
	err = r.accounts.Create(ctx, acct)
	if err == nil {
		r.logger.Info("account created",
			zap.Int64("account_id", acct.ID),
			zap.String("role", string(acct.Role)),
		)
		return acct, true, nil
	}
	if !errors.Is(err, repositories.ErrDuplicateEmail) {
		return nil, false, WrapInternal("failed to create account", err)
	}

	// a concurrent login inserted the same email first
	r.logger.Debug("account insert raced, re-reading", zap.String("email_domain", models.EmailDomain(identity.Email)))
	acct, err = r.accounts.GetByEmail(ctx, identity.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		// the row that beat us was removed before the re-read
		return nil, false, ErrAccountChanged
	}
	if err != nil {
		return nil, false, WrapInternal("failed to re-read account after duplicate insert", err)
	}
	acct, err = r.reconcile(ctx, acct, identity)
	return acct, false, err
}

func (r *AccountResolver) reconcile(ctx context.Context, acct *models.Account, identity *googleid.Identity) (*models.Account, error) {
	if acct.Role == models.RoleClient && r.policy.IsAdminEmail(acct.Email) {
		promoted, err := r.accounts.PromoteToAdmin(ctx, acct.ID)
		if err != nil {
			return nil, WrapInternal("failed to promote account", err)
		}
		r.logger.Info("account promoted to admin", zap.Int64("account_id", acct.ID))
		acct = promoted
	}

	if r.syncNames && needsNames(acct, identity) {
		filled, err := r.accounts.FillMissingNames(ctx, acct.ID,
			models.OptionalString(identity.GivenName),
			models.OptionalString(identity.FamilyName))
		if err != nil {
			return nil, WrapInternal("failed to sync account names", err)
		}
		acct = filled
	}

	return acct, nil
}

// needsNames reports whether the claim can fill a blank stored name
func needsNames(acct *models.Account, identity *googleid.Identity) bool {
	blank := func(s *string) bool { return models.OptionalString(derefString(s)) == nil }
	return (blank(acct.FirstName) && identity.GivenName != "") ||
		(blank(acct.LastName) && identity.FamilyName != "")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

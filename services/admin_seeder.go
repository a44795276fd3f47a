package services

import (
	"context"
	"errors"
	"sort"

	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/repositories"
	"go.uber.org/zap"
)

// AdminSeeder makes sure every configured admin email has an admin account
type AdminSeeder struct {
	accounts repositories.AccountRepository
	txMgr    repositories.TransactionManager
	policy   *AccessPolicy
	logger   *zap.Logger
}

// NewAdminSeeder creates a new admin seeder
func NewAdminSeeder(accounts repositories.AccountRepository, txMgr repositories.TransactionManager, policy *AccessPolicy, logger *zap.Logger) *AdminSeeder {
	return &AdminSeeder{
		accounts: accounts,
		txMgr:    txMgr,
		policy:   policy,
		logger:   logger,
	}
}

// Seed creates or promotes an admin account per configured email and returns how many succeeded.
// Failures are logged and skipped; seeding never stops startup.
func (s *AdminSeeder) Seed(ctx context.Context) int {
	emails := s.policy.AdminEmails()
	sort.Strings(emails)

	seeded := 0
	for _, email := range emails {
		if err := s.seedOne(ctx, email); err != nil {
			s.logger.Warn("failed to seed admin account",
				zap.String("email_domain", models.EmailDomain(email)),
				zap.Error(err),
			)
			continue
		}
		seeded++
	}

	s.logger.Info("admin seeding finished", zap.Int("configured", len(emails)), zap.Int("seeded", seeded))
	return seeded
}

func (s *AdminSeeder) seedOne(ctx context.Context, email string) error {
	return WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		accounts := s.accounts.WithTx(tx)

		acct, err := accounts.GetByEmail(ctx, email)
		if errors.Is(err, repositories.ErrNotFound) {
			return accounts.Create(ctx, models.NewAccount(email, "", "", models.RoleAdmin))
		}
		if err != nil {
			return err
		}
		if acct.IsAdmin() {
			return nil
		}
		_, err = accounts.PromoteToAdmin(ctx, acct.ID)
		return err
	})
}

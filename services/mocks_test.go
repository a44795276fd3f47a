package services

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/upb/identity-gateway/googleid"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/repositories"
)

// MockTransactionManager is a mock implementation of TransactionManager
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTransaction is a mock implementation of Transaction
type MockTransaction struct {
	mock.Mock
	committed  bool
	rolledback bool
}

func (m *MockTransaction) Commit() error {
	args := m.Called()
	m.committed = true
	return args.Error(0)
}

func (m *MockTransaction) Rollback() error {
	args := m.Called()
	m.rolledback = true
	return args.Error(0)
}

func (m *MockTransaction) Context() context.Context {
	return context.Background()
}

// MockAccountRepository is a mock implementation of AccountRepository.
// WithTx returns the same mock so expectations cover both bound and unbound calls.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	return accountOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	return accountOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAccountRepository) PromoteToAdmin(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	return accountOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAccountRepository) FillMissingNames(ctx context.Context, id int64, firstName, lastName *string) (*models.Account, error) {
	args := m.Called(ctx, id, firstName, lastName)
	return accountOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAccountRepository) UpdateNames(ctx context.Context, id int64, firstName, lastName string) (*models.Account, error) {
	args := m.Called(ctx, id, firstName, lastName)
	return accountOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAccountRepository) List(ctx context.Context, params repositories.ListParams) ([]*models.Account, int, error) {
	args := m.Called(ctx, params)
	var accounts []*models.Account
	if v := args.Get(0); v != nil {
		accounts = v.([]*models.Account)
	}
	return accounts, args.Int(1), args.Error(2)
}

func (m *MockAccountRepository) WithTx(tx repositories.Transaction) repositories.AccountRepository {
	return m
}

func accountOrNil(v interface{}) *models.Account {
	if v == nil {
		return nil
	}
	return v.(*models.Account)
}

// MockVerifier is a mock implementation of IdentityVerifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (*googleid.Identity, error) {
	args := m.Called(ctx, token)
	if v := args.Get(0); v != nil {
		return v.(*googleid.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTxMocks() (*MockTransactionManager, *MockTransaction) {
	txMgr := new(MockTransactionManager)
	tx := new(MockTransaction)
	txMgr.On("Begin", mock.Anything).Return(tx, nil)
	return txMgr, tx
}

func strPtr(s string) *string {
	return &s
}

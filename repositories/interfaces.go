package repositories

import (
	"context"
	"errors"

	"github.com/upb/identity-gateway/models"
)

var (
	// ErrNotFound is returned when no row matches the lookup
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when an insert collides with an existing email (case-insensitive)
	ErrDuplicateEmail = errors.New("email already registered")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction. Repositories join it through WithTx.
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// SortDirection orders a directory listing
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortFields lists the columns a directory listing may be ordered by, in display order
var SortFields = []string{"id", "email", "first_name", "last_name", "role", "created_at", "updated_at"}

// IsSortField reports whether field is one of SortFields
func IsSortField(field string) bool {
	for _, f := range SortFields {
		if f == field {
			return true
		}
	}
	return false
}

// ListParams selects one page of the account directory
type ListParams struct {
	Limit     int
	Offset    int
	SortBy    string
	Direction SortDirection
}

// AccountRepository handles account data operations
type AccountRepository interface {
	// Create inserts a new account and fills its ID and timestamps
	Create(ctx context.Context, account *models.Account) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// GetByEmail retrieves an account by email, ignoring case
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// PromoteToAdmin sets the admin role. It never lowers a role.
	PromoteToAdmin(ctx context.Context, id int64) (*models.Account, error)

	// FillMissingNames writes names only into columns that are currently blank
	FillMissingNames(ctx context.Context, id int64, firstName, lastName *string) (*models.Account, error)

	// UpdateNames overwrites both names
	UpdateNames(ctx context.Context, id int64, firstName, lastName string) (*models.Account, error)

	// List returns one page of accounts and the total count
	List(ctx context.Context, params ListParams) ([]*models.Account, int, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AccountRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Accounts AccountRepository
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/repositories"
	"go.uber.org/zap"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation pq.ErrorCode = "23505"

const accountColumns = `id, email, first_name, last_name, role, created_at, updated_at`

// sortColumns maps accepted sort fields to SQL columns. Only these values reach ORDER BY.
var sortColumns = map[string]string{
	"id":         "id",
	"email":      "email",
	"first_name": "first_name",
	"last_name":  "last_name",
	"role":       "role",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// AccountRepository implements the repositories.AccountRepository interface
type AccountRepository struct {
	db     *DB
	tx     *sql.Tx
	logger *zap.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB, logger *zap.Logger) repositories.AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *AccountRepository) executor() Executor {
	if r.tx != nil {
		return r.tx
	}
	return r.db.DB
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acct models.Account
		role string
	)
	if err := row.Scan(
		&acct.ID,
		&acct.Email,
		&acct.FirstName,
		&acct.LastName,
		&role,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	); err != nil {
		return nil, err
	}
	acct.Role = models.AccountRole(role)
	return &acct, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (email, first_name, last_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.executor().QueryRowContext(ctx, query,
		account.Email,
		account.FirstName,
		account.LastName,
		string(account.Role),
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", repositories.ErrDuplicateEmail, account.Email)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.logger.Debug("account created", zap.Int64("id", account.ID), zap.String("role", string(account.Role)))
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acct, err := scanAccount(r.executor().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %d", repositories.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// GetByEmail retrieves an account by email, ignoring case
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`

	acct, err := scanAccount(r.executor().QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: email", repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// PromoteToAdmin sets role to admin. updated_at only moves when the role actually changes.
func (r *AccountRepository) PromoteToAdmin(ctx context.Context, id int64) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET role = 'admin',
		    updated_at = CASE WHEN role = 'admin' THEN updated_at ELSE NOW() END
		WHERE id = $1
		RETURNING ` + accountColumns

	acct, err := scanAccount(r.executor().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %d", repositories.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to promote account: %w", err)
	}

	r.logger.Debug("account promoted", zap.Int64("id", id))
	return acct, nil
}

// FillMissingNames sets first_name and last_name only where they are NULL or blank.
// A nil argument leaves the column untouched.
func (r *AccountRepository) FillMissingNames(ctx context.Context, id int64, firstName, lastName *string) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET first_name = CASE WHEN COALESCE(BTRIM(first_name), '') = '' THEN COALESCE($2, first_name) ELSE first_name END,
		    last_name = CASE WHEN COALESCE(BTRIM(last_name), '') = '' THEN COALESCE($3, last_name) ELSE last_name END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	acct, err := scanAccount(r.executor().QueryRowContext(ctx, query, id, firstName, lastName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %d", repositories.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fill account names: %w", err)
	}
	return acct, nil
}

// UpdateNames overwrites both names
func (r *AccountRepository) UpdateNames(ctx context.Context, id int64, firstName, lastName string) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET first_name = $2,
		    last_name = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	acct, err := scanAccount(r.executor().QueryRowContext(ctx, query, id, firstName, lastName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %d", repositories.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	r.logger.Debug("account names updated", zap.Int64("id", id))
	return acct, nil
}

// List returns one page of accounts ordered by the requested column, with id as tie-breaker
func (r *AccountRepository) List(ctx context.Context, params repositories.ListParams) ([]*models.Account, int, error) {
	column, ok := sortColumns[params.SortBy]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sort field %q", params.SortBy)
	}
	direction := "ASC"
	if params.Direction == repositories.SortDesc {
		direction = "DESC"
	}

	executor := r.executor()

	var total int
	if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM accounts ORDER BY %s %s, id ASC LIMIT $1 OFFSET $2`,
		accountColumns, column, direction)

	rows, err := executor.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0, params.Limit)
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, total, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *AccountRepository) WithTx(tx repositories.Transaction) repositories.AccountRepository {
	bound := &AccountRepository{
		db:     r.db,
		logger: r.logger,
	}
	if pgTx, ok := tx.(*Transaction); ok {
		bound.tx = pgTx.GetTx()
	}
	return bound
}

package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/repositories"
	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultSortBy   = "first_name"

	// maxListOffset bounds the row offset so far-out pages stay empty instead of overflowing
	maxListOffset = math.MaxInt32
)

// invalidSortFieldMessage is returned verbatim for an unknown sort_by
var invalidSortFieldMessage = "Invalid sort field. Allowed fields: " + strings.Join(repositories.SortFields, ", ")

// ListQuery selects a page of the user directory
type ListQuery struct {
	Page          int    `json:"page" validate:"min=1"`
	PageSize      int    `json:"page_size" validate:"min=1,max=100"`
	SortBy        string `json:"sort_by"`
	SortDirection string `json:"sort_direction" validate:"oneof=asc desc"`
}

// DefaultListQuery returns the query used when no parameters are given
func DefaultListQuery() ListQuery {
	return ListQuery{
		Page:          DefaultPage,
		PageSize:      DefaultPageSize,
		SortBy:        DefaultSortBy,
		SortDirection: string(repositories.SortAsc),
	}
}

// AccountPage is one page of the user directory
type AccountPage struct {
	Users      []*models.Account `json:"users"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// UpdateProfileRequest carries the editable profile fields
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=30,alphaspace"`
	LastName  string `json:"last_name" validate:"required,min=2,max=30,alphaspace"`
}

// Normalize trims surrounding whitespace from both names
func (r *UpdateProfileRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

// UserService serves the user directory and self-service profile operations
type UserService struct {
	accounts repositories.AccountRepository
	txMgr    repositories.TransactionManager
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(accounts repositories.AccountRepository, txMgr repositories.TransactionManager, logger *zap.Logger) *UserService {
	return &UserService{
		accounts: accounts,
		txMgr:    txMgr,
		logger:   logger,
	}
}

// List returns one page of accounts. Authorization is enforced by the caller.
func (s *UserService) List(ctx context.Context, q ListQuery) (*AccountPage, error) {
	if !repositories.IsSortField(q.SortBy) {
		return nil, InvalidField("sort_by", invalidSortFieldMessage)
	}
	if err := validationError(utils.ValidateStruct(&q)); err != nil {
		return nil, err
	}

	accounts, total, err := s.accounts.List(ctx, repositories.ListParams{
		Limit:     q.PageSize,
		Offset:    listOffset(q.Page, q.PageSize),
		SortBy:    q.SortBy,
		Direction: repositories.SortDirection(q.SortDirection),
	})
	if err != nil {
		return nil, WrapInternal("failed to list accounts", err)
	}

	return &AccountPage{
		Users:      accounts,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}

// listOffset returns the row offset of page, clamped to maxListOffset
func listOffset(page, pageSize int) int {
	if page-1 > maxListOffset/pageSize {
		return maxListOffset
	}
	return (page - 1) * pageSize
}

func totalPages(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Get returns the account with id. Callers may only read their own account, admins included.
func (s *UserService) Get(ctx context.Context, caller *models.Account, id int64) (*models.Account, error) {
	if caller.ID != id {
		return nil, ErrNotProfileOwner
	}

	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, translateLookup(err)
	}
	return acct, nil
}

// UpdateProfile replaces the caller's first and last name
func (s *UserService) UpdateProfile(ctx context.Context, caller *models.Account, id int64, req UpdateProfileRequest) (*models.Account, error) {
	if caller.ID != id {
		return nil, ErrNotProfileEditor
	}

	req.Normalize()
	if err := validationError(utils.ValidateStruct(&req)); err != nil {
		return nil, err
	}

	updated, err := WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Account, error) {
		accounts := s.accounts.WithTx(tx)
		if _, err := accounts.GetByID(ctx, id); err != nil {
			return nil, translateLookup(err)
		}
		acct, err := accounts.UpdateNames(ctx, id, req.FirstName, req.LastName)
		if err != nil {
			return nil, translateLookup(err)
		}
		return acct, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", zap.Int64("account_id", id))
	return updated, nil
}

// translateLookup maps repository errors onto domain errors
func translateLookup(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return NewDomainError(ErrorTypeNotFound, ErrAccountNotFound.Message, err)
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return WrapInternal("account storage failure", err)
}

// validationError turns a validator failure into a validation DomainError with per-field details
func validationError(err error) error {
	if err == nil {
		return nil
	}
	fields := utils.GetValidationFields(err)
	if fields == nil {
		return WrapInternal("validation failed unexpectedly", err)
	}
	domainErr := NewDomainError(ErrorTypeValidation, ErrInvalidInput.Message, err)
	for field, msg := range fields {
		domainErr.WithDetail(field, msg)
	}
	return domainErr
}

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/upb/identity-gateway/middleware"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/services"
	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

// UserDirectory is the service behind the /users endpoints
type UserDirectory interface {
	List(ctx context.Context, q services.ListQuery) (*services.AccountPage, error)
	Get(ctx context.Context, caller *models.Account, id int64) (*models.Account, error)
	UpdateProfile(ctx context.Context, caller *models.Account, id int64, req services.UpdateProfileRequest) (*models.Account, error)
}

// UserHandler handles user directory and profile requests
type UserHandler struct {
	users  UserDirectory
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserDirectory, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// HandleList handles GET /users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	page, err := h.users.List(r.Context(), q)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, page); err != nil {
		h.logger.Error("failed to write user list", zap.Error(err))
	}
}

// HandleGet handles GET /users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetAccountFromContext(r.Context())
	if caller == nil {
		_ = utils.WriteUnauthorized(w, services.ErrUnauthenticated.Message)
		return
	}

	id, err := parseAccountID(r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	acct, err := h.users.Get(r.Context(), caller, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, acct)
}

// HandleUpdate handles PATCH /users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetAccountFromContext(r.Context())
	if caller == nil {
		_ = utils.WriteUnauthorized(w, services.ErrUnauthenticated.Message)
		return
	}

	id, err := parseAccountID(r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	var req services.UpdateProfileRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Debug("rejected profile update body",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		HandleServiceError(w, services.ErrMalformedBody, h.logger)
		return
	}

	acct, err := h.users.UpdateProfile(r.Context(), caller, id, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, acct)
}

// parseListQuery reads page, page_size, sort_by and sort_direction over the defaults.
// Range checks are left to the service.
func parseListQuery(r *http.Request) (services.ListQuery, error) {
	q := services.DefaultListQuery()
	values := r.URL.Query()

	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, services.InvalidField("page", "page must be an integer")
		}
		q.Page = n
	}
	if raw := values.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, services.InvalidField("page_size", "page_size must be an integer")
		}
		q.PageSize = n
	}
	if raw := values.Get("sort_by"); raw != "" {
		q.SortBy = raw
	}
	if raw := values.Get("sort_direction"); raw != "" {
		q.SortDirection = raw
	}
	return q, nil
}

func parseAccountID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.ErrInvalidAccountID
	}
	return id, nil
}

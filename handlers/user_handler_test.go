package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/identity-gateway/middleware"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/services"
	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) List(ctx context.Context, q services.ListQuery) (*services.AccountPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AccountPage), args.Error(1)
}

func (m *MockUserDirectory) Get(ctx context.Context, caller *models.Account, id int64) (*models.Account, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockUserDirectory) UpdateProfile(ctx context.Context, caller *models.Account, id int64, req services.UpdateProfileRequest) (*models.Account, error) {
	args := m.Called(ctx, caller, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func testAccount(id int64, role models.AccountRole) *models.Account {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	acct := models.NewAccount("ana@upb.edu.co", "Ana", "Gomez", role)
	acct.ID = id
	acct.CreatedAt = now
	acct.UpdatedAt = now
	return acct
}

// newRequest builds a request carrying the caller and the chi {id} parameter
func newRequest(method, target, id string, body string, caller *models.Account) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	ctx := req.Context()
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	if caller != nil {
		ctx = middleware.WithAccount(ctx, caller)
	}
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestUserHandler_HandleList(t *testing.T) {
	logger := zap.NewNop()

	t.Run("uses defaults without query parameters", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)

		page := &services.AccountPage{
			Users:      []*models.Account{testAccount(1, models.RoleAdmin)},
			Total:      1,
			Page:       1,
			PageSize:   20,
			TotalPages: 1,
		}
		users.On("List", mock.Anything, services.DefaultListQuery()).Return(page, nil)

		w := httptest.NewRecorder()
		handler.HandleList(w, newRequest(http.MethodGet, "/users", "", "", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, float64(1), body["total"])
		assert.Equal(t, float64(20), body["page_size"])
		assert.Equal(t, float64(1), body["total_pages"])
		assert.Len(t, body["users"], 1)
		users.AssertExpectations(t)
	})

	t.Run("passes parsed parameters through", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)

		expected := services.ListQuery{Page: 2, PageSize: 10, SortBy: "email", SortDirection: "desc"}
		users.On("List", mock.Anything, expected).Return(&services.AccountPage{Users: []*models.Account{}, Page: 2, PageSize: 10}, nil)

		w := httptest.NewRecorder()
		handler.HandleList(w, newRequest(http.MethodGet, "/users?page=2&page_size=10&sort_by=email&sort_direction=desc", "", "", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("rejects a non-integer page", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)

		w := httptest.NewRecorder()
		handler.HandleList(w, newRequest(http.MethodGet, "/users?page=abc", "", "", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		response := decodeError(t, w)
		assert.Equal(t, "validation_error", response.Error)
		assert.Contains(t, response.Details, "page")
		users.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("reports an unknown sort field", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)

		message := "Invalid sort field. Allowed fields: id, email, first_name, last_name, role, created_at, updated_at"
		users.On("List", mock.Anything, mock.Anything).Return(nil, services.InvalidField("sort_by", message))

		w := httptest.NewRecorder()
		handler.HandleList(w, newRequest(http.MethodGet, "/users?sort_by=password", "", "", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, message, decodeError(t, w).Message)
	})

	t.Run("hides storage failures", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)

		users.On("List", mock.Anything, mock.Anything).Return(nil, services.WrapInternal("failed to list accounts", errors.New("pq: timeout")))

		w := httptest.NewRecorder()
		handler.HandleList(w, newRequest(http.MethodGet, "/users", "", "", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "pq")
	})
}

func TestUserHandler_HandleGet(t *testing.T) {
	logger := zap.NewNop()
	caller := testAccount(7, models.RoleClient)

	t.Run("returns the caller's own account", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)
		users.On("Get", mock.Anything, caller, int64(7)).Return(caller, nil)

		w := httptest.NewRecorder()
		handler.HandleGet(w, newRequest(http.MethodGet, "/users/7", "7", "", caller))

		assert.Equal(t, http.StatusOK, w.Code)

		var body models.Account
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, int64(7), body.ID)
		assert.Equal(t, "ana@upb.edu.co", body.Email)
		assert.Equal(t, models.RoleClient, body.Role)
	})

	t.Run("forbids other profiles", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)
		users.On("Get", mock.Anything, caller, int64(8)).Return(nil, services.ErrNotProfileOwner)

		w := httptest.NewRecorder()
		handler.HandleGet(w, newRequest(http.MethodGet, "/users/8", "8", "", caller))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Not authorized to access this user's profile", decodeError(t, w).Message)
	})

	t.Run("not found", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)
		users.On("Get", mock.Anything, caller, int64(7)).Return(nil, services.ErrAccountNotFound)

		w := httptest.NewRecorder()
		handler.HandleGet(w, newRequest(http.MethodGet, "/users/7", "7", "", caller))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found", decodeError(t, w).Message)
	})

	for _, id := range []string{"abc", "0", "-3"} {
		t.Run("rejects id "+id, func(t *testing.T) {
			users := new(MockUserDirectory)
			handler := NewUserHandler(users, logger)

			w := httptest.NewRecorder()
			handler.HandleGet(w, newRequest(http.MethodGet, "/users/"+id, id, "", caller))

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			users.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("requires an account in the context", func(t *testing.T) {
		handler := NewUserHandler(new(MockUserDirectory), logger)

		w := httptest.NewRecorder()
		handler.HandleGet(w, newRequest(http.MethodGet, "/users/7", "7", "", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUserHandler_HandleUpdate(t *testing.T) {
	logger := zap.NewNop()
	caller := testAccount(7, models.RoleClient)

	t.Run("updates the caller's names", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)

		updated := testAccount(7, models.RoleClient)
		updated.FirstName = models.OptionalString("María José")
		updated.LastName = models.OptionalString("Pérez")

		users.On("UpdateProfile", mock.Anything, caller, int64(7), services.UpdateProfileRequest{
			FirstName: "  María José ",
			LastName:  "Pérez",
		}).Return(updated, nil)

		w := httptest.NewRecorder()
		body := `{"first_name":"  María José ","last_name":"Pérez"}`
		handler.HandleUpdate(w, newRequest(http.MethodPatch, "/users/7", "7", body, caller))

		assert.Equal(t, http.StatusOK, w.Code)

		var response models.Account
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.NotNil(t, response.FirstName)
		assert.Equal(t, "María José", *response.FirstName)
		users.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)

		w := httptest.NewRecorder()
		handler.HandleUpdate(w, newRequest(http.MethodPatch, "/users/7", "7", `{"first_name":`, caller))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		users.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("validation details are returned", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)

		invalid := services.NewDomainError(services.ErrorTypeValidation, "Validation failed", nil).
			WithDetail("first_name", "first_name must contain only letters and spaces")
		users.On("UpdateProfile", mock.Anything, caller, int64(7), mock.Anything).Return(nil, invalid)

		w := httptest.NewRecorder()
		handler.HandleUpdate(w, newRequest(http.MethodPatch, "/users/7", "7", `{"first_name":"R2D2","last_name":"Droid"}`, caller))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		response := decodeError(t, w)
		assert.Equal(t, "first_name must contain only letters and spaces", response.Details["first_name"])
	})

	t.Run("forbids other profiles", func(t *testing.T) {
		users := new(MockUserDirectory)
		handler := NewUserHandler(users, logger)
		users.On("UpdateProfile", mock.Anything, caller, int64(9), mock.Anything).Return(nil, services.ErrNotProfileEditor)

		w := httptest.NewRecorder()
		handler.HandleUpdate(w, newRequest(http.MethodPatch, "/users/9", "9", `{"first_name":"Ana","last_name":"Gomez"}`, caller))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Not authorized to update this user's profile", decodeError(t, w).Message)
	})
}

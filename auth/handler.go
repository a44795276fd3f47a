// Package auth serves the login, logout and current-account endpoints.
package auth

import (
	"context"
	"net/http"

	"github.com/upb/identity-gateway/handlers"
	"github.com/upb/identity-gateway/internal/observability"
	"github.com/upb/identity-gateway/middleware"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/services"
	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

const (
	messageAccountCreated = "Account created successfully! Welcome!"
	messageWelcomeBack    = "Welcome back!"
	messageLoggedOut      = "Successfully logged out"
)

// SessionCookieMaxAge is the Max-Age of the login cookie in seconds. It does not follow the token TTL.
const SessionCookieMaxAge = 86400

// LoginService exchanges a provider ID token for a session
type LoginService interface {
	Login(ctx context.Context, providerToken string) (*services.LoginResult, error)
}

// CookieConfig controls the session cookie attributes
type CookieConfig struct {
	Secure bool
}

// LoginRequest is the POST /auth/login body
type LoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	User    *models.Account `json:"user"`
	Message string          `json:"message"`
}

// Handler handles the session lifecycle endpoints
type Handler struct {
	login   LoginService
	cookie  CookieConfig
	metrics observability.MetricsCollector
	logger  *zap.Logger
}

// NewHandler creates a new auth handler. A nil metrics collector records nothing.
func NewHandler(login LoginService, cookie CookieConfig, metrics observability.MetricsCollector, logger *zap.Logger) *Handler {
	if metrics == nil {
		metrics = observability.NopCollector{}
	}
	return &Handler{
		login:   login,
		cookie:  cookie,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleLogin verifies a Google ID token and sets the session cookie
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Debug("rejected login body", zap.String("request_id", requestID), zap.Error(err))
		h.metrics.RecordLogin(observability.LoginInvalidToken)
		handlers.HandleServiceError(w, services.ErrMalformedBody, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.metrics.RecordLogin(observability.LoginInvalidToken)
		details := make(map[string]interface{})
		for field, msg := range utils.GetValidationFields(err) {
			details[field] = msg
		}
		_ = utils.WriteUnprocessableEntity(w, services.ErrInvalidInput.Message, details)
		return
	}

	result, err := h.login.Login(r.Context(), req.Token)
	if err != nil {
		h.metrics.RecordLogin(loginFailureOutcome(err))
		h.logger.Info("login failed",
			zap.String("request_id", requestID),
			zap.String("error_type", string(services.GetErrorType(err))))
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	h.setSessionCookie(w, "Bearer "+result.SessionToken, SessionCookieMaxAge)

	message := messageWelcomeBack
	outcome := observability.LoginReturning
	if result.Created {
		message = messageAccountCreated
		outcome = observability.LoginCreated
	}
	h.metrics.RecordLogin(outcome)

	h.logger.Info("login succeeded",
		zap.String("request_id", requestID),
		zap.Int64("account_id", result.Account.ID),
		zap.String("role", string(result.Account.Role)),
		zap.Bool("created", result.Created))

	_ = utils.WriteOK(w, LoginResponse{
		User:    result.Account,
		Message: message,
	})
}

// HandleLogout expires the session cookie. It needs no session.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", -1)
	_ = utils.WriteOK(w, utils.MessageResponse{Message: messageLoggedOut})
}

// HandleMe returns the authenticated account
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	acct := middleware.GetAccountFromContext(r.Context())
	if acct == nil {
		_ = utils.WriteUnauthorized(w, services.ErrUnauthenticated.Message)
		return
	}
	_ = utils.WriteOK(w, acct)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func loginFailureOutcome(err error) string {
	switch {
	case services.IsUnauthorizedError(err):
		return observability.LoginInvalidToken
	case services.IsForbiddenError(err):
		return observability.LoginDomainDenied
	default:
		return observability.LoginError
	}
}

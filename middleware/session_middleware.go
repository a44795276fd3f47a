package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/upb/identity-gateway/internal/observability"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/repositories"
	"github.com/upb/identity-gateway/services"
	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

// SessionCookieName is the cookie carrying "Bearer <token>"
const SessionCookieName = "access_token"

const bearerPrefix = "Bearer "

// SessionDecoder turns a session token back into an account id
type SessionDecoder interface {
	Decode(token string) (int64, error)
}

// AccountLoader loads accounts by id
type AccountLoader interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
}

// SessionMiddleware authenticates requests from the session cookie
type SessionMiddleware struct {
	decoder  SessionDecoder
	accounts AccountLoader
	metrics  observability.MetricsCollector
	logger   *zap.Logger
}

// NewSessionMiddleware creates a new SessionMiddleware. A nil metrics collector records nothing.
func NewSessionMiddleware(decoder SessionDecoder, accounts AccountLoader, metrics observability.MetricsCollector, logger *zap.Logger) *SessionMiddleware {
	if metrics == nil {
		metrics = observability.NopCollector{}
	}
	return &SessionMiddleware{
		decoder:  decoder,
		accounts: accounts,
		metrics:  metrics,
		logger:   logger,
	}
}

// Authenticate resolves the account behind the request's session cookie.
// Every failure is an unauthorized DomainError; decode failures are not told apart.
func (m *SessionMiddleware) Authenticate(r *http.Request) (*models.Account, error) {
	ctx := r.Context()
	requestID := GetRequestIDFromContext(ctx)

	token := extractSessionToken(r)
	if token == "" {
		m.metrics.RecordSessionRejection(observability.RejectMissing)
		m.logger.Debug("missing session cookie", zap.String("request_id", requestID))
		return nil, services.ErrUnauthenticated
	}

	accountID, err := m.decoder.Decode(token)
	if err != nil {
		m.metrics.RecordSessionRejection(observability.RejectInvalid)
		m.logger.Warn("session token rejected", zap.String("request_id", requestID))
		return nil, services.ErrInvalidCredentials
	}

	acct, err := m.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			m.metrics.RecordSessionRejection(observability.RejectUnknownAccount)
			m.logger.Warn("session subject no longer exists",
				zap.String("request_id", requestID),
				zap.Int64("account_id", accountID))
			return nil, services.ErrInvalidCredentials
		}
		return nil, services.WrapInternal("failed to load session account", err)
	}

	return acct, nil
}

// RequireAuth rejects requests without a valid session and stores the account in the context
func (m *SessionMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, err := m.Authenticate(r)
		if err != nil {
			m.writeError(w, r, err)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", GetRequestIDFromContext(r.Context())),
			zap.Int64("account_id", acct.ID))

		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acct)))
	})
}

// RequireAdmin lets only admin accounts through. It must run after RequireAuth.
func (m *SessionMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		acct := GetAccountFromContext(ctx)
		if acct == nil {
			m.logger.Error("account not found in context", zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, services.ErrUnauthenticated.Message)
			return
		}

		if !acct.IsAdmin() {
			m.logger.Warn("insufficient permissions",
				zap.String("request_id", requestID),
				zap.Int64("account_id", acct.ID),
				zap.String("role", string(acct.Role)))
			_ = utils.WriteForbidden(w, services.ErrAdminRequired.Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *SessionMiddleware) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if services.IsUnauthorizedError(err) {
		_ = utils.WriteUnauthorized(w, services.GetErrorMessage(err))
		return
	}
	m.logger.Error("session lookup failed",
		zap.String("request_id", GetRequestIDFromContext(r.Context())),
		zap.Error(err))
	_ = utils.WriteInternalServerError(w, "")
}

// extractSessionToken reads the session cookie and strips an optional "Bearer " prefix
func extractSessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(cookie.Value, bearerPrefix))
}

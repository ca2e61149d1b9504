package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"user-account-service/internal/apperr"
	"user-account-service/internal/security"
	"user-account-service/internal/server/respond"
)

const bearerPrefix = "bearer "

var (
	// ErrTokenRequired is returned when the Authorization header is missing or not a Bearer token.
	ErrTokenRequired = apperr.Unauthorized("Valid JWT token needed to access this api")
	// ErrIncorrectToken is returned for a verified token that is not an access token carrying an email.
	ErrIncorrectToken = apperr.Unauthorized("Incorrect token.")
	// ErrCallerNotFound is returned when the token's email no longer belongs to a user.
	ErrCallerNotFound = apperr.Unauthorized("User with the given email not exists")
)

// TokenValidator verifies a token and returns its claims.
type TokenValidator interface {
	Validate(token string) (*security.Claims, error)
}

// CallerLookup resolves the user behind an email. It returns nil, nil when no user has that email.
type CallerLookup func(ctx context.Context, email string) (*Caller, error)

// Authenticate validates the Bearer access token and stores its claims in the request context.
// Codec failures ("Token has expired", "Invalid token") are written as they are.
func Authenticate(tokens TokenValidator, exposeCause bool, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r.Header.Get("Authorization"))
			if token == "" {
				logger.Warn("auth: missing bearer token", zap.String("path", r.URL.Path))
				respond.Error(w, ErrTokenRequired, exposeCause)
				return
			}
			claims, err := tokens.Validate(token)
			if err != nil {
				logger.Warn("auth: token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				respond.Error(w, err, exposeCause)
				return
			}
			if claims.Type != string(security.KindAccess) || claims.Email == "" {
				logger.Warn("auth: token is not an access token", zap.String("type", claims.Type))
				respond.Error(w, ErrIncorrectToken, exposeCause)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// ResolveCaller loads the user named by the token claims and stores it as the Caller.
// Must run after Authenticate.
func ResolveCaller(lookup CallerLookup, exposeCause bool, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok || claims.Email == "" {
				logger.Error("auth: email not found in token")
				respond.Error(w, ErrTokenRequired, exposeCause)
				return
			}
			caller, err := lookup(r.Context(), claims.Email)
			if err != nil {
				respond.Error(w, err, exposeCause)
				return
			}
			if caller == nil {
				logger.Warn("auth: caller not found", zap.String("email", claims.Email))
				respond.Error(w, ErrCallerNotFound, exposeCause)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), *caller)))
		})
	}
}

// extractBearer returns the token of a "Bearer <token>" header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

package rbac

import (
	"context"
	"net/http"

	"user-account-service/internal/apperr"
	"user-account-service/internal/server/middleware"
	"user-account-service/internal/server/respond"
)

// ErrForbidden is returned when the caller's role does not grant the action.
var ErrForbidden = apperr.Forbidden("Forbidden: You do not have permission to access this resource")

// Checker decides whether a role may perform an action.
type Checker interface {
	Check(ctx context.Context, role, action string) bool
}

// Require ensures the request has a resolved caller whose role grants action.
// Returns the caller on success; Unauthorized without a caller, ErrForbidden when denied.
func Require(ctx context.Context, checker Checker, action string) (middleware.Caller, error) {
	caller, ok := middleware.GetCaller(ctx)
	if !ok || caller.ID == "" {
		return middleware.Caller{}, middleware.ErrTokenRequired
	}
	if !checker.Check(ctx, caller.Role, action) {
		return middleware.Caller{}, ErrForbidden
	}
	return caller, nil
}

// RequirePermission returns HTTP middleware that runs Require for action before next.
// It must be mounted after middleware.ResolveCaller. exposeCause has the same meaning as for the
// other gates.
func RequirePermission(checker Checker, action string, exposeCause bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := Require(r.Context(), checker, action); err != nil {
				respond.Error(w, err, exposeCause)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

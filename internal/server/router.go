// Package server assembles the HTTP router and the gRPC health server.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"user-account-service/internal/apperr"
	"user-account-service/internal/platform/rbac"
	"user-account-service/internal/server/middleware"
	"user-account-service/internal/user/handler"
	"user-account-service/internal/user/service"
)

// RouterDeps holds what NewRouter wires together.
type RouterDeps struct {
	Handler *handler.Handler
	Tokens  middleware.TokenValidator
	// Callers resolves the user behind an access token for permission-gated routes.
	Callers middleware.CallerLookup
	Checker rbac.Checker
	// Telemetry wraps every request when set (e.g. the OTel HTTP middleware).
	Telemetry func(http.Handler) http.Handler
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
	ExposeCause    bool
	Logger         *zap.Logger
}

// NewRouter returns the /users API.
func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if d.Telemetry != nil {
		r.Use(d.Telemetry)
	}
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.ClientIPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	authenticate := middleware.Authenticate(d.Tokens, d.ExposeCause, d.Logger)
	resolve := middleware.ResolveCaller(d.Callers, d.ExposeCause, d.Logger)
	h := d.Handler

	r.Route("/users", func(users chi.Router) {
		users.Post("/register", h.Register)
		users.Post("/register-sso", h.RegisterSSO)
		users.Post("/login-sso", h.LoginSSO)
		users.Post("/login", h.Login)
		users.Post("/reset-password/{token}", h.ResetPassword)

		users.Group(func(g chi.Router) {
			g.Use(authenticate)
			g.Get("/", h.MyInfo)
			g.Put("/me", h.UpdateMyInfo)
			g.Post("/forgot-password", h.ForgotPassword)

			g.Group(func(admin chi.Router) {
				admin.Use(resolve)
				admin.With(rbac.RequirePermission(d.Checker, rbac.ActionUserStatusUpdate, d.ExposeCause)).Patch("/{id}/status", h.StatusUpdate)
				admin.With(rbac.RequirePermission(d.Checker, rbac.ActionUserInfoView, d.ExposeCause)).Get("/{id}", h.GetUser)
				admin.With(rbac.RequirePermission(d.Checker, rbac.ActionUserInfoUpdate, d.ExposeCause)).Put("/{id}", h.UpdateUser)
			})
		})
	})
	return r
}

// ProfileReader is the part of the account service used to resolve callers.
type ProfileReader interface {
	MyInfo(ctx context.Context, email string) (*service.View, error)
}

// CallerLookupFor adapts svc to a middleware.CallerLookup. An unknown email resolves to nil and a
// suspended account is Unauthorized, so a still-valid token grants nothing once its owner is
// suspended. Other errors are returned as they are.
func CallerLookupFor(svc ProfileReader) middleware.CallerLookup {
	return func(ctx context.Context, email string) (*middleware.Caller, error) {
		v, err := svc.MyInfo(ctx, email)
		if err != nil {
			if e, ok := apperr.As(err); ok && e.Kind == apperr.KindUnauthorized && e.Message == service.MsgEmailNotFound {
				return nil, nil
			}
			return nil, err
		}
		if !v.IsActive {
			return nil, apperr.Unauthorized(service.MsgUserSuspended)
		}
		return &middleware.Caller{ID: v.ID, Email: v.Email, Role: v.Role}, nil
	}
}

// Package handler exposes the account lifecycle over HTTP under /users.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"user-account-service/internal/apperr"
	"user-account-service/internal/server/middleware"
	"user-account-service/internal/server/respond"
	"user-account-service/internal/user/service"
)

const maxBodyBytes = 1 << 20

// AccountService is the lifecycle surface used by the handlers.
type AccountService interface {
	RegisterUser(ctx context.Context, req service.RegisterRequest) (*service.Tokens, error)
	RegisterSSOUser(ctx context.Context, req service.SSORequest) (*service.Tokens, error)
	LoginSSOUser(ctx context.Context, req service.SSORequest) (*service.Tokens, error)
	LoginUser(ctx context.Context, req service.LoginRequest) (*service.Tokens, error)
	MyInfo(ctx context.Context, email string) (*service.View, error)
	UserStatusUpdate(ctx context.Context, id, actor string) (*service.StatusResult, error)
	GetUserInfo(ctx context.Context, id string) (*service.View, error)
	UpdateUserInfo(ctx context.Context, id string, req service.UpdateRequest, actor string) (*service.View, error)
	UpdateMyInfo(ctx context.Context, id string, req service.UpdateRequest) (*service.View, error)
	ForgotPassword(ctx context.Context, email string) (*service.MessageResult, error)
	ResetPassword(ctx context.Context, token string, req service.ResetPasswordRequest) (*service.MessageResult, error)
}

// Handler serves the /users routes.
type Handler struct {
	svc         AccountService
	exposeCause bool
	logger      *zap.Logger
}

// New returns a Handler. exposeCause adds internal error text to error bodies; set it outside production only.
func New(svc AccountService, exposeCause bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, exposeCause: exposeCause, logger: logger}
}

// Register handles POST /users/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("received request to register a new user")
	var req service.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.svc.RegisterUser(r.Context(), req)
	h.write(w, http.StatusCreated, out, err)
}

// RegisterSSO handles POST /users/register-sso.
func (h *Handler) RegisterSSO(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("received request to register a new sso user")
	var req service.SSORequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.svc.RegisterSSOUser(r.Context(), req)
	h.write(w, http.StatusCreated, out, err)
}

// LoginSSO handles POST /users/login-sso.
func (h *Handler) LoginSSO(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("received request to login a sso user")
	var req service.SSORequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.svc.LoginSSOUser(r.Context(), req)
	h.write(w, http.StatusOK, out, err)
}

// Login handles POST /users/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("received request to login a user")
	var req service.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.svc.LoginUser(r.Context(), req)
	h.write(w, http.StatusOK, out, err)
}

// ResetPassword handles POST /users/reset-password/{token}.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.svc.ResetPassword(r.Context(), chi.URLParam(r, "token"), req)
	h.write(w, http.StatusOK, out, err)
}

// MyInfo handles GET /users/.
func (h *Handler) MyInfo(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.Error(w, middleware.ErrTokenRequired, h.exposeCause)
		return
	}
	out, err := h.svc.MyInfo(r.Context(), claims.Email)
	h.write(w, http.StatusOK, out, err)
}

// UpdateMyInfo handles PUT /users/me.
func (h *Handler) UpdateMyInfo(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.Error(w, middleware.ErrTokenRequired, h.exposeCause)
		return
	}
	var req service.UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.svc.UpdateMyInfo(r.Context(), claims.UserID, req)
	h.write(w, http.StatusOK, out, err)
}

// ForgotPassword handles POST /users/forgot-password for the token's own account.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.Error(w, middleware.ErrTokenRequired, h.exposeCause)
		return
	}
	out, err := h.svc.ForgotPassword(r.Context(), claims.Email)
	h.write(w, http.StatusOK, out, err)
}

// StatusUpdate handles PATCH /users/{id}/status.
func (h *Handler) StatusUpdate(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetCaller(r.Context())
	out, err := h.svc.UserStatusUpdate(r.Context(), chi.URLParam(r, "id"), caller.Email)
	h.write(w, http.StatusOK, out, err)
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetUserInfo(r.Context(), chi.URLParam(r, "id"))
	h.write(w, http.StatusOK, out, err)
}

// UpdateUser handles PUT /users/{id}.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetCaller(r.Context())
	var req service.UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.svc.UpdateUserInfo(r.Context(), chi.URLParam(r, "id"), req, caller.Email)
	h.write(w, http.StatusOK, out, err)
}

// decode reads a JSON body into v. An empty body decodes as an empty object.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	h.logger.Warn("malformed request body", zap.String("path", r.URL.Path), zap.Error(err))
	respond.Error(w, apperr.Wrap(apperr.KindBadRequest, service.MsgInvalidRequestBody, err).
		WithDetails("Error in field (body): Malformed JSON"), h.exposeCause)
	return false
}

func (h *Handler) write(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		if apperr.StatusOf(err) >= http.StatusInternalServerError {
			h.logger.Error("request failed", zap.Error(err))
		}
		respond.Error(w, err, h.exposeCause)
		return
	}
	respond.JSON(w, status, v)
}

// Package service implements the account lifecycle: registration, login, profile reads and
// updates, status changes and password reset.
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"user-account-service/internal/apperr"
	"user-account-service/internal/audit"
	"user-account-service/internal/platform/rbac"
	"user-account-service/internal/security"
	eventdomain "user-account-service/internal/telemetry/domain"
	"user-account-service/internal/user/domain"
	"user-account-service/internal/user/repository"
)

// Messages of the typed failures and results returned by the service.
const (
	MsgUserExists            = "User with the given email already exists"
	MsgGoogleTokenInvalid    = "Failed to decrypt the Google token"
	MsgEmailNotFound         = "User with the given email not exists"
	MsgUserSuspended         = "User is suspended. please contact admin"
	MsgUseGoogle             = "User registered with google SSO, please try with Google."
	MsgPasswordMismatch      = "Password not matched"
	MsgIDRequired            = "id not found"
	MsgUserNotExists         = "User not exists"
	MsgIDNotFound            = "User with the given id not exists"
	MsgResetTokenRequired    = "Token not found"
	MsgResetTokenInvalid     = "Token invalid for reset password"
	MsgGoogleCannotReset     = "Google Sign-in user cannot reset password"
	MsgResetTokenMismatch    = "Token not match with user token"
	MsgPasswordNotSafe       = "This password cannot be safe enough. may contain user's info"
	MsgConcurrentUpdate      = "User was modified concurrently, please retry"
	MsgResetLinkSent         = "Password reset link send to user's email"
	MsgPasswordResetComplete = "Password reset completed for the user"
)

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, password, hash string) bool
}

// TokenCodec issues and validates tokens.
type TokenCodec interface {
	Generate(claims security.Claims, kind security.TokenKind) (string, error)
	Validate(token string) (*security.Claims, error)
}

// IdentityVerifier resolves an external ID token to an email.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (string, bool)
}

// ResetNotifier delivers a password reset token to the account owner.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Deps holds the collaborators of the service. Audit and Notifier may be nil.
type Deps struct {
	Repo     repository.Repository
	Hasher   PasswordHasher
	Tokens   TokenCodec
	Verifier IdentityVerifier
	Audit    audit.AuditLogger
	Notifier ResetNotifier
	Logger   *zap.Logger
}

// Service implements the account lifecycle over a user repository.
type Service struct {
	repo     repository.Repository
	hasher   PasswordHasher
	tokens   TokenCodec
	verifier IdentityVerifier
	audit    audit.AuditLogger
	notifier ResetNotifier
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// New returns a Service with the given dependencies.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     d.Repo,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		verifier: d.Verifier,
		audit:    d.Audit,
		notifier: d.Notifier,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// RegisterUser creates a password account and returns its token pair.
func (s *Service) RegisterUser(ctx context.Context, req RegisterRequest) (*Tokens, error) {
	req.Email = normalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	s.logger.Info("register user", zap.String("email", req.Email))
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureNotRegistered(ctx, req.Email); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		s.logger.Error("register user: hash password", zap.Error(err))
		return nil, err
	}
	u := s.newUser(req.Email, req.FirstName, req.LastName, domain.LoginTypePassword, hash)
	if err := s.create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", u.ID))
	s.record(ctx, eventdomain.TypeUserRegistered, u.ID, u.Email, nil)
	return s.issueTokens(u)
}

// RegisterSSOUser creates a Google account for the email carried by the ID token.
func (s *Service) RegisterSSOUser(ctx context.Context, req SSORequest) (*Tokens, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	email, ok := s.verifier.Verify(ctx, req.Token)
	if !ok {
		return nil, s.reject(apperr.Conflict(MsgGoogleTokenInvalid))
	}
	email = normalizeEmail(email)
	s.logger.Info("register sso user", zap.String("email", email))
	if err := s.ensureNotRegistered(ctx, email); err != nil {
		return nil, err
	}
	local, _, _ := strings.Cut(email, "@")
	u := s.newUser(email, local, "", domain.LoginTypeGoogle, "")
	if err := s.create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", u.ID))
	s.record(ctx, eventdomain.TypeUserSSORegistered, u.ID, u.Email, nil)
	return s.issueTokens(u)
}

// LoginSSOUser signs in the active account registered for the ID token's email.
func (s *Service) LoginSSOUser(ctx context.Context, req SSORequest) (*Tokens, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	email, ok := s.verifier.Verify(ctx, req.Token)
	if !ok {
		return nil, s.reject(apperr.Conflict(MsgGoogleTokenInvalid))
	}
	u, err := s.activeUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	s.record(ctx, eventdomain.TypeUserLoggedIn, u.ID, u.Email, map[string]string{"loginType": string(domain.LoginTypeGoogle)})
	return s.issueTokens(u)
}

// LoginUser signs in an active password account.
func (s *Service) LoginUser(ctx context.Context, req LoginRequest) (*Tokens, error) {
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := s.activeUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if u.LoginType != domain.LoginTypePassword {
		return nil, s.reject(apperr.Conflict(MsgUseGoogle), zap.String("user_id", u.ID))
	}
	if !s.hasher.Compare(ctx, req.Password, u.PasswordHash) {
		return nil, s.reject(apperr.Unauthorized(MsgPasswordMismatch), zap.String("user_id", u.ID))
	}
	s.record(ctx, eventdomain.TypeUserLoggedIn, u.ID, u.Email, map[string]string{"loginType": string(domain.LoginTypePassword)})
	return s.issueTokens(u)
}

// MyInfo returns the view of the user with email.
func (s *Service) MyInfo(ctx context.Context, email string) (*View, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, s.storeFailure("my info", err)
	}
	if u == nil {
		return nil, s.reject(apperr.Unauthorized(MsgEmailNotFound), zap.String("email", email))
	}
	return NewView(u), nil
}

// UserStatusUpdate toggles the active flag of the user with id on behalf of actor.
func (s *Service) UserStatusUpdate(ctx context.Context, id, actor string) (*StatusResult, error) {
	u, err := s.userByID(ctx, id, MsgUserNotExists)
	if err != nil {
		return nil, err
	}
	active := !u.IsActive
	updated, err := s.update(ctx, u, actor, domain.Patch{IsActive: &active}, MsgUserNotExists)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user status updated", zap.String("user_id", id), zap.Bool("is_active", updated.IsActive))
	s.record(ctx, eventdomain.TypeUserStatusChanged, id, actor, map[string]string{"isActive": strconv.FormatBool(updated.IsActive)})
	msg := "User is Suspended"
	if updated.IsActive {
		msg = "User is Activated"
	}
	return &StatusResult{Message: msg, IsActive: updated.IsActive, Version: updated.Version}, nil
}

// GetUserInfo returns the view of the user with id.
func (s *Service) GetUserInfo(ctx context.Context, id string) (*View, error) {
	u, err := s.userByID(ctx, id, MsgIDNotFound)
	if err != nil {
		return nil, err
	}
	return NewView(u), nil
}

// UpdateUserInfo merges req over the user with id on behalf of actor.
func (s *Service) UpdateUserInfo(ctx context.Context, id string, req UpdateRequest, actor string) (*View, error) {
	return s.updateProfile(ctx, id, req, func(*domain.User) string { return actor })
}

// UpdateMyInfo merges req over the user with id on behalf of that user.
func (s *Service) UpdateMyInfo(ctx context.Context, id string, req UpdateRequest) (*View, error) {
	return s.updateProfile(ctx, id, req, func(u *domain.User) string { return u.Email })
}

func (s *Service) updateProfile(ctx context.Context, id string, req UpdateRequest, actorOf func(*domain.User) string) (*View, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := s.userByID(ctx, id, MsgIDNotFound)
	if err != nil {
		return nil, err
	}
	firstName, lastName := u.FirstName, u.LastName
	if req.FirstName != "" {
		firstName = req.FirstName
	}
	if req.LastName != "" {
		lastName = req.LastName
	}
	patch := domain.Patch{FirstName: &firstName, LastName: &lastName}
	if req.Phone != nil {
		patch.Phone = &domain.Phone{DialCode: req.Phone.DialCode, Number: req.Phone.Number}
	}
	actor := actorOf(u)
	updated, err := s.update(ctx, u, actor, patch, MsgIDNotFound)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user updated", zap.String("user_id", id))
	s.record(ctx, eventdomain.TypeUserUpdated, id, actor, nil)
	return NewView(updated), nil
}

// ForgotPassword issues a reset token for the user with email and stores its digest.
// Delivery goes through the ResetNotifier when one is configured.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*MessageResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, s.reject(apperr.BadRequest(MsgIDRequired))
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.storeFailure("forgot password", err)
	}
	if u == nil {
		return nil, s.reject(apperr.NotFound(MsgEmailNotFound), zap.String("email", email))
	}
	token, err := s.tokens.Generate(security.Claims{AccountID: u.ID, Action: security.ActionResetPassword}, security.KindResetPassword)
	if err != nil {
		s.logger.Error("forgot password: generate token", zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}
	digest := security.HashToken(token)
	updated, err := s.update(ctx, u, u.Email, domain.Patch{ResetTokenHash: &digest}, MsgEmailNotFound)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reset token issued", zap.String("user_id", u.ID))
	if s.notifier != nil {
		if err := s.notifier.SendPasswordReset(ctx, u.Email, token); err != nil {
			s.logger.Warn("forgot password: notify failed", zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	s.record(ctx, eventdomain.TypePasswordResetRequested, u.ID, u.Email, nil)
	return &MessageResult{Message: MsgResetLinkSent, Version: updated.Version}, nil
}

// ResetPassword sets a new password for the user named by a reset token. Only the most recently
// issued token is accepted, and it is cleared on success.
func (s *Service) ResetPassword(ctx context.Context, token string, req ResetPasswordRequest) (*MessageResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, s.reject(apperr.BadRequest(MsgResetTokenRequired))
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		msg := MsgResetTokenInvalid
		if e, ok := apperr.As(err); ok {
			msg = e.Message
		}
		return nil, s.reject(apperr.Wrap(apperr.KindBadRequest, msg, err))
	}
	if claims.AccountID == "" || claims.Action != security.ActionResetPassword {
		return nil, s.reject(apperr.BadRequest(MsgResetTokenInvalid))
	}
	u, err := s.userByID(ctx, claims.AccountID, MsgIDNotFound)
	if err != nil {
		return nil, err
	}
	if u.LoginType != domain.LoginTypePassword {
		return nil, s.reject(apperr.BadRequest(MsgGoogleCannotReset), zap.String("user_id", u.ID))
	}
	if !security.TokenHashEqual(token, u.ResetTokenHash) {
		return nil, s.reject(apperr.BadRequest(MsgResetTokenMismatch), zap.String("user_id", u.ID))
	}
	if len(personalInfoIssues(req.Password, u.FirstName, u.Email)) > 0 {
		return nil, s.reject(apperr.BadRequest(MsgPasswordNotSafe), zap.String("user_id", u.ID))
	}
	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		s.logger.Error("reset password: hash password", zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}
	cleared := ""
	updated, err := s.update(ctx, u, u.Email, domain.Patch{PasswordHash: &hash, ResetTokenHash: &cleared}, MsgIDNotFound)
	if err != nil {
		return nil, err
	}
	s.logger.Info("password reset", zap.String("user_id", u.ID))
	s.record(ctx, eventdomain.TypePasswordReset, u.ID, u.Email, nil)
	return &MessageResult{Message: MsgPasswordResetComplete, Version: updated.Version}, nil
}

func (s *Service) ensureNotRegistered(ctx context.Context, email string) error {
	exists, err := s.repo.IsExisting(ctx, email)
	if err != nil {
		return s.storeFailure("check existing user", err)
	}
	if exists {
		return s.reject(apperr.Conflict(MsgUserExists), zap.String("email", email))
	}
	return nil
}

func (s *Service) newUser(email, firstName, lastName string, loginType domain.LoginType, passwordHash string) *domain.User {
	now := s.now().UTC()
	return &domain.User{
		ID:           s.newID(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		LoginType:    loginType,
		Role:         rbac.RoleCustomer,
		IsActive:     true,
		Version:      1,
		CreatedAt:    now,
		CreatedBy:    email,
		UpdatedAt:    now,
		UpdatedBy:    email,
		MetaStatus:   domain.MetaStatusCreated,
	}
}

func (s *Service) create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		s.logger.Error("create user: invalid record", zap.Error(err))
		return err
	}
	err := s.repo.Create(ctx, u)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return s.reject(apperr.Conflict(MsgUserExists), zap.String("email", u.Email))
	}
	if err != nil {
		return s.storeFailure("create user", err)
	}
	return nil
}

func (s *Service) activeUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.storeFailure("login", err)
	}
	if u == nil {
		return nil, s.reject(apperr.Unauthorized(MsgEmailNotFound), zap.String("email", email))
	}
	if !u.IsActive {
		return nil, s.reject(apperr.Unauthorized(MsgUserSuspended), zap.String("user_id", u.ID))
	}
	return u, nil
}

func (s *Service) userByID(ctx context.Context, id, notFound string) (*domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, s.reject(apperr.BadRequest(MsgIDRequired))
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeFailure("get user", err)
	}
	if u == nil {
		return nil, s.reject(apperr.NotFound(notFound), zap.String("user_id", id))
	}
	return u, nil
}

// update stamps patch for actor and writes it only if u is still at the version that was read.
func (s *Service) update(ctx context.Context, u *domain.User, actor string, patch domain.Patch, notFound string) (*domain.User, error) {
	patch.Audit = domain.StampAt(actor, u.Version, s.now())
	updated, err := s.repo.UpdateByID(ctx, u.ID, u.Version, patch)
	if errors.Is(err, repository.ErrVersionConflict) {
		return nil, s.reject(apperr.Wrap(apperr.KindConflict, MsgConcurrentUpdate, err), zap.String("user_id", u.ID), zap.Int("version", u.Version))
	}
	if err != nil {
		return nil, s.storeFailure("update user", err)
	}
	if updated == nil {
		return nil, s.reject(apperr.NotFound(notFound), zap.String("user_id", u.ID))
	}
	return updated, nil
}

func (s *Service) issueTokens(u *domain.User) (*Tokens, error) {
	access, err := s.tokens.Generate(security.Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		Type:   string(security.KindAccess),
	}, security.KindAccess)
	if err != nil {
		s.logger.Error("issue access token", zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}
	refresh, err := s.tokens.Generate(security.Claims{
		UserID: u.ID,
		Type:   string(security.KindRefresh),
	}, security.KindRefresh)
	if err != nil {
		s.logger.Error("issue refresh token", zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) record(ctx context.Context, eventType, userID, actor string, metadata map[string]string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, eventType, userID, actor, metadata)
}

// reject logs a typed failure and returns it.
func (s *Service) reject(err *apperr.Error, fields ...zap.Field) error {
	s.logger.Warn(err.Message, append(fields, zap.Int("status", err.Status()))...)
	return err
}

func (s *Service) storeFailure(op string, err error) error {
	s.logger.Error(op+": store failure", zap.Error(err))
	return err
}

package service

import (
	"time"

	"user-account-service/internal/user/domain"
)

// RegisterRequest is the body of a password registration.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest is the body of a password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SSORequest carries a Google ID token for SSO registration and login.
type SSORequest struct {
	Token string `json:"token"`
}

// PhoneInput is a phone number in an update request.
type PhoneInput struct {
	DialCode string `json:"dialCode"`
	Number   string `json:"number"`
}

// UpdateRequest is a partial profile update. Empty names keep the stored value; a nil phone keeps the stored phone.
type UpdateRequest struct {
	FirstName string      `json:"firstName,omitempty"`
	LastName  string      `json:"lastName,omitempty"`
	Phone     *PhoneInput `json:"phone,omitempty"`
}

// ResetPasswordRequest is the body of a password reset completion.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// Tokens is the token pair returned by registration and login.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// StatusResult is returned by a status toggle.
type StatusResult struct {
	Message  string `json:"message"`
	IsActive bool   `json:"isActive"`
	Version  int    `json:"version"`
}

// MessageResult is returned by the password reset flows.
type MessageResult struct {
	Message string `json:"message"`
	Version int    `json:"version"`
}

// PhoneView is the public shape of a phone number.
type PhoneView struct {
	DialCode string `json:"dialCode"`
	Number   string `json:"number"`
}

// View is the public projection of a user. It never carries the password hash or reset token.
type View struct {
	ID         string     `json:"_id"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName,omitempty"`
	Email      string     `json:"email"`
	Phone      *PhoneView `json:"phone,omitempty"`
	Role       string     `json:"role"`
	IsBlocked  bool       `json:"isBlocked"`
	LoginType  string     `json:"loginType"`
	IsActive   bool       `json:"isActive"`
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"createdAt"`
	CreatedBy  string     `json:"createdBy,omitempty"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	UpdatedBy  string     `json:"updatedBy,omitempty"`
	MetaStatus string     `json:"metaStatus,omitempty"`
}

// NewView projects u.
func NewView(u *domain.User) *View {
	v := &View{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Role:       u.Role,
		IsBlocked:  u.IsBlocked,
		LoginType:  string(u.LoginType),
		IsActive:   u.IsActive,
		Version:    u.Version,
		CreatedAt:  u.CreatedAt,
		CreatedBy:  u.CreatedBy,
		UpdatedAt:  u.UpdatedAt,
		UpdatedBy:  u.UpdatedBy,
		MetaStatus: u.MetaStatus,
	}
	if u.Phone != nil {
		v.Phone = &PhoneView{DialCode: u.Phone.DialCode, Number: u.Phone.Number}
	}
	return v
}

package domain

import (
	"errors"
	"time"
)

// LoginType is the credential strategy an account was registered with. It never changes.
type LoginType string

const (
	LoginTypePassword LoginType = "password"
	LoginTypeGoogle   LoginType = "google"
)

// MetaStatusCreated is the metaStatus of freshly registered accounts.
const MetaStatusCreated = "created"

// Phone is an optional contact number.
type Phone struct {
	DialCode string
	Number   string
}

// User is the core account entity.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string // unique, lower-cased
	Phone     *Phone

	PasswordHash string // empty for google accounts
	LoginType    LoginType
	Role         string
	IsBlocked    bool // reserved
	IsActive     bool // false = suspended

	// ResetTokenHash is the SHA-256 of the most recently issued reset token; empty when none is pending.
	ResetTokenHash string

	Version    int
	CreatedAt  time.Time
	CreatedBy  string
	UpdatedAt  time.Time
	UpdatedBy  string
	MetaStatus string
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	switch u.LoginType {
	case LoginTypePassword:
		if u.PasswordHash == "" {
			return errors.New("password hash is required for password accounts")
		}
	case LoginTypeGoogle:
		if u.PasswordHash != "" {
			return errors.New("google accounts cannot have a password")
		}
	default:
		return errors.New("login type must be password or google")
	}
	if u.Role == "" {
		return errors.New("role is required")
	}
	return nil
}

// Patch is a partial update. Nil fields are left unchanged; Audit is always applied.
type Patch struct {
	FirstName      *string
	LastName       *string
	Phone          *Phone
	IsActive       *bool
	PasswordHash   *string
	ResetTokenHash *string
	Audit          AuditStamp
}

// Apply returns a copy of u with p merged over it.
func (p Patch) Apply(u User) User {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Phone != nil {
		ph := *p.Phone
		u.Phone = &ph
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.ResetTokenHash != nil {
		u.ResetTokenHash = *p.ResetTokenHash
	}
	u.Version = p.Audit.Version
	u.UpdatedBy = p.Audit.UpdatedBy
	u.UpdatedAt = p.Audit.UpdatedAt
	return u
}

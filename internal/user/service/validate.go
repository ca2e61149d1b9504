package service

import (
	"fmt"
	"regexp"
	"strings"

	"user-account-service/internal/apperr"
)

// MsgInvalidRequestBody is the message of every request validation failure; field issues go in the details.
const MsgInvalidRequestBody = "invalid_request_body"

const passwordSpecials = "@$!%*?&"

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	dialCodePattern = regexp.MustCompile(`^\+\d{1,3}$`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
)

type fieldErrors []string

func (f *fieldErrors) add(path, msg string) {
	*f = append(*f, fmt.Sprintf("Error in field (%s): %s", path, msg))
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperr.BadRequest(MsgInvalidRequestBody).WithDetails(f...)
}

// normalizeEmail trims and lower-cases an email before it is looked up or stored.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the registration rules. The personal-info rules run only once the field rules pass.
func (r RegisterRequest) Validate() error {
	var errs fieldErrors
	if len([]rune(r.FirstName)) < 2 {
		errs.add("firstName", "First name must be at least 2 characters")
	}
	if !emailPattern.MatchString(r.Email) {
		errs.add("email", "Invalid email format")
	}
	for _, msg := range passwordFormatIssues(r.Password) {
		errs.add("password", msg)
	}
	if len(errs) > 0 {
		return errs.err()
	}
	for _, msg := range personalInfoIssues(r.Password, r.FirstName, r.Email) {
		errs.add("password", msg)
	}
	return errs.err()
}

// Validate checks the login rules.
func (r LoginRequest) Validate() error {
	var errs fieldErrors
	if !emailPattern.MatchString(r.Email) {
		errs.add("email", "Invalid email format")
	}
	if r.Password == "" {
		errs.add("password", "Password is required")
	}
	return errs.err()
}

// Validate checks that a token is present.
func (r SSORequest) Validate() error {
	var errs fieldErrors
	if strings.TrimSpace(r.Token) == "" {
		errs.add("token", "Token is required")
	}
	return errs.err()
}

// Validate checks the fields present in the update.
func (r UpdateRequest) Validate() error {
	var errs fieldErrors
	if r.FirstName != "" && len([]rune(r.FirstName)) < 2 {
		errs.add("firstName", "First name must be at least 2 characters")
	}
	if r.Phone != nil {
		if !dialCodePattern.MatchString(r.Phone.DialCode) {
			errs.add("phone.dialCode", "Dial code must be + followed by 1 to 3 digits")
		}
		if !digitsPattern.MatchString(r.Phone.Number) {
			errs.add("phone.number", "Phone number must contain only digits")
		}
	}
	return errs.err()
}

// Validate checks the format of the new password.
func (r ResetPasswordRequest) Validate() error {
	var errs fieldErrors
	for _, msg := range passwordFormatIssues(r.Password) {
		errs.add("password", msg)
	}
	return errs.err()
}

// passwordFormatIssues returns the length and character-class failures of password: at least 8
// characters (and at most 72 bytes) drawn from letters, digits and @$!%*?&, with one uppercase,
// one digit and one special.
func passwordFormatIssues(password string) []string {
	var issues []string
	if len(password) < 8 {
		issues = append(issues, "Password must be at least 8 characters long")
	}
	if len(password) > maxPasswordBytes {
		issues = append(issues, "Password must be at most 72 characters long")
	}
	var hasUpper, hasDigit, hasSpecial bool
	allowed := password != ""
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		case r >= 'a' && r <= 'z':
		default:
			allowed = false
		}
	}
	if !hasUpper || !hasDigit || !hasSpecial || !allowed {
		issues = append(issues, "Password must contain at least 1 uppercase letter, 1 number, and 1 special character")
	}
	return issues
}

// personalInfoIssues reports a password that contains the first name or the email local part, ignoring case.
func personalInfoIssues(password, firstName, email string) []string {
	var issues []string
	pw := strings.ToLower(password)
	if name := strings.ToLower(firstName); name != "" && strings.Contains(pw, name) {
		issues = append(issues, "Password should not contain first name")
	}
	local, _, _ := strings.Cut(strings.ToLower(email), "@")
	if local != "" && strings.Contains(pw, local) {
		issues = append(issues, "Password should not contain email username")
	}
	return issues
}

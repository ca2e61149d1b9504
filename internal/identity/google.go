// Package identity verifies ID tokens issued by external identity providers.
package identity

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/idtoken"
)

// ValidateFunc verifies an ID token for audience and returns its payload.
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleVerifier resolves Google ID tokens to the email they were issued for. Signature, expiry
// and audience checks are delegated to Google's published certificates via idtoken.
type GoogleVerifier struct {
	clientID string
	validate ValidateFunc
	logger   *zap.Logger
}

// NewGoogleVerifier returns a verifier constrained to clientID. A nil logger disables logging.
func NewGoogleVerifier(clientID string, logger *zap.Logger) *GoogleVerifier {
	return NewGoogleVerifierWith(clientID, idtoken.Validate, logger)
}

// NewGoogleVerifierWith is NewGoogleVerifier with a custom validation function (tests, or a
// validator built from idtoken.NewValidator with custom client options).
func NewGoogleVerifierWith(clientID string, validate ValidateFunc, logger *zap.Logger) *GoogleVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleVerifier{clientID: clientID, validate: validate, logger: logger}
}

// Verify returns the lower-cased email carried by idToken and true, or "" and false when the token
// cannot be verified for any reason. Failures are logged, never returned.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (string, bool) {
	idToken = strings.TrimSpace(idToken)
	if v.clientID == "" {
		v.logger.Warn("identity: google verification skipped, client id not configured")
		return "", false
	}
	if idToken == "" {
		return "", false
	}
	payload, err := v.validate(ctx, idToken, v.clientID)
	if err != nil {
		v.logger.Warn("identity: google token verification failed", zap.Error(err))
		return "", false
	}
	if payload == nil {
		return "", false
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		v.logger.Warn("identity: google token email not verified", zap.String("sub", payload.Subject))
		return "", false
	}
	email, _ := payload.Claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		v.logger.Warn("identity: google token carries no email", zap.String("sub", payload.Subject))
		return "", false
	}
	return email, true
}

package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"user-account-service/internal/apperr"
)

// TokenKind selects the lifetime of an issued token and is carried in the type claim.
type TokenKind string

const (
	KindAccess        TokenKind = "accessToken"
	KindRefresh       TokenKind = "refreshToken"
	KindResetPassword TokenKind = "resetPassword"
)

// ActionResetPassword is the action claim of password reset tokens.
const ActionResetPassword = "reset_password"

var (
	// ErrTokenExpired is returned when the signature is valid but exp has passed.
	ErrTokenExpired = apperr.Unauthorized("Token has expired")
	// ErrInvalidToken is returned for any other verification failure.
	ErrInvalidToken = apperr.Unauthorized("Invalid token")
)

// Claims is the payload of every issued token. Access tokens carry UserID, Email, Role and Type;
// refresh tokens carry UserID and Type; reset tokens carry AccountID and Action.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Type      string `json:"type,omitempty"`
	AccountID string `json:"id,omitempty"`
	Action    string `json:"action,omitempty"`
}

// TokenCodec issues and validates JWTs. It signs with HS256 over a shared secret, or with
// RS256/ES256 when built from a key pair.
type TokenCodec struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	audience  string
	ttl       map[TokenKind]time.Duration
	now       func() time.Time
}

// TTLs holds the lifetime of each token kind.
type TTLs struct {
	Access  time.Duration
	Refresh time.Duration
	Reset   time.Duration
}

// NewHMACCodec returns a codec signing with HS256 over secret.
func NewHMACCodec(secret []byte, issuer, audience string, ttls TTLs) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidKey
	}
	return newCodec(jwt.SigningMethodHS256, secret, secret, issuer, audience, ttls), nil
}

// NewKeyPairCodec returns a codec signing with privateKey (RS256 or ES256) and verifying with publicKey.
func NewKeyPairCodec(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttls TTLs) (*TokenCodec, error) {
	var method jwt.SigningMethod
	switch privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return nil, ErrInvalidKey
	}
	if KeyAlg(publicKey) != method.Alg() {
		return nil, ErrInvalidKey
	}
	return newCodec(method, privateKey, publicKey, issuer, audience, ttls), nil
}

func newCodec(method jwt.SigningMethod, signKey, verifyKey any, issuer, audience string, ttls TTLs) *TokenCodec {
	return &TokenCodec{
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		issuer:    issuer,
		audience:  audience,
		ttl: map[TokenKind]time.Duration{
			KindAccess:        ttls.Access,
			KindRefresh:       ttls.Refresh,
			KindResetPassword: ttls.Reset,
		},
		now: time.Now,
	}
}

// Generate signs claims as a token of the given kind. Registered claims (iss, aud, iat, exp, jti)
// are set by the codec; any values the caller put there are overwritten.
func (c *TokenCodec) Generate(claims Claims, kind TokenKind) (string, error) {
	ttl, ok := c.ttl[kind]
	if !ok || ttl <= 0 {
		return "", errors.New("security: no lifetime configured for token kind " + string(kind))
	}
	jti, err := generateJTI()
	if err != nil {
		return "", err
	}
	now := c.now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        jti,
		Issuer:    c.issuer,
		Audience:  jwt.ClaimStrings{c.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	t := jwt.NewWithClaims(c.method, claims)
	return t.SignedString(c.signKey)
}

// Validate parses and verifies tokenString (signature, algorithm, exp, iss, aud). It returns
// ErrTokenExpired when only the expiry check failed and ErrInvalidToken for everything else.
func (c *TokenCodec) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.verifyKey, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package v1

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime embedded in issued tokens.
const DefaultTokenTTL = 48 * time.Hour

// TokenClaims is the payload of a session token.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs session tokens with a process-wide HMAC secret. The server
// never decodes issued tokens again; they are only used as session store keys.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns an HS256 token embedding email and an expiry ttl from now.
func (i *TokenIssuer) Issue(email string) (string, error) {
	if len(i.secret) == 0 {
		return "", fmt.Errorf("sign token: %w: signing secret is not set", ErrConfiguration)
	}

	now := i.now()
	claims := TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

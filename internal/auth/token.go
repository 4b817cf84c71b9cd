package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/telemedhq/telemed-api/internal/models"
)

// TokenTTL is how long an issued bearer token stays valid. Expiry is the only
// invalidation mechanism; there is no revocation list.
const TokenTTL = 48 * time.Hour

// ErrInvalidToken covers bad signatures, malformed payloads and expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the payload embedded in a bearer token. The wire field names match
// what clients already store: {"id": ..., "type": "doctor"|"patient"}.
type Claims struct {
	UserID string      `json:"id"`
	Role   models.Role `json:"type"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies bearer tokens with a process-wide secret
// that is read once at startup and injected here.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = TokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for the given user id and role.
func (m *TokenManager) Issue(userID string, role models.Role) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("signing secret is not configured")
	}
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates a token string, returning its claims.
func (m *TokenManager) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

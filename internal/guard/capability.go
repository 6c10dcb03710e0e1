package guard

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ScopeDeleteExpense allows deleting expenses.
const ScopeDeleteExpense = "expense:delete"

const issuer = "housesplit"

// CapabilityManager handles capability token generation and validation.
type CapabilityManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// Claims represents the JWT claims of a capability.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// NewCapabilityManager creates a manager signing with secretKey.
func NewCapabilityManager(secretKey []byte, ttl time.Duration) *CapabilityManager {
	return &CapabilityManager{
		secretKey: secretKey,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Issue creates a new capability for scope and returns it with its expiry.
func (m *CapabilityManager) Issue(scope string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := &Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign capability: %w", err)
	}
	return signed, expires, nil
}

// Validate parses a capability and checks that it grants scope.
func (m *CapabilityManager) Validate(tokenString, scope string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return m.secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCapability, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCapability
	}
	if claims.Scope != scope {
		return nil, fmt.Errorf("%w: scope %q does not grant %q", ErrInvalidCapability, claims.Scope, scope)
	}
	return claims, nil
}

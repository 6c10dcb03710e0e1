// Package guard implements the delete guard.
//
// Deleting an expense requires either the household's shared delete secret or
// a short-lived capability obtained by exchanging that secret. This keeps
// accidental deletions out of the everyday UI; it is not access control and
// does not identify who deleted what.
package guard

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDisabled          = errors.New("deletion is disabled: no delete secret configured")
	ErrWrongSecret       = errors.New("wrong delete secret")
	ErrInvalidCapability = errors.New("invalid or expired capability")
	ErrMissingCredential = errors.New("delete secret or capability required")
)

// Config configures a Guard. When both Secret and SecretHash are empty the
// guard is disabled and every check fails with ErrDisabled.
type Config struct {
	// Secret is the plain shared secret. It is hashed at startup.
	Secret string

	// SecretHash is a bcrypt hash of the secret and takes precedence over Secret.
	SecretHash string

	// CapabilityKey signs capabilities. A random key is generated when empty,
	// which invalidates outstanding capabilities on restart.
	CapabilityKey string

	// CapabilityTTL is how long an issued capability stays valid.
	CapabilityTTL time.Duration
}

// Guard checks delete secrets and issues capabilities.
type Guard struct {
	hash         []byte
	capabilities *CapabilityManager
}

// New builds a Guard from cfg.
func New(cfg Config) (*Guard, error) {
	g := &Guard{}

	switch {
	case cfg.SecretHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.SecretHash)); err != nil {
			return nil, fmt.Errorf("invalid delete secret hash: %w", err)
		}
		g.hash = []byte(cfg.SecretHash)
	case cfg.Secret != "":
		hash, err := HashSecret(cfg.Secret)
		if err != nil {
			return nil, err
		}
		g.hash = []byte(hash)
	}

	key := []byte(cfg.CapabilityKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate capability key: %w", err)
		}
	}
	ttl := cfg.CapabilityTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	g.capabilities = NewCapabilityManager(key, ttl)

	return g, nil
}

// HashSecret returns the bcrypt hash of secret, suitable for SecretHash.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// Enabled reports whether a delete secret is configured.
func (g *Guard) Enabled() bool {
	return len(g.hash) > 0
}

// CheckSecret compares secret with the configured one.
func (g *Guard) CheckSecret(secret string) error {
	if !g.Enabled() {
		return ErrDisabled
	}
	if secret == "" {
		return ErrMissingCredential
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(secret)); err != nil {
		return ErrWrongSecret
	}
	return nil
}

// Unlock exchanges the secret for a delete capability.
func (g *Guard) Unlock(secret string) (string, time.Time, error) {
	if err := g.CheckSecret(secret); err != nil {
		return "", time.Time{}, err
	}
	return g.capabilities.Issue(ScopeDeleteExpense)
}

// Authorize checks a capability for the delete scope.
func (g *Guard) Authorize(capability string) error {
	if !g.Enabled() {
		return ErrDisabled
	}
	if capability == "" {
		return ErrMissingCredential
	}
	_, err := g.capabilities.Validate(capability, ScopeDeleteExpense)
	return err
}

// Allow accepts either a capability or the secret itself. A credential
// shaped like a token that fails validation is still tried as the secret.
func (g *Guard) Allow(credential string) error {
	if !looksLikeToken(credential) {
		return g.CheckSecret(credential)
	}
	err := g.Authorize(credential)
	if errors.Is(err, ErrInvalidCapability) && g.CheckSecret(credential) == nil {
		return nil
	}
	return err
}

// looksLikeToken reports whether s has the three dot-separated parts of a JWT.
func looksLikeToken(s string) bool {
	return strings.Count(s, ".") == 2 && !strings.ContainsAny(s, " \t")
}

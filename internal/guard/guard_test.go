package guard

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := New(Config{Secret: "open sesame", CapabilityKey: "test-key", CapabilityTTL: time.Minute})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return g
}

func TestGuard_CheckSecret(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name    string
		secret  string
		wantErr error
	}{
		{name: "correct secret", secret: "open sesame"},
		{name: "wrong secret", secret: "open barley", wantErr: ErrWrongSecret},
		{name: "empty secret", secret: "", wantErr: ErrMissingCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CheckSecret(tt.secret)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckSecret() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGuard_Disabled(t *testing.T) {
	g, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if g.Enabled() {
		t.Fatal("guard without secret should be disabled")
	}
	if err := g.CheckSecret("anything"); !errors.Is(err, ErrDisabled) {
		t.Errorf("CheckSecret() error = %v, want ErrDisabled", err)
	}
	if _, _, err := g.Unlock("anything"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Unlock() error = %v, want ErrDisabled", err)
	}
	if err := g.Authorize("a.b.c"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Authorize() error = %v, want ErrDisabled", err)
	}
}

func TestGuard_SecretHash(t *testing.T) {
	hash, err := HashSecret("from config")
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		t.Fatalf("HashSecret did not produce a bcrypt hash: %v", err)
	}

	g, err := New(Config{SecretHash: hash, Secret: "ignored"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := g.CheckSecret("from config"); err != nil {
		t.Errorf("CheckSecret() = %v, want nil", err)
	}
	if err := g.CheckSecret("ignored"); !errors.Is(err, ErrWrongSecret) {
		t.Errorf("hash should take precedence over plain secret, got %v", err)
	}

	if _, err := New(Config{SecretHash: "not-a-hash"}); err == nil {
		t.Error("New should reject a malformed hash")
	}
}

func TestGuard_CapabilityRoundTrip(t *testing.T) {
	g := newTestGuard(t)

	token, expires, err := g.Unlock("open sesame")
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("capability %q is not a JWT", token)
	}
	if until := time.Until(expires); until <= 0 || until > time.Minute {
		t.Errorf("expires in %v, want within a minute", until)
	}

	if err := g.Authorize(token); err != nil {
		t.Errorf("Authorize() = %v, want nil", err)
	}
	if err := g.Allow(token); err != nil {
		t.Errorf("Allow(capability) = %v, want nil", err)
	}
	if err := g.Allow("open sesame"); err != nil {
		t.Errorf("Allow(secret) = %v, want nil", err)
	}

	if _, _, err := g.Unlock("wrong"); !errors.Is(err, ErrWrongSecret) {
		t.Errorf("Unlock(wrong) error = %v, want ErrWrongSecret", err)
	}
}

func TestGuard_AllowDottedSecret(t *testing.T) {
	g, err := New(Config{Secret: "a.b.c", CapabilityKey: "test-key", CapabilityTTL: time.Minute})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := g.Allow("a.b.c"); err != nil {
		t.Errorf("Allow(dotted secret) = %v, want nil", err)
	}
	if err := g.Allow("x.y.z"); !errors.Is(err, ErrInvalidCapability) {
		t.Errorf("Allow(wrong dotted value) = %v, want ErrInvalidCapability", err)
	}
}

func TestGuard_RejectsBadCapabilities(t *testing.T) {
	g := newTestGuard(t)
	token, _, err := g.Unlock("open sesame")
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	other, err := New(Config{Secret: "open sesame", CapabilityKey: "other-key", CapabilityTTL: time.Minute})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := other.Authorize(token); !errors.Is(err, ErrInvalidCapability) {
		t.Errorf("capability signed with another key: error = %v, want ErrInvalidCapability", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if err := g.Authorize(tampered); !errors.Is(err, ErrInvalidCapability) {
		t.Errorf("tampered capability: error = %v, want ErrInvalidCapability", err)
	}

	wrongScope, _, err := g.capabilities.Issue("expense:create")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := g.Authorize(wrongScope); !errors.Is(err, ErrInvalidCapability) {
		t.Errorf("wrong scope: error = %v, want ErrInvalidCapability", err)
	}
}

func TestCapabilityManager_Expired(t *testing.T) {
	m := NewCapabilityManager([]byte("k"), time.Minute)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, _, err := m.Issue(ScopeDeleteExpense)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Validate(token, ScopeDeleteExpense); err != nil {
		t.Fatalf("fresh capability rejected: %v", err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := m.Validate(token, ScopeDeleteExpense); !errors.Is(err, ErrInvalidCapability) {
		t.Errorf("expired capability: error = %v, want ErrInvalidCapability", err)
	}
}

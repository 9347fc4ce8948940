package auth

import (
	"bytes"
	"testing"
	"time"

	"github.com/usherlabs/custody/internal/chain"
	"github.com/usherlabs/custody/internal/did"
)

func testIdentity(t *testing.T, b byte) *Identity {
	t.Helper()
	d, err := did.FromSeed(bytes.Repeat([]byte{b}, did.SeedSize))
	if err != nil {
		t.Fatalf("FromSeed failed: %v", err)
	}
	return &Identity{
		Chain:      chain.Arweave,
		Connection: chain.ArConnect,
		Address:    "addr-" + string('a'+b),
		DID:        d,
	}
}

func TestGenerateToken(t *testing.T) {
	config := &TokenConfig{Issuer: "test-issuer", ExpiryHours: 24}

	t.Run("generates valid token", func(t *testing.T) {
		token, err := GenerateToken(testIdentity(t, 1), config)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token == "" {
			t.Error("expected non-empty token")
		}
	})

	t.Run("different identities get different tokens", func(t *testing.T) {
		token1, _ := GenerateToken(testIdentity(t, 1), config)
		token2, _ := GenerateToken(testIdentity(t, 2), config)
		if token1 == token2 {
			t.Error("expected different tokens for different identities")
		}
	})
}

func TestValidateToken(t *testing.T) {
	config := &TokenConfig{Issuer: "test-issuer", ExpiryHours: 24}
	id := testIdentity(t, 1)

	t.Run("validates correct token", func(t *testing.T) {
		token, _ := GenerateToken(id, config)
		claims, err := ValidateToken(token, config)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.DID() != id.DID.ID() {
			t.Errorf("expected subject %q, got %q", id.DID.ID(), claims.DID())
		}
		if claims.Issuer != "test-issuer" {
			t.Errorf("expected issuer 'test-issuer', got '%s'", claims.Issuer)
		}
		if claims.Wallet == nil || claims.Wallet.Address != id.Address {
			t.Errorf("expected wallet %q in claims, got %+v", id.Address, claims.Wallet)
		}
	})

	t.Run("rejects invalid token", func(t *testing.T) {
		_, err := ValidateToken("invalid-token", config)
		if err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expiredConfig := &TokenConfig{Issuer: "test-issuer", ExpiryHours: 0}
		token, _ := GenerateToken(id, expiredConfig)

		// Wait a moment for token to expire
		time.Sleep(10 * time.Millisecond)

		_, err := ValidateToken(token, config)
		if err != ErrExpiredToken {
			t.Errorf("expected ErrExpiredToken, got %v", err)
		}
	})

	t.Run("rejects token whose subject is another DID", func(t *testing.T) {
		impostor := testIdentity(t, 2)
		impostor.DID = forgedDID{DIDHandle: impostor.DID, id: id.DID.ID()}

		token, err := GenerateToken(impostor, config)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := ValidateToken(token, config); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("rejects wrong issuer", func(t *testing.T) {
		token, _ := GenerateToken(id, &TokenConfig{Issuer: "other", ExpiryHours: 1})
		if _, err := ValidateToken(token, config); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

// forgedDID claims an id it holds no key for.
type forgedDID struct {
	DIDHandle
	id string
}

func (f forgedDID) ID() string { return f.id }

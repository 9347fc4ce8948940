// Package arweave implements Arweave wallet keys: RSA key generation,
// JWK serialization, address derivation and RSA-PSS signing.
package arweave

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/usherlabs/custody/internal/chain"
)

const (
	// DefaultKeyBits is the modulus size of wallets generated by Arweave clients.
	DefaultKeyBits = 4096

	// PublicExponent is the RSA public exponent used by Arweave wallets.
	PublicExponent = 65537
)

// ErrNotRSAKey is returned when a key of the wrong type is passed in.
var ErrNotRSAKey = errors.New("arweave key must be *rsa.PrivateKey")

// Keys generates and serializes Arweave wallet keys.
// The zero value generates DefaultKeyBits keys.
type Keys struct {
	Bits int
}

// Chain returns chain.Arweave.
func (Keys) Chain() chain.Chain {
	return chain.Arweave
}

// Generate creates a new RSA wallet key.
func (k Keys) Generate(ctx context.Context) (crypto.PrivateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bits := k.Bits
	if bits == 0 {
		bits = DefaultKeyBits
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate arweave key: %w", err)
	}
	return key, nil
}

// Address derives the wallet address of key.
func (Keys) Address(key crypto.PrivateKey) (string, error) {
	rk, ok := key.(*rsa.PrivateKey)
	if !ok {
		return "", ErrNotRSAKey
	}
	return Address(&rk.PublicKey), nil
}

// Marshal serializes key as an Arweave JWK.
func (Keys) Marshal(key crypto.PrivateKey) ([]byte, error) {
	rk, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return MarshalJWK(rk)
}

// Unmarshal parses an Arweave JWK.
func (Keys) Unmarshal(data []byte) (crypto.PrivateKey, error) {
	return ParseJWK(data)
}

// Address is base64url(SHA-256(n)) of the wallet's public modulus.
func Address(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

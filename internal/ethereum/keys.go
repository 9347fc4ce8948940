package ethereum

import (
	"context"
	gocrypto "crypto"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/usherlabs/custody/internal/chain"
)

// ErrNotECDSAKey is returned when a key of the wrong type is passed in.
var ErrNotECDSAKey = errors.New("ethereum key must be *ecdsa.PrivateKey")

// Keys generates and serializes secp256k1 wallet keys.
type Keys struct{}

// Chain returns chain.Ethereum.
func (Keys) Chain() chain.Chain {
	return chain.Ethereum
}

// Generate creates a new random wallet key.
func (Keys) Generate(ctx context.Context) (gocrypto.PrivateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return key, nil
}

// Address returns the checksummed address of key.
func (Keys) Address(key gocrypto.PrivateKey) (string, error) {
	ek, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return "", ErrNotECDSAKey
	}
	return crypto.PubkeyToAddress(ek.PublicKey).Hex(), nil
}

// Marshal encodes key as lowercase hex without a 0x prefix.
func (Keys) Marshal(key gocrypto.PrivateKey) ([]byte, error) {
	ek, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrNotECDSAKey
	}
	return []byte(hex.EncodeToString(crypto.FromECDSA(ek))), nil
}

// Unmarshal parses a hex private key.
func (Keys) Unmarshal(data []byte) (gocrypto.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(string(data)), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}

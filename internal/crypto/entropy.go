package crypto

import (
	"crypto/sha256"
	"errors"
)

// EntropySize is the length of derived identity entropy in bytes.
const EntropySize = sha256.Size

// ErrEmptySignature is returned when entropy derivation is given no signature.
var ErrEmptySignature = errors.New("signature is empty")

// DeriveEntropy hashes a wallet signature into identity derivation material.
// The signature must itself be deterministic for the (wallet, message) pair,
// otherwise the derived identity changes between sessions.
func DeriveEntropy(signature []byte) ([]byte, error) {
	if len(signature) == 0 {
		return nil, ErrEmptySignature
	}
	sum := sha256.Sum256(signature)
	return sum[:], nil
}

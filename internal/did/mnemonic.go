package did

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned for phrases that fail BIP39 validation.
var ErrInvalidMnemonic = errors.New("invalid BIP39 mnemonic")

// NewMnemonic generates a 24-word BIP39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256) // 256 bits = 24 words
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// SeedFromMnemonic returns the DID seed encoded by a BIP39 mnemonic.
// The mnemonic's own entropy is the seed, so a 24-word phrase maps to
// exactly one DID.
func SeedFromMnemonic(mnemonic string) ([]byte, error) {
	entropy, err := bip39.EntropyFromMnemonic(normalizeMnemonic(mnemonic))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	if len(entropy) != SeedSize {
		return nil, fmt.Errorf("%w: need a 24-word phrase", ErrInvalidMnemonic)
	}
	return entropy, nil
}

// ParseSeed accepts either a 64-character hex seed or a 24-word mnemonic.
func ParseSeed(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, " \t\n") {
		return SeedFromMnemonic(s)
	}

	seed, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: not hex or mnemonic", ErrInvalidSeed)
	}
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSeed, len(seed))
	}
	return seed, nil
}

func normalizeMnemonic(m string) string {
	return strings.Join(strings.Fields(strings.ToLower(m)), " ")
}

package did

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LoadSeed reads a seed file written by SaveSeed. Mnemonic files are accepted too.
func LoadSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(string(data))
}

// SaveSeed writes seed as hex with restricted permissions (0600).
func SaveSeed(path string, seed []byte) error {
	if len(seed) != SeedSize {
		return fmt.Errorf("%w: got %d", ErrInvalidSeed, len(seed))
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create seed directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write seed file: %w", err)
	}
	return nil
}

// EnsureSeed loads the seed at path, or generates and saves a new one.
func EnsureSeed(path string) ([]byte, error) {
	seed, err := LoadSeed(path)
	if err == nil {
		return seed, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		seed = make([]byte, SeedSize)
		if _, err := io.ReadFull(rand.Reader, seed); err != nil {
			return nil, fmt.Errorf("failed to generate seed: %w", err)
		}
		if err := SaveSeed(path, seed); err != nil {
			return nil, err
		}
		return seed, nil
	}

	return nil, fmt.Errorf("failed to load seed from %s: %w", path, err)
}

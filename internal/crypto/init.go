package crypto

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MasterKeyFile is the filename for the auto-generated master key.
const MasterKeyFile = "master.key"

// EncryptionConfig holds the local encryption configuration.
type EncryptionConfig struct {
	// MasterKey is used for encrypting store documents at rest.
	// If nil, encryption is disabled.
	MasterKey *MasterKey

	// DataDir is the directory where encryption keys are stored.
	DataDir string
}

// InitEncryption loads or creates the master key.
//
// The master key is loaded in this order of precedence:
//  1. USHER_MASTER_KEY environment variable (if set)
//  2. {dataDir}/master.key file (if exists)
//  3. Auto-generated and saved to {dataDir}/master.key
//
// Set createIfMissing=false to disable auto-generation.
func InitEncryption(dataDir string, createIfMissing bool) (*EncryptionConfig, error) {
	config := &EncryptionConfig{
		DataDir: dataDir,
	}

	mk, err := NewMasterKeyFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load master key from env: %w", err)
	}
	if mk != nil {
		config.MasterKey = mk
		return config, nil
	}

	keyPath := filepath.Join(dataDir, MasterKeyFile)
	mk, err = loadMasterKeyFromFile(keyPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load master key from file: %w", err)
	}

	if mk != nil {
		config.MasterKey = mk
	} else if createIfMissing {
		mk, err = GenerateMasterKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate master key: %w", err)
		}

		if err := saveMasterKeyToFile(mk, keyPath); err != nil {
			return nil, fmt.Errorf("failed to save master key: %w", err)
		}

		config.MasterKey = mk
	}

	return config, nil
}

// loadMasterKeyFromFile loads a master key from a file.
func loadMasterKeyFromFile(path string) (*MasterKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	keyStr := strings.TrimSpace(string(data))
	if len(keyStr) == 0 {
		return nil, fmt.Errorf("empty master key file")
	}

	return ParseMasterKey(keyStr)
}

// saveMasterKeyToFile saves a master key to a file with restricted permissions.
func saveMasterKeyToFile(mk *MasterKey, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(mk.Export()), 0600); err != nil {
		return fmt.Errorf("failed to write master key file: %w", err)
	}

	return nil
}

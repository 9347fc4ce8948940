// Package crypto provides the primitives behind identity key custody.
// It implements two layers of protection:
//   - Layer 1: age X25519 envelopes that seal custodial keys to one or more identities
//   - Layer 2: Application-level encryption for locally stored documents (AES-GCM)
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// MasterKeyEnvVar is the environment variable for the master encryption key.
	// If not set, a key will be derived from a generated key file.
	MasterKeyEnvVar = "USHER_MASTER_KEY"

	// KeySize is the size of encryption keys in bytes (256 bits).
	KeySize = 32

	// NonceSize is the size of AES-GCM nonces in bytes.
	NonceSize = 12

	// SaltSize is the size of PBKDF2 salt in bytes.
	SaltSize = 16

	// PBKDF2Iterations is the number of iterations for key derivation.
	PBKDF2Iterations = 100000
)

var (
	// ErrDecryptionFailed is returned when decryption fails (wrong recipient, bad key or corrupted data).
	ErrDecryptionFailed = errors.New("decryption failed: invalid key or corrupted data")

	// ErrInvalidCiphertext is returned when ciphertext format is invalid.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// ErrNoRecipients is returned when sealing is attempted without any recipient.
	ErrNoRecipients = errors.New("at least one recipient is required")
)

// MasterKey holds the derived master encryption key for documents at rest.
type MasterKey struct {
	key  [KeySize]byte
	salt []byte
}

// NewMasterKey creates a MasterKey from a password/passphrase and salt.
// If salt is nil, a random salt is generated.
func NewMasterKey(password []byte, salt []byte) (*MasterKey, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	derived := pbkdf2.Key(password, salt, PBKDF2Iterations, KeySize, sha256.New)

	mk := &MasterKey{salt: salt}
	copy(mk.key[:], derived)

	return mk, nil
}

// NewMasterKeyFromEnv creates a MasterKey from the USHER_MASTER_KEY environment variable.
// If the env var is not set, it returns nil (no encryption).
func NewMasterKeyFromEnv() (*MasterKey, error) {
	keyStr := os.Getenv(MasterKeyEnvVar)
	if keyStr == "" {
		return nil, nil
	}
	return ParseMasterKey(keyStr)
}

// ParseMasterKey decodes a key produced by Export (base64 of salt followed by key).
func ParseMasterKey(keyStr string) (*MasterKey, error) {
	data, err := base64.StdEncoding.DecodeString(keyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid master key format: %w", err)
	}

	if len(data) < SaltSize+KeySize {
		return nil, errors.New("master key too short")
	}

	mk := &MasterKey{
		salt: data[:SaltSize],
	}
	copy(mk.key[:], data[SaltSize:SaltSize+KeySize])

	return mk, nil
}

// Salt returns the salt used for key derivation.
func (mk *MasterKey) Salt() []byte {
	return mk.salt
}

// Export returns the key in a format suitable for the USHER_MASTER_KEY env var.
func (mk *MasterKey) Export() string {
	data := make([]byte, len(mk.salt)+KeySize)
	copy(data, mk.salt)
	copy(data[len(mk.salt):], mk.key[:])
	return base64.StdEncoding.EncodeToString(data)
}

// Encrypt encrypts plaintext using AES-256-GCM.
// Returns base64-encoded ciphertext with nonce prepended.
func (mk *MasterKey) Encrypt(plaintext []byte) (string, error) {
	gcm, err := mk.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64-encoded ciphertext using AES-256-GCM.
func (mk *MasterKey) Decrypt(encoded string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	gcm, err := mk.aead()
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrInvalidCiphertext
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func (mk *MasterKey) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(mk.key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// GenerateMasterKey generates a new random master key suitable for USHER_MASTER_KEY.
func GenerateMasterKey() (*MasterKey, error) {
	password := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, password); err != nil {
		return nil, fmt.Errorf("failed to generate random password: %w", err)
	}
	return NewMasterKey(password, nil)
}

// SealToRecipients encrypts plaintext with age so that any one of the
// recipients can open it. The returned bytes are the binary age file.
func SealToRecipients(plaintext []byte, recipients ...age.Recipient) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypter: %w", err)
	}

	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close encrypter: %w", err)
	}

	return buf.Bytes(), nil
}

// OpenWith decrypts an age file produced by SealToRecipients.
// Any failure to unwrap or authenticate is reported as ErrDecryptionFailed.
func OpenWith(ciphertext []byte, identities ...age.Identity) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, ErrInvalidCiphertext
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return plaintext, nil
}

// ZeroKey securely zeroes a key in memory.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

// Package did implements deterministic did:key identities.
//
// A DID is built from 32 bytes of seed material. The seed is used directly as
// an Ed25519 signing seed, and the matching X25519 key pair (derived the same
// way libsodium converts Ed25519 keys) is used to open age envelopes. Because
// the X25519 public key is computed from the Ed25519 public key, any did:key
// identifier can be used as an envelope recipient.
package did

import (
	"crypto"
	"crypto/ed25519"
	"crypto/sha512"
	"errors"
	"fmt"
	"strings"

	"filippo.io/age"
	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/mr-tron/base58"

	ucrypto "github.com/usherlabs/custody/internal/crypto"
)

const (
	// Prefix is the DID method prefix for every identifier in this package.
	Prefix = "did:key:"

	// SeedSize is the number of bytes of seed material a DID is built from.
	SeedSize = ed25519.SeedSize

	ageSecretKeyHRP = "age-secret-key-"
	ageRecipientHRP = "age"
)

// multicodec prefix for an Ed25519 public key.
var ed25519Codec = []byte{0xed, 0x01}

var (
	ErrInvalidSeed = errors.New("did seed must be 32 bytes")
	ErrInvalidDID  = errors.New("invalid did:key identifier")
)

// DID is a did:key identity with signing and decryption capability.
type DID struct {
	id         string
	signingKey ed25519.PrivateKey
	identity   *age.X25519Identity
}

// FromSeed builds the DID for seed. The same seed always yields the same DID.
func FromSeed(seed []byte) (*DID, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSeed, len(seed))
	}

	signingKey := ed25519.NewKeyFromSeed(seed)
	pub := signingKey.Public().(ed25519.PublicKey)

	h := sha512.Sum512(seed)
	identity, err := identityFromScalar(h[:32])
	ucrypto.ZeroKey(h[:])
	if err != nil {
		return nil, err
	}

	return &DID{
		id:         FormatKey(pub),
		signingKey: signingKey,
		identity:   identity,
	}, nil
}

// ID returns the did:key identifier.
func (d *DID) ID() string {
	return d.id
}

// String implements fmt.Stringer.
func (d *DID) String() string {
	return d.id
}

// PublicKey returns the Ed25519 verification key.
func (d *DID) PublicKey() ed25519.PublicKey {
	return d.signingKey.Public().(ed25519.PublicKey)
}

// SigningKey returns the Ed25519 key as a crypto.Signer.
func (d *DID) SigningKey() crypto.Signer {
	return d.signingKey
}

// Recipient returns the age recipient that envelopes for this DID are sealed to.
func (d *DID) Recipient() *age.X25519Recipient {
	return d.identity.Recipient()
}

// Sign signs message with the DID's Ed25519 key.
func (d *DID) Sign(message []byte) []byte {
	return ed25519.Sign(d.signingKey, message)
}

// Verify checks an Ed25519 signature made by the DID with identifier id.
func Verify(id string, message, signature []byte) bool {
	pub, err := ParseKey(id)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, message, signature)
}

// CreateJWE seals plaintext to recipients. The DID itself is not added
// implicitly; callers that want to read the envelope back list their own id.
func (d *DID) CreateJWE(plaintext []byte, recipients []string) (*ucrypto.Envelope, error) {
	return CreateJWE(plaintext, recipients)
}

// DecryptJWE opens an envelope addressed to this DID. Every failure,
// including an envelope not addressed to d, wraps crypto.ErrDecryptionFailed.
func (d *DID) DecryptJWE(env *ucrypto.Envelope) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", ucrypto.ErrDecryptionFailed)
	}
	if !env.AddressedTo(d.id) {
		return nil, fmt.Errorf("%w: envelope not addressed to %s", ucrypto.ErrDecryptionFailed, d.id)
	}

	payload, err := env.Payload()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ucrypto.ErrDecryptionFailed, err)
	}

	return ucrypto.OpenWith(payload, d.identity)
}

// CreateJWE seals plaintext to the listed did:key identifiers. Only public
// material is needed. Duplicate recipients are collapsed, keeping order.
func CreateJWE(plaintext []byte, recipients []string) (*ucrypto.Envelope, error) {
	if len(recipients) == 0 {
		return nil, ucrypto.ErrNoRecipients
	}

	seen := make(map[string]bool, len(recipients))
	kids := make([]string, 0, len(recipients))
	ageRecipients := make([]age.Recipient, 0, len(recipients))
	for _, id := range recipients {
		if seen[id] {
			continue
		}
		seen[id] = true

		r, err := RecipientFor(id)
		if err != nil {
			return nil, err
		}
		kids = append(kids, id)
		ageRecipients = append(ageRecipients, r)
	}

	ciphertext, err := ucrypto.SealToRecipients(plaintext, ageRecipients...)
	if err != nil {
		return nil, err
	}
	return ucrypto.NewEnvelope(kids, ciphertext)
}

// RecipientFor resolves a did:key identifier to its age recipient.
func RecipientFor(id string) (*age.X25519Recipient, error) {
	pub, err := ParseKey(id)
	if err != nil {
		return nil, err
	}

	p, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDID, err)
	}

	encoded, err := encodeBech32(ageRecipientHRP, p.BytesMontgomery())
	if err != nil {
		return nil, err
	}
	return age.ParseX25519Recipient(encoded)
}

// FormatKey returns the did:key identifier for an Ed25519 public key.
func FormatKey(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, len(ed25519Codec)+len(pub))
	buf = append(buf, ed25519Codec...)
	buf = append(buf, pub...)
	return Prefix + "z" + base58.Encode(buf)
}

// ParseKey extracts the Ed25519 public key from a did:key identifier.
func ParseKey(id string) (ed25519.PublicKey, error) {
	encoded, ok := strings.CutPrefix(id, Prefix+"z")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDID, id)
	}

	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDID, err)
	}
	if len(raw) != len(ed25519Codec)+ed25519.PublicKeySize ||
		raw[0] != ed25519Codec[0] || raw[1] != ed25519Codec[1] {
		return nil, fmt.Errorf("%w: not an ed25519 key", ErrInvalidDID)
	}

	return ed25519.PublicKey(raw[len(ed25519Codec):]), nil
}

func identityFromScalar(scalar []byte) (*age.X25519Identity, error) {
	encoded, err := encodeBech32(ageSecretKeyHRP, scalar)
	if err != nil {
		return nil, err
	}
	return age.ParseX25519Identity(strings.ToUpper(encoded))
}

func encodeBech32(hrp string, data []byte) (string, error) {
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert key bits: %w", err)
	}
	return bech32.Encode(hrp, conv)
}

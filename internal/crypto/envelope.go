package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// EnvelopeEncryption names the content encryption used in the protected header.
	EnvelopeEncryption = "age-v1"

	// EnvelopeKeyAlgorithm names the per-recipient key wrapping algorithm.
	EnvelopeKeyAlgorithm = "X25519"
)

// Envelope is a JWE-shaped container addressed to one or more identities.
// Recipients are listed by key id (a DID); the ciphertext is an age file.
type Envelope struct {
	Protected  string              `json:"protected"`
	Recipients []EnvelopeRecipient `json:"recipients"`
	Ciphertext string              `json:"ciphertext"`
}

// EnvelopeRecipient is one entry of Envelope.Recipients.
type EnvelopeRecipient struct {
	Header RecipientHeader `json:"header"`
}

// RecipientHeader identifies the recipient key.
type RecipientHeader struct {
	Alg string `json:"alg"`
	KID string `json:"kid"`
}

type protectedHeader struct {
	Enc string `json:"enc"`
}

// NewEnvelope wraps an age ciphertext for the given recipient key ids.
func NewEnvelope(kids []string, ciphertext []byte) (*Envelope, error) {
	protected, err := json.Marshal(protectedHeader{Enc: EnvelopeEncryption})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal protected header: %w", err)
	}

	env := &Envelope{
		Protected:  base64.RawURLEncoding.EncodeToString(protected),
		Recipients: make([]EnvelopeRecipient, 0, len(kids)),
		Ciphertext: base64.RawURLEncoding.EncodeToString(ciphertext),
	}
	for _, kid := range kids {
		env.Recipients = append(env.Recipients, EnvelopeRecipient{
			Header: RecipientHeader{Alg: EnvelopeKeyAlgorithm, KID: kid},
		})
	}
	return env, nil
}

// KeyIDs returns the recipient key ids in envelope order.
func (e *Envelope) KeyIDs() []string {
	kids := make([]string, 0, len(e.Recipients))
	for _, r := range e.Recipients {
		kids = append(kids, r.Header.KID)
	}
	return kids
}

// AddressedTo reports whether kid is one of the envelope recipients.
func (e *Envelope) AddressedTo(kid string) bool {
	for _, r := range e.Recipients {
		if r.Header.KID == kid {
			return true
		}
	}
	return false
}

// Payload validates the protected header and returns the raw age ciphertext.
func (e *Envelope) Payload() ([]byte, error) {
	rawHeader, err := base64.RawURLEncoding.DecodeString(e.Protected)
	if err != nil {
		return nil, fmt.Errorf("%w: protected header: %v", ErrInvalidCiphertext, err)
	}
	var hdr protectedHeader
	if err := json.Unmarshal(rawHeader, &hdr); err != nil {
		return nil, fmt.Errorf("%w: protected header: %v", ErrInvalidCiphertext, err)
	}
	if hdr.Enc != EnvelopeEncryption {
		return nil, fmt.Errorf("%w: unsupported encryption %q", ErrInvalidCiphertext, hdr.Enc)
	}

	ciphertext, err := base64.RawURLEncoding.DecodeString(e.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrInvalidCiphertext, err)
	}
	return ciphertext, nil
}

// EncodeEnvelope serializes an envelope to a text-safe string
// (base64url of its JSON form) for storage.
func EncodeEnvelope(env *Envelope) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeEnvelope parses a string produced by EncodeEnvelope.
// Padded and standard base64 are accepted as well.
func DecodeEnvelope(encoded string) (*Envelope, error) {
	data, err := decodeBase64(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(env.Recipients) == 0 || env.Ciphertext == "" {
		return nil, fmt.Errorf("%w: envelope has no recipients or ciphertext", ErrInvalidCiphertext)
	}
	return &env, nil
}

func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

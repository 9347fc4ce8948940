// Package custody generates custodial wallet keys and protects them in
// envelopes addressed to one or more DIDs.
package custody

import (
	"context"
	"crypto"
	"fmt"
	"time"

	"github.com/usherlabs/custody/internal/chain"
	ucrypto "github.com/usherlabs/custody/internal/crypto"
)

// ChainKeys generates and serializes keys for one chain.
type ChainKeys interface {
	Chain() chain.Chain
	Generate(ctx context.Context) (crypto.PrivateKey, error)
	Address(key crypto.PrivateKey) (string, error)
	Marshal(key crypto.PrivateKey) ([]byte, error)
	Unmarshal(data []byte) (crypto.PrivateKey, error)
}

// Sealer encrypts to a set of DIDs.
type Sealer interface {
	CreateJWE(plaintext []byte, recipients []string) (*ucrypto.Envelope, error)
}

// Opener decrypts envelopes addressed to it.
type Opener interface {
	DecryptJWE(env *ucrypto.Envelope) ([]byte, error)
}

// Keypair is a wallet key with its derived address.
type Keypair struct {
	Chain   chain.Chain
	Address string
	Key     crypto.PrivateKey
}

// Generate creates a new wallet key for keys.Chain().
func Generate(ctx context.Context, keys ChainKeys) (*Keypair, error) {
	key, err := keys.Generate(ctx)
	if err != nil {
		return nil, err
	}
	return newKeypair(keys, key)
}

// Seal serializes kp's key and encrypts it to recipients. The result is
// text-safe and suitable for a document store.
func Seal(keys ChainKeys, kp *Keypair, sealer Sealer, recipients []string) (string, error) {
	raw, err := keys.Marshal(kp.Key)
	if err != nil {
		return "", err
	}
	defer ucrypto.ZeroKey(raw)

	env, err := sealer.CreateJWE(raw, recipients)
	if err != nil {
		return "", fmt.Errorf("failed to seal %s key: %w", keys.Chain(), err)
	}
	return ucrypto.EncodeEnvelope(env)
}

// Open reverses Seal. A malformed envelope or one not addressed to opener
// fails with crypto.ErrDecryptionFailed.
func Open(keys ChainKeys, sealed string, opener Opener) (*Keypair, error) {
	env, err := ucrypto.DecodeEnvelope(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ucrypto.ErrDecryptionFailed, err)
	}

	raw, err := opener.DecryptJWE(env)
	if err != nil {
		return nil, err
	}
	defer ucrypto.ZeroKey(raw)

	key, err := keys.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ucrypto.ErrDecryptionFailed, err)
	}
	return newKeypair(keys, key)
}

func newKeypair(keys ChainKeys, key crypto.PrivateKey) (*Keypair, error) {
	address, err := keys.Address(key)
	if err != nil {
		return nil, err
	}
	return &Keypair{Chain: keys.Chain(), Address: address, Key: key}, nil
}

// Envelope is the persisted record of a custodial wallet.
type Envelope struct {
	Address   string `json:"address"`
	Data      string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// NewEnvelope records sealed data for address, stamped with now.
func NewEnvelope(address, data string, now time.Time) Envelope {
	return Envelope{Address: address, Data: data, CreatedAt: now.UnixMilli()}
}

// Created returns CreatedAt as a time.
func (e Envelope) Created() time.Time {
	return time.UnixMilli(e.CreatedAt)
}

// Wallets indexes custodial envelopes by chain. It is stored as one document.
type Wallets map[chain.Chain]Envelope

// Lookup returns the envelope for c and whether one exists.
func (w Wallets) Lookup(c chain.Chain) (Envelope, bool) {
	env, ok := w[c]
	return env, ok
}

// Chains returns the chains with a custodial wallet, in no particular order.
func (w Wallets) Chains() []chain.Chain {
	chains := make([]chain.Chain, 0, len(w))
	for c := range w {
		chains = append(chains, c)
	}
	return chains
}

package auth

import (
	"context"
	gocrypto "crypto"

	"github.com/usherlabs/custody/internal/arweave"
	"github.com/usherlabs/custody/internal/crypto"
	"github.com/usherlabs/custody/internal/did"
)

// SigningProvider is an Arweave wallet able to sign arbitrary bytes.
// It must honour params.SaltLength == 0.
type SigningProvider interface {
	Signature(ctx context.Context, message []byte, params arweave.SignatureParams) ([]byte, error)
}

// EthereumSigner is an Ethereum wallet producing personal_sign signatures.
type EthereumSigner interface {
	Address(ctx context.Context) (string, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// DIDHandle is a decentralized identity with envelope and signing capability.
type DIDHandle interface {
	ID() string
	CreateJWE(plaintext []byte, recipients []string) (*crypto.Envelope, error)
	DecryptJWE(env *crypto.Envelope) ([]byte, error)
	SigningKey() gocrypto.Signer
}

// IdentityProvider turns derived entropy into a DID.
type IdentityProvider interface {
	Authenticate(ctx context.Context, entropy []byte) (DIDHandle, error)
}

// DIDKeyProvider builds did:key identities using the entropy as seed.
type DIDKeyProvider struct{}

// Authenticate implements IdentityProvider.
func (DIDKeyProvider) Authenticate(ctx context.Context, entropy []byte) (DIDHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := did.FromSeed(entropy)
	if err != nil {
		return nil, err
	}
	return d, nil
}

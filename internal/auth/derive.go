package auth

import (
	"context"
	"fmt"

	"github.com/usherlabs/custody/internal/arweave"
	"github.com/usherlabs/custody/internal/crypto"
)

// deriveArweave asks the wallet to sign its own address with zero-salt
// RSA-PSS and hashes the signature into entropy.
func deriveArweave(ctx context.Context, address string, provider SigningProvider) ([]byte, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: empty address", ErrDerivationInputInvalid)
	}

	sig, err := provider.Signature(ctx, []byte(address), arweave.DeterministicParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningRejected, err)
	}
	return derive(sig)
}

// deriveEthereum asks the wallet to personal_sign its own address.
func deriveEthereum(ctx context.Context, signer EthereumSigner) (string, []byte, error) {
	address, err := signer.Address(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrSigningRejected, err)
	}
	if address == "" {
		return "", nil, fmt.Errorf("%w: empty address", ErrDerivationInputInvalid)
	}

	sig, err := signer.SignMessage(ctx, []byte(address))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrSigningRejected, err)
	}

	entropy, err := derive(sig)
	if err != nil {
		return "", nil, err
	}
	return address, entropy, nil
}

func derive(sig []byte) ([]byte, error) {
	entropy, err := crypto.DeriveEntropy(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationInputInvalid, err)
	}
	return entropy, nil
}

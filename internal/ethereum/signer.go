// Package ethereum provides EIP-191 message signers and key handling for
// Ethereum wallets, both local keys and remote JSON-RPC wallets.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrNoAccounts       = errors.New("wallet exposes no accounts")
	ErrInvalidSignature = errors.New("invalid ethereum signature")
)

// LocalSigner signs personal messages with an in-memory secp256k1 key.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalSigner wraps key.
func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// LocalSignerFromHex parses a hex private key, with or without 0x.
func LocalSignerFromHex(hexKey string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return NewLocalSigner(key), nil
}

// Address returns the checksummed address of the key.
func (s *LocalSigner) Address(ctx context.Context) (string, error) {
	return s.address.Hex(), nil
}

// SignMessage produces a personal_sign (EIP-191) signature with v in {27, 28}.
func (s *LocalSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return nil, fmt.Errorf("signing message: %w", err)
	}

	// personal_sign uses v = 27 or 28
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RPCSigner delegates signing to a wallet reachable over JSON-RPC, such as a
// custodial wallet provider's RPC endpoint.
type RPCSigner struct {
	client *rpc.Client
}

// NewRPCSigner wraps an established client.
func NewRPCSigner(client *rpc.Client) *RPCSigner {
	return &RPCSigner{client: client}
}

// DialRPCSigner connects to the wallet at url.
func DialRPCSigner(ctx context.Context, url string) (*RPCSigner, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing wallet rpc: %w", err)
	}
	return NewRPCSigner(client), nil
}

// Close releases the underlying connection.
func (s *RPCSigner) Close() {
	s.client.Close()
}

// Address returns the first account reported by eth_accounts.
func (s *RPCSigner) Address(ctx context.Context) (string, error) {
	var accts []common.Address
	if err := s.client.CallContext(ctx, &accts, "eth_accounts"); err != nil {
		return "", fmt.Errorf("eth_accounts: %w", err)
	}
	if len(accts) == 0 {
		return "", ErrNoAccounts
	}
	return accts[0].Hex(), nil
}

// SignMessage asks the wallet for a personal_sign signature over message.
func (s *RPCSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	address, err := s.Address(ctx)
	if err != nil {
		return nil, err
	}

	var sig hexutil.Bytes
	if err := s.client.CallContext(ctx, &sig, "personal_sign", hexutil.Bytes(message), address); err != nil {
		return nil, fmt.Errorf("personal_sign: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidSignature, len(sig))
	}
	return sig, nil
}

// RecoverAddress returns the address that produced a personal_sign signature.
func RecoverAddress(message, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: got %d bytes", ErrInvalidSignature, len(signature))
	}

	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

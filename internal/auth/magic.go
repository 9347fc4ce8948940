package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/usherlabs/custody/internal/arweave"
	"github.com/usherlabs/custody/internal/chain"
	"github.com/usherlabs/custody/internal/custody"
	"github.com/usherlabs/custody/internal/store"
)

// MagicBridge links a custodial Ethereum wallet to an Arweave wallet whose
// key is generated once and kept sealed in the Ethereum DID's store.
type MagicBridge struct {
	registry *Registry

	// collapses concurrent links of the same Ethereum DID so only one
	// custodial wallet is ever generated for it
	group singleflight.Group
}

type custodialResult struct {
	keypair *custody.Keypair
	wallets custody.Wallets
}

func newMagicBridge(r *Registry) *MagicBridge {
	return &MagicBridge{registry: r}
}

// Link derives the Ethereum identity of signer, loads or creates its
// custodial Arweave wallet, and registers both identities. A custodial
// envelope that cannot be opened fails the call; a new wallet is never
// generated in its place.
func (b *MagicBridge) Link(ctx context.Context, signer EthereumSigner) ([]*Identity, error) {
	r := b.registry

	address, entropy, err := deriveEthereum(ctx, signer)
	if err != nil {
		return nil, err
	}
	handle, err := r.cfg.Identities.Authenticate(ctx, entropy)
	if err != nil {
		return nil, err
	}
	eth := &Identity{
		Chain:      chain.Ethereum,
		Connection: chain.Magic,
		Address:    address,
		DID:        handle,
	}

	// The shared call outlives any one caller's cancellation.
	sharedCtx := context.WithoutCancel(ctx)
	ch := b.group.DoChan(handle.ID(), func() (any, error) {
		return b.custodialArweave(sharedCtx, eth)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	custodial := res.Val.(*custodialResult)

	key, ok := custodial.keypair.Key.(*rsa.PrivateKey)
	if !ok {
		return nil, arweave.ErrNotRSAKey
	}
	ar, err := r.bindArweave(ctx, custodial.keypair.Address, arweave.NewSigner(key), chain.Magic)
	if err != nil {
		return nil, err
	}

	eth.setWallets(custodial.wallets)
	return r.commit(ctx, eth, ar)
}

// custodialArweave returns the Arweave wallet sealed in eth's store,
// creating and persisting one if none exists.
func (b *MagicBridge) custodialArweave(ctx context.Context, eth *Identity) (*custodialResult, error) {
	r := b.registry
	keys := r.cfg.ArweaveKeys

	st, err := r.StoreFor(ctx, eth)
	if err != nil {
		return nil, err
	}

	wallets, err := loadWallets(ctx, st)
	if err != nil {
		return nil, err
	}

	if env, ok := wallets.Lookup(chain.Arweave); ok {
		kp, err := openCustodial(keys, env, eth.DID)
		if err != nil {
			return nil, err
		}
		return &custodialResult{keypair: kp, wallets: wallets}, nil
	}

	kp, err := custody.Generate(ctx, keys)
	if err != nil {
		return nil, err
	}
	sealed, err := custody.Seal(keys, kp, eth.DID, []string{eth.DID.ID()})
	if err != nil {
		return nil, err
	}

	wallets[chain.Arweave] = custody.NewEnvelope(kp.Address, sealed, r.cfg.Now())
	if err := store.SetJSON(ctx, st, DocMagicWallets, wallets); err != nil {
		return nil, fmt.Errorf("failed to persist custodial wallet: %w", err)
	}
	return &custodialResult{keypair: kp, wallets: wallets}, nil
}

// MagicArweaveKey opens the custodial Arweave wallet of the connected
// Magic Ethereum identity.
func (r *Registry) MagicArweaveKey(ctx context.Context) (*custody.Keypair, error) {
	var eth *Identity
	for _, id := range r.Identities() {
		if id.Chain == chain.Ethereum && id.Connection == chain.Magic {
			eth = id
			break
		}
	}
	if eth == nil {
		return nil, ErrMagicNotConnected
	}

	st, err := r.StoreFor(ctx, eth)
	if err != nil {
		return nil, err
	}
	wallets, err := loadWallets(ctx, st)
	if err != nil {
		return nil, err
	}

	env, ok := wallets.Lookup(chain.Arweave)
	if !ok {
		return nil, fmt.Errorf("%w: no arweave wallet for %s", ErrMagicNotConnected, eth.Address)
	}
	return openCustodial(r.cfg.ArweaveKeys, env, eth.DID)
}

func loadWallets(ctx context.Context, st store.Store) (custody.Wallets, error) {
	var wallets custody.Wallets
	err := store.GetJSON(ctx, st, DocMagicWallets, &wallets)
	if errors.Is(err, store.ErrNotFound) {
		return custody.Wallets{}, nil
	}
	if err != nil {
		return nil, err
	}
	if wallets == nil {
		wallets = custody.Wallets{}
	}
	return wallets, nil
}

func openCustodial(keys arweave.Keys, env custody.Envelope, opener custody.Opener) (*custody.Keypair, error) {
	kp, err := custody.Open(keys, env.Data, opener)
	if err != nil {
		return nil, fmt.Errorf("failed to open custodial wallet %s: %w", env.Address, err)
	}
	if env.Address != "" && kp.Address != env.Address {
		return nil, fmt.Errorf("%w: custodial wallet address %s does not match key %s", ErrDecryptionFailed, env.Address, kp.Address)
	}
	return kp, nil
}

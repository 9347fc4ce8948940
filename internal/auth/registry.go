package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/usherlabs/custody/internal/arweave"
	"github.com/usherlabs/custody/internal/chain"
	"github.com/usherlabs/custody/internal/store"
)

// Config holds the dependencies of a Registry.
type Config struct {
	// Store opens the document store of a DID. Required.
	Store store.Opener

	// Identities derives DIDs from entropy. Defaults to DIDKeyProvider.
	Identities IdentityProvider

	// ArweaveKeys generates custodial Arweave wallets.
	ArweaveKeys arweave.Keys

	// Now is the clock used for custodial wallet timestamps.
	Now func() time.Time
}

// Registry holds the identities connected in one session. The first
// identity to connect becomes the owner. Identities are unique by DID.
//
// All methods are safe for concurrent use. Wallet signing and store I/O
// run outside the registry lock; only the final check-and-append holds it.
type Registry struct {
	cfg   Config
	magic *MagicBridge

	mu           sync.RWMutex
	identities   []*Identity
	owner        *Identity
	partnerships []Partnership

	// serialises partnership read-modify-write cycles
	partnershipMu sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.Identities == nil {
		cfg.Identities = DIDKeyProvider{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := &Registry{cfg: cfg}
	r.magic = newMagicBridge(r)
	return r
}

// ConnectArweave derives the DID of an Arweave wallet and registers it.
// If the DID is already registered, the existing identity is returned.
func (r *Registry) ConnectArweave(ctx context.Context, address string, provider SigningProvider, conn chain.Connection) (*Identity, error) {
	id, err := r.bindArweave(ctx, address, provider, conn)
	if err != nil {
		return nil, err
	}

	ids, err := r.commit(ctx, id)
	if err != nil {
		return nil, err
	}
	return ids[0], nil
}

// ConnectMagic links the custodial wallet behind signer. It returns the
// Ethereum identity followed by the custodial Arweave identity.
func (r *Registry) ConnectMagic(ctx context.Context, signer EthereumSigner) ([]*Identity, error) {
	return r.magic.Link(ctx, signer)
}

func (r *Registry) bindArweave(ctx context.Context, address string, provider SigningProvider, conn chain.Connection) (*Identity, error) {
	if !conn.Valid() {
		return nil, fmt.Errorf("%w: unknown connection %q", ErrDerivationInputInvalid, conn)
	}

	entropy, err := deriveArweave(ctx, address, provider)
	if err != nil {
		return nil, err
	}

	handle, err := r.cfg.Identities.Authenticate(ctx, entropy)
	if err != nil {
		return nil, err
	}

	return &Identity{
		Chain:      chain.Arweave,
		Connection: conn,
		Address:    address,
		DID:        handle,
	}, nil
}

// commit registers ids together, or none of them if ctx is done.
// Each result is either the registered id or the identity that already
// held its DID.
func (r *Registry) commit(ctx context.Context, ids ...*Identity) ([]*Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*Identity, 0, len(ids))
	for _, id := range ids {
		if existing := r.findLocked(id.DID.ID()); existing != nil {
			if w := id.CustodialWallets(); w != nil {
				existing.setWallets(w)
			}
			out = append(out, existing)
			continue
		}

		r.identities = append(r.identities, id)
		if r.owner == nil {
			r.owner = id
		}
		out = append(out, id)
	}
	return out, nil
}

func (r *Registry) findLocked(didID string) *Identity {
	for _, id := range r.identities {
		if id.DID.ID() == didID {
			return id
		}
	}
	return nil
}

// Identity returns the identity connected with address.
func (r *Registry) Identity(address string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.identities {
		if id.Address == address {
			return id, nil
		}
	}
	return nil, fmt.Errorf("%w: no identity for wallet %s", ErrIdentityNotFound, address)
}

// Wallets summarises every connected wallet in connection order.
func (r *Registry) Wallets() []WalletSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]WalletSummary, 0, len(r.identities))
	for _, id := range r.identities {
		out = append(out, id.Wallet())
	}
	return out
}

// Identities returns the connected identities in connection order.
func (r *Registry) Identities() []*Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*Identity(nil), r.identities...)
}

// Owner returns the primary identity, or nil if none is connected.
func (r *Registry) Owner() *Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// Partnerships returns the owner's partnerships as last loaded or written.
func (r *Registry) Partnerships() []Partnership {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Partnership(nil), r.partnerships...)
}

// StoreFor opens the document store of id.
func (r *Registry) StoreFor(ctx context.Context, id *Identity) (store.Store, error) {
	return r.cfg.Store.Open(ctx, id.DID.ID())
}

// Disconnect removes every identity connected with address and returns how
// many were removed. If the owner is removed the registry has no owner
// until the next successful connect.
func (r *Registry) Disconnect(address string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.identities[:0]
	removed := 0
	for _, id := range r.identities {
		if id.Address == address {
			if id == r.owner {
				r.owner = nil
				r.partnerships = nil
			}
			removed++
			continue
		}
		kept = append(kept, id)
	}
	for i := len(kept); i < len(r.identities); i++ {
		r.identities[i] = nil
	}
	r.identities = kept
	return removed
}

// Teardown returns the registry to its empty state.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.identities = nil
	r.owner = nil
	r.partnerships = nil
}

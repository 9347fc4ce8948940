// Package auth links blockchain wallets to DIDs and tracks the identities
// connected in one user session.
package auth

import (
	"sync"

	"github.com/usherlabs/custody/internal/chain"
	"github.com/usherlabs/custody/internal/custody"
)

// Store document keys.
const (
	DocMagicWallets = "magicWallets"
	DocPartnerships = "partnerships"
)

// Identity is a wallet bound to the DID derived from its signature.
type Identity struct {
	Chain      chain.Chain
	Connection chain.Connection
	Address    string
	DID        DIDHandle

	mu      sync.RWMutex
	wallets custody.Wallets
}

// WalletSummary describes a connected wallet.
type WalletSummary struct {
	Chain      chain.Chain      `json:"chain"`
	Connection chain.Connection `json:"connection"`
	Address    string           `json:"address"`
	DID        string           `json:"did"`
}

// Wallet returns the summary of the identity's wallet.
func (i *Identity) Wallet() WalletSummary {
	return WalletSummary{
		Chain:      i.Chain,
		Connection: i.Connection,
		Address:    i.Address,
		DID:        i.DID.ID(),
	}
}

// CustodialWallets returns a copy of the custodial wallet index, which is
// only populated for identities connected through a custodial provider.
func (i *Identity) CustodialWallets() custody.Wallets {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.wallets == nil {
		return nil
	}
	out := make(custody.Wallets, len(i.wallets))
	for c, env := range i.wallets {
		out[c] = env
	}
	return out
}

func (i *Identity) setWallets(w custody.Wallets) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.wallets = w
}

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usherlabs/custody/internal/arweave"
	"github.com/usherlabs/custody/internal/chain"
)

func TestConnectArweave_FreshRegistry(t *testing.T) {
	r := newTestRegistry(nil)
	addr, signer := arweaveWallet(t, 0)

	assert.Nil(t, r.Owner())
	assert.Empty(t, r.Wallets())

	id, err := r.ConnectArweave(context.Background(), addr, signer, chain.ArConnect)
	require.NoError(t, err)

	assert.Equal(t, addr, id.Address)
	assert.Equal(t, chain.Arweave, id.Chain)
	assert.Equal(t, chain.ArConnect, id.Connection)
	require.NotNil(t, r.Owner())
	assert.Equal(t, addr, r.Owner().Address)
	assert.Len(t, r.Wallets(), 1)
	assert.Equal(t, id.DID.ID(), r.Wallets()[0].DID)
}

func TestConnectArweave_Deterministic(t *testing.T) {
	addr, signer := arweaveWallet(t, 0)

	first, err := newTestRegistry(nil).ConnectArweave(context.Background(), addr, signer, chain.ArConnect)
	require.NoError(t, err)
	second, err := newTestRegistry(nil).ConnectArweave(context.Background(), addr, signer, chain.ArConnect)
	require.NoError(t, err)

	assert.Equal(t, first.DID.ID(), second.DID.ID())
}

func TestConnectArweave_Deduplicates(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(nil)
	addr, signer := arweaveWallet(t, 0)

	first, err := r.ConnectArweave(ctx, addr, signer, chain.ArConnect)
	require.NoError(t, err)
	second, err := r.ConnectArweave(ctx, addr, signer, chain.WalletConnect)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, r.Identities(), 1)
	assert.Equal(t, chain.ArConnect, second.Connection)
}

func TestConnectArweave_DeduplicatesByDIDNotAddress(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(nil)

	// Signs every message the same way, so both addresses derive one DID.
	fixed := providerFunc(func(ctx context.Context, message []byte, params arweave.SignatureParams) ([]byte, error) {
		return []byte("same-signature"), nil
	})

	first, err := r.ConnectArweave(ctx, "addr-old", fixed, chain.ArConnect)
	require.NoError(t, err)
	second, err := r.ConnectArweave(ctx, "addr-rotated", fixed, chain.ArConnect)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "addr-old", second.Address)
	assert.Len(t, r.Identities(), 1)
}

func TestConnectArweave_UsesZeroSaltPSS(t *testing.T) {
	var got arweave.SignatureParams
	var msg []byte
	provider := providerFunc(func(ctx context.Context, message []byte, params arweave.SignatureParams) ([]byte, error) {
		got, msg = params, message
		return []byte("sig"), nil
	})

	_, err := newTestRegistry(nil).ConnectArweave(context.Background(), "addrA", provider, chain.ArConnect)
	require.NoError(t, err)

	assert.Equal(t, arweave.DeterministicParams, got)
	assert.Equal(t, 0, got.SaltLength)
	assert.Equal(t, []byte("addrA"), msg)
}

func TestConnectArweave_OwnerStability(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(nil)

	addrs := make([]string, 3)
	for i := range addrs {
		addr, signer := arweaveWallet(t, i)
		addrs[i] = addr
		_, err := r.ConnectArweave(ctx, addr, signer, chain.ArConnect)
		require.NoError(t, err)
	}
	assert.Equal(t, addrs[0], r.Owner().Address)

	assert.Equal(t, 1, r.Disconnect(addrs[1]))
	assert.Equal(t, addrs[0], r.Owner().Address)

	addr, signer := arweaveWallet(t, 1)
	_, err := r.ConnectArweave(ctx, addr, signer, chain.ArConnect)
	require.NoError(t, err)
	assert.Equal(t, addrs[0], r.Owner().Address)

	assert.Equal(t, 1, r.Disconnect(addrs[0]))
	assert.Nil(t, r.Owner())
	assert.Len(t, r.Identities(), 2)

	addr, signer = arweaveWallet(t, 3)
	_, err = r.ConnectArweave(ctx, addr, signer, chain.ArConnect)
	require.NoError(t, err)
	assert.Equal(t, addr, r.Owner().Address)

	assert.Equal(t, 0, r.Disconnect("unknown"))
}

func TestConnectArweave_SigningRejected(t *testing.T) {
	r := newTestRegistry(nil)
	userCancelled := errors.New("user cancelled")
	provider := providerFunc(func(ctx context.Context, message []byte, params arweave.SignatureParams) ([]byte, error) {
		return nil, userCancelled
	})

	_, err := r.ConnectArweave(context.Background(), "addrA", provider, chain.ArConnect)
	assert.ErrorIs(t, err, ErrSigningRejected)
	assert.ErrorIs(t, err, userCancelled)
	assert.Empty(t, r.Identities())
	assert.Nil(t, r.Owner())
}

func TestConnectArweave_InvalidInput(t *testing.T) {
	empty := providerFunc(func(ctx context.Context, message []byte, params arweave.SignatureParams) ([]byte, error) {
		return nil, nil
	})
	_, signer := arweaveWallet(t, 0)

	tests := []struct {
		name     string
		address  string
		provider SigningProvider
		conn     chain.Connection
	}{
		{"empty signature", "addrA", empty, chain.ArConnect},
		{"empty address", "", signer, chain.ArConnect},
		{"unknown connection", "addrA", signer, chain.Connection("ledger")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(nil)
			_, err := r.ConnectArweave(context.Background(), tt.address, tt.provider, tt.conn)
			assert.ErrorIs(t, err, ErrDerivationInputInvalid)
			assert.Empty(t, r.Identities())
		})
	}
}

func TestConnectArweave_CancelledLeavesRegistryUnchanged(t *testing.T) {
	r := newTestRegistry(nil)
	addr, signer := arweaveWallet(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	provider := providerFunc(func(ctx context.Context, message []byte, params arweave.SignatureParams) ([]byte, error) {
		sig, err := signer.Signature(ctx, message, params)
		cancel()
		return sig, err
	})

	_, err := r.ConnectArweave(ctx, addr, provider, chain.ArConnect)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, r.Identities())
	assert.Nil(t, r.Owner())
}

func TestConnectArweave_Concurrent(t *testing.T) {
	r := newTestRegistry(nil)
	addr, signer := arweaveWallet(t, 0)

	const n = 16
	results := make([]*Identity, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.ConnectArweave(context.Background(), addr, signer, chain.ArConnect)
			if err == nil {
				results[i] = id
			}
		}()
	}
	wg.Wait()

	require.Len(t, r.Identities(), 1)
	for _, id := range results {
		assert.Same(t, r.Owner(), id)
	}
}

func TestRegistry_Identity(t *testing.T) {
	r := newTestRegistry(nil)
	addr, signer := arweaveWallet(t, 0)

	_, err := r.Identity(addr)
	assert.ErrorIs(t, err, ErrIdentityNotFound)

	want, err := r.ConnectArweave(context.Background(), addr, signer, chain.ArConnect)
	require.NoError(t, err)

	got, err := r.Identity(addr)
	require.NoError(t, err)
	assert.Same(t, want, got)

	_, err = r.Identity(addr[:10])
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestRegistry_Teardown(t *testing.T) {
	r := newTestRegistry(nil)
	addr, signer := arweaveWallet(t, 0)
	_, err := r.ConnectArweave(context.Background(), addr, signer, chain.ArConnect)
	require.NoError(t, err)

	r.Teardown()

	assert.Empty(t, r.Identities())
	assert.Empty(t, r.Wallets())
	assert.Empty(t, r.Partnerships())
	assert.Nil(t, r.Owner())

	id, err := r.ConnectArweave(context.Background(), addr, signer, chain.ArConnect)
	require.NoError(t, err)
	assert.Same(t, id, r.Owner())
}

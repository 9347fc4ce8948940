package auth

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usherlabs/custody/internal/arweave"
	"github.com/usherlabs/custody/internal/store"
)

var testArweaveKeys = arweave.Keys{Bits: 2048}

var (
	rsaKeysOnce sync.Once
	rsaKeys     []*rsa.PrivateKey
)

// arweaveKey returns one of a few RSA keys shared by all tests in the package.
func arweaveKey(t *testing.T, i int) *rsa.PrivateKey {
	t.Helper()
	rsaKeysOnce.Do(func() {
		for j := 0; j < 4; j++ {
			k, err := testArweaveKeys.Generate(context.Background())
			if err != nil {
				panic(err)
			}
			rsaKeys = append(rsaKeys, k.(*rsa.PrivateKey))
		}
	})
	require.Less(t, i, len(rsaKeys))
	return rsaKeys[i]
}

func arweaveWallet(t *testing.T, i int) (string, *arweave.Signer) {
	t.Helper()
	signer := arweave.NewSigner(arweaveKey(t, i))
	return signer.Address(), signer
}

func newTestRegistry(opener store.Opener) *Registry {
	if opener == nil {
		opener = store.NewMemory()
	}
	return NewRegistry(Config{
		Store:       opener,
		ArweaveKeys: testArweaveKeys,
	})
}

// providerFunc adapts a function to SigningProvider.
type providerFunc func(ctx context.Context, message []byte, params arweave.SignatureParams) ([]byte, error)

func (f providerFunc) Signature(ctx context.Context, message []byte, params arweave.SignatureParams) ([]byte, error) {
	return f(ctx, message, params)
}

// openerFunc adapts a function to store.Opener.
type openerFunc func(ctx context.Context, did string) (store.Store, error)

func (f openerFunc) Open(ctx context.Context, did string) (store.Store, error) {
	return f(ctx, did)
}

// recordIDStore overrides RecordID of a wrapped store.
type recordIDStore struct {
	store.Store
	recordID func(key string) (string, error)
}

func (s *recordIDStore) RecordID(ctx context.Context, key string) (string, error) {
	return s.recordID(key)
}

package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usherlabs/custody/internal/chain"
)

// walletService fakes a custodial wallet's JSON-RPC surface.
type walletService struct {
	signer *LocalSigner
	reject bool
}

type ethAPI struct{ w *walletService }

func (api *ethAPI) Accounts() []common.Address {
	if api.w.signer == nil {
		return nil
	}
	return []common.Address{api.w.signer.address}
}

type personalAPI struct{ w *walletService }

func (api *personalAPI) Sign(ctx context.Context, data hexutil.Bytes, addr common.Address) (hexutil.Bytes, error) {
	if api.w.reject {
		return nil, errors.New("user rejected the request")
	}
	if addr != api.w.signer.address {
		return nil, errors.New("unknown account")
	}
	sig, err := api.w.signer.SignMessage(ctx, data)
	return hexutil.Bytes(sig), err
}

func newTestRPCSigner(t *testing.T, w *walletService) *RPCSigner {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &ethAPI{w: w}))
	require.NoError(t, server.RegisterName("personal", &personalAPI{w: w}))
	t.Cleanup(server.Stop)

	signer := NewRPCSigner(rpc.DialInProc(server))
	t.Cleanup(signer.Close)
	return signer
}

func newLocalSigner(t *testing.T) *LocalSigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return NewLocalSigner(key)
}

func TestLocalSigner_SignAndRecover(t *testing.T) {
	ctx := context.Background()
	signer := newLocalSigner(t)
	addr, err := signer.Address(ctx)
	require.NoError(t, err)

	sig, err := signer.SignMessage(ctx, []byte(addr))
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)
	assert.Contains(t, []byte{27, 28}, sig[64])

	again, err := signer.SignMessage(ctx, []byte(addr))
	require.NoError(t, err)
	assert.Equal(t, sig, again, "RFC 6979 signatures are deterministic")

	recovered, err := RecoverAddress([]byte(addr), sig)
	require.NoError(t, err)
	assert.Equal(t, addr, recovered.Hex())
}

func TestLocalSignerFromHex(t *testing.T) {
	signer := newLocalSigner(t)
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(signer.key))

	parsed, err := LocalSignerFromHex(hexKey)
	require.NoError(t, err)
	assert.Equal(t, signer.address, parsed.address)

	_, err = LocalSignerFromHex("nothex")
	assert.Error(t, err)
}

func TestRPCSigner(t *testing.T) {
	ctx := context.Background()
	local := newLocalSigner(t)
	signer := newTestRPCSigner(t, &walletService{signer: local})

	addr, err := signer.Address(ctx)
	require.NoError(t, err)
	assert.Equal(t, local.address.Hex(), addr)

	sig, err := signer.SignMessage(ctx, []byte("fixed message"))
	require.NoError(t, err)

	want, err := local.SignMessage(ctx, []byte("fixed message"))
	require.NoError(t, err)
	assert.Equal(t, want, sig)
}

func TestRPCSigner_Rejected(t *testing.T) {
	signer := newTestRPCSigner(t, &walletService{signer: newLocalSigner(t), reject: true})

	_, err := signer.SignMessage(context.Background(), []byte("m"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user rejected")
}

func TestRPCSigner_NoAccounts(t *testing.T) {
	signer := newTestRPCSigner(t, &walletService{})

	_, err := signer.Address(context.Background())
	assert.ErrorIs(t, err, ErrNoAccounts)
}

func TestRecoverAddress_Invalid(t *testing.T) {
	_, err := RecoverAddress([]byte("m"), []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestKeys(t *testing.T) {
	keys := Keys{}
	assert.Equal(t, chain.Ethereum, keys.Chain())

	key, err := keys.Generate(context.Background())
	require.NoError(t, err)

	data, err := keys.Marshal(key)
	require.NoError(t, err)
	assert.Len(t, data, 64)

	parsed, err := keys.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, key.(*ecdsa.PrivateKey).Equal(parsed))

	a, err := keys.Address(key)
	require.NoError(t, err)
	b, err := keys.Address(parsed)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = keys.Address("nope")
	assert.ErrorIs(t, err, ErrNotECDSAKey)
}

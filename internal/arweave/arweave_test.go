package arweave

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usherlabs/custody/internal/chain"
)

var testKeys = Keys{Bits: 2048}

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := testKeys.Generate(context.Background())
	require.NoError(t, err)
	return key.(*rsa.PrivateKey)
}

func TestKeys_GenerateAndAddress(t *testing.T) {
	key := generateKey(t)

	assert.Equal(t, chain.Arweave, testKeys.Chain())
	assert.Equal(t, 2048, key.N.BitLen())
	assert.Equal(t, PublicExponent, key.E)

	addr, err := testKeys.Address(key)
	require.NoError(t, err)
	assert.Len(t, addr, 43)
	assert.Equal(t, Address(&key.PublicKey), addr)
}

func TestKeys_GenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testKeys.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeys_WrongKeyType(t *testing.T) {
	_, err := testKeys.Address(&ecdsa.PrivateKey{})
	assert.ErrorIs(t, err, ErrNotRSAKey)

	_, err = testKeys.Marshal("not a key")
	assert.ErrorIs(t, err, ErrNotRSAKey)
}

func TestJWK_RoundTrip(t *testing.T) {
	key := generateKey(t)

	data, err := testKeys.Marshal(key)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, name := range []string{"kty", "n", "e", "d", "p", "q", "dp", "dq", "qi"} {
		assert.Contains(t, fields, name)
	}
	assert.Equal(t, "RSA", fields["kty"])

	parsed, err := testKeys.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))

	// The address is a function of n alone.
	n, err := base64.RawURLEncoding.DecodeString(fields["n"].(string))
	require.NoError(t, err)
	assert.Equal(t, key.N.Bytes(), n)
}

func TestParseJWK_Rejects(t *testing.T) {
	_, err := ParseJWK([]byte("{"))
	assert.Error(t, err)

	key := generateKey(t)
	pubJWK, err := json.Marshal(map[string]string{
		"kty": "RSA",
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   "AQAB",
	})
	require.NoError(t, err)

	_, err = ParseJWK(pubJWK)
	assert.ErrorIs(t, err, ErrNotRSAKey)
}

func TestSignPSS_ZeroSaltIsDeterministic(t *testing.T) {
	key := generateKey(t)
	signer := NewSigner(key)
	msg := []byte(signer.Address())

	first, err := signer.Signature(context.Background(), msg, DeterministicParams)
	require.NoError(t, err)
	second, err := signer.Signature(context.Background(), msg, DeterministicParams)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 256)
	assert.NoError(t, VerifyPSS(&key.PublicKey, msg, first))
	assert.Error(t, VerifyPSS(&key.PublicKey, []byte("other"), first))
}

func TestSignPSS_RandomSaltVaries(t *testing.T) {
	key := generateKey(t)
	msg := []byte("message")

	first, err := SignPSS(key, msg, 32)
	require.NoError(t, err)
	second, err := SignPSS(key, msg, 32)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NoError(t, VerifyPSS(&key.PublicKey, msg, first))
	assert.NoError(t, VerifyPSS(&key.PublicKey, msg, second))
}

func TestSigner_Errors(t *testing.T) {
	signer := NewSigner(generateKey(t))

	_, err := signer.Signature(context.Background(), []byte("m"), SignatureParams{Name: "RSASSA-PKCS1-v1_5"})
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = signer.Signature(ctx, []byte("m"), DeterministicParams)
	assert.ErrorIs(t, err, context.Canceled)
}

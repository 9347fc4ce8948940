package arweave

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// MarshalJWK encodes key as a private JWK (kty, n, e, d, p, q, dp, dq, qi).
func MarshalJWK(key *rsa.PrivateKey) ([]byte, error) {
	key.Precompute()

	jwk := jose.JSONWebKey{Key: key}
	data, err := jwk.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jwk: %w", err)
	}
	return data, nil
}

// ParseJWK decodes a private RSA JWK such as an Arweave keyfile.
func ParseJWK(data []byte) (*rsa.PrivateKey, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("failed to parse jwk: %w", err)
	}

	key, ok := jwk.Key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotRSAKey, jwk.Key)
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid arweave key: %w", err)
	}
	key.Precompute()
	return key, nil
}

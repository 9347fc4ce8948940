package arweave

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// AlgorithmPSS is the only signature algorithm Arweave wallets expose.
const AlgorithmPSS = "RSA-PSS"

// SignatureParams selects the signature scheme for a signing request.
type SignatureParams struct {
	Name       string
	SaltLength int
}

// DeterministicParams is RSA-PSS with an empty salt. Signatures made with
// it are a pure function of (key, message). This is a protocol constant.
var DeterministicParams = SignatureParams{Name: AlgorithmPSS, SaltLength: 0}

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")
	ErrMessageTooLong       = errors.New("key too small for PSS encoding")
)

// Signer signs with an Arweave wallet key held in memory.
type Signer struct {
	key *rsa.PrivateKey
}

// NewSigner returns a Signer for key.
func NewSigner(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// Address returns the wallet address of the signing key.
func (s *Signer) Address() string {
	return Address(&s.key.PublicKey)
}

// Signature signs message under params.
func (s *Signer) Signature(ctx context.Context, message []byte, params SignatureParams) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.Name != "" && params.Name != AlgorithmPSS {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, params.Name)
	}
	return SignPSS(s.key, message, params.SaltLength)
}

// SignPSS signs SHA-256(message) with RSA-PSS using MGF1-SHA-256.
// A salt length of 0 means an empty salt, not crypto/rsa's "maximum" meaning.
func SignPSS(key *rsa.PrivateKey, message []byte, saltLength int) ([]byte, error) {
	hashed := sha256.Sum256(message)
	if saltLength != 0 {
		return rsa.SignPSS(rand.Reader, key, crypto.SHA256, hashed[:], &rsa.PSSOptions{
			SaltLength: saltLength,
			Hash:       crypto.SHA256,
		})
	}

	modBits := key.N.BitLen()
	em, err := emsaPSSEncode(hashed[:], modBits-1)
	if err != nil {
		return nil, err
	}

	m := new(big.Int).SetBytes(em)
	sig := new(big.Int).Exp(m, key.D, key.N)

	out := make([]byte, (modBits+7)/8)
	sig.FillBytes(out)

	// Guard against a faulty computation leaking the key.
	if err := VerifyPSS(&key.PublicKey, message, out); err != nil {
		return nil, fmt.Errorf("pss self-check failed: %w", err)
	}
	return out, nil
}

// VerifyPSS checks an RSA-PSS/SHA-256 signature with any salt length.
func VerifyPSS(pub *rsa.PublicKey, message, signature []byte) error {
	hashed := sha256.Sum256(message)
	return rsa.VerifyPSS(pub, crypto.SHA256, hashed[:], signature, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
}

// emsaPSSEncode is EMSA-PSS-ENCODE from RFC 8017 9.1.1 with an empty salt.
func emsaPSSEncode(mHash []byte, emBits int) ([]byte, error) {
	hLen := sha256.Size
	emLen := (emBits + 7) / 8
	if emLen < hLen+2 {
		return nil, ErrMessageTooLong
	}

	prefix := make([]byte, 8)
	h := sha256.New()
	h.Write(prefix)
	h.Write(mHash)
	digest := h.Sum(nil)

	em := make([]byte, emLen)
	db := em[:emLen-hLen-1]
	db[len(db)-1] = 0x01

	mgf1XOR(db, digest)
	db[0] &= 0xff >> (8*emLen - emBits)

	copy(em[emLen-hLen-1:], digest)
	em[emLen-1] = 0xbc
	return em, nil
}

// mgf1XOR xors out with MGF1-SHA-256(seed).
func mgf1XOR(out, seed []byte) {
	var counter [4]byte
	done := 0
	for done < len(out) {
		h := sha256.New()
		h.Write(seed)
		h.Write(counter[:])
		digest := h.Sum(nil)

		for i := 0; i < len(digest) && done < len(out); i++ {
			out[done] ^= digest[i]
			done++
		}
		binary.BigEndian.PutUint32(counter[:], binary.BigEndian.Uint32(counter[:])+1)
	}
}

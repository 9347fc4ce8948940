package auth

import (
	"errors"
	"fmt"

	"github.com/usherlabs/custody/internal/crypto"
)

var (
	// ErrSigningRejected wraps any error from a wallet asked to sign,
	// including user cancellation. The wallet's error is kept in the chain.
	ErrSigningRejected = errors.New("signing rejected")

	// ErrDerivationInputInvalid is returned for empty or malformed signatures
	// and connect requests.
	ErrDerivationInputInvalid = errors.New("derivation input invalid")

	// ErrIdentityNotFound is returned by lookups that match no identity.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrDecryptionFailed is returned when a custodial envelope cannot be
	// opened by the acting identity.
	ErrDecryptionFailed = crypto.ErrDecryptionFailed

	// ErrStoreRecordMissing is returned when the store has not allocated
	// a record id that an operation depends on.
	ErrStoreRecordMissing = errors.New("store record missing")

	// ErrNoOwner is returned by operations that need an owner identity.
	ErrNoOwner = errors.New("no owner identity connected")

	// ErrMagicNotConnected is returned when no custodial wallet is linked.
	ErrMagicNotConnected = errors.New("magic wallet not connected")
)

// RecordMissingError reports which DID and document lacked a record id.
type RecordMissingError struct {
	DID    string
	Key    string
	Reason string
}

func (e *RecordMissingError) Error() string {
	msg := fmt.Sprintf("%s: document %q of %s", ErrStoreRecordMissing, e.Key, e.DID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is makes errors.Is(err, ErrStoreRecordMissing) match.
func (e *RecordMissingError) Is(target error) bool {
	return target == ErrStoreRecordMissing
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/usherlabs/custody/internal/store"
)

// Partnership is a campaign the owner has joined. ID is assigned from the
// store's record id for the partnerships document and the list position.
type Partnership struct {
	ID       string          `json:"id"`
	Campaign json.RawMessage `json:"campaign"`
}

// partnershipSet is the stored form of the owner's partnerships.
type partnershipSet struct {
	Set []json.RawMessage `json:"set"`
}

// AddPartnership appends p to the owner's partnerships document and returns
// the updated list. It fails with ErrStoreRecordMissing when the store
// has no record id for the document after the write, or when the record id
// changed during the write. The registry only changes on success.
//
// The record id can only be checked after the write, so on
// ErrStoreRecordMissing the store may already hold p. Callers should
// LoadPartnerships before retrying rather than add p again.
func (r *Registry) AddPartnership(ctx context.Context, p Partnership) ([]Partnership, error) {
	owner := r.Owner()
	if owner == nil {
		return nil, ErrNoOwner
	}
	if len(p.Campaign) == 0 {
		return nil, errors.New("partnership campaign is empty")
	}

	r.partnershipMu.Lock()
	defer r.partnershipMu.Unlock()

	st, err := r.StoreFor(ctx, owner)
	if err != nil {
		return nil, err
	}

	set, err := loadPartnershipSet(ctx, st)
	if err != nil {
		return nil, err
	}

	before, err := st.RecordID(ctx, DocPartnerships)
	if err != nil && !errors.Is(err, store.ErrRecordMissing) {
		return nil, err
	}

	set.Set = append(set.Set, p.Campaign)
	if err := store.SetJSON(ctx, st, DocPartnerships, set); err != nil {
		return nil, err
	}

	after, err := st.RecordID(ctx, DocPartnerships)
	if errors.Is(err, store.ErrRecordMissing) {
		return nil, &RecordMissingError{DID: owner.DID.ID(), Key: DocPartnerships}
	}
	if err != nil {
		return nil, err
	}
	if before != "" && before != after {
		return nil, &RecordMissingError{
			DID:    owner.DID.ID(),
			Key:    DocPartnerships,
			Reason: fmt.Sprintf("record id changed from %s to %s", before, after),
		}
	}

	list := partnershipsFromSet(after, set)
	if !r.setPartnerships(owner, list) {
		return nil, ErrNoOwner
	}
	return append([]Partnership(nil), list...), nil
}

// LoadPartnerships reads the owner's partnerships from its store.
func (r *Registry) LoadPartnerships(ctx context.Context) ([]Partnership, error) {
	owner := r.Owner()
	if owner == nil {
		return nil, ErrNoOwner
	}

	st, err := r.StoreFor(ctx, owner)
	if err != nil {
		return nil, err
	}
	set, err := loadPartnershipSet(ctx, st)
	if err != nil {
		return nil, err
	}

	var list []Partnership
	if len(set.Set) > 0 {
		recordID, err := st.RecordID(ctx, DocPartnerships)
		if errors.Is(err, store.ErrRecordMissing) {
			return nil, &RecordMissingError{DID: owner.DID.ID(), Key: DocPartnerships}
		}
		if err != nil {
			return nil, err
		}
		list = partnershipsFromSet(recordID, set)
	}

	if !r.setPartnerships(owner, list) {
		return nil, ErrNoOwner
	}
	return append([]Partnership(nil), list...), nil
}

// setPartnerships replaces the cached list if owner is still the owner.
func (r *Registry) setPartnerships(owner *Identity, list []Partnership) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owner != owner {
		return false
	}
	r.partnerships = list
	return true
}

func loadPartnershipSet(ctx context.Context, st store.Store) (partnershipSet, error) {
	var set partnershipSet
	err := store.GetJSON(ctx, st, DocPartnerships, &set)
	if errors.Is(err, store.ErrNotFound) {
		return partnershipSet{}, nil
	}
	return set, err
}

// partnershipsFromSet ids items by position. The set is append-only, so
// an item's position never changes.
func partnershipsFromSet(recordID string, set partnershipSet) []Partnership {
	list := make([]Partnership, 0, len(set.Set))
	for i, campaign := range set.Set {
		list = append(list, Partnership{
			ID:       fmt.Sprintf("%s/%d", recordID, i),
			Campaign: campaign,
		})
	}
	return list
}

package grandpa

import (
	"bytes"
	"encoding/gob"

	"github.com/go-grandpa/finality-import/primitives"
	"github.com/pkg/errors"
)

// AuxEntry is a single (key, value) pair destined for the block's auxiliary
// side-channel. The byte layout is opaque to the storage layer consuming it;
// gob gives a self-describing, round-trippable encoding without an external
// schema.
type AuxEntry struct {
	Key   []byte
	Value []byte
}

var (
	authoritySetAuxKey    = []byte("grandpa_authority_set")
	newAuthoritySetAuxKey = []byte("grandpa_new_authority_set")
)

// gobAuthoritySet and gobNewAuthoritySet mirror AuthoritySet/NewAuthoritySet
// with only gob-encodable fields (no mutex, no internal tree pointers):
// the persisted shape, not the runtime shape.
type gobAuthoritySet struct {
	SetID              uint64
	CurrentAuthorities []gobAuthority
	PendingStandard    []gobPendingChange
	PendingForced      []gobPendingChange
}

type gobAuthority struct {
	ID     [32]byte
	Weight uint64
}

type gobPendingChange struct {
	NextAuthorities []gobAuthority
	Delay           uint64
	CanonHeight     uint64
	CanonHash       [32]byte
	DelayKind       int
	MedianLastFinal uint64
}

type gobNewAuthoritySet struct {
	CanonNumber uint64
	CanonHash   [32]byte
	SetID       uint64
	Authorities []gobAuthority
}

func toGobAuthorities(as []primitives.Authority) []gobAuthority {
	out := make([]gobAuthority, len(as))
	for i, a := range as {
		out[i] = gobAuthority{ID: [32]byte(a.ID), Weight: uint64(a.Weight)}
	}
	return out
}

// encodeAuthoritySet serializes the persisted shape of an AuthoritySet.
func encodeAuthoritySet(set *AuthoritySet) (AuxEntry, error) {
	g := gobAuthoritySet{
		SetID:              uint64(set.SetID),
		CurrentAuthorities: toGobAuthorities(set.CurrentAuthorities),
	}
	for _, c := range set.pendingStandardChanges.pendingChanges() {
		g.PendingStandard = append(g.PendingStandard, toGobPendingChange(c))
	}
	for _, c := range set.pendingForcedChanges {
		g.PendingForced = append(g.PendingForced, toGobPendingChange(c))
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return AuxEntry{}, errors.Wrap(err, "encode authority set")
	}
	return AuxEntry{Key: authoritySetAuxKey, Value: buf.Bytes()}, nil
}

func toGobPendingChange(c PendingChange) gobPendingChange {
	return gobPendingChange{
		NextAuthorities: toGobAuthorities(c.NextAuthorities),
		Delay:           uint64(c.Delay),
		CanonHeight:     uint64(c.CanonHeight),
		CanonHash:       [32]byte(c.CanonHash),
		DelayKind:       int(c.DelayKind),
		MedianLastFinal: uint64(c.MedianLastFinalized),
	}
}

// encodeNewAuthoritySet serializes a NewAuthoritySet descriptor.
func encodeNewAuthoritySet(n NewAuthoritySet) (AuxEntry, error) {
	g := gobNewAuthoritySet{
		CanonNumber: uint64(n.CanonNumber),
		CanonHash:   [32]byte(n.CanonHash),
		SetID:       uint64(n.SetID),
		Authorities: toGobAuthorities(n.Authorities),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return AuxEntry{}, errors.Wrap(err, "encode new authority set")
	}
	return AuxEntry{Key: newAuthoritySetAuxKey, Value: buf.Bytes()}, nil
}

// updateAuthoritySetAux builds the aux entries for the given set and, when
// change is non-nil, the enacted NewAuthoritySet descriptor. A forced change
// persists both the set and the descriptor; a standard change persists only
// the set, since it has not been enacted yet. The entries are handed to
// insert so the caller controls how they land on the block's auxiliary field.
func updateAuthoritySetAux(set *AuthoritySet, change *NewAuthoritySet, insert func([]AuxEntry)) error {
	setEntry, err := encodeAuthoritySet(set)
	if err != nil {
		return err
	}
	entries := []AuxEntry{setEntry}
	if change != nil {
		changeEntry, err := encodeNewAuthoritySet(*change)
		if err != nil {
			return err
		}
		entries = append(entries, changeEntry)
	}
	insert(entries)
	return nil
}

package grandpa

import (
	"github.com/go-grandpa/finality-import/primitives"
	"github.com/pkg/errors"
)

// AuthoritySet is the in-memory state machine tracking the current
// authorities plus pending standard/forced changes. Every mutating method
// assumes the caller already holds the set's exclusive writer (the pending-
// change guard); AuthoritySet itself does no locking.
type AuthoritySet struct {
	SetID              primitives.SetID
	CurrentAuthorities []primitives.Authority

	pendingStandardChanges changeTree
	pendingForcedChanges   []PendingChange
}

// NewAuthoritySetState builds the initial state for a fresh chain. Named to
// avoid colliding with the NewAuthoritySet descriptor type, which is a
// distinct, unrelated value handed to the voter on a forced change.
func NewAuthoritySetState(setID primitives.SetID, authorities []primitives.Authority) *AuthoritySet {
	return &AuthoritySet{
		SetID:              setID,
		CurrentAuthorities: append([]primitives.Authority(nil), authorities...),
	}
}

// Clone deep-copies the set, the way the Pending-Change Guard snapshots the
// prior state before its first mutation.
func (a *AuthoritySet) Clone() *AuthoritySet {
	clone := &AuthoritySet{
		SetID:                a.SetID,
		CurrentAuthorities:   append([]primitives.Authority(nil), a.CurrentAuthorities...),
		pendingForcedChanges: append([]PendingChange(nil), a.pendingForcedChanges...),
	}
	clone.pendingStandardChanges.bestFinalizedNumber = a.pendingStandardChanges.bestFinalizedNumber
	for _, root := range a.pendingStandardChanges.roots {
		clone.pendingStandardChanges.roots = append(clone.pendingStandardChanges.roots, cloneChangeNode(root))
	}
	return clone
}

func cloneChangeNode(n *changeTreeNode) *changeTreeNode {
	if n == nil {
		return nil
	}
	clone := &changeTreeNode{change: n.change}
	for _, c := range n.children {
		clone.children = append(clone.children, cloneChangeNode(c))
	}
	return clone
}

// Current returns a snapshot of (set_id, authorities) for justification
// verification.
func (a *AuthoritySet) Current() (primitives.SetID, []primitives.Authority) {
	return a.SetID, a.CurrentAuthorities
}

// PendingChanges returns every pending standard change across all forks,
// pre-order, plus every pending forced change. Used by the on-start restart
// hook.
func (a *AuthoritySet) PendingChanges() []PendingChange {
	out := a.pendingStandardChanges.pendingChanges()
	out = append(out, a.pendingForcedChanges...)
	return out
}

// forkOverlaps reports whether two changes occupy the same fork (one's
// canon block is an ancestor-or-equal of the other's), the condition that
// makes them conflicting.
func forkOverlaps(a, b PendingChange, isDescendantOf IsDescendantOf) (bool, error) {
	if a.CanonHash == b.CanonHash {
		return true, nil
	}
	aDescendsB, err := isDescendantOf(b.CanonHash, a.CanonHash)
	if err != nil {
		return false, err
	}
	if aDescendsB {
		return true, nil
	}
	bDescendsA, err := isDescendantOf(a.CanonHash, b.CanonHash)
	if err != nil {
		return false, err
	}
	return bDescendsA, nil
}

// AddPendingChange inserts change into the appropriate tree. Standard
// changes go into the fork-indexed changeTree (no two conflicting changes
// on the same fork); forced changes go into a flat list, but at most one may
// be active per fork at a time. Returns ErrDuplicateAuthoritySetChange
// if either invariant would be violated.
func (a *AuthoritySet) AddPendingChange(change PendingChange, isDescendantOf IsDescendantOf) error {
	if change.DelayKind == DelayKindBest {
		for _, existing := range a.pendingForcedChanges {
			overlaps, err := forkOverlaps(existing, change, isDescendantOf)
			if err != nil {
				return err
			}
			if overlaps {
				return ErrDuplicateAuthoritySetChange
			}
		}
		a.pendingForcedChanges = append(a.pendingForcedChanges, change)
		pendingForcedChangesGauge.Set(float64(len(a.pendingForcedChanges)))
		return nil
	}

	_, err := a.pendingStandardChanges.insert(change.CanonHash, change.CanonHeight, change, isDescendantOf)
	if err != nil {
		if errors.Is(err, errDuplicateChangeHash) {
			return ErrDuplicateAuthoritySetChange
		}
		return err
	}
	pendingStandardChangesGauge.Set(float64(len(a.pendingStandardChanges.pendingChanges())))
	return nil
}

// ForcedChangeResult is the successor-set produced by ApplyForcedChanges.
type ForcedChangeResult struct {
	MedianLastFinalized primitives.BlockNumber
	NewSet              *AuthoritySet
}

// ApplyForcedChanges reports whether any pending forced change becomes
// effective at (atHash, atNumber) on this fork, producing its successor set.
// Idempotent: if none applies, returns (nil, nil). The matched change
// is removed from the pending list; the returned NewSet starts with no
// inherited pending changes of its own (a forced rotation discredits the
// prior epoch's in-flight changes along with its authorities).
func (a *AuthoritySet) ApplyForcedChanges(atHash primitives.Hash, atNumber primitives.BlockNumber, isDescendantOf IsDescendantOf, initialSync bool) (*ForcedChangeResult, error) {
	for i, change := range a.pendingForcedChanges {
		if change.EffectiveNumber() != atNumber {
			continue
		}
		onFork := change.CanonHash == atHash
		if !onFork {
			var err error
			onFork, err = isDescendantOf(change.CanonHash, atHash)
			if err != nil {
				return nil, err
			}
		}
		if !onFork {
			continue
		}

		logAt(initialSync, "Applying authority set forced change", map[string]interface{}{
			"at_hash":   atHash,
			"at_number": atNumber,
			"set_id":    a.SetID + 1,
		})

		newSet := &AuthoritySet{
			SetID:              a.SetID + 1,
			CurrentAuthorities: append([]primitives.Authority(nil), change.NextAuthorities...),
		}

		a.pendingForcedChanges = append(append([]PendingChange(nil), a.pendingForcedChanges[:i]...), a.pendingForcedChanges[i+1:]...)
		pendingForcedChangesGauge.Set(float64(len(a.pendingForcedChanges)))

		return &ForcedChangeResult{
			MedianLastFinalized: change.MedianLastFinalized,
			NewSet:              newSet,
		}, nil
	}
	return nil, nil
}

// ApplyStandardChanges enacts the root standard change discharged by
// finalizing (atHash, atNumber), if any: the current authorities are replaced
// by the change's successors, the set id is incremented, and roots on dead
// forks are pruned. Returns true when the live set rotated.
func (a *AuthoritySet) ApplyStandardChanges(atHash primitives.Hash, atNumber primitives.BlockNumber, isDescendantOf IsDescendantOf, initialSync bool) (bool, error) {
	outcome, err := a.pendingStandardChanges.finalizeWithDescendantIf(atHash, atNumber, isDescendantOf, func(c *PendingChange) bool {
		return c.EffectiveNumber() <= atNumber
	})
	if err != nil {
		return false, err
	}
	if outcome.enacted == nil {
		if outcome.changed {
			pendingStandardChangesGauge.Set(float64(len(a.pendingStandardChanges.pendingChanges())))
		}
		return false, nil
	}

	logAt(initialSync, "Applying authority set standard change", map[string]interface{}{
		"at_hash":   atHash,
		"at_number": atNumber,
		"set_id":    a.SetID + 1,
	})
	a.SetID++
	a.CurrentAuthorities = append([]primitives.Authority(nil), outcome.enacted.NextAuthorities...)
	pendingStandardChangesGauge.Set(float64(len(a.pendingStandardChanges.pendingChanges())))
	return true, nil
}

// EnactsStandardChange reports whether the block at (atHash, atNumber)
// enacts a pending standard change: Some(true) if it is the root change ready
// to apply, Some(false) if it enacts a change blocked behind an earlier
// undischarged dependency, nil if nothing is enacted here.
func (a *AuthoritySet) EnactsStandardChange(atHash primitives.Hash, atNumber primitives.BlockNumber, isDescendantOf IsDescendantOf) (*bool, error) {
	return a.pendingStandardChanges.enactsWithDescendantIf(atHash, atNumber, isDescendantOf, func(c *PendingChange) bool {
		return c.EffectiveNumber() == atNumber
	})
}

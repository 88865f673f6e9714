package grandpa

import (
	"sync"

	"github.com/go-grandpa/finality-import/primitives"
)

// SharedAuthoritySet is the process-wide, lock-protected handle on the
// AuthoritySet. Readers (e.g. justification verification) take the read
// lock; during an import the pending-change guard is the only path that
// takes the write lock, and holds it across the inner block write.
type SharedAuthoritySet struct {
	mu    sync.RWMutex
	inner *AuthoritySet
}

// NewSharedAuthoritySet wraps an already-constructed AuthoritySet.
func NewSharedAuthoritySet(inner *AuthoritySet) *SharedAuthoritySet {
	return &SharedAuthoritySet{inner: inner}
}

// SetID returns the current epoch counter under a read lock.
func (s *SharedAuthoritySet) SetID() primitives.SetID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner.SetID
}

// CurrentAuthorities returns a copy of the current authority list under a
// read lock.
func (s *SharedAuthoritySet) CurrentAuthorities() []primitives.Authority {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]primitives.Authority(nil), s.inner.CurrentAuthorities...)
}

// Current returns (set_id, authorities) in one read-locked snapshot, so the
// two values are never observed torn across a concurrent rotation.
func (s *SharedAuthoritySet) Current() (primitives.SetID, []primitives.Authority) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setID, authorities := s.inner.Current()
	return setID, append([]primitives.Authority(nil), authorities...)
}

// PendingChanges returns every pending change across all forks under a read
// lock, for the on-start restart hook.
func (s *SharedAuthoritySet) PendingChanges() []PendingChange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner.PendingChanges()
}

// ApplyStandardChanges rotates the live set under the write lock when the
// finalized block discharges a pending standard change. The finalizer calls
// this at finalization time, outside any import transaction.
func (s *SharedAuthoritySet) ApplyStandardChanges(atHash primitives.Hash, atNumber primitives.BlockNumber, isDescendantOf IsDescendantOf, initialSync bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ApplyStandardChanges(atHash, atNumber, isDescendantOf, initialSync)
}

// applyHardForkToCurrent replaces CurrentAuthorities in place if setID
// matches a hard fork entry, an idempotent boot-time override.
func (s *SharedAuthoritySet) applyHardForkToCurrent(setID primitives.SetID, nextAuthorities []primitives.Authority) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inner.SetID == setID {
		s.inner.CurrentAuthorities = append([]primitives.Authority(nil), nextAuthorities...)
	}
}

// reindexPendingStandardChanges rewrites every pending standard change by
// the hard-fork index: substituting the hard fork's entry for
// any change whose CanonHash matches.
func (s *SharedAuthoritySet) reindexPendingStandardChanges(index map[primitives.Hash]PendingChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	remapNode := func(n *changeTreeNode) {}
	remapNode = func(n *changeTreeNode) {
		if n == nil {
			return
		}
		if override, ok := index[n.change.CanonHash]; ok {
			n.change = override
		}
		for _, child := range n.children {
			remapNode(child)
		}
	}
	for _, root := range s.inner.pendingStandardChanges.roots {
		remapNode(root)
	}
}

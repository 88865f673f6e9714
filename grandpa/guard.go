package grandpa

import (
	"github.com/google/uuid"
)

// pendingChangeGuard is the scoped resource mediating the critical section of
// an import. It is acquired by taking the authority-set write lock and
// is the only path that mutates SharedAuthoritySet's live state during an
// import.
//
// Go has no destructors, so the rollback-unless-defused contract is built
// from a deferred Close: the guard is a value explicitly consumed on the
// success path (defuse), and every exit path, including a panic unwinding
// the goroutine, is covered by Close, which rolls back if defuse was never
// reached.
type pendingChangeGuard struct {
	sas *SharedAuthoritySet
	id  uuid.UUID

	// snapshot is nil until the first mutation; later mutations do not
	// refresh it.
	snapshot *AuthoritySet

	appliedChanges AppliedChanges
	doPause        bool

	released bool
}

// newPendingChangeGuard acquires the authority-set write lock and returns a
// guard over it. The caller must `defer guard.Close()` immediately.
func newPendingChangeGuard(sas *SharedAuthoritySet) *pendingChangeGuard {
	sas.mu.Lock()
	return &pendingChangeGuard{sas: sas, id: uuid.New(), appliedChanges: NoChange}
}

// live returns the authority set currently backing the shared handle, for
// in-place mutation (add_pending_change, apply_forced_changes, ...).
func (g *pendingChangeGuard) live() *AuthoritySet {
	return g.sas.inner
}

// snapshotOnce clones the live set into g.snapshot the first time it is
// called; subsequent calls are no-ops, so only the state immediately prior
// to this import's first write is ever restored.
func (g *pendingChangeGuard) snapshotOnce() {
	if g.snapshot == nil {
		g.snapshot = g.sas.inner.Clone()
	}
}

// replaceLive swaps in an entirely new AuthoritySet (the forced-change
// rotation path), snapshotting the set it replaces first.
func (g *pendingChangeGuard) replaceLive(newSet *AuthoritySet) {
	g.snapshotOnce()
	g.sas.inner = newSet
}

// touched reports whether this import's critical section ever mutated the
// live set.
func (g *pendingChangeGuard) touched() bool {
	return g.snapshot != nil
}

// setResolution records the outcome of change resolution, to be returned by
// defuse.
func (g *pendingChangeGuard) setResolution(applied AppliedChanges, doPause bool) {
	g.appliedChanges = applied
	g.doPause = doPause
}

// defuse is the explicit finalization step on the success path: it
// discards the snapshot, releases the write lock, and returns the
// resolution recorded by setResolution. Calling it twice, or calling it after
// Close has already run, is a programmer error.
func (g *pendingChangeGuard) defuse() (AppliedChanges, bool) {
	if g.released {
		panic("grandpa: pending-change guard used after release")
	}
	g.released = true
	g.snapshot = nil
	applied, pause := g.appliedChanges, g.doPause
	g.sas.mu.Unlock()
	log.WithField("guard_id", g.id).Debug("pending-change guard defused")
	return applied, pause
}

// Close is the rollback-on-drop path: if defuse was never reached, it
// restores the pre-call snapshot (if the set was ever touched) before
// releasing the lock. Safe to call after defuse (no-op); callers always
// `defer guard.Close()` right after acquisition.
func (g *pendingChangeGuard) Close() {
	if g.released {
		return
	}
	g.released = true
	if g.snapshot != nil {
		g.sas.inner = g.snapshot
		guardRollbacksTotal.Inc()
		log.WithField("guard_id", g.id).Debug("pending-change guard rolled back")
	}
	g.sas.mu.Unlock()
}

package grandpa

import "github.com/go-grandpa/finality-import/primitives"

// EngineID is the well-known consensus-digest tag GRANDPA signals are carried
// under.
type EngineID [4]byte

// GrandpaEngineID is the GRANDPA consensus engine identifier.
var GrandpaEngineID = EngineID{'F', 'R', 'N', 'K'}

// DigestItem is a single tagged entry in a header's consensus digest log. The
// payload's wire format is external to this component; ScanHeader only
// needs the engine tag to decide whether an entry is worth decoding at all.
type DigestItem struct {
	Engine  EngineID
	Payload []byte
}

// Header is the subset of block-header data this component reads. Everything
// else (state root, extrinsics root, ...) is opaque and out of scope.
type Header struct {
	Hash       primitives.Hash
	Number     primitives.BlockNumber
	ParentHash primitives.Hash
	Digest     []DigestItem
}

// ScheduledChange is a standard authority-set rotation, activated `Delay`
// blocks after this header is finalized.
type ScheduledChange struct {
	NextAuthorities []primitives.Authority
	Delay           primitives.BlockNumber
}

// ForcedChange is a rotation activated `Delay` blocks after this header
// appears on the best chain, regardless of finality.
type ForcedChange struct {
	Delay               primitives.BlockNumber
	MedianLastFinalized primitives.BlockNumber
	NextAuthorities     []primitives.Authority
}

// DelayKind distinguishes a standard (finalized-gated) pending change from a
// forced (best-chain-gated) one.
type DelayKind int

const (
	// DelayKindFinalized activates `Delay` blocks after CanonHash is finalized.
	DelayKindFinalized DelayKind = iota
	// DelayKindBest activates `Delay` blocks after CanonHash is on the best chain.
	DelayKindBest
)

// PendingChange is a not-yet-enacted authority-set rotation awaiting its
// delay condition.
type PendingChange struct {
	NextAuthorities []primitives.Authority
	Delay           primitives.BlockNumber
	CanonHeight     primitives.BlockNumber
	CanonHash       primitives.Hash
	DelayKind       DelayKind
	// MedianLastFinalized is only meaningful when DelayKind == DelayKindBest.
	MedianLastFinalized primitives.BlockNumber
}

// EffectiveNumber returns the block number at which this change takes effect.
func (p PendingChange) EffectiveNumber() primitives.BlockNumber {
	return p.CanonHeight + p.Delay
}

// NewAuthoritySet is the descriptor handed to the voter when a set rotation
// is enacted.
type NewAuthoritySet struct {
	CanonNumber primitives.BlockNumber
	CanonHash   primitives.Hash
	SetID       primitives.SetID
	Authorities []primitives.Authority
}

// appliedChangeKind tags which variant of AppliedChanges a value holds.
type appliedChangeKind int

const (
	appliedNone appliedChangeKind = iota
	appliedStandard
	appliedForced
)

// AppliedChanges is the result of resolving a block's authority-set change.
// Exactly one of the three shapes is meaningful, selected by kind.
type AppliedChanges struct {
	kind   appliedChangeKind
	isRoot bool
	newSet NewAuthoritySet
}

// NoChange is the zero AppliedChanges: nothing was enacted.
var NoChange = AppliedChanges{kind: appliedNone}

// StandardChange builds an AppliedChanges reporting a standard-change
// resolution; isRoot is true when the change is ready to apply, false when it
// is blocked on an earlier undischarged change on the same fork.
func StandardChange(isRoot bool) AppliedChanges {
	return AppliedChanges{kind: appliedStandard, isRoot: isRoot}
}

// ForcedChangeApplied builds an AppliedChanges reporting an immediately
// enacted forced change.
func ForcedChangeApplied(newSet NewAuthoritySet) AppliedChanges {
	return AppliedChanges{kind: appliedForced, newSet: newSet}
}

// IsNone reports whether no change was enacted for this block.
func (a AppliedChanges) IsNone() bool { return a.kind == appliedNone }

// IsStandard reports whether a standard change was enacted, along with
// whether it is the root (ready) change.
func (a AppliedChanges) IsStandard() (isRoot bool, ok bool) {
	return a.isRoot, a.kind == appliedStandard
}

// IsForced reports whether a forced change was enacted, returning its
// descriptor.
func (a AppliedChanges) IsForced() (NewAuthoritySet, bool) {
	return a.newSet, a.kind == appliedForced
}

// NeedsJustification reports whether this resolution must be backed by a
// finality proof: only a standard change (root or not) requires one.
func (a AppliedChanges) NeedsJustification() bool {
	return a.kind == appliedStandard
}

// IsDescendantOf answers whether `descendant` descends from `ancestor`. The
// caller builds this closure so that it is consistent with the state that
// will exist immediately after the in-flight block is written:
// typically it special-cases the not-yet-stored (hash, parentHash) pair and
// delegates everything else to the block store.
type IsDescendantOf func(ancestor, descendant primitives.Hash) (bool, error)

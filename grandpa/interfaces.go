package grandpa

import (
	"context"

	"github.com/go-grandpa/finality-import/primitives"
)

// BlockOrigin tags where an imported block came from; only NetworkInitialSync
// is meaningful here (it controls log verbosity).
type BlockOrigin int

const (
	// OriginUnknown is the zero value.
	OriginUnknown BlockOrigin = iota
	// OriginNetworkInitialSync marks a block fetched during the initial,
	// bulk chain sync rather than live gossip.
	OriginNetworkInitialSync
	// OriginOther covers every other origin this component treats alike.
	OriginOther
)

// BlockStatus is the inner store's answer to a by-hash status query.
type BlockStatus int

const (
	StatusUnknown BlockStatus = iota
	StatusInChain
)

// ImportResultKind tags which shape an ImportResult holds.
type ImportResultKind int

const (
	ImportResultImported ImportResultKind = iota
	ImportResultAlreadyInChain
	// ImportResultOther covers any inner-importer result this component
	// passes through unmodified.
	ImportResultOther
)

// ImportedAux are the auxiliary flags this component sets on a successful
// import: needs_justification, bad_justification,
// clear_justification_requests. Other fields the inner importer may have set
// are preserved and returned verbatim.
type ImportedAux struct {
	NeedsJustification         bool
	BadJustification           bool
	ClearJustificationRequests bool
}

// ImportResult is the result surface returned by the inner importer and, in
// turn, by the Import Coordinator.
type ImportResult struct {
	Kind  ImportResultKind
	Aux   ImportedAux
	Other any // the inner importer's result, passed through verbatim for Kind == ImportResultOther
}

// Block is the unit the Import Coordinator operates on: a header plus
// whatever the inner importer needs, an optional justification, the origin,
// and the auxiliary entries this component appends before delegating the
// write.
type Block struct {
	Header        Header
	Origin        BlockOrigin
	Justification []byte
	Auxiliary     []AuxEntry
}

// CacheUpdates is the well-known-cache payload accompanying an import; this
// component only needs to know whether it is empty (a non-empty payload
// marks the block as enacting a consensus-cache change).
type CacheUpdates map[string][]byte

// Empty reports whether no cache updates accompany this import.
func (c CacheUpdates) Empty() bool { return len(c) == 0 }

// InnerImporter is the block-import collaborator this component wraps.
type InnerImporter interface {
	ImportBlock(ctx context.Context, block Block, cache CacheUpdates) (ImportResult, error)
	CheckBlock(ctx context.Context, block Block) (ImportResult, error)
	Status(ctx context.Context, hash primitives.Hash) (BlockStatus, error)
	Header(ctx context.Context, hash primitives.Hash) (*Header, error)
	HeaderByNumber(ctx context.Context, number primitives.BlockNumber) (*Header, error)
	Info(ctx context.Context) (ChainInfo, error)
}

// ChainInfo is the subset of chain-level metadata this component reads.
type ChainInfo struct {
	FinalizedNumber primitives.BlockNumber
	BestNumber      primitives.BlockNumber
}

// ChainSelector resolves a finality target on the best chain, used by the
// on-start restart hook.
type ChainSelector interface {
	FinalityTarget(ctx context.Context, canonHash primitives.Hash, maxNumber primitives.BlockNumber) (*primitives.Hash, error)
}

// Finalizer performs the actual finalization write and reports any resulting
// voter command.
type Finalizer interface {
	FinalizeBlock(ctx context.Context, hash primitives.Hash, number primitives.BlockNumber, justification []byte, initialSync bool) (*VoterCommand, error)
}

// JustificationVerifier decodes and verifies a finality proof against the
// claimed (hash, number, set_id, authorities).
type JustificationVerifier interface {
	DecodeAndVerifyFinalizes(justification []byte, hash primitives.Hash, number primitives.BlockNumber, setID primitives.SetID, authorities []primitives.Authority) error
}

// HardFork is one entry of the externally-configured hard-fork override list
// supplied at construction.
type HardFork struct {
	SetID  primitives.SetID
	Change PendingChange
}

package grandpa

import (
	"context"

	"go.opencensus.io/trace"
	"golang.org/x/exp/slices"

	"github.com/go-grandpa/finality-import/grandpa/cache"
	"github.com/go-grandpa/finality-import/primitives"
)

// Config wires the importer's collaborators. None of these are constructed
// by this package; they are supplied by the surrounding node.
type Config struct {
	Inner            InnerImporter
	ChainSelector    ChainSelector
	AuthoritySet     *SharedAuthoritySet
	VoterCommands    *VoterCommandSender
	ConsensusChanges *ConsensusChangesLog
	Verifier         JustificationVerifier
	Finalizer        Finalizer
	Codec            Codec
	HardForks        []HardFork

	// DescendantCache is optional; when set, every import's ancestry queries
	// are memoized in this one cache (grandpa/cache), so answers are shared
	// across imports. nil disables memoization.
	DescendantCache *cache.DescendantCache
}

// Importer is the Finality Import Interceptor: the public entry point
// wiring the digest scanner, authority-set state, pending-change guard, and
// justification handler around an inner block importer.
type Importer struct {
	cfg           Config
	hardForkIndex map[primitives.Hash]PendingChange
	justification *justificationHandler
}

// New constructs the importer, applying construction-time hard forks: any
// hard fork matching the *current* set id overrides the live authority list
// in place, and the full hard-fork list is re-indexed by canon hash and
// substituted into any pending standard change it overrides.
func New(cfg Config) *Importer {
	index := make(map[primitives.Hash]PendingChange, len(cfg.HardForks))
	appliedToCurrent := false
	for _, hf := range cfg.HardForks {
		if !appliedToCurrent && hf.SetID == cfg.AuthoritySet.SetID() {
			cfg.AuthoritySet.applyHardForkToCurrent(hf.SetID, hf.Change.NextAuthorities)
			appliedToCurrent = true
		}
		index[hf.Change.CanonHash] = hf.Change
	}
	cfg.AuthoritySet.reindexPendingStandardChanges(index)

	return &Importer{
		cfg:           cfg,
		hardForkIndex: index,
		justification: newJustificationHandler(cfg.AuthoritySet, cfg.Verifier, cfg.Finalizer, cfg.VoterCommands),
	}
}

// checkNewChange resolves the pending change for this block, in priority
// order: hard-fork override, then forced change, then scheduled change.
func (i *Importer) checkNewChange(header *Header, hash primitives.Hash) *PendingChange {
	if change, ok := i.hardForkIndex[hash]; ok {
		return &change
	}

	scheduled, forced := ScanHeader(header, i.cfg.Codec)
	if forced != nil {
		return &PendingChange{
			NextAuthorities:     forced.NextAuthorities,
			Delay:               forced.Delay,
			CanonHeight:         header.Number,
			CanonHash:           hash,
			DelayKind:           DelayKindBest,
			MedianLastFinalized: forced.MedianLastFinalized,
		}
	}
	if scheduled != nil {
		return &PendingChange{
			NextAuthorities: scheduled.NextAuthorities,
			Delay:           scheduled.Delay,
			CanonHeight:     header.Number,
			CanonHash:       hash,
			DelayKind:       DelayKindFinalized,
		}
	}
	return nil
}

// descendantOracle builds an ancestry closure consistent with the state that
// will exist immediately after the in-flight block is written: it
// special-cases the not-yet-stored (hash, parentHash) pair and otherwise
// walks parent links through the inner store.
func (i *Importer) descendantOracle(ctx context.Context, inFlightHash, inFlightParent primitives.Hash) IsDescendantOf {
	raw := func(ancestor, descendant primitives.Hash) (bool, error) {
		cur := descendant
		if cur == inFlightHash {
			if ancestor == inFlightParent {
				return true, nil
			}
			if ancestor == inFlightHash {
				return false, nil
			}
			cur = inFlightParent
		}
		for {
			if cur == ancestor {
				return true, nil
			}
			header, err := i.cfg.Inner.Header(ctx, cur)
			if err != nil {
				return false, err
			}
			if header == nil || header.ParentHash == cur {
				return false, nil
			}
			cur = header.ParentHash
		}
	}
	if i.cfg.DescendantCache != nil {
		return i.cfg.DescendantCache.Wrap(raw)
	}
	return raw
}

// makeAuthoritiesChanges resolves and applies this block's authority-set
// changes under the write lock. It always returns a
// live, locked guard (the caller must `defer guard.Close()` immediately,
// even when an error is also returned) so that any partial mutation is
// rolled back on every exit path.
func (i *Importer) makeAuthoritiesChanges(ctx context.Context, block *Block, hash primitives.Hash, initialSync bool) (*pendingChangeGuard, error) {
	number := block.Header.Number
	maybeChange := i.checkNewChange(&block.Header, hash)
	isDescendantOf := i.descendantOracle(ctx, hash, block.Header.ParentHash)

	guard := newPendingChangeGuard(i.cfg.AuthoritySet)

	doPause := false
	if maybeChange != nil {
		guard.snapshotOnce()
		if maybeChange.DelayKind == DelayKindBest {
			doPause = true
		}
		if err := guard.live().AddPendingChange(*maybeChange, isDescendantOf); err != nil {
			return guard, invalidChangeSequenceError(err)
		}
	}

	var applied AppliedChanges
	forcedResult, err := guard.live().ApplyForcedChanges(hash, number, isDescendantOf, initialSync)
	if err != nil {
		return guard, storageReadError(err)
	}

	if forcedResult != nil {
		info, err := i.cfg.Inner.Info(ctx)
		if err != nil {
			return guard, storageReadError(err)
		}
		canonNumber := forcedResult.MedianLastFinalized
		if info.FinalizedNumber < canonNumber {
			canonNumber = info.FinalizedNumber
		}
		canonHeader, err := i.cfg.Inner.HeaderByNumber(ctx, canonNumber)
		if err != nil {
			return guard, storageReadError(err)
		}
		if canonHeader == nil {
			// The blockchain has violated a consensus-critical invariant: the
			// header at this number must exist. Fail-stop, after rolling back
			// and releasing the lock, since the caller never receives the guard.
			guard.Close()
			panic(ErrMissingMedianFinalizedHeader)
		}

		setID, authorities := forcedResult.NewSet.Current()
		newAuthoritySet := NewAuthoritySet{
			CanonNumber: canonNumber,
			CanonHash:   canonHeader.Hash,
			SetID:       setID,
			Authorities: authorities,
		}
		guard.replaceLive(forcedResult.NewSet)
		applied = ForcedChangeApplied(newAuthoritySet)
	} else {
		rootPtr, err := guard.live().EnactsStandardChange(hash, number, isDescendantOf)
		if err != nil {
			return guard, invalidChangeSequenceError(err)
		}
		if rootPtr != nil {
			applied = StandardChange(*rootPtr)
		} else {
			applied = NoChange
		}
	}

	recordAppliedChange(applied)
	guard.setResolution(applied, doPause)

	if guard.touched() {
		var changeForAux *NewAuthoritySet
		if newSet, ok := applied.IsForced(); ok {
			changeForAux = &newSet
		}
		if err := updateAuthoritySetAux(guard.live(), changeForAux, func(entries []AuxEntry) {
			block.Auxiliary = append(block.Auxiliary, entries...)
		}); err != nil {
			return guard, storageReadError(err)
		}
	}

	return guard, nil
}

// ImportBlock is the public entry point. It performs de-dup,
// authority-set change resolution, delegates the write to the inner
// importer, then emits voter signals and processes any justification.
func (i *Importer) ImportBlock(ctx context.Context, block Block, cacheUpdates CacheUpdates) (ImportResult, error) {
	ctx, span := trace.StartSpan(ctx, "grandpa.ImportBlock")
	defer span.End()

	hash := block.Header.Hash
	number := block.Header.Number

	status, err := i.cfg.Inner.Status(ctx, hash)
	switch {
	case err != nil:
		return ImportResult{}, storageReadError(err)
	case status == StatusInChain:
		alreadyInChainTotal.Inc()
		return ImportResult{Kind: ImportResultAlreadyInChain}, nil
	}

	initialSync := block.Origin == OriginNetworkInitialSync

	guard, err := i.makeAuthoritiesChanges(ctx, &block, hash, initialSync)
	defer guard.Close()
	if err != nil {
		return ImportResult{}, err
	}

	// Defer justification processing: strip it before delegating so the
	// inner importer never finalizes on our behalf.
	justification := block.Justification
	block.Justification = nil
	enactsConsensusChange := !cacheUpdates.Empty()

	importResult, err := i.cfg.Inner.ImportBlock(ctx, block, cacheUpdates)
	if err != nil {
		log.WithError(err).Debug("restoring old authority set after block import error")
		return ImportResult{}, innerImportFailedError(err)
	}
	if importResult.Kind != ImportResultImported {
		log.WithField("kind", importResult.Kind).Debug("restoring old authority set after non-Imported result")
		return importResult, nil
	}

	importedAux := importResult.Aux
	applied, doPause := guard.defuse()

	// Pause must be sent before ChangeAuthorities.
	if doPause {
		i.cfg.VoterCommands.Send(PauseCommand("Forced change scheduled after inactivity"))
	}

	needsJustification := applied.NeedsJustification()

	if newSet, ok := applied.IsForced(); ok {
		i.cfg.VoterCommands.Send(ChangeAuthoritiesCommand(newSet))
		importedAux.ClearJustificationRequests = true
	} else if isRoot, isStandard := applied.IsStandard(); isStandard && !isRoot {
		// Blocked on an earlier undischarged change: drop any attached
		// justification so sync resupplies justifications in order.
		justification = nil
	}

	if justification != nil {
		err := i.justification.importJustification(ctx, hash, number, justification, needsJustification, initialSync)
		if err != nil {
			if needsJustification || enactsConsensusChange {
				log.WithError(err).Debug("imported a change-enacting block with an invalid justification, requesting a replacement")
				importedAux.BadJustification = true
				importedAux.NeedsJustification = true
			} else {
				log.WithError(err).Debug("ignoring verification error on an unsolicited justification")
			}
		}
	} else {
		if needsJustification {
			log.WithField("number", number).Debug("imported unjustified change-enacting block, waiting for finality")
			importedAux.NeedsJustification = true
		}
		if enactsConsensusChange {
			i.cfg.ConsensusChanges.NoteChange(primitives.HashNumber{Hash: hash, Number: number})
		}
	}

	importedBlocksTotal.Inc()
	return ImportResult{Kind: ImportResultImported, Aux: importedAux}, nil
}

// CheckBlock is a bare delegation to the inner importer: no authority-set
// involvement.
func (i *Importer) CheckBlock(ctx context.Context, block Block) (ImportResult, error) {
	return i.cfg.Inner.CheckBlock(ctx, block)
}

// ImportJustification verifies and applies a finality proof supplied out of
// band by the sync layer, outside any block import. Unsolicited proofs are
// never change-mandatory, so a finalize that produces no voter command is
// fine here.
func (i *Importer) ImportJustification(ctx context.Context, hash primitives.Hash, number primitives.BlockNumber, justification []byte, initialSync bool) error {
	return i.justification.importJustification(ctx, hash, number, justification, false, initialSync)
}

// OnStart is the restart hook: it enumerates pending standard changes
// whose effective block lies in (finalized_number, best_number] and resolves
// each to a concrete (hash, number) the sync layer should request a
// justification for.
func (i *Importer) OnStart(ctx context.Context) ([]primitives.HashNumber, error) {
	info, err := i.cfg.Inner.Info(ctx)
	if err != nil {
		return nil, storageReadError(err)
	}

	var out []primitives.HashNumber
	for _, change := range i.cfg.AuthoritySet.PendingChanges() {
		if change.DelayKind != DelayKindFinalized {
			continue
		}
		effective := change.EffectiveNumber()
		if !(effective > info.FinalizedNumber && effective <= info.BestNumber) {
			continue
		}

		var effectiveHash primitives.Hash
		if change.Delay > 0 {
			target, err := i.cfg.ChainSelector.FinalityTarget(ctx, change.CanonHash, effective)
			if err != nil || target == nil {
				continue
			}
			effectiveHash = *target
		} else {
			effectiveHash = change.CanonHash
		}

		header, err := i.cfg.Inner.Header(ctx, effectiveHash)
		if err != nil || header == nil {
			continue
		}
		if header.Number == effective {
			out = append(out, primitives.HashNumber{Hash: header.Hash, Number: header.Number})
		}
	}

	// Sync wants justifications supplied lowest block first, so changes
	// discharge in dependency order.
	slices.SortFunc(out, func(a, b primitives.HashNumber) bool {
		return a.Number < b.Number
	})
	return out, nil
}

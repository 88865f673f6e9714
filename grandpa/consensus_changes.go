package grandpa

import (
	"sync"

	"github.com/go-grandpa/finality-import/primitives"
)

// ConsensusChangesLog is the append-only record of blocks that carried
// consensus-cache changes but whose justification is deferred until a later
// finalization. Writes are rare (only on cache-updating blocks imported
// without a justification), so a plain mutex is enough.
type ConsensusChangesLog struct {
	mu      sync.Mutex
	changes []primitives.HashNumber
}

// NewConsensusChangesLog returns an empty log.
func NewConsensusChangesLog() *ConsensusChangesLog {
	return &ConsensusChangesLog{}
}

// NoteChange records that (number, hash) carried a consensus-cache change
// without an accompanying justification.
func (l *ConsensusChangesLog) NoteChange(hn primitives.HashNumber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, hn)
}

// Changes returns a snapshot of every recorded entry.
func (l *ConsensusChangesLog) Changes() []primitives.HashNumber {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]primitives.HashNumber(nil), l.changes...)
}

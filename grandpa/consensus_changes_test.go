package grandpa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-grandpa/finality-import/primitives"
)

func TestConsensusChangesLogRecordsAndSnapshots(t *testing.T) {
	log := NewConsensusChangesLog()
	require.Empty(t, log.Changes())

	log.NoteChange(primitives.HashNumber{Hash: hashFromByte(1), Number: 5})
	log.NoteChange(primitives.HashNumber{Hash: hashFromByte(2), Number: 6})

	snap := log.Changes()
	require.Len(t, snap, 2)

	// mutating the returned slice must not affect the log's internal state.
	snap[0] = primitives.HashNumber{}
	require.Equal(t, hashFromByte(1), log.Changes()[0].Hash)
}

package grandpa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-grandpa/finality-import/primitives"
)

func TestUpdateAuthoritySetAuxStandardOnly(t *testing.T) {
	set := NewAuthoritySetState(2, sampleAuthorities(3))
	require.NoError(t, set.AddPendingChange(PendingChange{CanonHash: hashFromByte(1), CanonHeight: 9}, neverDescends))

	var captured []AuxEntry
	err := updateAuthoritySetAux(set, nil, func(entries []AuxEntry) {
		captured = entries
	})
	require.NoError(t, err)
	require.Len(t, captured, 1)
	require.Equal(t, authoritySetAuxKey, captured[0].Key)
	require.NotEmpty(t, captured[0].Value)
}

func TestUpdateAuthoritySetAuxIncludesNewSetOnForcedChange(t *testing.T) {
	set := NewAuthoritySetState(3, sampleAuthorities(2))
	newSet := NewAuthoritySet{
		CanonNumber: 100,
		CanonHash:   hashFromByte(7),
		SetID:       4,
		Authorities: sampleAuthorities(4),
	}

	var captured []AuxEntry
	err := updateAuthoritySetAux(set, &newSet, func(entries []AuxEntry) {
		captured = entries
	})
	require.NoError(t, err)
	require.Len(t, captured, 2)
	require.Equal(t, authoritySetAuxKey, captured[0].Key)
	require.Equal(t, newAuthoritySetAuxKey, captured[1].Key)
}

func TestToGobAuthoritiesPreservesValues(t *testing.T) {
	authorities := []primitives.Authority{
		{ID: voterIDFromByte(1), Weight: 10},
		{ID: voterIDFromByte(2), Weight: 20},
	}
	got := toGobAuthorities(authorities)
	require.Len(t, got, 2)
	require.Equal(t, uint64(10), got[0].Weight)
	require.Equal(t, [32]byte(authorities[1].ID), got[1].ID)
}

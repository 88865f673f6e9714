package grandpa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanHeaderFindsScheduledChange(t *testing.T) {
	sc := ScheduledChange{NextAuthorities: sampleAuthorities(3), Delay: 4}
	h := &Header{
		Number: 10,
		Digest: []DigestItem{
			{Engine: EngineID{'x', 'x', 'x', 'x'}, Payload: []byte("ignored")},
			scheduledDigest(sc),
		},
	}

	scheduled, forced := ScanHeader(h, fakeCodec{})
	require.Nil(t, forced)
	require.NotNil(t, scheduled)
	require.Equal(t, sc, *scheduled)
}

func TestScanHeaderFindsForcedChange(t *testing.T) {
	fc := ForcedChange{Delay: 0, MedianLastFinalized: 5, NextAuthorities: sampleAuthorities(2)}
	h := &Header{Digest: []DigestItem{forcedDigest(fc)}}

	scheduled, forced := ScanHeader(h, fakeCodec{})
	require.Nil(t, scheduled)
	require.NotNil(t, forced)
	require.Equal(t, fc, *forced)
}

func TestScanHeaderFindsBoth(t *testing.T) {
	sc := ScheduledChange{NextAuthorities: sampleAuthorities(1), Delay: 1}
	fc := ForcedChange{Delay: 2, MedianLastFinalized: 1, NextAuthorities: sampleAuthorities(1)}
	h := &Header{Digest: []DigestItem{scheduledDigest(sc), forcedDigest(fc)}}

	scheduled, forced := ScanHeader(h, fakeCodec{})
	require.NotNil(t, scheduled)
	require.NotNil(t, forced)
}

func TestScanHeaderIgnoresNonGrandpaEngine(t *testing.T) {
	h := &Header{Digest: []DigestItem{{Engine: EngineID{'o', 't', 'h', 'r'}, Payload: []byte("{}")}}}
	scheduled, forced := ScanHeader(h, fakeCodec{})
	require.Nil(t, scheduled)
	require.Nil(t, forced)
}

func TestScanHeaderFirstOfEachKindWins(t *testing.T) {
	first := ScheduledChange{Delay: 1}
	second := ScheduledChange{Delay: 99}
	h := &Header{Digest: []DigestItem{scheduledDigest(first), scheduledDigest(second)}}

	scheduled, _ := ScanHeader(h, fakeCodec{})
	require.Equal(t, first, *scheduled)
}

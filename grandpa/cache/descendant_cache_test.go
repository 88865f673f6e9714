package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-grandpa/finality-import/primitives"
)

var errNotFound = errors.New("not found")

func hashFromByte(b byte) primitives.Hash {
	var h primitives.Hash
	h[0] = b
	return h
}

func TestDescendantCacheGetPutRoundTrip(t *testing.T) {
	c := New(4)
	a, d := hashFromByte(1), hashFromByte(2)

	_, ok := c.Get(a, d)
	require.False(t, ok)

	c.Put(a, d, true)
	val, ok := c.Get(a, d)
	require.True(t, ok)
	require.True(t, val)
}

func TestDescendantCacheWrapCachesOnMissOnly(t *testing.T) {
	c := New(4)
	calls := 0
	next := func(ancestor, descendant primitives.Hash) (bool, error) {
		calls++
		return true, nil
	}

	wrapped := c.Wrap(next)
	a, d := hashFromByte(1), hashFromByte(2)

	v1, err := wrapped(a, d)
	require.NoError(t, err)
	require.True(t, v1)

	v2, err := wrapped(a, d)
	require.NoError(t, err)
	require.True(t, v2)

	require.Equal(t, 1, calls)
}

func TestDescendantCacheWrapDoesNotCacheErrors(t *testing.T) {
	c := New(4)
	calls := 0
	next := func(ancestor, descendant primitives.Hash) (bool, error) {
		calls++
		return false, errNotFound
	}

	wrapped := c.Wrap(next)
	a, d := hashFromByte(1), hashFromByte(2)

	_, err := wrapped(a, d)
	require.Error(t, err)
	_, err = wrapped(a, d)
	require.Error(t, err)
	require.Equal(t, 2, calls)
}

// Package primitives defines the small set of distinctly-typed values shared
// across the finality import packages, rather than passing bare uint64s and
// byte arrays between layers that mean very different things.
package primitives

import "fmt"

// Hash identifies a block. Zero value is the empty hash, never a valid block.
type Hash [32]byte

// String implements fmt.Stringer for log fields and test output.
func (h Hash) String() string {
	return fmt.Sprintf("%#x", [32]byte(h))
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// BlockNumber is a block height. Monotone, totally ordered.
type BlockNumber uint64

// SetID is the monotone counter identifying an authority-set epoch.
type SetID uint64

// VoterID identifies a GRANDPA voter (authority).
type VoterID [32]byte

// String implements fmt.Stringer.
func (v VoterID) String() string {
	return fmt.Sprintf("%#x", [32]byte(v))
}

// AuthorityWeight is a voter's weight in the authority set.
type AuthorityWeight uint64

// Authority is a single (voter, weight) pair within an authority set.
type Authority struct {
	ID     VoterID
	Weight AuthorityWeight
}

// HashNumber pairs a hash with its block number, the unit the sync layer
// requests justifications by and the unit the consensus-changes log
// records.
type HashNumber struct {
	Hash   Hash
	Number BlockNumber
}

package grandpa

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-grandpa/finality-import/primitives"
)

// fakeChain is a minimal in-memory stand-in for InnerImporter + ChainSelector.
type fakeChain struct {
	mu sync.Mutex

	headers  map[primitives.Hash]Header
	byNumber map[primitives.BlockNumber]Header
	statuses map[primitives.Hash]BlockStatus

	finalized primitives.BlockNumber
	best      primitives.BlockNumber

	importResult ImportResult
	importErr    error
	imported     []Block

	finalityTarget *primitives.Hash
	finalityErr    error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		headers:      map[primitives.Hash]Header{},
		byNumber:     map[primitives.BlockNumber]Header{},
		statuses:     map[primitives.Hash]BlockStatus{},
		importResult: ImportResult{Kind: ImportResultImported},
	}
}

func (c *fakeChain) seed(h Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[h.Hash] = h
	c.byNumber[h.Number] = h
	c.statuses[h.Hash] = StatusInChain
	if h.Number > c.best {
		c.best = h.Number
	}
}

func (c *fakeChain) ImportBlock(_ context.Context, block Block, _ CacheUpdates) (ImportResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.imported = append(c.imported, block)
	if c.importErr != nil {
		return ImportResult{}, c.importErr
	}
	h := block.Header
	c.headers[h.Hash] = h
	c.byNumber[h.Number] = h
	c.statuses[h.Hash] = StatusInChain
	if h.Number > c.best {
		c.best = h.Number
	}
	return c.importResult, nil
}

func (c *fakeChain) CheckBlock(context.Context, Block) (ImportResult, error) {
	return ImportResult{Kind: ImportResultImported}, nil
}

func (c *fakeChain) Status(_ context.Context, hash primitives.Hash) (BlockStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statuses[hash], nil
}

func (c *fakeChain) Header(_ context.Context, hash primitives.Hash) (*Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.headers[hash]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (c *fakeChain) HeaderByNumber(_ context.Context, number primitives.BlockNumber) (*Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.byNumber[number]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (c *fakeChain) Info(context.Context) (ChainInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChainInfo{FinalizedNumber: c.finalized, BestNumber: c.best}, nil
}

func (c *fakeChain) FinalityTarget(context.Context, primitives.Hash, primitives.BlockNumber) (*primitives.Hash, error) {
	return c.finalityTarget, c.finalityErr
}

// fakeCodec decodes JSON-tagged payloads; a real codec would speak SCALE, but
// the wire format is explicitly out of this component's scope.
type fakeCodec struct{}

type wirePayload struct {
	Kind      string          `json:"kind"`
	Scheduled ScheduledChange `json:"scheduled,omitempty"`
	Forced    ForcedChange    `json:"forced,omitempty"`
}

func scheduledDigest(sc ScheduledChange) DigestItem {
	b, _ := json.Marshal(wirePayload{Kind: "scheduled", Scheduled: sc})
	return DigestItem{Engine: GrandpaEngineID, Payload: b}
}

func forcedDigest(fc ForcedChange) DigestItem {
	b, _ := json.Marshal(wirePayload{Kind: "forced", Forced: fc})
	return DigestItem{Engine: GrandpaEngineID, Payload: b}
}

func (fakeCodec) DecodeScheduledChange(payload []byte) (ScheduledChange, bool) {
	var w wirePayload
	if err := json.Unmarshal(payload, &w); err != nil || w.Kind != "scheduled" {
		return ScheduledChange{}, false
	}
	return w.Scheduled, true
}

func (fakeCodec) DecodeForcedChange(payload []byte) (ForcedChange, bool) {
	var w wirePayload
	if err := json.Unmarshal(payload, &w); err != nil || w.Kind != "forced" {
		return ForcedChange{}, false
	}
	return w.Forced, true
}

// fakeVerifier accepts every justification unless configured to fail.
type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) DecodeAndVerifyFinalizes(_ []byte, _ primitives.Hash, _ primitives.BlockNumber, _ primitives.SetID, _ []primitives.Authority) error {
	return f.err
}

// fakeFinalizer records every call and returns a configured command/error.
type fakeFinalizer struct {
	cmd   *VoterCommand
	err   error
	calls []primitives.HashNumber
}

func (f *fakeFinalizer) FinalizeBlock(_ context.Context, hash primitives.Hash, number primitives.BlockNumber, _ []byte, _ bool) (*VoterCommand, error) {
	f.calls = append(f.calls, primitives.HashNumber{Hash: hash, Number: number})
	if f.err != nil {
		return nil, f.err
	}
	return f.cmd, nil
}

func hashFromByte(b byte) primitives.Hash {
	var h primitives.Hash
	h[0] = b
	return h
}

func voterIDFromByte(b byte) primitives.VoterID {
	var v primitives.VoterID
	v[0] = b
	return v
}

func sampleAuthorities(n int) []primitives.Authority {
	out := make([]primitives.Authority, n)
	for i := 0; i < n; i++ {
		out[i] = primitives.Authority{ID: voterIDFromByte(byte(i + 1)), Weight: 1}
	}
	return out
}

// alwaysDescends treats every pair as an ancestry relation except when equal;
// sufficient for tests that only ever run a single, linear fork.
func alwaysDescends(ancestor, descendant primitives.Hash) (bool, error) {
	return ancestor != descendant, nil
}

func neverDescends(primitives.Hash, primitives.Hash) (bool, error) {
	return false, nil
}

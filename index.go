// Package bwindex is an in-memory, latch-free ordered key-value index
// modeled on the Bw-Tree family: updates to the single logical node are
// expressed as a chain of immutable delta records prepended via CAS to
// an atomic head pointer in a page table, periodically collapsed by
// consolidation, with epoch-based reclamation guarding concurrent
// memory safety and exponential backoff moderating CAS retry.
package bwindex

import (
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/kvindex/bwindex/backoff"
	"github.com/kvindex/bwindex/epoch"
	"github.com/kvindex/bwindex/simd"
)

// Pair is a single (key, value) result from Scan.
type Pair struct {
	Key   Key
	Value Value
}

// Index binds the page table, epoch manager, and configuration into the
// public façade: Insert, Delete, Lookup, Scan, Consolidate, CollectGarbage.
type Index struct {
	table     *pageTable
	epochMgr  *epoch.Manager
	config    Config
	writes    atomic.Uint64
	reclaimed atomic.Uint64
}

// NewIndex creates an Index. A nil config uses DefaultConfig.
func NewIndex(c *Config) (*Index, error) {
	if c == nil {
		c = &DefaultConfig
	}
	if err := c.Verify(); err != nil {
		return nil, errors.Wrap(err, "bwindex: invalid config")
	}
	return &Index{
		table:    newPageTable(c.PageTableCapacity),
		epochMgr: epoch.NewManager(c.GarbageBatchSize),
		config:   *c,
	}, nil
}

// Close flushes the epoch manager's deferred-free queues unconditionally.
// The caller must ensure no operation is still in flight.
func (idx *Index) Close() {
	idx.epochMgr.Flush()
}

// Reclaimed reports how many delta-chain links have been handed to the
// garbage collector via consolidation so far. Informational only.
func (idx *Index) Reclaimed() uint64 {
	return idx.reclaimed.Load()
}

// Insert appends an Insert delta for key -> value. Repeated inserts of
// the same key do not overwrite in place; the newest delta wins at read
// time until a consolidation deduplicates them.
func (idx *Index) Insert(key Key, value Value) error {
	g := idx.epochMgr.Pin()
	defer g.Unpin()
	return idx.appendDelta(rootPage, func(next *nodeHeader) *nodeHeader {
		return newInsertDelta(key, value, next)
	})
}

// Delete appends a Delete delta (tombstone) for key.
func (idx *Index) Delete(key Key) error {
	g := idx.epochMgr.Pin()
	defer g.Unpin()
	return idx.appendDelta(rootPage, func(next *nodeHeader) *nodeHeader {
		return newDeleteDelta(key, next)
	})
}

// appendDelta implements the append-delta protocol: construct a delta
// atop the observed head, CAS it into the slot, and on conflict retry
// with a freshly reloaded head, a few tight spins first and then
// exponential backoff, giving up once the CAS retry cap is exhausted.
// The caller must hold an epoch pin for the duration.
func (idx *Index) appendDelta(page PageID, build func(next *nodeHeader) *nodeHeader) error {
	if !idx.table.inRange(page) {
		return ErrPageOutOfRange
	}

	bo := backoff.NewSpinThenBackoff(idx.config.ConsolidationSpinLimit, idx.config.BackoffMinNS, idx.config.BackoffMaxNS)
	head := idx.table.get(page)
	for {
		d := build(head)
		ok, observed := idx.table.update(page, head, d)
		if ok {
			idx.afterWrite(page)
			return nil
		}
		head = observed

		if !bo.ShouldRetry(idx.config.CASMaxRetries) {
			return ErrCapacityExceeded
		}
		bo.Wait()
	}
}

// afterWrite runs the façade's post-publish bookkeeping: an inline
// consolidation request if the chain has grown past threshold, and a
// periodic global-epoch advance plus best-effort collection.
func (idx *Index) afterWrite(page PageID) {
	if chainLength(idx.table.get(page)) > idx.config.MaxDeltaChainLength {
		// Best effort: a superseded consolidation just means another
		// writer already changed the chain, which is not this writer's
		// problem to retry.
		_ = idx.consolidate(page)
	}

	n := idx.writes.Add(1)
	if n%uint64(idx.config.GarbageBatchSize) == 0 {
		idx.epochMgr.AdvanceGlobal()
		idx.epochMgr.TryCollect()
	}
}

// Lookup returns (value, true) if key's newest delta is an Insert, or
// (0, false) if the newest delta is a Delete or key is absent entirely.
// Lookup never fails; a chain walk that encounters a tree-structural
// delta (never produced in this single-node core) is treated as absent
// rather than propagating an error through an infallible signature.
func (idx *Index) Lookup(key Key) (Value, bool) {
	g := idx.epochMgr.Pin()
	defer g.Unpin()

	head := idx.table.get(rootPage)
	value, present, err := lookupChain(head, key)
	if err != nil {
		return 0, false
	}
	return value, present
}

// Scan returns the ordered (key, value) pairs with lo <= key < hi, each
// key's outcome decided by its newest delta.
func (idx *Index) Scan(lo, hi Key) ([]Pair, error) {
	if lo > hi {
		return nil, ErrInvalidRange
	}

	g := idx.epochMgr.Pin()
	defer g.Unpin()

	decided := make(map[Key]decidedEntry)
	recordOnce := func(k Key, e decidedEntry) {
		if _, seen := decided[k]; !seen {
			decided[k] = e
		}
	}

	head := idx.table.get(rootPage)
	for h := head; h != nil; h = h.next {
		switch h.kind {
		case kindInsert:
			d := asInsert(h)
			if d.key >= lo && d.key < hi {
				recordOnce(d.key, decidedEntry{value: d.value})
			}
		case kindDelete:
			d := asDelete(h)
			if d.key >= lo && d.key < hi {
				recordOnce(d.key, decidedEntry{tomb: true})
			}
		case kindSplit, kindMerge:
			// Out of scope for this single-node core; nothing to
			// redirect to, so the scan simply continues.
		case kindBase:
			b := asBase(h)
			start := simd.LowerBound(b.keys, lo)
			for i := start; i < len(b.keys) && b.keys[i] < hi; i++ {
				recordOnce(b.keys[i], decidedEntry{value: b.values[i]})
			}
		}
	}

	pairs := make([]Pair, 0, len(decided))
	for k, e := range decided {
		if !e.tomb {
			pairs = append(pairs, Pair{Key: k, Value: e.value})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs, nil
}

// Consolidate collapses page's delta chain into a fresh base node,
// regardless of whether it has exceeded the configured threshold.
func (idx *Index) Consolidate(page PageID) error {
	if !idx.table.inRange(page) {
		return ErrPageOutOfRange
	}
	return idx.consolidate(page)
}

// CollectGarbage performs a best-effort epoch-based reclamation pass.
func (idx *Index) CollectGarbage() {
	idx.epochMgr.AdvanceGlobal()
	idx.epochMgr.TryCollect()
}

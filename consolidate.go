package bwindex

import (
	"log"
	"sort"
)

// decidedEntry records the first-encountered outcome for a key during a
// chain walk: either a value (tomb false) or a tombstone (tomb true).
type decidedEntry struct {
	value Value
	tomb  bool
}

// consolidate collapses page's delta chain into a fresh base node and
// atomically swaps it into the page table slot. It is invoked inline
// from the write path rather than off a dedicated background worker.
func (idx *Index) consolidate(page PageID) error {
	g := idx.epochMgr.Pin()
	defer g.Unpin()

	oldHead := idx.table.get(page)

	decided := make(map[Key]decidedEntry)
	recordOnce := func(k Key, e decidedEntry) {
		if _, seen := decided[k]; !seen {
			decided[k] = e
		}
	}

	for h := oldHead; h != nil; h = h.next {
		switch h.kind {
		case kindInsert:
			d := asInsert(h)
			recordOnce(d.key, decidedEntry{value: d.value})
		case kindDelete:
			d := asDelete(h)
			recordOnce(d.key, decidedEntry{tomb: true})
		case kindSplit, kindMerge:
			return ErrNeedsStructuralHandling
		case kindBase:
			b := asBase(h)
			for i, k := range b.keys {
				recordOnce(k, decidedEntry{value: b.values[i]})
			}
		}
	}

	keys := make([]Key, 0, len(decided))
	for k, e := range decided {
		if !e.tomb {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	values := make([]Value, len(keys))
	for i, k := range keys {
		values[i] = decided[k].value
	}

	newBase := &baseNode{
		nodeHeader: nodeHeader{kind: kindBase},
		keys:       keys,
		values:     values,
	}

	ok, _ := idx.table.update(page, oldHead, &newBase.nodeHeader)
	if !ok {
		log.Printf("consolidate %d: conflict, discarding candidate", page)
		return ErrConsolidationSuperseded
	}

	retiredLen := chainLength(oldHead)
	log.Printf("consolidate %d: collapsed chain into %d entries", page, len(keys))

	// The retired chain's nodes are never mutated after publication;
	// reclamation here means dropping the last live reference to oldHead
	// once no pinned participant could still observe it, which is enough
	// for the garbage collector to collect the whole chain transitively.
	// The callback records the reclaim for observability.
	g.DeferFree(func() { idx.reclaimed.Add(uint64(retiredLen)) })
	return nil
}

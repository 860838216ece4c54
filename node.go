package bwindex

import "github.com/kvindex/bwindex/simd"

// chainLength counts the links from head to the terminating base node or
// nil (an empty logical node). Used to decide whether a chain has grown
// past MaxDeltaChainLength and needs consolidation.
func chainLength(head *nodeHeader) int {
	n := 0
	for h := head; h != nil && h.kind != kindBase; h = h.next {
		n++
	}
	return n
}

// lookupChain walks the chain from head newest-to-oldest, applying
// "first match wins" semantics for key: the first delta that mentions
// key decides the outcome. Reaching the terminating base node falls back
// to an ordered search over its sorted keys. Reaching a Split or Merge
// delta before deciding the key returns ErrNeedsStructuralHandling
// rather than misapplying it as a data delta.
func lookupChain(head *nodeHeader, key Key) (Value, bool, error) {
	for h := head; h != nil; h = h.next {
		switch h.kind {
		case kindInsert:
			if d := asInsert(h); d.key == key {
				return d.value, true, nil
			}
		case kindDelete:
			if d := asDelete(h); d.key == key {
				return 0, false, nil
			}
		case kindSplit, kindMerge:
			return 0, false, ErrNeedsStructuralHandling
		case kindBase:
			b := asBase(h)
			if idx, ok := simd.FindKey(b.keys, key); ok {
				return b.values[idx], true, nil
			}
			return 0, false, nil
		}
	}
	return 0, false, nil
}

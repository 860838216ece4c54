package bwindex

import "unsafe"

// Key is the index's total-order key type.
type Key = int64

// Value is an opaque 64-bit payload.
type Value = uint64

// PageID identifies a logical page in the page table.
type PageID = uint64

// rootPage is the sole logical node every operation in this single-node
// core targets. Tree-structural extension beyond the root is out of
// scope; see DESIGN.md.
const rootPage PageID = 0

// nodeKind tags the variant of a delta-chain node. Every node carries an
// explicit discriminator so traversal dispatches on the tag rather than
// inferring the variant from which fields happen to be set.
type nodeKind uint8

const (
	kindInsert nodeKind = iota
	kindDelete
	kindSplit
	kindMerge
	kindBase
)

// nodeHeader is embedded as the first field of every delta and base node
// type below, giving the chain a common "next" link at a fixed offset
// that traversal can follow without knowing the concrete variant ahead of
// time. A node is immutable once its address becomes reachable through a
// page-table slot; only next is ever otherwise referenced, never
// mutated post-publication.
type nodeHeader struct {
	kind nodeKind
	next *nodeHeader
}

// insertDelta establishes key -> value at this chain position.
type insertDelta struct {
	nodeHeader
	key   Key
	value Value
}

// deleteDelta tombstones key at this chain position.
type deleteDelta struct {
	nodeHeader
	key Key
}

// splitDelta marks that keys >= splitKey logically live at siblingPage.
// Part of the chain data model but never manufactured by any operation
// in this single-node core.
type splitDelta struct {
	nodeHeader
	splitKey    Key
	siblingPage PageID
}

// mergeDelta marks that this node has been folded into mergedInto.
// Part of the chain data model but never manufactured by any operation
// in this single-node core.
type mergeDelta struct {
	nodeHeader
	mergedInto PageID
}

// baseNode is an ordered sequence of (key, value) pairs, keys strictly
// ascending, terminating a delta chain.
type baseNode struct {
	nodeHeader
	keys   []Key
	values []Value
}

func newInsertDelta(key Key, value Value, next *nodeHeader) *nodeHeader {
	d := &insertDelta{
		nodeHeader: nodeHeader{kind: kindInsert, next: next},
		key:        key,
		value:      value,
	}
	return &d.nodeHeader
}

func newDeleteDelta(key Key, next *nodeHeader) *nodeHeader {
	d := &deleteDelta{
		nodeHeader: nodeHeader{kind: kindDelete, next: next},
		key:        key,
	}
	return &d.nodeHeader
}

func newSplitDelta(splitKey Key, siblingPage PageID, next *nodeHeader) *nodeHeader {
	d := &splitDelta{
		nodeHeader:  nodeHeader{kind: kindSplit, next: next},
		splitKey:    splitKey,
		siblingPage: siblingPage,
	}
	return &d.nodeHeader
}

func newMergeDelta(mergedInto PageID, next *nodeHeader) *nodeHeader {
	d := &mergeDelta{
		nodeHeader: nodeHeader{kind: kindMerge, next: next},
		mergedInto: mergedInto,
	}
	return &d.nodeHeader
}

// The nodeHeader embedding guarantees these casts are valid: each
// concrete type places nodeHeader at offset 0, so a *nodeHeader known to
// carry a given kind tag points at a live value of the matching type.

func asInsert(h *nodeHeader) *insertDelta { return (*insertDelta)(unsafe.Pointer(h)) }
func asDelete(h *nodeHeader) *deleteDelta { return (*deleteDelta)(unsafe.Pointer(h)) }
func asSplit(h *nodeHeader) *splitDelta   { return (*splitDelta)(unsafe.Pointer(h)) }
func asMerge(h *nodeHeader) *mergeDelta   { return (*mergeDelta)(unsafe.Pointer(h)) }
func asBase(h *nodeHeader) *baseNode      { return (*baseNode)(unsafe.Pointer(h)) }

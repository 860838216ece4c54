package bwindex

import "github.com/pkg/errors"

// Error kinds returned by Index operations. The core never panics or
// retries beyond the bounded CAS loop; every failure is reported
// explicitly to the caller.
var (
	// ErrCapacityExceeded is returned when a write exhausts its CAS
	// retry cap under sustained contention.
	ErrCapacityExceeded = errors.New("bwindex: cas retry cap exhausted")

	// ErrConsolidationSuperseded is returned when another writer changed
	// a page's chain while consolidation was building its candidate base
	// node; the candidate is discarded and the caller may retry.
	ErrConsolidationSuperseded = errors.New("bwindex: consolidation raced with a writer")

	// ErrNeedsStructuralHandling is returned by Consolidate when its
	// chain walk reaches a Split or Merge delta. Tree-structural deltas
	// are defined in the data model but not exercised by any operation in
	// this single-node core; Consolidate surfaces one explicitly rather
	// than misapplying it as a data delta. Lookup reports such a chain as
	// absent, and Scan skips the record.
	ErrNeedsStructuralHandling = errors.New("bwindex: chain walk encountered a split or merge delta")

	// ErrInvalidRange is returned by Scan when lo > hi.
	ErrInvalidRange = errors.New("bwindex: scan requires lo <= hi")

	// ErrPageOutOfRange is returned when an operation targets a page id
	// outside the page table's fixed capacity.
	ErrPageOutOfRange = errors.New("bwindex: page id out of range")
)

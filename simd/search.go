// Package simd provides two lower-bound search routines over a sorted
// slice of keys: a scalar binary search and a windowed, batch-compare
// "vectorized" search modeled on SIMD lane-width processing. The two
// routines agree on every input.
package simd

import (
	"sync"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/exp/constraints"
)

// LaneWidth is the number of keys processed per vectorized comparison
// window.
const LaneWidth = 4

// LowerBound returns the lowest index i such that keys[i] >= target, or
// len(keys) if no such index exists. Classical binary search.
func LowerBound[K constraints.Integer](keys []K, target K) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if keys[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// LowerBoundVectorized computes the same lower-bound index as LowerBound,
// but narrows the search window LaneWidth keys at a time: while the
// window is at least LaneWidth wide, it loads an aligned LaneWidth-slice
// near the midpoint, counts how many of those keys are strictly less
// than target, and either advances the left bound past the whole slice,
// retracts the right bound to the slice, or, if the target falls inside
// the slice, narrows to a scalar finish over the residual window.
func LowerBoundVectorized[K constraints.Integer](keys []K, target K) int {
	lo, hi := 0, len(keys)

	for hi-lo >= LaneWidth {
		mid := lo + (hi-lo)/2
		// Align the window start down to a LaneWidth multiple, then
		// clamp so the whole window stays within [lo, hi).
		start := mid &^ (LaneWidth - 1)
		if start < lo {
			start = lo
		}
		if start+LaneWidth > hi {
			start = hi - LaneWidth
		}

		lessCount := 0
		for i := start; i < start+LaneWidth; i++ {
			if keys[i] < target {
				lessCount++
			}
		}

		switch {
		case lessCount == LaneWidth:
			// Every key in the window is less than target: the answer
			// lies strictly past it.
			lo = start + LaneWidth
		case lessCount == 0:
			// No key in the window is less than target: the answer lies
			// at or before it.
			hi = start
		default:
			// The boundary is inside this window; finish with a scalar
			// lower bound over just that slice.
			return start + LowerBound(keys[start:start+LaneWidth], target)
		}
	}

	return lo + LowerBound(keys[lo:hi], target)
}

// FindKey reports whether target is present in the sorted slice keys,
// using the vectorized search when profitable and falling back to the
// scalar search otherwise. The returned index is the first occurrence
// of target when duplicates are present.
func FindKey[K constraints.Integer](keys []K, target K) (int, bool) {
	var idx int
	if len(keys) >= LaneWidth && Capabilities().PreferVectorized {
		idx = LowerBoundVectorized(keys, target)
	} else {
		idx = LowerBound(keys, target)
	}
	if idx < len(keys) && keys[idx] == target {
		return idx, true
	}
	return idx, false
}

// CPUCapabilities describes what this process can do for ordered search.
// PreferVectorized is informational only: LowerBound and
// LowerBoundVectorized agree on every input regardless of its value, it
// only hints which routine a caller should pick for large windows.
type CPUCapabilities struct {
	PreferVectorized bool
	HasAVX2          bool
	HasSSE2          bool
}

var (
	capsOnce  sync.Once
	capsCache CPUCapabilities
)

// Capabilities probes the host CPU via klauspost/cpuid and reports which
// ordered-search routine this process should prefer. The probe runs once
// per process.
func Capabilities() CPUCapabilities {
	capsOnce.Do(func() {
		hasAVX2 := cpuid.CPU.Supports(cpuid.AVX2)
		hasSSE2 := cpuid.CPU.Supports(cpuid.SSE2)
		capsCache = CPUCapabilities{
			HasAVX2:          hasAVX2,
			HasSSE2:          hasSSE2,
			PreferVectorized: hasAVX2 || hasSSE2,
		}
	})
	return capsCache
}

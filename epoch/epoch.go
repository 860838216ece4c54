// Package epoch implements epoch-based reclamation (EBR): a global epoch
// counter, per-participant pins, and deferred-free queues that release
// memory only once no pinned participant could still observe it.
package epoch

import (
	"math"
	"sync"
	"sync/atomic"
)

// unpinned is the sentinel pinned-epoch value meaning "not blocking
// reclamation".
const unpinned = math.MaxUint64

// DefaultBatchSize is the deferred-queue length at which a Guard
// opportunistically attempts a collection.
const DefaultBatchSize = 64

// retireMargin is the number of epoch boundaries a retired item must
// survive before it is safe to free: a reader that loaded a pointer
// just before the retire must have crossed two boundaries since.
const retireMargin = 2

type deferredItem struct {
	retireEpoch uint64
	free        func()
}

// Participant holds one goroutine-at-a-time's pinned epoch and deferred
// retire queue. Participants are recycled through a Manager's pool rather
// than being tied to an OS thread.
type Participant struct {
	pinned   atomic.Uint64
	mu       sync.Mutex
	deferred []deferredItem
	mgr      *Manager
}

// Guard is a scoped epoch pin. Unpin must be called on every exit path of
// the operation that obtained it, including early returns and errors.
type Guard struct {
	p *Participant
}

// Manager owns the global epoch counter and the registry of participants
// used to compute the minimum pinned epoch during collection.
type Manager struct {
	global    atomic.Uint64
	batchSize int

	mu           sync.Mutex
	participants []*Participant
	pool         sync.Pool
}

// NewManager creates an epoch manager. batchSize <= 0 uses DefaultBatchSize.
func NewManager(batchSize int) *Manager {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	m := &Manager{batchSize: batchSize}
	m.pool.New = func() any {
		p := &Participant{mgr: m}
		p.pinned.Store(unpinned)
		m.mu.Lock()
		m.participants = append(m.participants, p)
		m.mu.Unlock()
		return p
	}
	return m
}

// Pin reads the global epoch (acquire) and publishes it into a recycled
// (or new) participant's pinned slot (release), returning a scoped guard.
func (m *Manager) Pin() *Guard {
	p := m.pool.Get().(*Participant)
	p.pinned.Store(m.global.Load())
	return &Guard{p: p}
}

// Unpin clears the participant's pinned slot and returns it to the pool.
func (g *Guard) Unpin() {
	g.p.pinned.Store(unpinned)
	g.p.mgr.pool.Put(g.p)
}

// DeferFree enqueues free to run once every epoch in which the retired
// item might still be observed has been exited by every pinned
// participant. Once the participant's queue length reaches the manager's
// batch threshold, a collection attempt is triggered.
func (g *Guard) DeferFree(free func()) {
	p := g.p
	retireEpoch := p.mgr.global.Load()

	p.mu.Lock()
	p.deferred = append(p.deferred, deferredItem{retireEpoch: retireEpoch, free: free})
	shouldCollect := len(p.deferred) >= p.mgr.batchSize
	p.mu.Unlock()

	if shouldCollect {
		p.mgr.TryCollect()
	}
}

// AdvanceGlobal atomically increments the global epoch. Writer paths call
// this periodically so reclamation can eventually make progress.
func (m *Manager) AdvanceGlobal() uint64 {
	return m.global.Add(1)
}

// CurrentEpoch returns the current global epoch.
func (m *Manager) CurrentEpoch() uint64 {
	return m.global.Load()
}

// minPinned returns the minimum pinned epoch across all registered
// participants, or unpinned if nothing is currently pinned.
func (m *Manager) minPinned() uint64 {
	m.mu.Lock()
	participants := m.participants
	m.mu.Unlock()

	min := uint64(unpinned)
	for _, p := range participants {
		e := p.pinned.Load()
		if e != unpinned && e < min {
			min = e
		}
	}
	return min
}

// TryCollect frees every queued entry, across every participant, whose
// retire-epoch is at least retireMargin epochs behind the minimum pinned
// epoch. It never blocks: on contention for a participant's queue it
// simply defers that participant's entries to a later call.
func (m *Manager) TryCollect() {
	min := m.minPinned()
	if min == unpinned {
		// Nobody pinned: use the current global epoch as the bound; the
		// retire margin still applies against it.
		min = m.global.Load()
	}

	m.mu.Lock()
	participants := m.participants
	m.mu.Unlock()

	for _, p := range participants {
		if !p.mu.TryLock() {
			continue
		}
		kept := p.deferred[:0]
		for _, item := range p.deferred {
			if item.retireEpoch+retireMargin <= min {
				item.free()
			} else {
				kept = append(kept, item)
			}
		}
		p.deferred = kept
		p.mu.Unlock()
	}
}

// Flush unconditionally frees every participant's entire deferred queue.
// Shutdown-only: the caller must ensure no participant is still pinned
// and no further readers can observe the retired memory.
func (m *Manager) Flush() {
	m.mu.Lock()
	participants := m.participants
	m.mu.Unlock()

	for _, p := range participants {
		p.mu.Lock()
		items := p.deferred
		p.deferred = nil
		p.mu.Unlock()

		for _, item := range items {
			item.free()
		}
	}
}

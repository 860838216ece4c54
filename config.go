package bwindex

import (
	"time"

	"github.com/pkg/errors"
)

// Config holds configuration options for Index.
type Config struct {
	// PageTableCapacity is the number of logical page id slots.
	PageTableCapacity int
	// MaxDeltaChainLength triggers consolidation when exceeded.
	MaxDeltaChainLength int
	// CASMaxRetries is the write retry cap before a write fails.
	CASMaxRetries int
	// BackoffMinNS, BackoffMaxNS bound the exponential backoff schedule.
	BackoffMinNS, BackoffMaxNS time.Duration
	// GarbageBatchSize is the EBR auto-collect threshold.
	GarbageBatchSize int
	// ConsolidationSpinLimit is the tight-CAS attempt count before the
	// spin-then-backoff policy falls back to exponential backoff.
	ConsolidationSpinLimit int
}

// DefaultConfig holds the default option values.
var DefaultConfig = Config{
	PageTableCapacity:      1024,
	MaxDeltaChainLength:    10,
	CASMaxRetries:          100,
	BackoffMinNS:           1 * time.Nanosecond,
	BackoffMaxNS:           1 * time.Millisecond,
	GarbageBatchSize:       64,
	ConsolidationSpinLimit: 10,
}

// Verify returns an error if an invariant is violated.
func (c Config) Verify() error {
	if c.PageTableCapacity <= 0 {
		return errors.New("PageTableCapacity must be positive")
	}
	if c.MaxDeltaChainLength <= 0 {
		return errors.New("MaxDeltaChainLength must be positive")
	}
	if c.CASMaxRetries <= 0 {
		return errors.New("CASMaxRetries must be positive")
	}
	if c.BackoffMinNS <= 0 {
		return errors.New("BackoffMinNS must be positive")
	}
	if c.BackoffMaxNS < c.BackoffMinNS {
		return errors.New("BackoffMaxNS must be >= BackoffMinNS")
	}
	if c.GarbageBatchSize <= 0 {
		return errors.New("GarbageBatchSize must be positive")
	}
	if c.ConsolidationSpinLimit < 0 {
		return errors.New("ConsolidationSpinLimit must not be negative")
	}
	return nil
}

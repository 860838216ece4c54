package bwindex

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
)

func TestConfigVerify(t *testing.T) {
	defer leaktest.Check(t)()

	testCases := []struct {
		c   Config
		err string
	}{
		{c: DefaultConfig, err: ""},
		{
			c: Config{
				PageTableCapacity:      1,
				MaxDeltaChainLength:    1,
				CASMaxRetries:          1,
				BackoffMinNS:           1,
				BackoffMaxNS:           1,
				GarbageBatchSize:       1,
				ConsolidationSpinLimit: 0,
			},
			err: "",
		},
		{
			c:   Config{MaxDeltaChainLength: 1, CASMaxRetries: 1, BackoffMinNS: 1, BackoffMaxNS: 1, GarbageBatchSize: 1},
			err: "PageTableCapacity",
		},
		{
			c:   Config{PageTableCapacity: 1, CASMaxRetries: 1, BackoffMinNS: 1, BackoffMaxNS: 1, GarbageBatchSize: 1},
			err: "MaxDeltaChainLength",
		},
		{
			c:   Config{PageTableCapacity: 1, MaxDeltaChainLength: 1, BackoffMinNS: 1, BackoffMaxNS: 1, GarbageBatchSize: 1},
			err: "CASMaxRetries",
		},
		{
			c:   Config{PageTableCapacity: 1, MaxDeltaChainLength: 1, CASMaxRetries: 1, BackoffMaxNS: 1, GarbageBatchSize: 1},
			err: "BackoffMinNS",
		},
		{
			c:   Config{PageTableCapacity: 1, MaxDeltaChainLength: 1, CASMaxRetries: 1, BackoffMinNS: 2 * time.Millisecond, BackoffMaxNS: time.Millisecond, GarbageBatchSize: 1},
			err: "BackoffMaxNS",
		},
		{
			c:   Config{PageTableCapacity: 1, MaxDeltaChainLength: 1, CASMaxRetries: 1, BackoffMinNS: 1, BackoffMaxNS: 1},
			err: "GarbageBatchSize",
		},
		{
			c:   Config{PageTableCapacity: 1, MaxDeltaChainLength: 1, CASMaxRetries: 1, BackoffMinNS: 1, BackoffMaxNS: 1, GarbageBatchSize: 1, ConsolidationSpinLimit: -1},
			err: "ConsolidationSpinLimit",
		},
	}
	for i, tc := range testCases {
		if err := tc.c.Verify(); !strings.Contains(fmt.Sprintf("%s", err), tc.err) {
			t.Errorf("%d: %+v.Verify() = %+v; expected %q", i, tc.c, err, tc.err)
		}
	}
}

func TestNewIndexNilConfigUsesDefault(t *testing.T) {
	defer leaktest.Check(t)()

	idx, err := NewIndex(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	if idx.config != DefaultConfig {
		t.Errorf("idx.config = %+v; not %+v", idx.config, DefaultConfig)
	}
}

func TestNewIndexBadConfig(t *testing.T) {
	defer leaktest.Check(t)()

	c := &Config{}
	if _, err := NewIndex(c); err == nil {
		t.Fatalf("expected NewIndex(%+v) to return an error", c)
	}
}

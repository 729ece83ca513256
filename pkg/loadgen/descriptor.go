package loadgen

import (
	"fmt"

	"github.com/relaykv/harness/pkg/stats"
)

// Action is the concrete request a descriptor issues.
type Action uint8

const (
	ActionPut Action = iota
	ActionGet
)

// OpDescriptor is one planned operation. The full list for a run is built
// before dispatch and never mutated afterwards; workers only read it.
type OpDescriptor struct {
	Index  int
	Action Action
	Key    string
	Value  string

	// RequireFound makes a GET count as successful only when the key
	// exists. The GET category sets it; mixed-mode GETs do not.
	RequireFound bool
}

func (d OpDescriptor) opType() stats.OpType {
	if d.Action == ActionGet {
		return stats.OpGet
	}
	return stats.OpPut
}

// PutDescriptors plans the PUT category: bench_key_i = value_i.
func PutDescriptors(n int) []OpDescriptor {
	descs := make([]OpDescriptor, n)
	for i := range descs {
		descs[i] = OpDescriptor{
			Index:  i,
			Action: ActionPut,
			Key:    fmt.Sprintf("bench_key_%d", i),
			Value:  fmt.Sprintf("value_%d", i),
		}
	}
	return descs
}

// GetDescriptors plans the GET category over the same keys the PUT
// category writes. A missing key is a failed read here.
func GetDescriptors(n int) []OpDescriptor {
	descs := make([]OpDescriptor, n)
	for i := range descs {
		descs[i] = OpDescriptor{
			Index:        i,
			Action:       ActionGet,
			Key:          fmt.Sprintf("bench_key_%d", i),
			RequireFound: true,
		}
	}
	return descs
}

// MixedDescriptors plans the alternating category: even indices write
// mixed_key_i, odd indices read back the key written at i-1. The reads
// exercise read-after-write against the leader, so found is not required.
func MixedDescriptors(n int) []OpDescriptor {
	descs := make([]OpDescriptor, n)
	for i := range descs {
		if i%2 == 0 {
			descs[i] = OpDescriptor{
				Index:  i,
				Action: ActionPut,
				Key:    fmt.Sprintf("mixed_key_%d", i),
				Value:  fmt.Sprintf("value_%d", i),
			}
		} else {
			descs[i] = OpDescriptor{
				Index:  i,
				Action: ActionGet,
				Key:    fmt.Sprintf("mixed_key_%d", i-1),
			}
		}
	}
	return descs
}

// ConcurrentPutDescriptors plans the pooled benchmark: each worker writes
// its own concurrent_key_i.
func ConcurrentPutDescriptors(n int) []OpDescriptor {
	descs := make([]OpDescriptor, n)
	for i := range descs {
		descs[i] = OpDescriptor{
			Index:  i,
			Action: ActionPut,
			Key:    fmt.Sprintf("concurrent_key_%d", i),
			Value:  fmt.Sprintf("value_%d", i),
		}
	}
	return descs
}

// WarmupDescriptors plans the best-effort warmup writes.
func WarmupDescriptors(n int) []OpDescriptor {
	descs := make([]OpDescriptor, n)
	for i := range descs {
		descs[i] = OpDescriptor{
			Index:  i,
			Action: ActionPut,
			Key:    fmt.Sprintf("warmup_%d", i),
			Value:  fmt.Sprintf("warmup_value_%d", i),
		}
	}
	return descs
}

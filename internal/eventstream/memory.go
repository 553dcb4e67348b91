package eventstream

import (
	"context"
	"iter"
	"sort"
	"sync"

	"github.com/replicante-io/replicore/internal/rcmodel"
)

// memoryBackend is a minimal in-memory Backend, used directly by tests
// that don't need a full internal/store fixture.
type memoryBackend struct {
	mu     sync.Mutex
	events []rcmodel.Event
}

// NewMemoryBackend builds an in-memory Backend.
func NewMemoryBackend() Backend {
	return &memoryBackend{}
}

func (b *memoryBackend) AppendEvent(_ context.Context, event rcmodel.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *memoryBackend) ScanEvents(_ context.Context, filter Filter, options Options) iter.Seq2[rcmodel.Event, error] {
	b.mu.Lock()
	snapshot := make([]rcmodel.Event, len(b.events))
	copy(snapshot, b.events)
	b.mu.Unlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		if options.Reverse {
			return snapshot[i].Timestamp.After(snapshot[j].Timestamp)
		}
		return snapshot[i].Timestamp.Before(snapshot[j].Timestamp)
	})

	return func(yield func(rcmodel.Event, error) bool) {
		yielded := 0
		for _, e := range snapshot {
			if !filter.Matches(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
			yielded++
			if options.Limit > 0 && yielded >= options.Limit {
				return
			}
		}
	}
}

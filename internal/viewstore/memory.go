package viewstore

import (
	"context"
	"sync"

	"github.com/replicante-io/replicore/internal/rcmodel"
)

type transitionKey struct {
	actionID string
	seq      int64
}

type memoryStore struct {
	mu           sync.Mutex
	events       map[string]rcmodel.Event
	transitions  map[transitionKey]ActionTransition
}

// NewMemoryStore builds an in-memory ViewStore.
func NewMemoryStore() ViewStore {
	return &memoryStore{
		events:      make(map[string]rcmodel.Event),
		transitions: make(map[transitionKey]ActionTransition),
	}
}

func (s *memoryStore) Close(context.Context) error { return nil }

func (s *memoryStore) Persist() Persist { return &memoryPersist{store: s} }

type memoryPersist struct {
	store *memoryStore
}

func (p *memoryPersist) Event(_ context.Context, event rcmodel.Event) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	if _, exists := p.store.events[event.EventID]; exists {
		return nil
	}
	p.store.events[event.EventID] = event
	return nil
}

func (p *memoryPersist) ActionTransition(_ context.Context, transition ActionTransition) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	key := transitionKey{actionID: transition.ActionID, seq: transition.TransitionSeq}
	if _, exists := p.store.transitions[key]; exists {
		return nil
	}
	p.store.transitions[key] = transition
	return nil
}

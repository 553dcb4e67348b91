package viewstore

import (
	"context"

	"github.com/replicante-io/replicore/internal/rcmodel"
)

// ActionTransition is one row of an action's history: the action_id it
// belongs to, a monotonically increasing transition_seq within that
// action, and the state it transitioned into.
type ActionTransition struct {
	ActionID      string
	TransitionSeq int64
	State         string
	Payload       []byte
}

// Persist is the idempotent write surface. Event is a no-op if an
// event with the same EventID was already stored; ActionTransition
// is a no-op if the same (ActionID, TransitionSeq) pair was already
// stored.
type Persist interface {
	Event(ctx context.Context, event rcmodel.Event) error
	ActionTransition(ctx context.Context, transition ActionTransition) error
}

// ViewStore is the View Store.
type ViewStore interface {
	Persist() Persist
	Close(ctx context.Context) error
}

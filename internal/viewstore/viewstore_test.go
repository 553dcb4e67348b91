package viewstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/viewstore"
)

func TestPersistEventIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := viewstore.NewMemoryStore()

	event := rcmodel.NewClusterNewEvent("e1", "c1", "C1", time.Now().UTC())
	require.NoError(t, store.Persist().Event(ctx, event))
	require.NoError(t, store.Persist().Event(ctx, event))
}

func TestPersistActionTransitionIsIdempotentPerSeq(t *testing.T) {
	ctx := context.Background()
	store := viewstore.NewMemoryStore()

	transition := viewstore.ActionTransition{ActionID: "a1", TransitionSeq: 1, State: "RUNNING"}
	require.NoError(t, store.Persist().ActionTransition(ctx, transition))
	require.NoError(t, store.Persist().ActionTransition(ctx, transition))

	next := viewstore.ActionTransition{ActionID: "a1", TransitionSeq: 2, State: "DONE"}
	require.NoError(t, store.Persist().ActionTransition(ctx, next))
}

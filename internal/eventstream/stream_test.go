package eventstream_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/replicante-io/replicore/internal/eventstream"
	"github.com/replicante-io/replicore/internal/rcmodel"
)

func TestEmitAndScanByFamily(t *testing.T) {
	ctx := context.Background()
	stream := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())

	base := time.Now().UTC()
	require.NoError(t, stream.Emit(ctx, rcmodel.NewClusterNewEvent("e1", "c1", "C1", base)))
	require.NoError(t, stream.Emit(ctx, rcmodel.NewAgentEvent("e2", rcmodel.EventAgentUp, rcmodel.Agent{ClusterID: "c1", Host: "h1", Status: rcmodel.AgentStatusUpValue}, base.Add(time.Second))))

	var got []rcmodel.Event
	for e, err := range stream.Scan(ctx, eventstream.Filter{KindPrefixes: []string{"agent"}}, eventstream.Options{}) {
		require.NoError(t, err)
		got = append(got, e)
	}

	require.Len(t, got, 1)
	require.Equal(t, rcmodel.EventAgentUp, got[0].Code)
}

func TestScanReverseAndLimit(t *testing.T) {
	ctx := context.Background()
	stream := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, stream.Emit(ctx, rcmodel.NewClusterNewEvent(string(rune('a'+i)), "c1", "C1", base.Add(time.Duration(i)*time.Second))))
	}

	var ids []string
	for e, err := range stream.Scan(ctx, eventstream.Filter{}, eventstream.Options{Reverse: true, Limit: 2}) {
		require.NoError(t, err)
		ids = append(ids, e.EventID)
	}

	require.Equal(t, []string{"e", "d"}, ids)
}

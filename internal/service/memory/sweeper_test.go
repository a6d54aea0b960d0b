package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandevgo/recalld/internal/core"
)

func TestSweeper_SweepOnce(t *testing.T) {
	svc, entries, rels := newTestService()
	ctx := context.Background()

	live := validRequest("c1")
	live.Tags = []string{"keep"}
	liveID := storeEntry(t, svc, live)

	dead := validRequest("c1")
	dead.Tags = []string{"gone"}
	dead.TTLSeconds = intPtr(0)
	deadID := storeEntry(t, svc, dead)

	_, err := svc.Relate(ctx, liveID, deadID, core.RelReferences, nil, nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	sweeper := NewSweeper(svc)
	require.NoError(t, sweeper.SweepOnce(ctx))

	entries.mu.Lock()
	_, stillThere := entries.m[deadID]
	entries.mu.Unlock()
	require.False(t, stillThere, "expired row must be deleted")

	n, err := rels.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "edges touching the expired entry must be deleted")

	require.Empty(t, svc.graph.EdgesFrom(liveID, ""))
	require.Empty(t, svc.tags.EntriesForTags([]string{"gone"}, core.MatchAny))

	got, err := svc.Get(ctx, liveID)
	require.NoError(t, err)
	require.Equal(t, liveID, got.ID, "live entries survive the sweep")
}

func TestSweeper_DrainsBacklogLargerThanBatch(t *testing.T) {
	cfg := testConfig()
	cfg.SweepBatch = 3
	entries := newFakeEntries()
	svc := NewService(cfg, entries, newFakeRels())
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		exp := past
		require.NoError(t, entries.Put(ctx, core.MemoryEntry{
			ID:             fmt.Sprintf("e%02d", i),
			ConversationID: "c1",
			Content:        "x",
			ContextType:    core.ContextConversation,
			CreatedAt:      past,
			ExpiresAt:      &exp,
		}))
	}

	sweeper := NewSweeper(svc)
	require.Equal(t, 3, sweeper.BatchSize)
	require.NoError(t, sweeper.SweepOnce(ctx))

	total, _, err := entries.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, total, "a single sweep drains the whole backlog")
}

func TestSweeper_NoopWhenNothingExpired(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	storeEntry(t, svc, validRequest("c1"))

	sweeper := NewSweeper(svc)
	require.NoError(t, sweeper.SweepOnce(ctx))

	got, err := svc.Retrieve(ctx, core.Query{ConversationID: "c1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

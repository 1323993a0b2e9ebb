package indexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solvernet/intentd/events"
	"github.com/solvernet/intentd/indexer"
	"github.com/solvernet/intentd/internal/testutil"
)

func TestIndexesExecutedIntents(t *testing.T) {
	db := testutil.NewMemDB()
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)

	emitter.Emit(events.Event{
		Type:       events.EventIntentExecuted,
		Account:    "alice",
		BatchID:    "batch-1",
		IntentHash: "hash-a",
	})
	emitter.Emit(events.Event{
		Type:       events.EventIntentExecuted,
		Account:    "alice",
		BatchID:    "batch-1",
		IntentHash: "hash-b",
	})

	got, err := idx.GetIntentsByAccount("alice")
	require.NoError(t, err)
	require.Equal(t, []string{"hash-a", "hash-b"}, got)

	byBatch, err := idx.GetIntentsByBatch("batch-1")
	require.NoError(t, err)
	require.Equal(t, []string{"hash-a", "hash-b"}, byBatch)

	empty, err := idx.GetIntentsByAccount("nobody")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestIndexesTransferReceivers(t *testing.T) {
	db := testutil.NewMemDB()
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)

	emitter.Emit(events.Event{
		Type:       events.EventTransfer,
		Account:    "alice",
		IntentHash: "hash-a",
		Data:       map[string]any{"receiver": "bob"},
	})

	got, err := idx.GetIntentsByAccount("bob")
	require.NoError(t, err)
	require.Equal(t, []string{"hash-a"}, got)
}

func TestIndexDeduplicates(t *testing.T) {
	db := testutil.NewMemDB()
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)

	ev := events.Event{Type: events.EventIntentExecuted, Account: "alice", IntentHash: "hash-a"}
	emitter.Emit(ev)
	emitter.Emit(ev)

	got, err := idx.GetIntentsByAccount("alice")
	require.NoError(t, err)
	require.Equal(t, []string{"hash-a"}, got)
}

package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitDeliversToSubscribers(t *testing.T) {
	em := NewEmitter()
	var got []Event
	em.Subscribe(EventTransfer, func(ev Event) { got = append(got, ev) })
	em.Subscribe(EventMint, func(ev Event) { t.Fatal("wrong type delivered") })

	em.Emit(Event{Type: EventTransfer, Account: "alice"})
	require.Len(t, got, 1)
	require.Equal(t, "alice", got[0].Account)
}

func TestEmitSurvivesPanickingHandler(t *testing.T) {
	em := NewEmitter()
	var called bool
	em.Subscribe(EventBurn, func(Event) { panic("boom") })
	em.Subscribe(EventBurn, func(Event) { called = true })

	require.NotPanics(t, func() {
		em.Emit(Event{Type: EventBurn})
	})
	require.True(t, called, "later handlers still run after a panic")
}

func TestEmitAllPreservesOrder(t *testing.T) {
	em := NewEmitter()
	var accounts []string
	em.Subscribe(EventTransfer, func(ev Event) { accounts = append(accounts, ev.Account) })

	em.EmitAll([]Event{
		{Type: EventTransfer, Account: "a"},
		{Type: EventTransfer, Account: "b"},
		{Type: EventTransfer, Account: "c"},
	})
	require.Equal(t, []string{"a", "b", "c"}, accounts)
}

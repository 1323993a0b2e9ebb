// Package events delivers committed settlement events to subscribers.
// The engine buffers events during a batch and hands them over only after
// the whole batch has been durably applied.
package events

import (
	"log"
	"sync"
)

// EventType labels what happened.
type EventType string

const (
	EventTransfer         EventType = "transfer"
	EventMint             EventType = "mint"
	EventBurn             EventType = "burn"
	EventTokenDiff        EventType = "token_diff"
	EventFeeCollected     EventType = "fee_collected"
	EventPublicKeyAdded   EventType = "public_key_added"
	EventPublicKeyRemoved EventType = "public_key_removed"
	EventIntentExecuted   EventType = "intent_executed"
)

// Event carries a typed record emitted after a committed state change.
type Event struct {
	Type EventType `json:"type"`
	// Account is the account the event is attributed to (the signer for
	// intent events, the owner for balance events).
	Account string `json:"account"`
	// BatchID groups all events born from one execute call.
	BatchID string `json:"batch_id,omitempty"`
	// IntentHash is the hex hash of the payload that caused the event.
	IntentHash string         `json:"intent_hash,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot crash the node or halt settlement.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[events] handler panicked for %s: %v", ev.Type, r)
				}
			}()
			h(ev)
		}()
	}
}

// EmitAll delivers a slice of events in order.
func (e *Emitter) EmitAll(evs []Event) {
	for _, ev := range evs {
		e.Emit(ev)
	}
}

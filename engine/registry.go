package engine

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/solvernet/intentd/core"
)

// Context is passed to every intent handler.
type Context struct {
	// Mutator is the only way a handler may touch the ledger.
	Mutator *Mutator
	// Signer is the verified account the payload acts for.
	Signer string
	// Hash identifies the enclosing payload.
	Hash core.Hash
}

// Handler is the function signature every intent kind must implement.
type Handler func(ctx *Context, body json.RawMessage) error

// Registry maps intent kinds to handlers. Thread-safe for concurrent
// registration.
type Registry struct {
	mu       sync.RWMutex
	handlers map[core.IntentKind]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[core.IntentKind]Handler)}
}

// Register associates kind with h. Panics on duplicate registration.
func (r *Registry) Register(kind core.IntentKind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		panic(fmt.Sprintf("engine: handler already registered for intent %q", kind))
	}
	r.handlers[kind] = h
}

// Execute dispatches body to the handler registered for kind.
func (r *Registry) Execute(kind core.IntentKind, ctx *Context, body json.RawMessage) error {
	r.mu.RLock()
	h, ok := r.handlers[kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: no handler for intent %q", core.ErrInvalidIntent, kind)
	}
	return h(ctx, body)
}

// globalRegistry holds the built-in intent kinds registered at init.
var globalRegistry = NewRegistry()

// Register adds a handler to the global registry.
func Register(kind core.IntentKind, h Handler) {
	globalRegistry.Register(kind, h)
}

// Package engine applies batches of signed intents to a ledger with
// all-or-nothing semantics. One call processes one batch to completion;
// callers must serialize overlapping batches against the same persistent
// ledger.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solvernet/intentd/core"
	"github.com/solvernet/intentd/crypto"
	"github.com/solvernet/intentd/events"
)

// Engine executes signed intent batches against a persistent ledger. Every
// batch runs inside a fresh CachedLedger overlay; only a fully successful
// batch is flushed and committed, so no failure leaves partial writes.
type Engine struct {
	ledger     core.Ledger
	verifier   crypto.Verifier
	dispatcher TransferDispatcher
	emitter    *events.Emitter
	clock      Clock
	registry   *Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithVerifier replaces the payload signature verifier.
func WithVerifier(v crypto.Verifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithDispatcher wires the outbound transfer dispatcher.
func WithDispatcher(d TransferDispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

// WithEmitter wires the committed-event emitter.
func WithEmitter(em *events.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// NewEngine creates an Engine over ledger.
func NewEngine(ledger core.Ledger, opts ...Option) *Engine {
	e := &Engine{
		ledger:     ledger,
		verifier:   crypto.MultiVerifier{crypto.Ed25519Verifier{}},
		dispatcher: LogDispatcher{},
		clock:      SystemClock{},
		registry:   globalRegistry,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) feeConfig() core.FeeConfig {
	return core.FeeConfig{Rate: e.ledger.FeeRate(), Collector: e.ledger.FeeCollector()}
}

// Execute verifies and applies batch atomically. On success it returns the
// intent hash of every payload in order, delivers the buffered events to
// subscribers, and hands queued withdraw legs to the dispatcher. On failure
// nothing is persisted and the error names the failing payload and intent.
func (e *Engine) Execute(batch []core.SignedPayload) ([]core.Hash, error) {
	now := e.clock.Now()
	cached := NewCachedLedger(e.ledger)
	mut := newMutator(cached, e.feeConfig())

	hashes, err := e.run(mut, batch, now)
	if err != nil {
		return nil, err
	}

	if err := e.commit(cached, now); err != nil {
		return nil, err
	}

	e.deliver(mut.buffered)
	for _, req := range mut.dispatches {
		e.dispatcher.Dispatch(req)
	}
	return hashes, nil
}

// Simulate runs the exact same algorithm as Execute against a throwaway
// overlay and returns the events a real execution would have produced.
// Nothing is persisted and no withdraw leg is dispatched, so the verdict
// can be used for dry-run diagnosis before submission.
func (e *Engine) Simulate(batch []core.SignedPayload) ([]events.Event, error) {
	now := e.clock.Now()
	cached := NewCachedLedger(e.ledger)
	mut := newMutator(cached, e.feeConfig())

	if _, err := e.run(mut, batch, now); err != nil {
		return nil, err
	}
	return mut.buffered, nil
}

// Deposit credits tokens to owner through the audited mint path, outside
// of any signed batch. Used by the inbound transfer surface.
func (e *Engine) Deposit(owner string, tokens core.Amounts, memo string) error {
	now := e.clock.Now()
	cached := NewCachedLedger(e.ledger)
	mut := newMutator(cached, e.feeConfig())

	if err := mut.Deposit(owner, tokens, memo); err != nil {
		return err
	}
	if err := e.commit(cached, now); err != nil {
		return err
	}
	e.deliver(mut.buffered)
	return nil
}

// ResolveWithdraw reconciles the outcome of a previously dispatched
// withdraw leg. used is the amount the foreign contract actually consumed;
// any shortfall is re-credited to the original owner.
func (e *Engine) ResolveWithdraw(req WithdrawRequest, used core.Uint128) error {
	shortfall, ok := req.Amount.Sub(used)
	if !ok {
		return fmt.Errorf("%w: used %s exceeds withdrawn %s", core.ErrBalanceOverflow, used, req.Amount)
	}
	if shortfall.IsZero() {
		return nil
	}
	refund := core.NewAmounts()
	if _, err := refund.Add(req.Token, shortfall); err != nil {
		return err
	}
	return e.Deposit(req.Owner, refund, "refund:"+req.Memo)
}

func (e *Engine) run(mut *Mutator, batch []core.SignedPayload, now time.Time) ([]core.Hash, error) {
	hashes := make([]core.Hash, 0, len(batch))
	for i := range batch {
		hash, intentIdx, err := e.executePayload(mut, &batch[i], now)
		if err != nil {
			if intentIdx < 0 {
				return nil, payloadErr(i, err)
			}
			return nil, intentErr(i, intentIdx, err)
		}
		hashes = append(hashes, hash)
	}
	if err := mut.finalize(); err != nil {
		return nil, err
	}
	return hashes, nil
}

func (e *Engine) executePayload(mut *Mutator, sp *core.SignedPayload, now time.Time) (core.Hash, int, error) {
	p := &sp.Payload

	signing, err := p.SigningBytes()
	if err != nil {
		return core.Hash{}, -1, err
	}
	pk, ok := e.verifier.VerifyPayload(signing, sp.PublicKey, sp.Signature)
	if !ok {
		return core.Hash{}, -1, core.ErrInvalidSignature
	}
	hash := crypto.Blake3Sum256(signing)

	if p.VerifyingContract != mut.ledger.VerifyingContract() {
		return hash, -1, core.ErrWrongVerifyingContract
	}
	if p.Expired(now) {
		return hash, -1, core.ErrExpired
	}
	if mut.ledger.IsAccountLocked(p.Signer) {
		return hash, -1, fmt.Errorf("%w: %s", core.ErrAccountLocked, p.Signer)
	}
	if !mut.ledger.HasPublicKey(p.Signer, pk) {
		return hash, -1, fmt.Errorf("%w: key %s on %s", core.ErrUnauthorized, pk.Hex(), p.Signer)
	}
	if err := mut.ledger.CommitNonce(p.Signer, p.Nonce, now); err != nil {
		return hash, -1, err
	}

	mut.intentHash = core.Hash(hash).String()
	for j, intent := range p.Intents {
		ctx := &Context{Mutator: mut, Signer: p.Signer, Hash: hash}
		if err := e.registry.Execute(intent.Kind, ctx, intent.Body); err != nil {
			return hash, j, err
		}
	}
	mut.emit(events.EventIntentExecuted, p.Signer, nil)
	return hash, -1, nil
}

// commit flushes the overlay into the persistent ledger and commits its
// write buffer. A flush failure discards the buffered writes so the store
// stays consistent with the database.
func (e *Engine) commit(cached *CachedLedger, now time.Time) error {
	if err := cached.Flush(e.ledger, now); err != nil {
		if d, ok := e.ledger.(interface{ Discard() }); ok {
			d.Discard()
		}
		return fmt.Errorf("flush batch: %w", err)
	}
	if c, ok := e.ledger.(core.Committer); ok {
		if err := c.Commit(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	return nil
}

func (e *Engine) deliver(buffered []events.Event) {
	if e.emitter == nil || len(buffered) == 0 {
		return
	}
	batchID := uuid.NewString()
	for i := range buffered {
		buffered[i].BatchID = batchID
	}
	e.emitter.EmitAll(buffered)
}

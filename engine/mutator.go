package engine

import (
	"fmt"
	"sort"

	"github.com/solvernet/intentd/core"
	"github.com/solvernet/intentd/crypto"
	"github.com/solvernet/intentd/events"
)

// Mutator is the single funnel for ledger mutations during a batch. Every
// mutation lands in the overlay ledger and appends one structured event to
// the buffer; the events surface to subscribers only if the whole batch
// succeeds.
type Mutator struct {
	ledger  core.Ledger
	matcher *transferMatcher
	fees    core.FeeConfig

	buffered   []events.Event
	dispatches []WithdrawRequest

	// intentHash attributes events to the payload being executed.
	intentHash string
}

func newMutator(ledger core.Ledger, fees core.FeeConfig) *Mutator {
	return &Mutator{
		ledger:  ledger,
		matcher: newTransferMatcher(),
		fees:    fees,
	}
}

func (m *Mutator) emit(typ events.EventType, account string, data map[string]any) {
	m.buffered = append(m.buffered, events.Event{
		Type:       typ,
		Account:    account,
		IntentHash: m.intentHash,
		Data:       data,
	})
}

// AddPublicKey authorizes an additional key on the signer's account.
func (m *Mutator) AddPublicKey(account string, pk crypto.PublicKey) error {
	if err := m.ledger.AddPublicKey(account, pk); err != nil {
		return err
	}
	m.emit(events.EventPublicKeyAdded, account, map[string]any{"public_key": pk.Hex()})
	return nil
}

// RemovePublicKey revokes a key from the signer's account.
func (m *Mutator) RemovePublicKey(account string, pk crypto.PublicKey) error {
	if err := m.ledger.RemovePublicKey(account, pk); err != nil {
		return err
	}
	m.emit(events.EventPublicKeyRemoved, account, map[string]any{"public_key": pk.Hex()})
	return nil
}

// Transfer moves tokens between two accounts inside the ledger. The full
// delta leaves the sender before anything reaches the receiver, so a
// failing leg aborts with no half-applied movement in the overlay.
func (m *Mutator) Transfer(sender, receiver string, tokens core.Amounts, memo string) error {
	for _, token := range tokens.Tokens() {
		amount := tokens.AmountFor(token)
		if err := m.ledger.SubBalance(sender, token, amount); err != nil {
			return err
		}
		if err := m.ledger.AddBalance(receiver, token, amount); err != nil {
			return err
		}
	}
	data := map[string]any{"receiver": receiver, "tokens": tokens}
	if memo != "" {
		data["memo"] = memo
	}
	m.emit(events.EventTransfer, sender, data)
	return nil
}

// Withdraw debits the owner's ledger balance and queues the external leg.
// The queue is handed to the dispatcher only after the batch has been
// durably committed; simulation never dispatches.
// A protocol fee of FeeRate pips on the amount is debited on top and
// credited to the fee collector.
func (m *Mutator) Withdraw(owner string, w core.WithdrawIntent) error {
	if err := m.ledger.SubBalance(owner, w.Token, w.Amount); err != nil {
		return err
	}
	if fee := m.fees.Rate.FeeCeil(w.Amount); !fee.IsZero() {
		if err := m.ledger.SubBalance(owner, w.Token, fee); err != nil {
			return err
		}
		if err := m.ledger.AddBalance(m.fees.Collector, w.Token, fee); err != nil {
			return err
		}
		m.emit(events.EventFeeCollected, m.fees.Collector, map[string]any{
			"token":  w.Token.String(),
			"amount": fee.String(),
		})
	}
	m.emit(events.EventBurn, owner, map[string]any{
		"token":    w.Token.String(),
		"amount":   w.Amount.String(),
		"receiver": w.Receiver,
	})
	m.dispatches = append(m.dispatches, WithdrawRequest{
		Owner:    owner,
		Receiver: w.Receiver,
		Token:    w.Token,
		Amount:   w.Amount,
		Memo:     w.Memo,
		Msg:      w.Msg,
	})
	return nil
}

// Deposit credits tokens to owner. This is the only mint path: it is never
// reachable from a signed intent, only from the audited inbound-transfer
// and refund surfaces.
func (m *Mutator) Deposit(owner string, tokens core.Amounts, memo string) error {
	if tokens.IsEmpty() {
		return fmt.Errorf("%w: empty deposit", core.ErrInvalidIntent)
	}
	for _, token := range tokens.Tokens() {
		if err := m.ledger.AddBalance(owner, token, tokens.AmountFor(token)); err != nil {
			return err
		}
	}
	data := map[string]any{"tokens": tokens}
	if memo != "" {
		data["memo"] = memo
	}
	m.emit(events.EventMint, owner, data)
	return nil
}

// ApplyDiff applies a signed per-token delta to the signer's balance and
// records it with the matcher for the batch-wide supply check.
func (m *Mutator) ApplyDiff(signer string, diff map[core.TokenID]core.SignedAmount, memo string) error {
	tokens := make([]core.TokenID, 0, len(diff))
	for t := range diff {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Cmp(tokens[j]) < 0 })

	rendered := make(map[string]any, len(diff))
	for _, token := range tokens {
		d := diff[token]
		if d.Mag.IsZero() {
			return fmt.Errorf("%w: zero delta for %s", core.ErrInvalidIntent, token)
		}
		var err error
		if d.Neg {
			err = m.ledger.SubBalance(signer, token, d.Mag)
		} else {
			err = m.ledger.AddBalance(signer, token, d.Mag)
		}
		if err != nil {
			return err
		}
		if err := m.matcher.addDelta(token, d); err != nil {
			return err
		}
		rendered[token.String()] = d.String()
	}
	data := map[string]any{"diff": rendered}
	if memo != "" {
		data["memo"] = memo
	}
	m.emit(events.EventTokenDiff, signer, data)
	return nil
}

// finalize runs the batch-wide supply check and apportions the surplus of
// every token to the fee collector, keeping totals conserved.
func (m *Mutator) finalize() error {
	surplus, err := m.matcher.finalize()
	if err != nil {
		return err
	}
	if surplus.IsEmpty() {
		return nil
	}
	m.intentHash = ""
	for _, token := range surplus.Tokens() {
		if err := m.ledger.AddBalance(m.fees.Collector, token, surplus.AmountFor(token)); err != nil {
			return err
		}
	}
	m.emit(events.EventFeeCollected, m.fees.Collector, map[string]any{"tokens": surplus})
	return nil
}

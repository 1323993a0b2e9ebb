package engine

import (
	"fmt"
	"sort"

	"github.com/solvernet/intentd/core"
)

// transferMatcher accumulates the signed token_diff deltas applied across
// one batch. Per-account balances were already mutated when deltas were
// recorded; the matcher only enforces the batch-wide aggregate: for every
// token, the total taken in must not exceed the total given up, so no diff
// can mint supply out of thin air.
type transferMatcher struct {
	in  map[core.TokenID]core.Uint128 // sum of positive deltas
	out map[core.TokenID]core.Uint128 // sum of negative deltas
}

func newTransferMatcher() *transferMatcher {
	return &transferMatcher{
		in:  make(map[core.TokenID]core.Uint128),
		out: make(map[core.TokenID]core.Uint128),
	}
}

func (m *transferMatcher) addDelta(token core.TokenID, d core.SignedAmount) error {
	side := m.in
	if d.Neg {
		side = m.out
	}
	sum, ok := side[token].Add(d.Mag)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrBalanceOverflow, token)
	}
	side[token] = sum
	return nil
}

// finalize checks the supply invariant and returns the per-token surplus
// (offered minus required). The surplus is what fee apportionment operates
// on; it is never negative.
func (m *transferMatcher) finalize() (core.Amounts, error) {
	tokens := make(map[core.TokenID]struct{}, len(m.in)+len(m.out))
	for t := range m.in {
		tokens[t] = struct{}{}
	}
	for t := range m.out {
		tokens[t] = struct{}{}
	}
	ordered := make([]core.TokenID, 0, len(tokens))
	for t := range tokens {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Cmp(ordered[j]) < 0 })

	surplus := core.NewAmounts()
	for _, t := range ordered {
		in, out := m.in[t], m.out[t]
		if in.Cmp(out) > 0 {
			return core.Amounts{}, fmt.Errorf("%w: token %s net +%s",
				core.ErrInvariantViolated, t, mustSub(in, out))
		}
		if extra := mustSub(out, in); !extra.IsZero() {
			if _, err := surplus.Add(t, extra); err != nil {
				return core.Amounts{}, err
			}
		}
	}
	return surplus, nil
}

func mustSub(a, b core.Uint128) core.Uint128 {
	d, _ := a.Sub(b)
	return d
}

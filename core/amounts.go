package core

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Amounts is a sparse mapping from TokenID to an unsigned 128-bit quantity
// with checked arithmetic. No entry is ever stored with value zero: any
// operation that reduces an entry to zero removes it, so IsEmpty is a true
// predicate for "no net value". It serves both as a transient delta (what an
// intent wants to move) and as the at-rest balance container of an account.
type Amounts struct {
	m map[TokenID]Uint128
}

// NewAmounts creates an empty Amounts.
func NewAmounts() Amounts {
	return Amounts{m: make(map[TokenID]Uint128)}
}

func (a *Amounts) init() {
	if a.m == nil {
		a.m = make(map[TokenID]Uint128)
	}
}

// Add credits amount to token and returns the new balance.
// Overflow fails with ErrBalanceOverflow and leaves the entry unchanged.
func (a *Amounts) Add(token TokenID, amount Uint128) (Uint128, error) {
	a.init()
	sum, ok := a.m[token].Add(amount)
	if !ok {
		return Uint128{}, fmt.Errorf("%w: token %s", ErrBalanceOverflow, token)
	}
	if sum.IsZero() {
		delete(a.m, token)
	} else {
		a.m[token] = sum
	}
	return sum, nil
}

// Sub debits amount from token and returns the new balance. Debiting an
// absent or insufficient entry fails with ErrBalanceUnderflow rather than
// going negative. A balance reaching exactly zero removes the entry.
func (a *Amounts) Sub(token TokenID, amount Uint128) (Uint128, error) {
	a.init()
	diff, ok := a.m[token].Sub(amount)
	if !ok {
		return Uint128{}, fmt.Errorf("%w: token %s", ErrBalanceUnderflow, token)
	}
	if diff.IsZero() {
		delete(a.m, token)
	} else {
		a.m[token] = diff
	}
	return diff, nil
}

// AmountFor returns the stored quantity for token, zero if absent.
func (a Amounts) AmountFor(token TokenID) Uint128 {
	return a.m[token]
}

// IsEmpty reports whether no token holds a non-zero quantity.
func (a Amounts) IsEmpty() bool {
	return len(a.m) == 0
}

// Len returns the number of non-zero entries.
func (a Amounts) Len() int {
	return len(a.m)
}

// Tokens returns all token ids in deterministic (kind, contract, sub) order.
func (a Amounts) Tokens() []TokenID {
	tokens := make([]TokenID, 0, len(a.m))
	for t := range a.m {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Cmp(tokens[j]) < 0 })
	return tokens
}

// Clone returns an independent copy.
func (a Amounts) Clone() Amounts {
	cp := Amounts{m: make(map[TokenID]Uint128, len(a.m))}
	for t, v := range a.m {
		cp.m[t] = v
	}
	return cp
}

// MarshalJSON encodes as an object of canonical token id → decimal amount.
func (a Amounts) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(a.m))
	for t, v := range a.m {
		out[t.String()] = v.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the object form. Zero entries are dropped.
func (a *Amounts) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.m = make(map[TokenID]Uint128, len(raw))
	for ts, vs := range raw {
		token, err := ParseTokenID(ts)
		if err != nil {
			return err
		}
		v, err := ParseUint128(vs)
		if err != nil {
			return err
		}
		if v.IsZero() {
			continue
		}
		if _, err := a.Add(token, v); err != nil {
			return err
		}
	}
	return nil
}

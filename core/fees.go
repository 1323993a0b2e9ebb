package core

import (
	"fmt"
	"math/big"
)

// Pips is a protocol fee rate in parts-per-million: 1 pip = 0.0001%.
type Pips uint32

const (
	OnePip     Pips = 1
	OneBip     Pips = 100 * OnePip
	OnePercent Pips = 100 * OneBip
	// MaxPips is 100%.
	MaxPips Pips = 100 * OnePercent
)

// Valid reports whether p is at most 100%.
func (p Pips) Valid() bool {
	return p <= MaxPips
}

// IsZero reports whether p is a zero rate.
func (p Pips) IsZero() bool {
	return p == 0
}

func (p Pips) String() string {
	return fmt.Sprintf("%dpips", uint32(p))
}

var maxPipsBig = big.NewInt(int64(MaxPips))

// Fee returns amount * p / MaxPips, rounded down. The intermediate product
// is computed at full width, so the result never overflows for any amount.
func (p Pips) Fee(amount Uint128) Uint128 {
	prod := amount.Big()
	prod.Mul(prod, big.NewInt(int64(p)))
	prod.Quo(prod, maxPipsBig)
	fee, _ := U128FromBig(prod)
	return fee
}

// FeeCeil returns amount * p / MaxPips, rounded up.
func (p Pips) FeeCeil(amount Uint128) Uint128 {
	prod := amount.Big()
	prod.Mul(prod, big.NewInt(int64(p)))
	var rem big.Int
	prod.QuoRem(prod, maxPipsBig, &rem)
	if rem.Sign() > 0 {
		prod.Add(prod, big.NewInt(1))
	}
	fee, _ := U128FromBig(prod)
	return fee
}

// FeeConfig is the fee parameterisation of one settlement instance. It is
// read once at the start of a batch and passed explicitly through the engine
// call rather than consulted as ambient state.
type FeeConfig struct {
	Rate      Pips   `json:"rate"`
	Collector string `json:"collector"`
}

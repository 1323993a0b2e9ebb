package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipsValid(t *testing.T) {
	require.True(t, Pips(0).Valid())
	require.True(t, MaxPips.Valid())
	require.False(t, (MaxPips + 1).Valid())
	require.Equal(t, Pips(1_000_000), MaxPips)
	require.Equal(t, Pips(10_000), OnePercent)
	require.Equal(t, Pips(100), OneBip)
}

func TestFeeRounding(t *testing.T) {
	amount := U128From64(1_000_000)

	require.Equal(t, U128From64(10_000), OnePercent.Fee(amount))
	require.Equal(t, amount, MaxPips.Fee(amount))
	require.True(t, Pips(0).Fee(amount).IsZero())

	// 1 pip of 999999 is 0.999999: floor 0, ceil 1.
	odd := U128From64(999_999)
	require.True(t, OnePip.Fee(odd).IsZero())
	require.Equal(t, U128From64(1), OnePip.FeeCeil(odd))

	// Exact division: floor and ceil agree.
	require.Equal(t, OnePercent.Fee(amount), OnePercent.FeeCeil(amount))
}

func TestFeeFullWidth(t *testing.T) {
	// amount * rate overflows 128 bits as a naive product; the fee itself
	// must still come out exact.
	fee := MaxPips.Fee(MaxU128)
	require.Equal(t, MaxU128, fee)

	half := Pips(500_000)
	got := half.Fee(MaxU128)
	sum, ok := got.Add(half.FeeCeil(MaxU128))
	require.True(t, ok)
	require.Equal(t, MaxU128, sum, "floor half + ceil half reassemble the whole")
}

package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint128Arithmetic(t *testing.T) {
	a := U128From64(10)
	b := U128From64(3)

	sum, ok := a.Add(b)
	require.True(t, ok)
	require.Equal(t, U128From64(13), sum)

	diff, ok := a.Sub(b)
	require.True(t, ok)
	require.Equal(t, U128From64(7), diff)

	_, ok = b.Sub(a)
	require.False(t, ok, "underflow must be reported")

	_, ok = MaxU128.Add(U128From64(1))
	require.False(t, ok, "overflow must be reported")
}

func TestUint128CarryAcrossWords(t *testing.T) {
	u := Uint128{Lo: ^uint64(0)}
	sum, ok := u.Add(U128From64(1))
	require.True(t, ok)
	require.Equal(t, Uint128{Hi: 1}, sum)

	diff, ok := sum.Sub(U128From64(1))
	require.True(t, ok)
	require.Equal(t, u, diff)
}

func TestUint128Cmp(t *testing.T) {
	require.Equal(t, 0, U128From64(5).Cmp(U128From64(5)))
	require.Equal(t, -1, U128From64(4).Cmp(U128From64(5)))
	// The high word dominates regardless of the low word.
	require.Equal(t, 1, Uint128{Hi: 1}.Cmp(Uint128{Lo: ^uint64(0)}))
}

func TestUint128StringRoundTrip(t *testing.T) {
	for _, s := range []string{
		"0",
		"1",
		"18446744073709551615",
		"18446744073709551616",
		"340282366920938463463374607431768211455",
	} {
		u, err := ParseUint128(s)
		require.NoError(t, err)
		require.Equal(t, s, u.String())
	}

	_, err := ParseUint128("-1")
	require.Error(t, err)
	_, err = ParseUint128("340282366920938463463374607431768211456")
	require.Error(t, err)
	_, err = ParseUint128("abc")
	require.Error(t, err)
}

func TestUint128Binary(t *testing.T) {
	u := Uint128{Lo: 0x0102030405060708, Hi: 0x1112131415161718}
	data, err := u.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, 16)
	require.Equal(t, byte(0x11), data[0], "big-endian, high word first")

	var back Uint128
	require.NoError(t, back.UnmarshalBinary(data))
	require.Equal(t, u, back)

	require.Error(t, back.UnmarshalBinary(data[:15]))
}

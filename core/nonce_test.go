package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExpirableNoncePacking(t *testing.T) {
	deadline := time.UnixMilli(1_700_000_000_123)
	var seed [NonceSeedLen]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	n := PackExpirableNonce(deadline, seed)

	require.True(t, IsExpirableNonce(n))
	got, ok := NonceDeadline(n)
	require.True(t, ok)
	require.Equal(t, deadline.UnixMilli(), got.UnixMilli())
	require.Equal(t, uint8(1), n.BitIndex(), "expirable nonces pin the final byte")

	require.False(t, NonceExpired(n, deadline.Add(-time.Second)))
	require.False(t, NonceExpired(n, deadline), "deadline instant itself is not expired")
	require.True(t, NonceExpired(n, deadline.Add(time.Millisecond)))
}

func TestArbitraryNonceNeverExpires(t *testing.T) {
	var n Nonce
	n[0] = 0x01
	require.False(t, IsExpirableNonce(n))
	_, ok := NonceDeadline(n)
	require.False(t, ok)
	require.False(t, NonceExpired(n, time.Now().Add(100*365*24*time.Hour)))
}

func TestNonceWordBitOps(t *testing.T) {
	var w NonceWord
	require.True(t, w.IsZero())

	for _, i := range []uint8{0, 7, 8, 200, 255} {
		require.False(t, w.Bit(i))
		w = w.SetBit(i)
		require.True(t, w.Bit(i))
	}
	require.False(t, w.IsZero())

	w = w.ClearBit(200)
	require.False(t, w.Bit(200))
	require.True(t, w.Bit(255), "clearing one bit leaves the others")

	for _, i := range []uint8{0, 7, 8, 255} {
		w = w.ClearBit(i)
	}
	require.True(t, w.IsZero())
}

func TestNonceWordKey(t *testing.T) {
	var a, b Nonce
	a[30] = 0xAB
	b[30] = 0xAB
	a[31] = 3
	b[31] = 200
	require.Equal(t, a.WordKey(), b.WordKey(), "nonces differing only in the last byte share a word")
	require.NotEqual(t, a.BitIndex(), b.BitIndex())
}

func TestNonceHexRoundTrip(t *testing.T) {
	var n Nonce
	n[0], n[31] = 0xFF, 0x7F
	parsed, err := ParseNonce(n.String())
	require.NoError(t, err)
	require.Equal(t, n, parsed)

	_, err = ParseNonce("zz")
	require.Error(t, err)
	_, err = ParseNonce("abcd")
	require.Error(t, err, "wrong length")
}

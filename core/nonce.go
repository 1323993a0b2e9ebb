package core

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// Nonce is a single-use 256-bit value preventing replay of a payload.
//
// Two disjoint formats share the nonce space. An arbitrary nonce carries no
// embedded meaning: once committed it is used forever. An expirable nonce is
// recognised by its first byte being 0xFF and packs a big-endian millisecond
// UNIX deadline into bytes 1..9; after the deadline it can never be committed
// and its commit record may be purged from storage without becoming reusable.
//
// The replay set is stored as a bitmap (permit2 nonce schema): the first 31
// bytes select a 256-bit word, the last byte selects the bit within it.
type Nonce [32]byte

// expirableNoncePrefix marks the reserved expirable bit pattern.
const expirableNoncePrefix = 0xFF

// NonceSeedLen is the number of random bytes packed into an expirable nonce.
const NonceSeedLen = 22

// PackExpirableNonce builds an expirable nonce from a deadline and random
// seed bytes. The final byte is fixed so all nonces sharing one (deadline,
// seed) word land in a single storage entry and can be purged together.
func PackExpirableNonce(deadline time.Time, seed [NonceSeedLen]byte) Nonce {
	var n Nonce
	n[0] = expirableNoncePrefix
	binary.BigEndian.PutUint64(n[1:9], uint64(deadline.UnixMilli()))
	copy(n[9:31], seed[:])
	n[31] = 1
	return n
}

// IsExpirableNonce reports whether n uses the expirable format.
func IsExpirableNonce(n Nonce) bool {
	return n[0] == expirableNoncePrefix
}

// NonceDeadline returns the packed deadline of an expirable nonce.
// ok is false for non-expirable nonces, which never expire.
func NonceDeadline(n Nonce) (deadline time.Time, ok bool) {
	if !IsExpirableNonce(n) {
		return time.Time{}, false
	}
	ms := binary.BigEndian.Uint64(n[1:9])
	return time.UnixMilli(int64(ms)), true
}

// NonceExpired reports whether n is an expirable nonce whose deadline has
// passed at the given instant.
func NonceExpired(n Nonce, now time.Time) bool {
	deadline, ok := NonceDeadline(n)
	return ok && deadline.Before(now)
}

// WordKey returns the 31-byte bitmap word position of n.
func (n Nonce) WordKey() [31]byte {
	var w [31]byte
	copy(w[:], n[:31])
	return w
}

// BitIndex returns the bit position of n inside its bitmap word.
func (n Nonce) BitIndex() uint8 {
	return n[31]
}

// NonceWord is one 256-bit bitmap word of the replay set.
type NonceWord [32]byte

// IsZero reports whether no bit is set.
func (w NonceWord) IsZero() bool {
	return w == NonceWord{}
}

// Bit reports whether bit i is set.
func (w NonceWord) Bit(i uint8) bool {
	return w[i/8]&(1<<(i%8)) != 0
}

// SetBit returns w with bit i set.
func (w NonceWord) SetBit(i uint8) NonceWord {
	w[i/8] |= 1 << (i % 8)
	return w
}

// ClearBit returns w with bit i cleared.
func (w NonceWord) ClearBit(i uint8) NonceWord {
	w[i/8] &^= 1 << (i % 8)
	return w
}

// String returns n as lowercase hex.
func (n Nonce) String() string {
	return hex.EncodeToString(n[:])
}

// ParseNonce decodes a 64-char hex nonce.
func ParseNonce(s string) (Nonce, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Nonce{}, fmt.Errorf("invalid nonce hex: %w", err)
	}
	if len(b) != len(Nonce{}) {
		return Nonce{}, fmt.Errorf("nonce must be %d bytes, got %d", len(Nonce{}), len(b))
	}
	var n Nonce
	copy(n[:], b)
	return n, nil
}

// MarshalText implements encoding.TextMarshaler (hex form).
func (n Nonce) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Nonce) UnmarshalText(text []byte) error {
	parsed, err := ParseNonce(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

package core

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"math/bits"
)

// Uint128 is an unsigned 128-bit balance quantity. The zero value is zero.
// All arithmetic is checked: operations report overflow/underflow instead of
// wrapping.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

// ZeroU128 is the zero quantity.
var ZeroU128 = Uint128{}

// MaxU128 is the largest representable quantity.
var MaxU128 = Uint128{Lo: ^uint64(0), Hi: ^uint64(0)}

// U128From64 converts a uint64 to a Uint128.
func U128From64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// IsZero reports whether u == 0.
func (u Uint128) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

// Cmp returns -1, 0 or 1 depending on whether u is less than, equal to, or
// greater than v.
func (u Uint128) Cmp(v Uint128) int {
	if u.Hi != v.Hi {
		if u.Hi < v.Hi {
			return -1
		}
		return 1
	}
	if u.Lo != v.Lo {
		if u.Lo < v.Lo {
			return -1
		}
		return 1
	}
	return 0
}

// Add returns u+v and reports whether the sum fit without overflow.
func (u Uint128) Add(v Uint128) (Uint128, bool) {
	lo, carry := bits.Add64(u.Lo, v.Lo, 0)
	hi, carry := bits.Add64(u.Hi, v.Hi, carry)
	return Uint128{Lo: lo, Hi: hi}, carry == 0
}

// Sub returns u-v and reports whether the difference is non-negative.
func (u Uint128) Sub(v Uint128) (Uint128, bool) {
	lo, borrow := bits.Sub64(u.Lo, v.Lo, 0)
	hi, borrow := bits.Sub64(u.Hi, v.Hi, borrow)
	return Uint128{Lo: lo, Hi: hi}, borrow == 0
}

// Big returns u as a math/big integer.
func (u Uint128) Big() *big.Int {
	b := new(big.Int).SetUint64(u.Hi)
	b.Lsh(b, 64)
	return b.Or(b, new(big.Int).SetUint64(u.Lo))
}

// U128FromBig converts b to a Uint128 and reports whether it fit.
func U128FromBig(b *big.Int) (Uint128, bool) {
	if b.Sign() < 0 || b.BitLen() > 128 {
		return Uint128{}, false
	}
	return Uint128{
		Lo: b.Uint64(),
		Hi: new(big.Int).Rsh(b, 64).Uint64(),
	}, true
}

// String returns u in decimal.
func (u Uint128) String() string {
	if u.Hi == 0 {
		return fmt.Sprintf("%d", u.Lo)
	}
	return u.Big().String()
}

// ParseUint128 parses a decimal string into a Uint128.
func ParseUint128(s string) (Uint128, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Uint128{}, fmt.Errorf("invalid amount %q", s)
	}
	u, ok := U128FromBig(b)
	if !ok {
		return Uint128{}, fmt.Errorf("amount %q out of range", s)
	}
	return u, nil
}

// MarshalText implements encoding.TextMarshaler (decimal form).
func (u Uint128) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Uint128) UnmarshalText(text []byte) error {
	v, err := ParseUint128(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// MarshalBinary encodes u as 16 big-endian bytes.
func (u Uint128) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], u.Hi)
	binary.BigEndian.PutUint64(buf[8:], u.Lo)
	return buf, nil
}

// UnmarshalBinary decodes 16 big-endian bytes.
func (u *Uint128) UnmarshalBinary(data []byte) error {
	if len(data) != 16 {
		return fmt.Errorf("amount must be 16 bytes, got %d", len(data))
	}
	u.Hi = binary.BigEndian.Uint64(data[:8])
	u.Lo = binary.BigEndian.Uint64(data[8:])
	return nil
}

package engine

import "time"

// Clock supplies the instant a batch is judged against. Deadlines and nonce
// expiry are evaluated once per execute call so every payload in a batch
// sees the same time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Tests use it to pin deadline behavior.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

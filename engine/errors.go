package engine

import "fmt"

// Error reports which payload (and intent, when applicable) aborted a batch.
// The whole batch is rejected atomically; the wrapped error is one of the
// core sentinel failures and can be matched with errors.Is.
type Error struct {
	// Payload is the index of the failing payload within the batch.
	Payload int
	// Intent is the index of the failing intent within the payload, or -1
	// when the failure happened before intent execution (deadline,
	// authorization, nonce) or after it (batch invariant).
	Intent int
	Err    error
}

func (e *Error) Error() string {
	if e.Intent < 0 {
		return fmt.Sprintf("payload %d: %v", e.Payload, e.Err)
	}
	return fmt.Sprintf("payload %d: intent %d: %v", e.Payload, e.Intent, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func payloadErr(payload int, err error) *Error {
	return &Error{Payload: payload, Intent: -1, Err: err}
}

func intentErr(payload, intent int, err error) *Error {
	return &Error{Payload: payload, Intent: intent, Err: err}
}

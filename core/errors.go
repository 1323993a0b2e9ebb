package core

import "errors"

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// Business failures surfaced by the settlement engine. All of them abort the
// whole batch; none of them leave partial writes behind.
var (
	// ErrExpired means the payload deadline has already passed.
	ErrExpired = errors.New("deadline expired")

	// ErrUnauthorized means the recovered signer key is not authorized
	// for the claimed account.
	ErrUnauthorized = errors.New("signer not authorized for account")

	// ErrInvalidSignature means no verifier accepted the payload signature.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrWrongVerifyingContract means the payload was signed for a
	// different settlement instance.
	ErrWrongVerifyingContract = errors.New("wrong verifying contract")

	// ErrNonceUsed means the nonce was already committed.
	ErrNonceUsed = errors.New("nonce already used")

	// ErrNonceExpired means an expirable nonce's deadline has passed.
	// Such a nonce can never be committed, even if it was never used.
	ErrNonceExpired = errors.New("nonce already expired")

	ErrAccountNotFound = errors.New("account not found")
	ErrAccountLocked   = errors.New("account locked")

	ErrBalanceOverflow  = errors.New("balance overflow")
	ErrBalanceUnderflow = errors.New("balance underflow")

	// ErrInvalidIntent means the intent is structurally well-formed but
	// semantically empty or self-referential (zero amount, self-transfer).
	ErrInvalidIntent = errors.New("invalid intent")

	ErrPublicKeyExists   = errors.New("public key already exists")
	ErrPublicKeyNotExist = errors.New("public key does not exist")

	// ErrInvariantViolated means the batch-wide token supply invariant
	// does not hold after applying all deltas.
	ErrInvariantViolated = errors.New("token supply invariant violated")
)

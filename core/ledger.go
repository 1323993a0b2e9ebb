package core

import (
	"time"

	"github.com/solvernet/intentd/crypto"
)

// LedgerView is the read-only projection of account state the engine
// programs against: balances, authorized keys, the replay set, and the
// global protocol parameters.
//
// Implementations must answer reads for accounts that were never created:
// such accounts have no balances, no committed nonces, and only their
// implicit key (when the account id itself encodes one).
type LedgerView interface {
	// VerifyingContract identifies this settlement instance. Payloads
	// signed for another instance are rejected.
	VerifyingContract() string
	// WrappedNativeToken is the token id representing the host chain's
	// native asset inside the ledger.
	WrappedNativeToken() TokenID
	// FeeRate is the protocol fee in pips.
	FeeRate() Pips
	// FeeCollector is the account credited with protocol fees.
	FeeCollector() string

	// HasPublicKey reports whether pk is currently authorized for account,
	// including the implicit key derived from the account id unless it
	// has been revoked.
	HasPublicKey(account string, pk crypto.PublicKey) bool
	// PublicKeys returns all keys currently authorized for account, the
	// implicit key included, in unspecified order.
	PublicKeys(account string) []crypto.PublicKey

	// IsNonceUsed reports whether nonce was committed for account. For
	// non-expirable nonces the legacy replay set is consulted as a
	// fallback when the current set has no record.
	IsNonceUsed(account string, nonce Nonce) bool

	// BalanceOf returns the account's balance of token, zero if absent.
	BalanceOf(account string, token TokenID) Uint128

	// IsAccountLocked reports whether account is administratively locked.
	// Locked accounts reject every mutation but stay readable.
	IsAccountLocked(account string) bool
}

// Ledger adds the write capability on top of LedgerView. All mutating
// operations fail with ErrAccountLocked on locked accounts. The engine
// routes every batch through a single in-memory overlay implementation so a
// read-modify-write sequence spanning a batch behaves atomically; callers
// must serialize overlapping batches against one persistent ledger.
type Ledger interface {
	LedgerView

	// AddPublicKey authorizes pk for account. Fails with
	// ErrPublicKeyExists if it is already authorized.
	AddPublicKey(account string, pk crypto.PublicKey) error
	// RemovePublicKey revokes pk from account. Fails with
	// ErrPublicKeyNotExist if it is not currently authorized.
	RemovePublicKey(account string, pk crypto.PublicKey) error

	// CommitNonce marks nonce used for account. It fails fast with
	// ErrNonceExpired for expirable nonces whose deadline lies before
	// now, without touching storage, and with ErrNonceUsed for nonces
	// already committed (legacy set included).
	CommitNonce(account string, nonce Nonce, now time.Time) error
	// ClearExpiredNonce purges the commit record of an expired expirable
	// nonce and reports whether anything was removed. It is a no-op for
	// non-expirable nonces, for unexpired deadlines, and for records
	// already cleared or never committed.
	ClearExpiredNonce(account string, nonce Nonce, now time.Time) bool

	// AddBalance credits amount of token to account, creating the
	// account lazily.
	AddBalance(account string, token TokenID, amount Uint128) error
	// SubBalance debits amount of token from account. Fails with
	// ErrBalanceUnderflow when the balance is insufficient; the
	// persistent store additionally fails with ErrAccountNotFound for
	// accounts that were never created.
	SubBalance(account string, token TokenID, amount Uint128) error
}

// Committer is implemented by persistent ledgers whose writes are buffered
// until an explicit atomic commit.
type Committer interface {
	Commit() error
}

// ImplicitKey returns the public key derivable from the account id itself,
// when the id is the 64-char hex form of an ed25519 key.
func ImplicitKey(account string) (crypto.PublicKey, bool) {
	pk, err := crypto.PubKeyFromHex(account)
	if err != nil {
		return nil, false
	}
	return pk, true
}

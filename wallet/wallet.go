package wallet

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/solvernet/intentd/core"
	"github.com/solvernet/intentd/crypto"
)

// Wallet holds a key pair and provides payload-building helpers.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key.
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// AccountID returns the implicit account id controlled by this wallet.
func (w *Wallet) AccountID() string {
	return w.pub.AccountID()
}

// NewNonce returns a random non-expirable nonce.
func NewNonce() (core.Nonce, error) {
	var n core.Nonce
	if _, err := io.ReadFull(rand.Reader, n[:]); err != nil {
		return core.Nonce{}, err
	}
	// Avoid colliding with the expirable marker byte.
	if n[0] == 0xFF {
		n[0] = 0
	}
	return n, nil
}

// NewExpirableNonce returns a nonce that stops occupying replay-protection
// storage once deadline passes.
func NewExpirableNonce(deadline time.Time) (core.Nonce, error) {
	var seed [core.NonceSeedLen]byte
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return core.Nonce{}, err
	}
	return core.PackExpirableNonce(deadline, seed), nil
}

// NewPayload assembles an unsigned payload acting for this wallet's
// implicit account.
func (w *Wallet) NewPayload(verifyingContract string, deadline time.Time, nonce core.Nonce, intents ...core.Intent) core.Payload {
	return core.Payload{
		Signer:            w.AccountID(),
		VerifyingContract: verifyingContract,
		Deadline:          deadline.UnixMilli(),
		Nonce:             nonce,
		Intents:           intents,
	}
}

// Sign produces a SignedPayload over the canonical signing bytes.
func (w *Wallet) Sign(p core.Payload) (core.SignedPayload, error) {
	data, err := p.SigningBytes()
	if err != nil {
		return core.SignedPayload{}, err
	}
	return core.SignedPayload{
		Payload:   p,
		PublicKey: w.pub.Hex(),
		Signature: crypto.Sign(w.priv, data),
	}, nil
}

// ---- intent constructors ----

func newIntent(kind core.IntentKind, body any) (core.Intent, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return core.Intent{}, fmt.Errorf("encode %s intent: %w", kind, err)
	}
	return core.Intent{Kind: kind, Body: data}, nil
}

// TransferIntent builds a transfer of tokens to receiver.
func TransferIntent(receiver string, tokens core.Amounts, memo string) (core.Intent, error) {
	return newIntent(core.IntentTransfer, core.TransferIntent{
		Receiver: receiver,
		Tokens:   tokens,
		Memo:     memo,
	})
}

// WithdrawIntent builds a withdrawal of amount to an external receiver.
func WithdrawIntent(token core.TokenID, amount core.Uint128, receiver, memo string) (core.Intent, error) {
	return newIntent(core.IntentWithdraw, core.WithdrawIntent{
		Token:    token,
		Amount:   amount,
		Receiver: receiver,
		Memo:     memo,
	})
}

// AddPublicKeyIntent builds an intent authorizing an extra key.
func AddPublicKeyIntent(pk crypto.PublicKey) (core.Intent, error) {
	return newIntent(core.IntentAddPublicKey, core.AddPublicKeyIntent{PublicKey: pk.Hex()})
}

// RemovePublicKeyIntent builds an intent revoking a key.
func RemovePublicKeyIntent(pk crypto.PublicKey) (core.Intent, error) {
	return newIntent(core.IntentRemovePublicKey, core.RemovePublicKeyIntent{PublicKey: pk.Hex()})
}

// TokenDiffIntent builds a signed per-token delta.
func TokenDiffIntent(diff map[core.TokenID]core.SignedAmount, memo string) (core.Intent, error) {
	return newIntent(core.IntentTokenDiff, core.TokenDiffIntent{Diff: diff, Memo: memo})
}

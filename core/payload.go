package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/solvernet/intentd/crypto"
	"github.com/solvernet/intentd/internal/codec"
)

// IntentKind identifies the kind of ledger mutation an intent requests.
type IntentKind string

const (
	IntentAddPublicKey    IntentKind = "add_public_key"
	IntentRemovePublicKey IntentKind = "remove_public_key"
	IntentTransfer        IntentKind = "transfer"
	IntentWithdraw        IntentKind = "withdraw"
	IntentTokenDiff       IntentKind = "token_diff"
)

// Intent is one unit of requested ledger mutation inside a signed batch.
// Body is decoded by the handler registered for Kind.
type Intent struct {
	Kind IntentKind      `json:"kind"`
	Body json.RawMessage `json:"body"`
}

// Payload is the signed envelope submitted for execution. It is ephemeral:
// it exists only for the duration of one execute call and is never persisted.
type Payload struct {
	// Signer is the account id the signer claims to act for.
	Signer string `json:"signer"`
	// VerifyingContract pins the payload to one settlement instance so a
	// signature cannot be replayed against another deployment.
	VerifyingContract string `json:"verifying_contract"`
	// Deadline is a millisecond UNIX timestamp after which the payload
	// is rejected.
	Deadline int64 `json:"deadline"`
	// Nonce is consumed exactly once on successful execution.
	Nonce Nonce `json:"nonce"`
	// Intents are applied strictly in list order. An empty list is valid:
	// it does nothing but still invalidates the nonce for the signer.
	Intents []Intent `json:"intents"`
}

// Expired reports whether the payload deadline has passed at now.
func (p *Payload) Expired(now time.Time) bool {
	return time.UnixMilli(p.Deadline).Before(now)
}

// signingBody pins the field layout covered by the signature.
type signingBody struct {
	Signer            string   `cbor:"1,keyasint"`
	VerifyingContract string   `cbor:"2,keyasint"`
	Deadline          int64    `cbor:"3,keyasint"`
	Nonce             []byte   `cbor:"4,keyasint"`
	Kinds             []string `cbor:"5,keyasint"`
	Bodies            [][]byte `cbor:"6,keyasint"`
}

// SigningBytes returns the canonical bytes covered by the signature.
func (p *Payload) SigningBytes() ([]byte, error) {
	body := signingBody{
		Signer:            p.Signer,
		VerifyingContract: p.VerifyingContract,
		Deadline:          p.Deadline,
		Nonce:             p.Nonce[:],
	}
	for _, it := range p.Intents {
		body.Kinds = append(body.Kinds, string(it.Kind))
		body.Bodies = append(body.Bodies, []byte(it.Body))
	}
	data, err := codec.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode signing body: %w", err)
	}
	return data, nil
}

// Hash is the BLAKE3 digest identifying one executed payload.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler (hex form).
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(b) != len(h) {
		return fmt.Errorf("hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return nil
}

// Hash returns the payload's intent hash.
func (p *Payload) Hash() (Hash, error) {
	data, err := p.SigningBytes()
	if err != nil {
		return Hash{}, err
	}
	return crypto.Blake3Sum256(data), nil
}

// SignedPayload carries a payload together with the scheme-specific claimed
// key and signature. The engine never inspects the signature itself; it only
// consumes the verifier's verdict.
type SignedPayload struct {
	Payload   Payload `json:"payload"`
	PublicKey string  `json:"public_key"` // hex, scheme-specific
	Signature string  `json:"signature"`  // hex, scheme-specific
}

// ---- Intent bodies ----

// AddPublicKeyIntent authorizes an additional key on the signer's account.
// Adding a key that is already present is an error, not a silent no-op.
type AddPublicKeyIntent struct {
	PublicKey string `json:"public_key"` // hex
}

// RemovePublicKeyIntent revokes a key from the signer's account, including
// the implicit key derived from the account id itself.
type RemovePublicKeyIntent struct {
	PublicKey string `json:"public_key"` // hex
}

// TransferIntent moves tokens from the signer to another account inside the
// ledger. Rejected if the receiver is the signer or the token set is empty.
type TransferIntent struct {
	Receiver string  `json:"receiver"`
	Tokens   Amounts `json:"tokens"`
	Memo     string  `json:"memo,omitempty"`
}

// WithdrawIntent debits the signer's ledger balance and hands the amount to
// the external transfer dispatcher. The debit applies atomically with the
// batch; the external leg is dispatched only after the batch has committed,
// and a failure is reconciled later through the refund path.
type WithdrawIntent struct {
	Token    TokenID `json:"token"`
	Amount   Uint128 `json:"amount"`
	Receiver string  `json:"receiver"` // external receiver
	Memo     string  `json:"memo,omitempty"`
	// Msg, when set, asks the dispatcher for a transfer-and-call to the
	// receiving contract instead of a plain transfer.
	Msg string `json:"msg,omitempty"`
}

// SignedAmount is a signed 128-bit delta used by token_diff intents.
type SignedAmount struct {
	Neg bool
	Mag Uint128
}

func (d SignedAmount) String() string {
	if d.Neg {
		return "-" + d.Mag.String()
	}
	return d.Mag.String()
}

// MarshalText implements encoding.TextMarshaler.
func (d SignedAmount) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *SignedAmount) UnmarshalText(text []byte) error {
	s := string(text)
	neg := len(s) > 0 && s[0] == '-'
	if neg {
		s = s[1:]
	}
	mag, err := ParseUint128(s)
	if err != nil {
		return err
	}
	d.Neg = neg && !mag.IsZero()
	d.Mag = mag
	return nil
}

// TokenDiffIntent applies a signed per-token delta to the signer's balance:
// negative deltas give tokens up, positive deltas take tokens in. Across the
// whole batch the per-token net of all diffs must not increase token supply;
// the engine checks that aggregate after every payload has been applied.
type TokenDiffIntent struct {
	Diff map[TokenID]SignedAmount `json:"diff"`
	Memo string                   `json:"memo,omitempty"`
}

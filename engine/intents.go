package engine

import (
	"encoding/json"
	"fmt"

	"github.com/solvernet/intentd/core"
	"github.com/solvernet/intentd/crypto"
)

func init() {
	Register(core.IntentAddPublicKey, handleAddPublicKey)
	Register(core.IntentRemovePublicKey, handleRemovePublicKey)
	Register(core.IntentTransfer, handleTransfer)
	Register(core.IntentWithdraw, handleWithdraw)
	Register(core.IntentTokenDiff, handleTokenDiff)
}

func handleAddPublicKey(ctx *Context, body json.RawMessage) error {
	var p core.AddPublicKeyIntent
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("decode add_public_key: %w", err)
	}
	pk, err := crypto.PubKeyFromHex(p.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidIntent, err)
	}
	return ctx.Mutator.AddPublicKey(ctx.Signer, pk)
}

func handleRemovePublicKey(ctx *Context, body json.RawMessage) error {
	var p core.RemovePublicKeyIntent
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("decode remove_public_key: %w", err)
	}
	pk, err := crypto.PubKeyFromHex(p.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidIntent, err)
	}
	return ctx.Mutator.RemovePublicKey(ctx.Signer, pk)
}

func handleTransfer(ctx *Context, body json.RawMessage) error {
	var p core.TransferIntent
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("decode transfer: %w", err)
	}
	// Self-transfers and empty token sets are no-ops and are rejected.
	if p.Receiver == "" || p.Receiver == ctx.Signer {
		return fmt.Errorf("%w: transfer to %q", core.ErrInvalidIntent, p.Receiver)
	}
	if p.Tokens.IsEmpty() {
		return fmt.Errorf("%w: empty transfer", core.ErrInvalidIntent)
	}
	return ctx.Mutator.Transfer(ctx.Signer, p.Receiver, p.Tokens, p.Memo)
}

func handleWithdraw(ctx *Context, body json.RawMessage) error {
	var p core.WithdrawIntent
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("decode withdraw: %w", err)
	}
	if err := p.Token.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidIntent, err)
	}
	if p.Amount.IsZero() || p.Receiver == "" {
		return fmt.Errorf("%w: withdraw requires amount and receiver", core.ErrInvalidIntent)
	}
	return ctx.Mutator.Withdraw(ctx.Signer, p)
}

func handleTokenDiff(ctx *Context, body json.RawMessage) error {
	var p core.TokenDiffIntent
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("decode token_diff: %w", err)
	}
	if len(p.Diff) == 0 {
		return fmt.Errorf("%w: empty diff", core.ErrInvalidIntent)
	}
	return ctx.Mutator.ApplyDiff(ctx.Signer, p.Diff, p.Memo)
}

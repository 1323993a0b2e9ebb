package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/solvernet/intentd/core"
	"github.com/solvernet/intentd/crypto"
	"github.com/solvernet/intentd/engine"
	"github.com/solvernet/intentd/indexer"
	"github.com/solvernet/intentd/storage"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	engine  *engine.Engine
	store   *storage.LedgerStore
	indexer *indexer.Indexer
}

// NewHandler creates an RPC Handler.
func NewHandler(eng *engine.Engine, store *storage.LedgerStore, idx *indexer.Indexer) *Handler {
	return &Handler{engine: eng, store: store, indexer: idx}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "execute":
		return h.execute(req)

	case "simulate":
		return h.simulate(req)

	case "getBalance":
		return h.getBalance(req)

	case "getAccount":
		return h.getAccount(req)

	case "isNonceUsed":
		return h.isNonceUsed(req)

	case "hasPublicKey":
		return h.hasPublicKey(req)

	case "deposit":
		return h.deposit(req)

	case "setAccountLocked":
		return h.setAccountLocked(req)

	case "clearExpiredNonce":
		return h.clearExpiredNonce(req)

	case "getIntentsByAccount":
		return h.getIntentsByAccount(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) execute(req Request) Response {
	var params struct {
		Batch []core.SignedPayload `json:"batch"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if len(params.Batch) == 0 {
		return errResponse(req.ID, CodeInvalidParams, "batch is required")
	}
	hashes, err := h.engine.Execute(params.Batch)
	if err != nil {
		return errResponse(req.ID, CodeExecutionFailed, err.Error())
	}
	return okResponse(req.ID, map[string]any{"hashes": hashes})
}

func (h *Handler) simulate(req Request) Response {
	var params struct {
		Batch []core.SignedPayload `json:"batch"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if len(params.Batch) == 0 {
		return errResponse(req.ID, CodeInvalidParams, "batch is required")
	}
	evs, err := h.engine.Simulate(params.Batch)
	if err != nil {
		return errResponse(req.ID, CodeExecutionFailed, err.Error())
	}
	return okResponse(req.ID, map[string]any{"events": evs})
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		Account string `json:"account"`
		Token   string `json:"token"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Account == "" || params.Token == "" {
		return errResponse(req.ID, CodeInvalidParams, "account and token are required")
	}
	token, err := core.ParseTokenID(params.Token)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	amount := h.store.BalanceOf(params.Account, token)
	return okResponse(req.ID, map[string]any{
		"account": params.Account,
		"token":   params.Token,
		"amount":  amount.String(),
	})
}

func (h *Handler) getAccount(req Request) Response {
	var params struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Account == "" {
		return errResponse(req.ID, CodeInvalidParams, "account is required")
	}
	balances, err := h.store.Balances(params.Account)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	keys := h.store.PublicKeys(params.Account)
	hexKeys := make([]string, 0, len(keys))
	for _, pk := range keys {
		hexKeys = append(hexKeys, pk.Hex())
	}
	return okResponse(req.ID, map[string]any{
		"account":     params.Account,
		"locked":      h.store.IsAccountLocked(params.Account),
		"public_keys": hexKeys,
		"balances":    balances,
	})
}

func (h *Handler) isNonceUsed(req Request) Response {
	var params struct {
		Account string `json:"account"`
		Nonce   string `json:"nonce"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Account == "" {
		return errResponse(req.ID, CodeInvalidParams, "account is required")
	}
	nonce, err := core.ParseNonce(params.Nonce)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	return okResponse(req.ID, map[string]any{"used": h.store.IsNonceUsed(params.Account, nonce)})
}

func (h *Handler) hasPublicKey(req Request) Response {
	var params struct {
		Account   string `json:"account"`
		PublicKey string `json:"public_key"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Account == "" {
		return errResponse(req.ID, CodeInvalidParams, "account is required")
	}
	pk, err := crypto.PubKeyFromHex(params.PublicKey)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	return okResponse(req.ID, map[string]any{"has": h.store.HasPublicKey(params.Account, pk)})
}

// deposit credits tokens through the audited mint path. In production this
// endpoint sits behind the bearer token and is driven by the inbound
// transfer bridge, not by end users.
func (h *Handler) deposit(req Request) Response {
	var params struct {
		Account string       `json:"account"`
		Tokens  core.Amounts `json:"tokens"`
		Memo    string       `json:"memo"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Account == "" || params.Tokens.IsEmpty() {
		return errResponse(req.ID, CodeInvalidParams, "account and tokens are required")
	}
	if err := h.engine.Deposit(params.Account, params.Tokens, params.Memo); err != nil {
		return errResponse(req.ID, CodeExecutionFailed, err.Error())
	}
	return okResponse(req.ID, map[string]any{"ok": true})
}

func (h *Handler) setAccountLocked(req Request) Response {
	var params struct {
		Account string `json:"account"`
		Locked  bool   `json:"locked"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Account == "" {
		return errResponse(req.ID, CodeInvalidParams, "account is required")
	}
	if err := h.store.SetAccountLocked(params.Account, params.Locked); err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if err := h.store.Commit(); err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"account": params.Account, "locked": params.Locked})
}

// clearExpiredNonce garbage-collects the commit record of an expired
// expirable nonce. Clearing never reopens a replay window: unexpired and
// non-expirable nonces are left untouched.
func (h *Handler) clearExpiredNonce(req Request) Response {
	var params struct {
		Account string `json:"account"`
		Nonce   string `json:"nonce"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Account == "" {
		return errResponse(req.ID, CodeInvalidParams, "account is required")
	}
	nonce, err := core.ParseNonce(params.Nonce)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	cleared := h.store.ClearExpiredNonce(params.Account, nonce, time.Now())
	if cleared {
		if err := h.store.Commit(); err != nil {
			return errResponse(req.ID, CodeInternalError, err.Error())
		}
	}
	return okResponse(req.ID, map[string]any{"cleared": cleared})
}

func (h *Handler) getIntentsByAccount(req Request) Response {
	var params struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Account == "" {
		return errResponse(req.ID, CodeInvalidParams, "account is required")
	}
	hashes, err := h.indexer.GetIntentsByAccount(params.Account)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, hashes)
}

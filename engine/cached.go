package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/solvernet/intentd/core"
	"github.com/solvernet/intentd/crypto"
)

// cachedAccount buffers all writes for one account: key changes as two
// disjoint sets, committed nonces, and absolute balances for every token
// touched so far.
type cachedAccount struct {
	keysAdded   map[string]struct{}
	keysRemoved map[string]struct{}
	nonces      map[core.Nonce]struct{}
	balances    map[core.TokenID]core.Uint128
	dirty       map[core.TokenID]struct{}

	// keyViews and nonceViews cache wrapped-view answers so each
	// (account, key) is read through at most once.
	keyViews   map[string]bool
	nonceViews map[core.Nonce]bool
}

func newCachedAccount() *cachedAccount {
	return &cachedAccount{
		keysAdded:   make(map[string]struct{}),
		keysRemoved: make(map[string]struct{}),
		nonces:      make(map[core.Nonce]struct{}),
		balances:    make(map[core.TokenID]core.Uint128),
		dirty:       make(map[core.TokenID]struct{}),
		keyViews:    make(map[string]bool),
		nonceViews:  make(map[core.Nonce]bool),
	}
}

// CachedLedger is the in-memory overlay that makes a whole batch look
// atomic: every read checks the overlay first and falls back to the wrapped
// view exactly once per (account, key), caching the result; writes never
// touch the wrapped view. A failed batch simply discards the overlay, and a
// successful one flushes it through the write capability in one pass.
type CachedLedger struct {
	view     core.LedgerView
	accounts map[string]*cachedAccount
}

// NewCachedLedger creates an empty overlay over view.
func NewCachedLedger(view core.LedgerView) *CachedLedger {
	return &CachedLedger{
		view:     view,
		accounts: make(map[string]*cachedAccount),
	}
}

func (c *CachedLedger) account(id string) (*cachedAccount, bool) {
	acc, ok := c.accounts[id]
	return acc, ok
}

func (c *CachedLedger) getOrCreate(id string) *cachedAccount {
	if acc, ok := c.accounts[id]; ok {
		return acc
	}
	acc := newCachedAccount()
	c.accounts[id] = acc
	return acc
}

// ---- LedgerView ----

func (c *CachedLedger) VerifyingContract() string        { return c.view.VerifyingContract() }
func (c *CachedLedger) WrappedNativeToken() core.TokenID { return c.view.WrappedNativeToken() }
func (c *CachedLedger) FeeRate() core.Pips               { return c.view.FeeRate() }
func (c *CachedLedger) FeeCollector() string             { return c.view.FeeCollector() }

func (c *CachedLedger) IsAccountLocked(account string) bool {
	return c.view.IsAccountLocked(account)
}

func (c *CachedLedger) HasPublicKey(account string, pk crypto.PublicKey) bool {
	acc := c.getOrCreate(account)
	hexKey := pk.Hex()
	if _, added := acc.keysAdded[hexKey]; added {
		return true
	}
	if _, removed := acc.keysRemoved[hexKey]; removed {
		return false
	}
	if v, ok := acc.keyViews[hexKey]; ok {
		return v
	}
	v := c.view.HasPublicKey(account, pk)
	acc.keyViews[hexKey] = v
	return v
}

func (c *CachedLedger) PublicKeys(account string) []crypto.PublicKey {
	acc, _ := c.account(account)
	var keys []crypto.PublicKey
	for _, pk := range c.view.PublicKeys(account) {
		if acc != nil {
			if _, removed := acc.keysRemoved[pk.Hex()]; removed {
				continue
			}
		}
		keys = append(keys, pk)
	}
	if acc != nil {
		for h := range acc.keysAdded {
			pk, err := crypto.PubKeyFromHex(h)
			if err != nil {
				continue
			}
			keys = append(keys, pk)
		}
	}
	return keys
}

func (c *CachedLedger) IsNonceUsed(account string, n core.Nonce) bool {
	acc := c.getOrCreate(account)
	if _, used := acc.nonces[n]; used {
		return true
	}
	if v, ok := acc.nonceViews[n]; ok {
		return v
	}
	v := c.view.IsNonceUsed(account, n)
	acc.nonceViews[n] = v
	return v
}

func (c *CachedLedger) BalanceOf(account string, token core.TokenID) core.Uint128 {
	return c.loadBalance(c.getOrCreate(account), account, token)
}

// loadBalance pulls the wrapped balance into the overlay on first touch so
// subsequent reads and writes are served locally.
func (c *CachedLedger) loadBalance(acc *cachedAccount, account string, token core.TokenID) core.Uint128 {
	if v, ok := acc.balances[token]; ok {
		return v
	}
	v := c.view.BalanceOf(account, token)
	acc.balances[token] = v
	return v
}

// ---- Ledger ----

func (c *CachedLedger) checkUnlocked(account string) error {
	if c.IsAccountLocked(account) {
		return fmt.Errorf("%w: %s", core.ErrAccountLocked, account)
	}
	return nil
}

func (c *CachedLedger) AddPublicKey(account string, pk crypto.PublicKey) error {
	if err := c.checkUnlocked(account); err != nil {
		return err
	}
	if c.HasPublicKey(account, pk) {
		return fmt.Errorf("%w: %s", core.ErrPublicKeyExists, pk.Hex())
	}
	acc := c.getOrCreate(account)
	hexKey := pk.Hex()
	if _, removed := acc.keysRemoved[hexKey]; removed {
		delete(acc.keysRemoved, hexKey)
	} else {
		acc.keysAdded[hexKey] = struct{}{}
	}
	return nil
}

func (c *CachedLedger) RemovePublicKey(account string, pk crypto.PublicKey) error {
	if err := c.checkUnlocked(account); err != nil {
		return err
	}
	if !c.HasPublicKey(account, pk) {
		return fmt.Errorf("%w: %s", core.ErrPublicKeyNotExist, pk.Hex())
	}
	acc := c.getOrCreate(account)
	hexKey := pk.Hex()
	if _, added := acc.keysAdded[hexKey]; added {
		delete(acc.keysAdded, hexKey)
	} else {
		acc.keysRemoved[hexKey] = struct{}{}
	}
	return nil
}

func (c *CachedLedger) CommitNonce(account string, n core.Nonce, now time.Time) error {
	if err := c.checkUnlocked(account); err != nil {
		return err
	}
	if core.NonceExpired(n, now) {
		return core.ErrNonceExpired
	}
	if c.IsNonceUsed(account, n) {
		return core.ErrNonceUsed
	}
	c.getOrCreate(account).nonces[n] = struct{}{}
	return nil
}

// ClearExpiredNonce purges a nonce committed inside this overlay. Commit
// records already persisted underneath are out of reach here; those are
// purged through the store's own ClearExpiredNonce.
func (c *CachedLedger) ClearExpiredNonce(account string, n core.Nonce, now time.Time) bool {
	if !core.NonceExpired(n, now) {
		return false
	}
	acc, ok := c.account(account)
	if !ok {
		return false
	}
	if _, used := acc.nonces[n]; !used {
		return false
	}
	delete(acc.nonces, n)
	return true
}

func (c *CachedLedger) AddBalance(account string, token core.TokenID, amount core.Uint128) error {
	if err := c.checkUnlocked(account); err != nil {
		return err
	}
	acc := c.getOrCreate(account)
	sum, ok := c.loadBalance(acc, account, token).Add(amount)
	if !ok {
		return fmt.Errorf("%w: %s %s", core.ErrBalanceOverflow, account, token)
	}
	acc.balances[token] = sum
	acc.dirty[token] = struct{}{}
	return nil
}

func (c *CachedLedger) SubBalance(account string, token core.TokenID, amount core.Uint128) error {
	if err := c.checkUnlocked(account); err != nil {
		return err
	}
	acc := c.getOrCreate(account)
	diff, ok := c.loadBalance(acc, account, token).Sub(amount)
	if !ok {
		return fmt.Errorf("%w: %s %s", core.ErrBalanceUnderflow, account, token)
	}
	acc.balances[token] = diff
	acc.dirty[token] = struct{}{}
	return nil
}

// ---- flush ----

// Flush replays the buffered writes into dst in deterministic order. now
// must be the same instant the batch was executed with, so nonce expiry
// decisions match. On error dst may hold partial buffered writes; callers
// relying on atomicity must discard dst's own buffer in that case.
func (c *CachedLedger) Flush(dst core.Ledger, now time.Time) error {
	accounts := make([]string, 0, len(c.accounts))
	for id := range c.accounts {
		accounts = append(accounts, id)
	}
	sort.Strings(accounts)

	for _, id := range accounts {
		acc := c.accounts[id]

		for _, hexKey := range sortedKeys(acc.keysAdded) {
			pk, err := crypto.PubKeyFromHex(hexKey)
			if err != nil {
				return fmt.Errorf("flush key %s: %w", hexKey, err)
			}
			if err := dst.AddPublicKey(id, pk); err != nil {
				return err
			}
		}
		for _, hexKey := range sortedKeys(acc.keysRemoved) {
			pk, err := crypto.PubKeyFromHex(hexKey)
			if err != nil {
				return fmt.Errorf("flush key %s: %w", hexKey, err)
			}
			if err := dst.RemovePublicKey(id, pk); err != nil {
				return err
			}
		}

		for _, n := range sortedNonces(acc.nonces) {
			if err := dst.CommitNonce(id, n, now); err != nil {
				return err
			}
		}

		tokens := make([]core.TokenID, 0, len(acc.dirty))
		for t := range acc.dirty {
			tokens = append(tokens, t)
		}
		sort.Slice(tokens, func(i, j int) bool { return tokens[i].Cmp(tokens[j]) < 0 })
		for _, token := range tokens {
			target := acc.balances[token]
			current := dst.BalanceOf(id, token)
			switch target.Cmp(current) {
			case 1:
				diff, _ := target.Sub(current)
				if err := dst.AddBalance(id, token, diff); err != nil {
					return err
				}
			case -1:
				diff, _ := current.Sub(target)
				if err := dst.SubBalance(id, token, diff); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedNonces(set map[core.Nonce]struct{}) []core.Nonce {
	nonces := make([]core.Nonce, 0, len(set))
	for n := range set {
		nonces = append(nonces, n)
	}
	sort.Slice(nonces, func(i, j int) bool {
		for k := range nonces[i] {
			if nonces[i][k] != nonces[j][k] {
				return nonces[i][k] < nonces[j][k]
			}
		}
		return false
	})
	return nonces
}

var _ core.Ledger = (*CachedLedger)(nil)

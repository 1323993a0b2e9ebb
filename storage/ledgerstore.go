package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/solvernet/intentd/core"
	"github.com/solvernet/intentd/crypto"
	"github.com/solvernet/intentd/internal/codec"
)

// Key prefixes of the persistent account layout.
const (
	prefixMeta        = "meta:"   // meta:<account> → CBOR accountRecord
	prefixBalance     = "bal:"    // bal:<account>:<token> → 16-byte BE amount
	prefixNonce       = "nonce:"  // nonce:<account>:<word-hex> → 32-byte bitmap word
	prefixNonceLegacy = "nonce0:" // read-only legacy replay set, same layout
	keyGenesisDone    = "genesis:done"
)

// accountRecord is the persistent per-account metadata. Balances and nonce
// words live under their own keys so they can be mutated independently.
type accountRecord struct {
	Keys            []string `cbor:"1,keyasint,omitempty"` // sorted pubkey hexes
	ImplicitRevoked bool     `cbor:"2,keyasint,omitempty"`
	Locked          bool     `cbor:"3,keyasint,omitempty"`
}

func (r *accountRecord) hasKey(hexKey string) bool {
	i := sort.SearchStrings(r.Keys, hexKey)
	return i < len(r.Keys) && r.Keys[i] == hexKey
}

func (r *accountRecord) addKey(hexKey string) {
	i := sort.SearchStrings(r.Keys, hexKey)
	if i < len(r.Keys) && r.Keys[i] == hexKey {
		return
	}
	r.Keys = append(r.Keys, "")
	copy(r.Keys[i+1:], r.Keys[i:])
	r.Keys[i] = hexKey
}

func (r *accountRecord) removeKey(hexKey string) {
	i := sort.SearchStrings(r.Keys, hexKey)
	if i < len(r.Keys) && r.Keys[i] == hexKey {
		r.Keys = append(r.Keys[:i], r.Keys[i+1:]...)
	}
}

// LedgerParams are the read-only global parameters of one settlement
// instance, fixed at store construction.
type LedgerParams struct {
	VerifyingContract  string
	WrappedNativeToken core.TokenID
	FeeRate            core.Pips
	FeeCollector       string
}

// LedgerStore implements core.Ledger on top of a DB with an in-memory write
// buffer and atomic batch commit. Writes stay invisible to the underlying DB
// until Commit; the engine flushes its batch overlay into the store and then
// commits, so a crash mid-batch never leaves partial writes behind.
type LedgerStore struct {
	db      DB
	params  LedgerParams
	dirty   map[string][]byte
	deleted map[string]bool
}

// NewLedgerStore creates a LedgerStore backed by db.
func NewLedgerStore(db DB, params LedgerParams) *LedgerStore {
	return &LedgerStore{
		db:      db,
		params:  params,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *LedgerStore) get(key string) ([]byte, error) {
	if s.deleted[key] {
		return nil, core.ErrNotFound
	}
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *LedgerStore) set(key string, val []byte) {
	delete(s.deleted, key)
	s.dirty[key] = val
}

func (s *LedgerStore) del(key string) {
	delete(s.dirty, key)
	s.deleted[key] = true
}

func metaKey(account string) string { return prefixMeta + account }

func balanceKey(account string, token core.TokenID) string {
	return prefixBalance + account + ":" + token.String()
}

func nonceKey(prefix, account string, n core.Nonce) string {
	word := n.WordKey()
	return prefix + account + ":" + hex.EncodeToString(word[:])
}

// record loads the account metadata, returning a zero record for accounts
// that were never created.
func (s *LedgerStore) record(account string) (accountRecord, bool) {
	data, err := s.get(metaKey(account))
	if errors.Is(err, core.ErrNotFound) {
		return accountRecord{}, false
	}
	if err != nil {
		log.Printf("[ledger] read account %s: %v", account, err)
		return accountRecord{}, false
	}
	var rec accountRecord
	if err := codec.Unmarshal(data, &rec); err != nil {
		log.Printf("[ledger] decode account %s: %v", account, err)
		return accountRecord{}, false
	}
	return rec, true
}

func (s *LedgerStore) saveRecord(account string, rec accountRecord) error {
	data, err := codec.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode account %s: %w", account, err)
	}
	s.set(metaKey(account), data)
	return nil
}

// ensureAccount lazily creates the account metadata on first mutation.
func (s *LedgerStore) ensureAccount(account string) error {
	if _, ok := s.record(account); ok {
		return nil
	}
	return s.saveRecord(account, accountRecord{})
}

func (s *LedgerStore) checkUnlocked(account string) error {
	if s.IsAccountLocked(account) {
		return fmt.Errorf("%w: %s", core.ErrAccountLocked, account)
	}
	return nil
}

// ---- LedgerView ----

func (s *LedgerStore) VerifyingContract() string        { return s.params.VerifyingContract }
func (s *LedgerStore) WrappedNativeToken() core.TokenID { return s.params.WrappedNativeToken }
func (s *LedgerStore) FeeRate() core.Pips               { return s.params.FeeRate }
func (s *LedgerStore) FeeCollector() string             { return s.params.FeeCollector }

func (s *LedgerStore) IsAccountLocked(account string) bool {
	rec, _ := s.record(account)
	return rec.Locked
}

func (s *LedgerStore) HasPublicKey(account string, pk crypto.PublicKey) bool {
	rec, _ := s.record(account)
	if implicit, ok := core.ImplicitKey(account); ok && implicit.Hex() == pk.Hex() {
		return !rec.ImplicitRevoked
	}
	return rec.hasKey(pk.Hex())
}

func (s *LedgerStore) PublicKeys(account string) []crypto.PublicKey {
	rec, _ := s.record(account)
	var keys []crypto.PublicKey
	if implicit, ok := core.ImplicitKey(account); ok && !rec.ImplicitRevoked {
		keys = append(keys, implicit)
	}
	for _, h := range rec.Keys {
		pk, err := crypto.PubKeyFromHex(h)
		if err != nil {
			continue
		}
		keys = append(keys, pk)
	}
	return keys
}

func (s *LedgerStore) loadWord(prefix, account string, n core.Nonce) core.NonceWord {
	data, err := s.get(nonceKey(prefix, account, n))
	if err != nil {
		return core.NonceWord{}
	}
	var w core.NonceWord
	copy(w[:], data)
	return w
}

func (s *LedgerStore) IsNonceUsed(account string, n core.Nonce) bool {
	if s.loadWord(prefixNonce, account, n).Bit(n.BitIndex()) {
		return true
	}
	// The legacy replay set predates the expirable format, so it is
	// consulted only as a negative-result fallback for non-expirable
	// nonces. This is a fixed-priority two-tier lookup, not a cache.
	if core.IsExpirableNonce(n) {
		return false
	}
	return s.loadWord(prefixNonceLegacy, account, n).Bit(n.BitIndex())
}

// ---- Ledger ----

func (s *LedgerStore) AddPublicKey(account string, pk crypto.PublicKey) error {
	if err := s.checkUnlocked(account); err != nil {
		return err
	}
	if s.HasPublicKey(account, pk) {
		return fmt.Errorf("%w: %s", core.ErrPublicKeyExists, pk.Hex())
	}
	rec, _ := s.record(account)
	if implicit, ok := core.ImplicitKey(account); ok && implicit.Hex() == pk.Hex() {
		rec.ImplicitRevoked = false
	} else {
		rec.addKey(pk.Hex())
	}
	return s.saveRecord(account, rec)
}

func (s *LedgerStore) RemovePublicKey(account string, pk crypto.PublicKey) error {
	if err := s.checkUnlocked(account); err != nil {
		return err
	}
	if !s.HasPublicKey(account, pk) {
		return fmt.Errorf("%w: %s", core.ErrPublicKeyNotExist, pk.Hex())
	}
	rec, _ := s.record(account)
	if implicit, ok := core.ImplicitKey(account); ok && implicit.Hex() == pk.Hex() {
		rec.ImplicitRevoked = true
	} else {
		rec.removeKey(pk.Hex())
	}
	return s.saveRecord(account, rec)
}

func (s *LedgerStore) CommitNonce(account string, n core.Nonce, now time.Time) error {
	if err := s.checkUnlocked(account); err != nil {
		return err
	}
	// Expiry is checked before any storage access so expired nonces fail
	// fast and never leave a record behind.
	if core.NonceExpired(n, now) {
		return core.ErrNonceExpired
	}
	if s.IsNonceUsed(account, n) {
		return core.ErrNonceUsed
	}
	word := s.loadWord(prefixNonce, account, n).SetBit(n.BitIndex())
	s.set(nonceKey(prefixNonce, account, n), word[:])
	return s.ensureAccount(account)
}

func (s *LedgerStore) ClearExpiredNonce(account string, n core.Nonce, now time.Time) bool {
	// Non-expirable nonces are permanent; clearing an unexpired or
	// never-committed nonce must not open a replay window.
	if !core.NonceExpired(n, now) {
		return false
	}
	word := s.loadWord(prefixNonce, account, n)
	if !word.Bit(n.BitIndex()) {
		return false
	}
	word = word.ClearBit(n.BitIndex())
	if word.IsZero() {
		s.del(nonceKey(prefixNonce, account, n))
	} else {
		s.set(nonceKey(prefixNonce, account, n), word[:])
	}
	return true
}

func (s *LedgerStore) BalanceOf(account string, token core.TokenID) core.Uint128 {
	data, err := s.get(balanceKey(account, token))
	if err != nil {
		return core.ZeroU128
	}
	var v core.Uint128
	if err := v.UnmarshalBinary(data); err != nil {
		log.Printf("[ledger] decode balance %s %s: %v", account, token, err)
		return core.ZeroU128
	}
	return v
}

func (s *LedgerStore) AddBalance(account string, token core.TokenID, amount core.Uint128) error {
	if err := s.checkUnlocked(account); err != nil {
		return err
	}
	if err := token.Validate(); err != nil {
		return err
	}
	if amount.IsZero() {
		return s.ensureAccount(account)
	}
	sum, ok := s.BalanceOf(account, token).Add(amount)
	if !ok {
		return fmt.Errorf("%w: %s %s", core.ErrBalanceOverflow, account, token)
	}
	s.setBalance(account, token, sum)
	return s.ensureAccount(account)
}

func (s *LedgerStore) SubBalance(account string, token core.TokenID, amount core.Uint128) error {
	if err := s.checkUnlocked(account); err != nil {
		return err
	}
	if _, ok := s.record(account); !ok {
		return fmt.Errorf("%w: %s", core.ErrAccountNotFound, account)
	}
	diff, ok := s.BalanceOf(account, token).Sub(amount)
	if !ok {
		return fmt.Errorf("%w: %s %s", core.ErrBalanceUnderflow, account, token)
	}
	s.setBalance(account, token, diff)
	return nil
}

func (s *LedgerStore) setBalance(account string, token core.TokenID, v core.Uint128) {
	key := balanceKey(account, token)
	if v.IsZero() {
		s.del(key)
		return
	}
	data, _ := v.MarshalBinary()
	s.set(key, data)
}

// Balances enumerates every non-zero balance of an account, merging the
// write buffer over the persisted rows.
func (s *LedgerStore) Balances(account string) (core.Amounts, error) {
	prefix := prefixBalance + account + ":"
	amounts := core.NewAmounts()

	add := func(key string, data []byte) error {
		token, err := core.ParseTokenID(key[len(prefix):])
		if err != nil {
			return fmt.Errorf("balance key %q: %w", key, err)
		}
		var v core.Uint128
		if err := v.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("balance %q: %w", key, err)
		}
		if _, err := amounts.Add(token, v); err != nil {
			return err
		}
		return nil
	}

	it := s.db.NewIterator([]byte(prefix))
	defer it.Release()
	for it.Next() {
		key := string(it.Key())
		if s.deleted[key] {
			continue
		}
		if _, dirty := s.dirty[key]; dirty {
			continue
		}
		if err := add(key, it.Value()); err != nil {
			return core.Amounts{}, err
		}
	}
	if err := it.Error(); err != nil {
		return core.Amounts{}, err
	}
	for key, data := range s.dirty {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			if err := add(key, data); err != nil {
				return core.Amounts{}, err
			}
		}
	}
	return amounts, nil
}

// ---- admin ----

// SetAccountLocked administratively locks or unlocks an account. While
// locked, every mutating operation on the account is rejected; balance
// reads remain available.
func (s *LedgerStore) SetAccountLocked(account string, locked bool) error {
	rec, _ := s.record(account)
	rec.Locked = locked
	return s.saveRecord(account, rec)
}

// ImportLegacyNonce seeds the read-only legacy replay set. Used by
// migration tooling and tests; the engine never writes through this path.
func (s *LedgerStore) ImportLegacyNonce(account string, n core.Nonce) {
	word := s.loadWord(prefixNonceLegacy, account, n).SetBit(n.BitIndex())
	s.set(nonceKey(prefixNonceLegacy, account, n), word[:])
}

// ---- genesis ----

// ApplyGenesis credits the initial allocation exactly once per database.
// alloc maps account id → canonical token id → decimal amount.
func (s *LedgerStore) ApplyGenesis(alloc map[string]map[string]string) error {
	if _, err := s.get(keyGenesisDone); err == nil {
		return nil
	}
	accounts := make([]string, 0, len(alloc))
	for a := range alloc {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)
	for _, account := range accounts {
		for ts, vs := range alloc[account] {
			token, err := core.ParseTokenID(ts)
			if err != nil {
				return fmt.Errorf("genesis token %q: %w", ts, err)
			}
			amount, err := core.ParseUint128(vs)
			if err != nil {
				return fmt.Errorf("genesis amount %q: %w", vs, err)
			}
			if err := s.AddBalance(account, token, amount); err != nil {
				return err
			}
		}
	}
	s.set(keyGenesisDone, []byte{1})
	return s.Commit()
}

// ---- commit ----

// Commit atomically flushes the write buffer to the underlying DB via a
// write batch and then clears it.
func (s *LedgerStore) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	return nil
}

// Discard drops all uncommitted writes from the buffer.
func (s *LedgerStore) Discard() {
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
}

var _ core.Ledger = (*LedgerStore)(nil)
var _ core.Committer = (*LedgerStore)(nil)

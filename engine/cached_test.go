package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solvernet/intentd/core"
	"github.com/solvernet/intentd/crypto"
	"github.com/solvernet/intentd/engine"
	"github.com/solvernet/intentd/internal/testutil"
	"github.com/solvernet/intentd/storage"
)

var overlayParams = storage.LedgerParams{
	VerifyingContract:  "intents.test",
	WrappedNativeToken: core.FungibleToken("wrap.native"),
	FeeCollector:       "fees.test",
}

func TestOverlayReadsThrough(t *testing.T) {
	store := testutil.NewLedgerStore(overlayParams)
	usdc := core.FungibleToken("usdc")
	require.NoError(t, store.AddBalance("alice", usdc, core.U128From64(100)))

	cached := engine.NewCachedLedger(store)
	require.Equal(t, core.U128From64(100), cached.BalanceOf("alice", usdc))
	require.Equal(t, "intents.test", cached.VerifyingContract())
}

func TestOverlayWritesStayLocal(t *testing.T) {
	store := testutil.NewLedgerStore(overlayParams)
	usdc := core.FungibleToken("usdc")

	cached := engine.NewCachedLedger(store)
	require.NoError(t, cached.AddBalance("alice", usdc, core.U128From64(40)))
	require.Equal(t, core.U128From64(40), cached.BalanceOf("alice", usdc))
	require.True(t, store.BalanceOf("alice", usdc).IsZero(), "overlay write must not leak")

	var n core.Nonce
	n[0] = 0x01
	require.NoError(t, cached.CommitNonce("alice", n, time.Now()))
	require.True(t, cached.IsNonceUsed("alice", n))
	require.False(t, store.IsNonceUsed("alice", n))
}

func TestOverlaySubReadsThroughUntouchedAccount(t *testing.T) {
	store := testutil.NewLedgerStore(overlayParams)
	usdc := core.FungibleToken("usdc")
	require.NoError(t, store.AddBalance("alice", usdc, core.U128From64(100)))
	require.NoError(t, store.Commit())

	// A persisted account the overlay has never touched is debited against
	// its read-through balance, just like the persistent ledger would.
	cached := engine.NewCachedLedger(store)
	require.NoError(t, cached.SubBalance("alice", usdc, core.U128From64(50)))
	require.Equal(t, core.U128From64(50), cached.BalanceOf("alice", usdc))
	require.Equal(t, core.U128From64(100), store.BalanceOf("alice", usdc), "overlay write must not leak")

	err := cached.SubBalance("ghost", usdc, core.U128From64(1))
	require.ErrorIs(t, err, core.ErrBalanceUnderflow, "unknown accounts have zero balance")
}

// countingView counts wrapped reads so the read-through cache can be checked.
type countingView struct {
	*storage.LedgerStore
	balanceReads int
	nonceReads   int
	keyReads     int
}

func (v *countingView) BalanceOf(account string, token core.TokenID) core.Uint128 {
	v.balanceReads++
	return v.LedgerStore.BalanceOf(account, token)
}

func (v *countingView) IsNonceUsed(account string, n core.Nonce) bool {
	v.nonceReads++
	return v.LedgerStore.IsNonceUsed(account, n)
}

func (v *countingView) HasPublicKey(account string, pk crypto.PublicKey) bool {
	v.keyReads++
	return v.LedgerStore.HasPublicKey(account, pk)
}

func TestOverlayReadsViewOncePerKey(t *testing.T) {
	store := testutil.NewLedgerStore(overlayParams)
	usdc := core.FungibleToken("usdc")
	require.NoError(t, store.AddBalance("alice", usdc, core.U128From64(7)))
	_, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, store.AddPublicKey("alice", pub))

	view := &countingView{LedgerStore: store}
	cached := engine.NewCachedLedger(view)

	var n core.Nonce
	n[0] = 0x02
	for i := 0; i < 3; i++ {
		require.Equal(t, core.U128From64(7), cached.BalanceOf("alice", usdc))
		require.False(t, cached.IsNonceUsed("alice", n))
		require.True(t, cached.HasPublicKey("alice", pub))
	}

	require.Equal(t, 1, view.balanceReads)
	require.Equal(t, 1, view.nonceReads)
	require.Equal(t, 1, view.keyReads)
}

func TestOverlayKeyTracking(t *testing.T) {
	store := testutil.NewLedgerStore(overlayParams)
	_, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	cached := engine.NewCachedLedger(store)
	require.False(t, cached.HasPublicKey("alice", pub))
	require.NoError(t, cached.AddPublicKey("alice", pub))
	require.True(t, cached.HasPublicKey("alice", pub))
	require.ErrorIs(t, cached.AddPublicKey("alice", pub), core.ErrPublicKeyExists)

	require.NoError(t, cached.RemovePublicKey("alice", pub))
	require.False(t, cached.HasPublicKey("alice", pub))
	require.ErrorIs(t, cached.RemovePublicKey("alice", pub), core.ErrPublicKeyNotExist)

	// Removing a key that exists underneath shadows it in the overlay.
	require.NoError(t, store.AddPublicKey("bob", pub))
	require.NoError(t, cached.RemovePublicKey("bob", pub))
	require.False(t, cached.HasPublicKey("bob", pub))
	require.True(t, store.HasPublicKey("bob", pub))
}

func TestOverlayFlush(t *testing.T) {
	store := testutil.NewLedgerStore(overlayParams)
	usdc := core.FungibleToken("usdc")
	require.NoError(t, store.AddBalance("alice", usdc, core.U128From64(100)))

	now := time.Now()
	cached := engine.NewCachedLedger(store)

	var n core.Nonce
	n[0] = 0x03
	require.NoError(t, cached.CommitNonce("alice", n, now))
	require.NoError(t, cached.SubBalance("alice", usdc, core.U128From64(30)))
	require.NoError(t, cached.AddBalance("bob", usdc, core.U128From64(30)))

	_, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, cached.AddPublicKey("alice", pub))

	require.NoError(t, cached.Flush(store, now))

	require.Equal(t, core.U128From64(70), store.BalanceOf("alice", usdc))
	require.Equal(t, core.U128From64(30), store.BalanceOf("bob", usdc))
	require.True(t, store.IsNonceUsed("alice", n))
	require.True(t, store.HasPublicKey("alice", pub))
}

func TestOverlayClearExpiredNonce(t *testing.T) {
	store := testutil.NewLedgerStore(overlayParams)
	cached := engine.NewCachedLedger(store)

	deadline := time.Now()
	var seed [core.NonceSeedLen]byte
	n := core.PackExpirableNonce(deadline, seed)

	require.NoError(t, cached.CommitNonce("alice", n, deadline.Add(-time.Second)))
	require.False(t, cached.ClearExpiredNonce("alice", n, deadline.Add(-time.Millisecond)))
	require.True(t, cached.ClearExpiredNonce("alice", n, deadline.Add(time.Second)))
	require.False(t, cached.IsNonceUsed("alice", n))
}

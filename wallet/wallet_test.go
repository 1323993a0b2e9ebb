package wallet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solvernet/intentd/core"
	"github.com/solvernet/intentd/crypto"
)

func TestSignProducesVerifiablePayload(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)

	nonce, err := NewNonce()
	require.NoError(t, err)
	tokens := core.NewAmounts()
	_, err = tokens.Add(core.FungibleToken("usdc"), core.U128From64(5))
	require.NoError(t, err)
	intent, err := TransferIntent("bob", tokens, "hi")
	require.NoError(t, err)

	p := w.NewPayload("intents.test", time.Now().Add(time.Minute), nonce, intent)
	require.Equal(t, w.AccountID(), p.Signer)

	sp, err := w.Sign(p)
	require.NoError(t, err)
	require.Equal(t, w.PubKey(), sp.PublicKey)

	data, err := sp.Payload.SigningBytes()
	require.NoError(t, err)
	pk, ok := crypto.Ed25519Verifier{}.VerifyPayload(data, sp.PublicKey, sp.Signature)
	require.True(t, ok)
	require.Equal(t, w.PubKey(), pk.Hex())
}

func TestNewNonceAvoidsExpirableMarker(t *testing.T) {
	for i := 0; i < 64; i++ {
		n, err := NewNonce()
		require.NoError(t, err)
		require.False(t, core.IsExpirableNonce(n))
	}
}

func TestNewExpirableNonce(t *testing.T) {
	deadline := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	n, err := NewExpirableNonce(deadline)
	require.NoError(t, err)
	require.True(t, core.IsExpirableNonce(n))

	got, ok := core.NonceDeadline(n)
	require.True(t, ok)
	require.Equal(t, deadline.UnixMilli(), got.UnixMilli())
	require.False(t, core.NonceExpired(n, time.Now()))
}

func TestKeystoreRoundTrip(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "test.key")

	require.NoError(t, SaveKey(path, "hunter2", w.PrivKey()))

	priv, err := LoadKey(path, "hunter2")
	require.NoError(t, err)
	require.Equal(t, w.PubKey(), priv.Public().Hex())

	_, err = LoadKey(path, "wrong")
	require.Error(t, err)
}

func TestIntentConstructors(t *testing.T) {
	tok := core.FungibleToken("usdc")

	it, err := WithdrawIntent(tok, core.U128From64(9), "0xext", "memo")
	require.NoError(t, err)
	require.Equal(t, core.IntentWithdraw, it.Kind)

	it, err = TokenDiffIntent(map[core.TokenID]core.SignedAmount{
		tok: {Neg: true, Mag: core.U128From64(3)},
	}, "")
	require.NoError(t, err)
	require.Equal(t, core.IntentTokenDiff, it.Kind)

	_, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	it, err = AddPublicKeyIntent(pub)
	require.NoError(t, err)
	require.Equal(t, core.IntentAddPublicKey, it.Kind)
	it, err = RemovePublicKeyIntent(pub)
	require.NoError(t, err)
	require.Equal(t, core.IntentRemovePublicKey, it.Kind)
}

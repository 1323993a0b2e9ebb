package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testPayload() Payload {
	var n Nonce
	n[0] = 0x42
	return Payload{
		Signer:            "alice",
		VerifyingContract: "intents.dev",
		Deadline:          time.UnixMilli(1_700_000_000_000).UnixMilli(),
		Nonce:             n,
		Intents: []Intent{
			{Kind: IntentTransfer, Body: json.RawMessage(`{"receiver":"bob"}`)},
		},
	}
}

func TestSigningBytesDeterministic(t *testing.T) {
	p := testPayload()
	a, err := p.SigningBytes()
	require.NoError(t, err)
	b, err := p.SigningBytes()
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestSigningBytesCoverEveryField(t *testing.T) {
	base := testPayload()
	baseHash, err := base.Hash()
	require.NoError(t, err)

	mutations := []func(*Payload){
		func(p *Payload) { p.Signer = "mallory" },
		func(p *Payload) { p.VerifyingContract = "other.instance" },
		func(p *Payload) { p.Deadline++ },
		func(p *Payload) { p.Nonce[5] ^= 1 },
		func(p *Payload) { p.Intents[0].Kind = IntentWithdraw },
		func(p *Payload) { p.Intents[0].Body = json.RawMessage(`{"receiver":"eve"}`) },
		func(p *Payload) { p.Intents = nil },
	}
	for i, mutate := range mutations {
		p := testPayload()
		mutate(&p)
		h, err := p.Hash()
		require.NoError(t, err)
		require.NotEqual(t, baseHash, h, "mutation %d must change the hash", i)
	}
}

func TestPayloadExpired(t *testing.T) {
	p := testPayload()
	deadline := time.UnixMilli(p.Deadline)
	require.False(t, p.Expired(deadline))
	require.True(t, p.Expired(deadline.Add(time.Millisecond)))
}

func TestHashHexRoundTrip(t *testing.T) {
	var h Hash
	h[0], h[31] = 0xDE, 0xAD
	data, err := h.MarshalText()
	require.NoError(t, err)

	var back Hash
	require.NoError(t, back.UnmarshalText(data))
	require.Equal(t, h, back)

	require.Error(t, back.UnmarshalText([]byte("abcd")))
}

func TestSignedAmountText(t *testing.T) {
	d := SignedAmount{Neg: true, Mag: U128From64(7)}
	require.Equal(t, "-7", d.String())

	var back SignedAmount
	require.NoError(t, back.UnmarshalText([]byte("-7")))
	require.Equal(t, d, back)

	require.NoError(t, back.UnmarshalText([]byte("12")))
	require.Equal(t, SignedAmount{Mag: U128From64(12)}, back)

	// Negative zero normalises to zero.
	require.NoError(t, back.UnmarshalText([]byte("-0")))
	require.False(t, back.Neg)
	require.True(t, back.Mag.IsZero())
}

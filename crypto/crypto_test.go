package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyPairRoundTrip(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	require.NoError(t, err)
	require.Equal(t, pub.Hex(), priv.Public().Hex())
	require.Equal(t, pub.Hex(), pub.AccountID(), "implicit account id is the full pubkey hex")
	require.Len(t, pub.AccountID(), 64)

	back, err := PubKeyFromHex(pub.Hex())
	require.NoError(t, err)
	require.Equal(t, pub, back)

	privBack, err := PrivKeyFromHex(priv.Hex())
	require.NoError(t, err)
	require.Equal(t, priv, privBack)

	_, err = PubKeyFromHex("abcd")
	require.Error(t, err, "wrong length")
	_, err = PubKeyFromHex("zz")
	require.Error(t, err, "bad hex")
}

func TestSignVerify(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	require.NoError(t, err)
	msg := []byte("settle this")

	sig := Sign(priv, msg)
	require.NoError(t, Verify(pub, msg, sig))
	require.Error(t, Verify(pub, []byte("other message"), sig))

	_, otherPub, err := GenerateKeyPair()
	require.NoError(t, err)
	require.Error(t, Verify(otherPub, msg, sig))
}

func TestVerifierResolvesKey(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	require.NoError(t, err)
	msg := []byte("payload bytes")
	sig := Sign(priv, msg)

	got, ok := Ed25519Verifier{}.VerifyPayload(msg, pub.Hex(), sig)
	require.True(t, ok)
	require.Equal(t, pub, got)

	_, ok = Ed25519Verifier{}.VerifyPayload(msg, pub.Hex(), "00")
	require.False(t, ok)

	multi := MultiVerifier{Ed25519Verifier{}}
	got, ok = multi.VerifyPayload(msg, pub.Hex(), sig)
	require.True(t, ok)
	require.Equal(t, pub, got)
	_, ok = MultiVerifier{}.VerifyPayload(msg, pub.Hex(), sig)
	require.False(t, ok, "no scheme, no acceptance")
}

func TestBlake3Sum256(t *testing.T) {
	data := []byte("hash me")
	b := Blake3Sum256(data)
	require.Equal(t, Blake3Sum256(data), b, "deterministic")
	require.NotEqual(t, Blake3Sum256([]byte("hash you")), b)
}

package crypto

// Verifier checks a claimed (public key, signature) pair against payload
// signing bytes for one signature scheme. A verifier either resolves to the
// verified public key or rejects; it never inspects the payload semantics.
type Verifier interface {
	// VerifyPayload returns the verified public key, or ok=false if the
	// signature does not check out under this scheme.
	VerifyPayload(payload []byte, publicKeyHex, signatureHex string) (PublicKey, bool)
}

// Ed25519Verifier verifies ed25519 signatures over raw signing bytes.
type Ed25519Verifier struct{}

func (Ed25519Verifier) VerifyPayload(payload []byte, publicKeyHex, signatureHex string) (PublicKey, bool) {
	pub, err := PubKeyFromHex(publicKeyHex)
	if err != nil {
		return nil, false
	}
	if err := Verify(pub, payload, signatureHex); err != nil {
		return nil, false
	}
	return pub, true
}

// MultiVerifier tries several independent schemes in order and accepts the
// first one that resolves. Cross-chain payload kinds register their scheme
// here without the engine ever touching signature bytes.
type MultiVerifier []Verifier

func (m MultiVerifier) VerifyPayload(payload []byte, publicKeyHex, signatureHex string) (PublicKey, bool) {
	for _, v := range m {
		if pub, ok := v.VerifyPayload(payload, publicKeyHex, signatureHex); ok {
			return pub, true
		}
	}
	return nil, false
}

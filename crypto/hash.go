package crypto

import "github.com/zeebo/blake3"

// Blake3Sum256 returns the 32-byte BLAKE3 hash of data. Payload and intent
// hashes are BLAKE3 over the deterministic signing bytes.
func Blake3Sum256(data []byte) [32]byte {
	return blake3.Sum256(data)
}

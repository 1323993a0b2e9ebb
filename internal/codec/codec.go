// Package codec provides the canonical binary encoding used for payload
// signing bytes and storage records. Encoding is deterministic (CBOR core
// deterministic mode) so the same value always hashes to the same bytes.
package codec

import (
	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic("codec: " + err.Error())
	}
	encMode = mode
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into out.
func Unmarshal(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

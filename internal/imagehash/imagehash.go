// Package imagehash computes the content hash carried by the add command.
package imagehash

import (
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// Len is the hash size the image server expects.
const Len = 256

// Sum returns a Len-byte BLAKE3 digest of the image text.
func Sum(image string) []byte {
	h := blake3.New(Len, nil)
	_, _ = h.Write([]byte(image))
	return h.Sum(nil)
}

// ParseHex decodes a hex-encoded hash and checks its length.
func ParseHex(raw string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("imagehash: decode hex: %w", err)
	}
	if len(b) != Len {
		return nil, fmt.Errorf("imagehash: want %d bytes, got %d", Len, len(b))
	}
	return b, nil
}

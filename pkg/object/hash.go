package object

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// HashBytes computes the raw SHA-256 hash of data and returns it as a
// lowercase hex-encoded Hash.
func HashBytes(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashObject computes the SHA-256 of the envelope "type len\0content",
// mirroring Git's object hashing but with SHA-256.
func HashObject(objType ObjectType, data []byte) Hash {
	header := fmt.Sprintf("%s %d\x00", objType, len(data))
	h := sha256.New()
	h.Write([]byte(header))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashReader computes the object hash of size bytes streamed from r without
// buffering the whole content.
func HashReader(objType ObjectType, r io.Reader, size int64) (Hash, error) {
	header := fmt.Sprintf("%s %d\x00", objType, size)
	h := sha256.New()
	h.Write([]byte(header))
	n, err := io.Copy(h, r)
	if err != nil {
		return "", fmt.Errorf("hash reader: %w", err)
	}
	if n != size {
		return "", fmt.Errorf("hash reader: read %d bytes, expected %d", n, size)
	}
	return Hash(hex.EncodeToString(h.Sum(nil))), nil
}

// ValidateHash checks that a hash is a 64-character lowercase hex string.
func ValidateHash(h Hash) error {
	s := string(h)
	if s == "" {
		return fmt.Errorf("hash is empty")
	}
	if len(s) != 64 {
		return fmt.Errorf("hash length %d, expected 64", len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return fmt.Errorf("hash contains non-hex characters: %w", err)
	}
	return nil
}

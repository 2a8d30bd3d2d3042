package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PublicKeySize is the length of an ed25519 public key in bytes.
const PublicKeySize = 32

// PublicKey is a raw ed25519 public key.
type PublicKey [PublicKeySize]byte

// String returns the 0x-prefixed lowercase hex encoding.
func (k PublicKey) String() string {
	return "0x" + hex.EncodeToString(k[:])
}

// Bytes returns a copy of the key as a byte slice.
func (k PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeySize)
	copy(b, k[:])
	return b
}

// MarshalJSON encodes the key as a 0x-prefixed hex string.
func (k PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a hex string (with or without 0x) into a key.
func (k *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := HexToPublicKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// HexToPublicKey converts a hex string, optionally 0x-prefixed, to a PublicKey.
func HexToPublicKey(s string) (PublicKey, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid hex: %w", err)
	}
	return PublicKeyFromBytes(b)
}

// PublicKeyFromBytes copies a 32-byte slice into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	var k PublicKey
	copy(k[:], b)
	return k, nil
}

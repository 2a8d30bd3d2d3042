package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Address is a 160-bit account identifier on the legacy chain
// (the first 20 bytes of SHA-256 over the account's public key).
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the Lisk32 encoding (e.g. "lsk...").
func (a Address) String() string {
	s, err := Lisk32Encode(a[:])
	if err != nil {
		// Fallback to hex if encoding fails (should never happen).
		return a.Hex()
	}
	return s
}

// Hex returns the 0x-prefixed hex encoding.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// Less reports whether a sorts before b in unsigned byte order.
func (a Address) Less(b Address) bool {
	for i := 0; i < AddressSize; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// MarshalJSON encodes the address as a Lisk32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a Lisk32 or hex string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a Lisk32 address ("lsk...") or a 40-char hex address
// with optional 0x prefix.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}

	if strings.HasPrefix(s, Lisk32Prefix) {
		data, err := Lisk32Decode(s)
		if err != nil {
			return Address{}, fmt.Errorf("invalid lisk32 address: %w", err)
		}
		var a Address
		copy(a[:], data)
		return a, nil
	}

	return HexToAddress(s)
}

// ParseLisk32Address parses only the Lisk32 textual form.
// User-facing endpoints accept nothing else.
func ParseLisk32Address(s string) (Address, error) {
	data, err := Lisk32Decode(s)
	if err != nil {
		return Address{}, err
	}
	var a Address
	copy(a[:], data)
	return a, nil
}

// HexToAddress converts a hex string, optionally 0x-prefixed, to an Address.
func HexToAddress(s string) (Address, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

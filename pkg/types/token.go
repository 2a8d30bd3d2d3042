package types

import (
	"encoding/hex"
	"fmt"
)

// TokenIDSize is the length of a token identifier: 4-byte chain ID followed
// by a 4-byte local token ID.
const TokenIDSize = 8

// TokenID identifies a token in the legacy state store.
type TokenID [TokenIDSize]byte

// Well-known LSK token identifiers.
var (
	MainnetTokenID = TokenID{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	TestnetTokenID = TokenID{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
)

// String returns the hex-encoded token ID.
func (t TokenID) String() string {
	return hex.EncodeToString(t[:])
}

// HexToTokenID converts a 16-char hex string to a TokenID.
func HexToTokenID(s string) (TokenID, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return TokenID{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != TokenIDSize {
		return TokenID{}, fmt.Errorf("token id must be %d bytes, got %d", TokenIDSize, len(b))
	}
	var t TokenID
	copy(t[:], b)
	return t, nil
}

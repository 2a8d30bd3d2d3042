package snapshot

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"

	"github.com/Klingon-tech/token-claim/pkg/types"
)

const (
	storePrefixLength    = 4
	substorePrefixLength = 2
)

// Key prefixes of the user substore of the token and auth modules.
var (
	TokenPrefix = append(StorePrefix("token"), SubstorePrefix(0)...)
	AuthPrefix  = append(StorePrefix("auth"), SubstorePrefix(0)...)
)

// StorePrefix derives a module's 4-byte store prefix: the first four bytes
// of sha256(name) with the top bit cleared.
func StorePrefix(name string) []byte {
	h := sha256.Sum256([]byte(name))
	out := make([]byte, storePrefixLength)
	copy(out, h[:storePrefixLength])
	out[0] &= 0x7f
	return out
}

// SubstorePrefix encodes a substore index as its bit-reversed 16-bit
// big-endian value.
func SubstorePrefix(index uint16) []byte {
	out := make([]byte, substorePrefixLength)
	binary.BigEndian.PutUint16(out, bits.Reverse16(index))
	return out
}

// BalanceKey returns the token store key of (addr, tokenID).
func BalanceKey(addr types.Address, tokenID types.TokenID) []byte {
	key := make([]byte, 0, len(TokenPrefix)+types.AddressSize+types.TokenIDSize)
	key = append(key, TokenPrefix...)
	key = append(key, addr[:]...)
	key = append(key, tokenID[:]...)
	return key
}

// AuthKey returns the auth store key of addr.
func AuthKey(addr types.Address) []byte {
	key := make([]byte, 0, len(AuthPrefix)+types.AddressSize)
	key = append(key, AuthPrefix...)
	key = append(key, addr[:]...)
	return key
}

// IncrementAddress returns the address that follows addr in byte order.
// ok is false when addr is 0xFF...FF and no successor exists.
func IncrementAddress(addr types.Address) (next types.Address, ok bool) {
	next = addr
	for i := types.AddressSize - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			return next, true
		}
	}
	return types.Address{}, false
}

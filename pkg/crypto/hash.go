// Package crypto provides the hash and signature primitives used by the
// claim tree and the claim engine.
package crypto

import (
	"bytes"
	"crypto/sha256"

	"github.com/Klingon-tech/token-claim/pkg/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Sha256 computes a SHA-256 hash of the input data.
func Sha256(data []byte) types.Hash {
	return sha256.Sum256(data)
}

// Keccak256 computes the Ethereum Keccak-256 hash of the concatenated inputs.
func Keccak256(data ...[]byte) types.Hash {
	return types.Hash(ethcrypto.Keccak256Hash(data...))
}

// DoubleKeccak256 computes Keccak256(Keccak256(data)).
func DoubleKeccak256(data []byte) types.Hash {
	first := Keccak256(data)
	return Keccak256(first[:])
}

// AddressFromPubKey derives a legacy-chain address from an ed25519 public key.
// Address = SHA-256(pubkey)[:20].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Sha256(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}

// HashPair hashes two nodes in sorted order, so the result does not depend
// on which side each node sits.
func HashPair(a, b types.Hash) types.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Keccak256(buf[:])
}

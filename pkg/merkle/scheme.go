package merkle

import (
	"fmt"

	"github.com/Klingon-tech/token-claim/pkg/crypto"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Scheme selects the leaf encoding.
type Scheme int

const (
	// SchemeRegular encodes (bytes20 address, uint64 balance,
	// uint32 numberOfSignatures, bytes32[] mandatoryKeys, bytes32[] optionalKeys).
	SchemeRegular Scheme = iota
	// SchemeAirdrop encodes (bytes20 address, uint256 balance).
	SchemeAirdrop
)

// String returns the scheme name.
func (s Scheme) String() string {
	switch s {
	case SchemeRegular:
		return "regular"
	case SchemeAirdrop:
		return "airdrop"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

var (
	regularArgs abi.Arguments
	airdropArgs abi.Arguments
)

func init() {
	regularArgs = mustArguments("bytes20", "uint64", "uint32", "bytes32[]", "bytes32[]")
	airdropArgs = mustArguments("bytes20", "uint256")
}

func mustArguments(typeNames ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(typeNames))
	for _, name := range typeNames {
		typ, err := abi.NewType(name, "", nil)
		if err != nil {
			panic(fmt.Sprintf("merkle: abi type %s: %v", name, err))
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args
}

// Types returns the Solidity type list of the scheme, as written to artifacts.
func (s Scheme) Types() []string {
	switch s {
	case SchemeRegular:
		return []string{"bytes20", "uint64", "uint32", "bytes32[]", "bytes32[]"}
	case SchemeAirdrop:
		return []string{"bytes20", "uint256"}
	default:
		return nil
	}
}

// EncodeLeaf ABI-encodes a record as the scheme's tuple.
func EncodeLeaf(scheme Scheme, rec *types.AccountRecord) ([]byte, error) {
	addr := [types.AddressSize]byte(rec.Address)

	switch scheme {
	case SchemeRegular:
		if !rec.Balance.IsUint64() {
			return nil, fmt.Errorf("%w: %s has balance %s", ErrBalanceOverflow, rec.Address, rec.Balance.Dec())
		}
		payload, err := regularArgs.Pack(
			addr,
			rec.Balance.Uint64(),
			rec.NumberOfSignatures,
			keysToWords(rec.MandatoryKeys),
			keysToWords(rec.OptionalKeys),
		)
		if err != nil {
			return nil, fmt.Errorf("encode leaf %s: %w", rec.Address, err)
		}
		return payload, nil

	case SchemeAirdrop:
		payload, err := airdropArgs.Pack(addr, rec.Balance.ToBig())
		if err != nil {
			return nil, fmt.Errorf("encode leaf %s: %w", rec.Address, err)
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
}

// LeafHash computes keccak256(keccak256(payload)).
func LeafHash(payload []byte) types.Hash {
	return crypto.DoubleKeccak256(payload)
}

// HashPair hashes two nodes in sorted order.
func HashPair(a, b types.Hash) types.Hash {
	return crypto.HashPair(a, b)
}

// keysToWords converts keys to the plain array type the ABI packer expects.
// An empty input yields an empty, non-nil slice so it packs as a zero-length array.
func keysToWords(keys []types.PublicKey) [][32]byte {
	out := make([][32]byte, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}

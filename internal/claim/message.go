package claim

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/token-claim/pkg/crypto"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// messagePadding is appended to the digest before signing.
const messagePadding = 9

var messageArgs abi.Arguments

func init() {
	bytes32, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		panic(err)
	}
	address, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	messageArgs = abi.Arguments{{Type: bytes32}, {Type: address}}
}

// ClaimMessage returns the bytes a key holder signs to authorize a claim of
// the leaf with leafHash to destination:
// keccak256(abi.encode(bytes32 leafHash, address destination)) ++ 9 zero bytes.
func ClaimMessage(leafHash types.Hash, destination common.Address) []byte {
	packed, err := messageArgs.Pack([32]byte(leafHash), destination)
	if err != nil {
		// Both arguments are fixed-size values of the declared types.
		panic(fmt.Sprintf("claim: pack message: %v", err))
	}
	digest := crypto.Keccak256(packed)

	msg := make([]byte, types.HashSize+messagePadding)
	copy(msg, digest[:])
	return msg
}

// SignMessage signs the claim message and returns the signature halves.
func SignMessage(signer crypto.Signer, leafHash types.Hash, destination common.Address) (r, s types.Hash, err error) {
	sig, err := signer.Sign(ClaimMessage(leafHash, destination))
	if err != nil {
		return types.Hash{}, types.Hash{}, err
	}
	if len(sig) != crypto.SignatureSize {
		return types.Hash{}, types.Hash{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureSize, len(sig))
	}
	copy(r[:], sig[:32])
	copy(s[:], sig[32:])
	return r, s, nil
}

// ParseDestination validates an EVM address and returns it in checksum form.
// All-lowercase and all-uppercase hex is accepted; mixed case must match the
// EIP-55 checksum.
func ParseDestination(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidDestination, s)
	}
	body := types.Strip0x(s)
	addr := common.HexToAddress(body)
	if strings.ToLower(body) != body && strings.ToUpper(body) != body {
		if addr.Hex()[2:] != body {
			return common.Address{}, fmt.Errorf("%w: bad checksum %q", ErrInvalidDestination, s)
		}
	}
	return addr, nil
}

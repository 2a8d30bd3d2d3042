package wallet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Klingon-tech/token-claim/pkg/crypto"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/anyproto/go-slip10"
	"github.com/tyler-smith/go-bip32"
)

// Derivation path constants. Full path: m/44'/134'/index'
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinTypeLisk is the registered Lisk coin type (hardened).
	CoinTypeLisk = bip32.FirstHardenedChild + 134
)

// HDKey is a node of an ed25519 (SLIP-10) key tree, held as the seed and
// the hardened path leading to it. Only hardened derivation exists on
// this curve.
type HDKey struct {
	seed []byte
	path []uint32
}

// NewMasterKey creates a master key from a seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) < 16 || len(seed) > SeedSize {
		return nil, fmt.Errorf("seed must be 16 to %d bytes, got %d", SeedSize, len(seed))
	}
	return &HDKey{seed: append([]byte(nil), seed...)}, nil
}

// DeriveChild derives the hardened child at index. index must include
// bip32.FirstHardenedChild.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	if index < bip32.FirstHardenedChild {
		return nil, fmt.Errorf("derive child %d: ed25519 supports hardened derivation only", index)
	}
	path := make([]uint32, len(k.path), len(k.path)+1)
	copy(path, k.path)
	return &HDKey{seed: k.seed, path: append(path, index)}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveIndex derives the key at m/44'/134'/index'.
func (k *HDKey) DeriveIndex(index uint32) (*HDKey, error) {
	return k.DerivePath(PurposeBIP44, CoinTypeLisk, bip32.FirstHardenedChild+index)
}

// PrivateKey returns the ed25519 key for this node.
func (k *HDKey) PrivateKey() (*crypto.PrivateKey, error) {
	if len(k.path) == 0 {
		node, err := slip10.NewMasterNode(k.seed)
		if err != nil {
			return nil, fmt.Errorf("slip10 master: %w", err)
		}
		_, priv := node.Keypair()
		return crypto.PrivateKeyFromSeed(priv.Seed())
	}
	node, err := slip10.DeriveForPath(k.Path(), k.seed)
	if err != nil {
		return nil, fmt.Errorf("slip10 derive %s: %w", k.Path(), err)
	}
	_, priv := node.Keypair()
	return crypto.PrivateKeyFromSeed(priv.Seed())
}

// Address derives the account address of this node's public key.
func (k *HDKey) Address() (types.Address, error) {
	priv, err := k.PrivateKey()
	if err != nil {
		return types.Address{}, err
	}
	return crypto.AddressFromPubKey(priv.PublicKey()), nil
}

// Path returns the node's derivation path, e.g. "m/44'/134'/0'".
func (k *HDKey) Path() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, idx := range k.path {
		sb.WriteString("/")
		sb.WriteString(strconv.FormatUint(uint64(idx-bip32.FirstHardenedChild), 10))
		sb.WriteString("'")
	}
	return sb.String()
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return uint8(len(k.path))
}

// ParsePath parses a path like "m/44'/134'/0'". Every segment must be
// hardened.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("path %q must start with m", path)
	}
	out := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		trimmed := strings.TrimRight(p, "'H")
		if trimmed == p {
			return nil, fmt.Errorf("path %q: segment %q is not hardened", path, p)
		}
		n, err := strconv.ParseUint(trimmed, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("path %q: segment %q: %w", path, p, err)
		}
		out = append(out, bip32.FirstHardenedChild+uint32(n))
	}
	return out, nil
}

// DeriveFromPhrase derives the ed25519 key at path from a phrase and
// optional passphrase.
func DeriveFromPhrase(phrase, passphrase, path string) (*crypto.PrivateKey, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	master, err := NewMasterKey(SeedFromPhrase(phrase, passphrase))
	if err != nil {
		return nil, err
	}
	node, err := master.DerivePath(indices...)
	if err != nil {
		return nil, err
	}
	return node.PrivateKey()
}

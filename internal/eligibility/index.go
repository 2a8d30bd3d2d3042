// Package eligibility provides lookup maps over a loaded claim tree.
package eligibility

import (
	"sync/atomic"

	"github.com/Klingon-tech/token-claim/internal/artifact"
	klog "github.com/Klingon-tech/token-claim/internal/log"
	"github.com/Klingon-tech/token-claim/pkg/crypto"
	"github.com/Klingon-tech/token-claim/pkg/merkle"
	"github.com/Klingon-tech/token-claim/pkg/types"
)

// Index maps addresses to their leaf, and multisig members to the accounts
// they can help authorize. An Index is immutable once built.
type Index struct {
	root      types.Hash
	leaves    []merkle.Leaf
	byAddress map[types.Address]*merkle.Leaf
	byMember  map[types.Address][]*merkle.Leaf
}

// NewIndex builds an index over leaves. The slice must not be modified
// afterwards.
func NewIndex(root types.Hash, leaves []merkle.Leaf) *Index {
	idx := &Index{
		root:      root,
		leaves:    leaves,
		byAddress: make(map[types.Address]*merkle.Leaf, len(leaves)),
		byMember:  make(map[types.Address][]*merkle.Leaf),
	}

	multisig := 0
	for i := range leaves {
		leaf := &leaves[i]
		idx.byAddress[leaf.Address] = leaf
		if !leaf.IsMultisig() {
			continue
		}
		multisig++

		seen := make(map[types.Address]struct{})
		for _, keys := range [][]types.PublicKey{leaf.MandatoryKeys, leaf.OptionalKeys} {
			for _, k := range keys {
				member := crypto.AddressFromPubKey(k[:])
				if _, dup := seen[member]; dup {
					continue
				}
				seen[member] = struct{}{}
				idx.byMember[member] = append(idx.byMember[member], leaf)
			}
		}
	}

	klog.Index.Debug().
		Int("leaves", len(leaves)).
		Int("multisig", multisig).
		Int("members", len(idx.byMember)).
		Msg("Index built")
	return idx
}

// FromTree builds an index over a built or loaded tree.
func FromTree(tree *merkle.Tree) *Index {
	return NewIndex(tree.Root, tree.Leaves)
}

// Root returns the Merkle root the index was built from.
func (idx *Index) Root() types.Hash {
	return idx.root
}

// Len returns the number of leaves.
func (idx *Index) Len() int {
	return len(idx.leaves)
}

// Lookup returns the leaf of addr.
func (idx *Index) Lookup(addr types.Address) (*merkle.Leaf, bool) {
	leaf, ok := idx.byAddress[addr]
	return leaf, ok
}

// MultisigFor returns the multisig leaves that list addr's key as a member.
func (idx *Index) MultisigFor(addr types.Address) []*merkle.Leaf {
	return idx.byMember[addr]
}

// AirdropIndex maps addresses to airdrop leaves.
type AirdropIndex struct {
	root      types.Hash
	byAddress map[types.Address]*merkle.Leaf
}

// NewAirdropIndex builds an airdrop index over leaves.
func NewAirdropIndex(root types.Hash, leaves []merkle.Leaf) *AirdropIndex {
	idx := &AirdropIndex{
		root:      root,
		byAddress: make(map[types.Address]*merkle.Leaf, len(leaves)),
	}
	for i := range leaves {
		idx.byAddress[leaves[i].Address] = &leaves[i]
	}
	return idx
}

// Root returns the Merkle root the index was built from.
func (idx *AirdropIndex) Root() types.Hash {
	return idx.root
}

// Lookup returns the airdrop leaf of addr.
func (idx *AirdropIndex) Lookup(addr types.Address) (*merkle.Leaf, bool) {
	leaf, ok := idx.byAddress[addr]
	return leaf, ok
}

// Holder owns the current index. Swap replaces it atomically, so readers
// see either the old or the new index and never a partial one.
type Holder[T any] struct {
	current atomic.Pointer[T]
}

// NewHolder creates a holder with an initial value (may be nil).
func NewHolder[T any](initial *T) *Holder[T] {
	h := &Holder[T]{}
	h.current.Store(initial)
	return h
}

// Load returns the current index, or nil if none is loaded.
func (h *Holder[T]) Load() *T {
	return h.current.Load()
}

// Swap installs next and returns the previous index.
func (h *Holder[T]) Swap(next *T) *T {
	return h.current.Swap(next)
}

// LoadTreeFile reads and verifies a detailed tree file and indexes it.
func LoadTreeFile(path string) (*Index, error) {
	tree, err := artifact.ReadTree(path)
	if err != nil {
		return nil, err
	}
	idx := FromTree(tree)
	klog.Index.Info().
		Str("root", idx.Root().String()).
		Int("leaves", idx.Len()).
		Str("path", path).
		Msg("Claim tree loaded")
	return idx, nil
}

// LoadAirdropTreeFile reads and verifies a detailed airdrop tree file and
// indexes it.
func LoadAirdropTreeFile(path string) (*AirdropIndex, error) {
	tree, err := artifact.ReadAirdropTree(path)
	if err != nil {
		return nil, err
	}
	klog.Index.Info().
		Str("root", tree.Root.String()).
		Int("leaves", len(tree.Leaves)).
		Str("path", path).
		Msg("Airdrop tree loaded")
	return NewAirdropIndex(tree.Root, tree.Leaves), nil
}

// Package merkle builds the sorted-pair Merkle tree over eligible accounts
// and verifies proofs against its root.
//
// The layout matches the standard tree consumed by on-chain verifiers:
// leaf hashes are sorted, stored from the end of an implicit heap array of
// size 2n-1, and every internal node is the sorted-pair hash of its children.
package merkle

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/holiman/uint256"
)

// Leaf is one encoded account in the tree.
type Leaf struct {
	Address            types.Address
	Balance            uint256.Int
	NumberOfSignatures uint32
	MandatoryKeys      []types.PublicKey
	OptionalKeys       []types.PublicKey

	Hash  types.Hash
	Proof []types.Hash
}

// IsMultisig reports whether the leaf belongs to a multisignature account.
func (l *Leaf) IsMultisig() bool {
	return l.NumberOfSignatures > 0
}

// KeyIndex locates key among the mandatory keys followed by the optional
// keys, or returns -1.
func (l *Leaf) KeyIndex(key types.PublicKey) int {
	rec := l.Record()
	return rec.KeyIndex(key)
}

// OptionalQuota is the number of optional signatures that complete the quorum.
func (l *Leaf) OptionalQuota() int {
	return int(l.NumberOfSignatures) - len(l.MandatoryKeys)
}

// Record returns the account fields of the leaf.
func (l *Leaf) Record() types.AccountRecord {
	return types.AccountRecord{
		Address:            l.Address,
		Balance:            l.Balance,
		NumberOfSignatures: l.NumberOfSignatures,
		MandatoryKeys:      l.MandatoryKeys,
		OptionalKeys:       l.OptionalKeys,
	}
}

// Tree is a built Merkle tree. Leaves keep the input order.
type Tree struct {
	Scheme Scheme
	Root   types.Hash
	Leaves []Leaf

	nodes []types.Hash
}

// Build encodes every record under scheme and builds the tree.
// Records must be strictly ascending by address.
func Build(scheme Scheme, records []types.AccountRecord) (*Tree, error) {
	if len(records) == 0 {
		return nil, ErrNoLeaves
	}
	for i := 1; i < len(records); i++ {
		if !records[i-1].Address.Less(records[i].Address) {
			return nil, fmt.Errorf("%w: %s at index %d follows %s",
				ErrOrderingViolation, records[i].Address, i, records[i-1].Address)
		}
	}

	leaves := make([]Leaf, len(records))
	for i := range records {
		rec := &records[i]
		payload, err := EncodeLeaf(scheme, rec)
		if err != nil {
			return nil, err
		}
		leaves[i] = Leaf{
			Address:            rec.Address,
			Balance:            rec.Balance,
			NumberOfSignatures: rec.NumberOfSignatures,
			MandatoryKeys:      rec.MandatoryKeys,
			OptionalKeys:       rec.OptionalKeys,
			Hash:               LeafHash(payload),
		}
	}

	// Sort leaf positions by hash; position k of the sorted list lives at
	// nodes[len(nodes)-1-k].
	order := make([]int, len(leaves))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return bytes.Compare(leaves[order[a]].Hash[:], leaves[order[b]].Hash[:]) < 0
	})

	n := len(leaves)
	nodes := make([]types.Hash, 2*n-1)
	treeIndex := make([]int, n)
	for k, idx := range order {
		pos := len(nodes) - 1 - k
		nodes[pos] = leaves[idx].Hash
		treeIndex[idx] = pos
	}
	for i := len(nodes) - 1 - n; i >= 0; i-- {
		nodes[i] = HashPair(nodes[2*i+1], nodes[2*i+2])
	}

	for i := range leaves {
		leaves[i].Proof = proofFor(nodes, treeIndex[i])
	}

	return &Tree{
		Scheme: scheme,
		Root:   nodes[0],
		Leaves: leaves,
		nodes:  nodes,
	}, nil
}

// proofFor collects the sibling hashes from the node at pos up to the root.
func proofFor(nodes []types.Hash, pos int) []types.Hash {
	proof := make([]types.Hash, 0)
	for pos > 0 {
		sibling := pos - 1
		if pos%2 == 1 {
			sibling = pos + 1
		}
		proof = append(proof, nodes[sibling])
		pos = (pos - 1) / 2
	}
	return proof
}

// Leaf returns the leaf for addr, if present.
func (t *Tree) Leaf(addr types.Address) (*Leaf, bool) {
	i := sort.Search(len(t.Leaves), func(i int) bool {
		return !t.Leaves[i].Address.Less(addr)
	})
	if i < len(t.Leaves) && t.Leaves[i].Address == addr {
		return &t.Leaves[i], true
	}
	return nil, false
}

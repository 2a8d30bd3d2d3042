package merkle

import "github.com/Klingon-tech/token-claim/pkg/types"

// ProcessProof folds proof into leaf and returns the implied root.
func ProcessProof(leaf types.Hash, proof []types.Hash) types.Hash {
	h := leaf
	for _, sibling := range proof {
		h = HashPair(h, sibling)
	}
	return h
}

// Verify reports whether payload, hashed as a leaf, is proven by proof under root.
func Verify(root types.Hash, payload []byte, proof []types.Hash) bool {
	return ProcessProof(LeafHash(payload), proof) == root
}

// VerifyLeaf re-encodes a leaf under scheme and checks both its stored hash
// and its proof against root.
func VerifyLeaf(scheme Scheme, root types.Hash, leaf *Leaf) error {
	rec := leaf.Record()
	payload, err := EncodeLeaf(scheme, &rec)
	if err != nil {
		return err
	}
	if h := LeafHash(payload); h != leaf.Hash {
		return &LeafMismatchError{Address: leaf.Address, Reason: "hash mismatch"}
	}
	if !Verify(root, payload, leaf.Proof) {
		return &LeafMismatchError{Address: leaf.Address, Reason: "proof does not reach root"}
	}
	return nil
}

// LeafMismatchError describes a leaf that does not verify against a root.
type LeafMismatchError struct {
	Address types.Address
	Reason  string
}

func (e *LeafMismatchError) Error() string {
	return "merkle: leaf " + e.Address.String() + ": " + e.Reason
}

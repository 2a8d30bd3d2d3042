// Package artifact reads and writes the JSON files produced by tree builds:
// the detailed and lightweight tree results, the root file and the account
// snapshot.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Klingon-tech/token-claim/pkg/merkle"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/holiman/uint256"
)

// Output file names.
const (
	DetailedFile = "merkle-tree-result-detailed.json"
	LightFile    = "merkle-tree-result.json"
	RootFile     = "merkle-root.json"
	AccountsFile = "accounts.json"
)

// ErrCorrupt is returned when a loaded artifact does not verify.
var ErrCorrupt = errors.New("artifact: corrupt tree file")

// Leaf is one entry of a detailed regular tree file.
type Leaf struct {
	LskAddress         types.Address     `json:"lskAddress"`
	Address            string            `json:"address"`
	BalanceBeddows     string            `json:"balanceBeddows"`
	NumberOfSignatures uint32            `json:"numberOfSignatures"`
	MandatoryKeys      []types.PublicKey `json:"mandatoryKeys"`
	OptionalKeys       []types.PublicKey `json:"optionalKeys"`
	Hash               types.Hash        `json:"hash"`
	Proof              []types.Hash      `json:"proof"`
}

// AirdropLeaf is one entry of a detailed airdrop tree file.
type AirdropLeaf struct {
	LskAddress types.Address `json:"lskAddress"`
	Address    string        `json:"address"`
	BalanceWei string        `json:"balanceWei"`
	Hash       types.Hash    `json:"hash"`
	Proof      []types.Hash  `json:"proof"`
}

// lightLeaf is one entry of a lightweight regular tree file.
type lightLeaf struct {
	B32Address         string            `json:"b32Address"`
	BalanceBeddows     string            `json:"balanceBeddows"`
	MandatoryKeys      []types.PublicKey `json:"mandatoryKeys"`
	NumberOfSignatures uint32            `json:"numberOfSignatures"`
	OptionalKeys       []types.PublicKey `json:"optionalKeys"`
	Proof              []types.Hash      `json:"proof"`
}

// lightAirdropLeaf is one entry of a lightweight airdrop tree file.
type lightAirdropLeaf struct {
	B32Address string       `json:"b32Address"`
	BalanceWei string       `json:"balanceWei"`
	Proof      []types.Hash `json:"proof"`
}

type treeFile[L any] struct {
	MerkleRoot types.Hash `json:"merkleRoot"`
	Leaves     []L        `json:"leaves"`
}

type rootFile struct {
	MerkleRoot types.Hash `json:"merkleRoot"`
}

// WriteTree writes the detailed, lightweight and root files of tree into dir.
func WriteTree(dir string, tree *merkle.Tree) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var detailed, light any
	switch tree.Scheme {
	case merkle.SchemeRegular:
		d := treeFile[Leaf]{MerkleRoot: tree.Root, Leaves: make([]Leaf, len(tree.Leaves))}
		l := treeFile[lightLeaf]{MerkleRoot: tree.Root, Leaves: make([]lightLeaf, len(tree.Leaves))}
		for i := range tree.Leaves {
			d.Leaves[i] = leafToJSON(&tree.Leaves[i])
			l.Leaves[i] = lightLeaf{
				B32Address:         d.Leaves[i].Address,
				BalanceBeddows:     d.Leaves[i].BalanceBeddows,
				MandatoryKeys:      d.Leaves[i].MandatoryKeys,
				NumberOfSignatures: d.Leaves[i].NumberOfSignatures,
				OptionalKeys:       d.Leaves[i].OptionalKeys,
				Proof:              d.Leaves[i].Proof,
			}
		}
		detailed, light = d, l

	case merkle.SchemeAirdrop:
		d := treeFile[AirdropLeaf]{MerkleRoot: tree.Root, Leaves: make([]AirdropLeaf, len(tree.Leaves))}
		l := treeFile[lightAirdropLeaf]{MerkleRoot: tree.Root, Leaves: make([]lightAirdropLeaf, len(tree.Leaves))}
		for i := range tree.Leaves {
			d.Leaves[i] = airdropLeafToJSON(&tree.Leaves[i])
			l.Leaves[i] = lightAirdropLeaf{
				B32Address: d.Leaves[i].Address,
				BalanceWei: d.Leaves[i].BalanceWei,
				Proof:      d.Leaves[i].Proof,
			}
		}
		detailed, light = d, l

	default:
		return fmt.Errorf("%w: %s", merkle.ErrUnknownScheme, tree.Scheme)
	}

	if err := writeJSON(filepath.Join(dir, DetailedFile), detailed); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, LightFile), light); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, RootFile), rootFile{MerkleRoot: tree.Root})
}

// ReadTree loads a detailed regular tree file and verifies every leaf hash
// and proof against the stored root.
func ReadTree(path string) (*merkle.Tree, error) {
	var f treeFile[Leaf]
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	tree := &merkle.Tree{Scheme: merkle.SchemeRegular, Root: f.MerkleRoot, Leaves: make([]merkle.Leaf, len(f.Leaves))}
	for i := range f.Leaves {
		leaf, err := leafFromJSON(&f.Leaves[i])
		if err != nil {
			return nil, fmt.Errorf("%w: leaf %d: %v", ErrCorrupt, i, err)
		}
		tree.Leaves[i] = leaf
	}
	if err := verifyTree(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// ReadAirdropTree loads a detailed airdrop tree file and verifies it.
func ReadAirdropTree(path string) (*merkle.Tree, error) {
	var f treeFile[AirdropLeaf]
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	tree := &merkle.Tree{Scheme: merkle.SchemeAirdrop, Root: f.MerkleRoot, Leaves: make([]merkle.Leaf, len(f.Leaves))}
	for i, l := range f.Leaves {
		bal, err := uint256.FromDecimal(l.BalanceWei)
		if err != nil {
			return nil, fmt.Errorf("%w: leaf %d: balance %q: %v", ErrCorrupt, i, l.BalanceWei, err)
		}
		tree.Leaves[i] = merkle.Leaf{Address: l.LskAddress, Balance: *bal, Hash: l.Hash, Proof: l.Proof}
	}
	if err := verifyTree(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// ReadRoot loads a root file.
func ReadRoot(path string) (types.Hash, error) {
	var f rootFile
	if err := readJSON(path, &f); err != nil {
		return types.Hash{}, err
	}
	return f.MerkleRoot, nil
}

func verifyTree(tree *merkle.Tree) error {
	if len(tree.Leaves) == 0 {
		return fmt.Errorf("%w: no leaves", ErrCorrupt)
	}
	for i := range tree.Leaves {
		if i > 0 && !tree.Leaves[i-1].Address.Less(tree.Leaves[i].Address) {
			return fmt.Errorf("%w: %v at leaf %d", ErrCorrupt, merkle.ErrOrderingViolation, i)
		}
		if err := merkle.VerifyLeaf(tree.Scheme, tree.Root, &tree.Leaves[i]); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return nil
}

func leafToJSON(l *merkle.Leaf) Leaf {
	return Leaf{
		LskAddress:         l.Address,
		Address:            l.Address.Hex(),
		BalanceBeddows:     l.Balance.Dec(),
		NumberOfSignatures: l.NumberOfSignatures,
		MandatoryKeys:      nonNilKeys(l.MandatoryKeys),
		OptionalKeys:       nonNilKeys(l.OptionalKeys),
		Hash:               l.Hash,
		Proof:              l.Proof,
	}
}

func airdropLeafToJSON(l *merkle.Leaf) AirdropLeaf {
	return AirdropLeaf{
		LskAddress: l.Address,
		Address:    l.Address.Hex(),
		BalanceWei: l.Balance.Dec(),
		Hash:       l.Hash,
		Proof:      l.Proof,
	}
}

func leafFromJSON(l *Leaf) (merkle.Leaf, error) {
	if l.Address != "" {
		hexAddr, err := types.HexToAddress(l.Address)
		if err != nil {
			return merkle.Leaf{}, err
		}
		if hexAddr != l.LskAddress {
			return merkle.Leaf{}, fmt.Errorf("address %s does not match %s", l.Address, l.LskAddress)
		}
	}
	bal, err := uint256.FromDecimal(l.BalanceBeddows)
	if err != nil {
		return merkle.Leaf{}, fmt.Errorf("balance %q: %w", l.BalanceBeddows, err)
	}
	return merkle.Leaf{
		Address:            l.LskAddress,
		Balance:            *bal,
		NumberOfSignatures: l.NumberOfSignatures,
		MandatoryKeys:      l.MandatoryKeys,
		OptionalKeys:       l.OptionalKeys,
		Hash:               l.Hash,
		Proof:              l.Proof,
	}, nil
}

func nonNilKeys(keys []types.PublicKey) []types.PublicKey {
	if keys == nil {
		return []types.PublicKey{}
	}
	return keys
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrCorrupt, path, err)
	}
	return nil
}

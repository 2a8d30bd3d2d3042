package artifact

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Klingon-tech/token-claim/pkg/merkle"
	"github.com/Klingon-tech/token-claim/pkg/types"
)

func sampleRecords() []types.AccountRecord {
	recs := make([]types.AccountRecord, 4)
	for i := range recs {
		recs[i].Address = types.Address{byte(i + 1), 0x13: 0x42}
		recs[i].Balance.SetUint64(uint64(i+1) * 100_000_000)
	}
	recs[2].NumberOfSignatures = 2
	recs[2].MandatoryKeys = []types.PublicKey{{0xaa}}
	recs[2].OptionalKeys = []types.PublicKey{{0xbb}, {0xcc}}
	return recs
}

func TestWriteReadTree(t *testing.T) {
	dir := t.TempDir()
	tree, err := merkle.Build(merkle.SchemeRegular, sampleRecords())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := WriteTree(dir, tree); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	loaded, err := ReadTree(filepath.Join(dir, DetailedFile))
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if loaded.Root != tree.Root {
		t.Errorf("root = %s, want %s", loaded.Root, tree.Root)
	}
	if len(loaded.Leaves) != len(tree.Leaves) {
		t.Fatalf("leaves = %d, want %d", len(loaded.Leaves), len(tree.Leaves))
	}
	ms := loaded.Leaves[2]
	if !ms.IsMultisig() || len(ms.OptionalKeys) != 2 || ms.OptionalKeys[1] != (types.PublicKey{0xcc}) {
		t.Errorf("multisig leaf = %+v", ms)
	}

	root, err := ReadRoot(filepath.Join(dir, RootFile))
	if err != nil || root != tree.Root {
		t.Errorf("ReadRoot = %s, %v", root, err)
	}
}

func TestWriteTree_Format(t *testing.T) {
	dir := t.TempDir()
	tree, _ := merkle.Build(merkle.SchemeRegular, sampleRecords())
	if err := WriteTree(dir, tree); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, DetailedFile))
	if err != nil {
		t.Fatal(err)
	}
	var raw struct {
		MerkleRoot string                   `json:"merkleRoot"`
		Leaves     []map[string]interface{} `json:"leaves"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.HasPrefix(raw.MerkleRoot, "0x") || len(raw.MerkleRoot) != 66 {
		t.Errorf("merkleRoot = %s", raw.MerkleRoot)
	}
	first := raw.Leaves[0]
	if !strings.HasPrefix(first["lskAddress"].(string), "lsk") {
		t.Errorf("lskAddress = %v", first["lskAddress"])
	}
	if first["address"] != "0x0100000000000000000000000000000000000042" {
		t.Errorf("address = %v", first["address"])
	}
	if first["balanceBeddows"] != "100000000" {
		t.Errorf("balanceBeddows = %v", first["balanceBeddows"])
	}
	if keys, ok := first["mandatoryKeys"].([]interface{}); !ok || len(keys) != 0 {
		t.Errorf("mandatoryKeys = %v, want empty array", first["mandatoryKeys"])
	}

	light, err := os.ReadFile(filepath.Join(dir, LightFile))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(light), `"hash"`) || !strings.Contains(string(light), `"b32Address"`) {
		t.Errorf("lightweight file has unexpected shape: %s", light)
	}
}

func TestWriteReadAirdropTree(t *testing.T) {
	dir := t.TempDir()
	recs := sampleRecords()
	for i := range recs {
		recs[i].NumberOfSignatures = 0
		recs[i].MandatoryKeys = nil
		recs[i].OptionalKeys = nil
	}
	tree, err := merkle.Build(merkle.SchemeAirdrop, recs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := WriteTree(dir, tree); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	loaded, err := ReadAirdropTree(filepath.Join(dir, DetailedFile))
	if err != nil {
		t.Fatalf("ReadAirdropTree: %v", err)
	}
	if loaded.Root != tree.Root || len(loaded.Leaves) != 4 {
		t.Errorf("loaded tree mismatch")
	}

	data, _ := os.ReadFile(filepath.Join(dir, LightFile))
	if !strings.Contains(string(data), `"balanceWei"`) {
		t.Errorf("lightweight airdrop file missing balanceWei: %s", data)
	}
}

func TestReadTree_Tampered(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(f *treeFile[Leaf])
	}{
		{"balance", func(f *treeFile[Leaf]) { f.Leaves[1].BalanceBeddows = "1" }},
		{"root", func(f *treeFile[Leaf]) { f.MerkleRoot[0] ^= 0xff }},
		{"proof", func(f *treeFile[Leaf]) { f.Leaves[0].Proof[0][5] ^= 0x01 }},
		{"hex address", func(f *treeFile[Leaf]) { f.Leaves[0].Address = "0x" + strings.Repeat("00", 20) }},
		{"order", func(f *treeFile[Leaf]) { f.Leaves[0], f.Leaves[1] = f.Leaves[1], f.Leaves[0] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tree, _ := merkle.Build(merkle.SchemeRegular, sampleRecords())
			if err := WriteTree(dir, tree); err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(dir, DetailedFile)

			var f treeFile[Leaf]
			if err := readJSON(path, &f); err != nil {
				t.Fatal(err)
			}
			tt.tamper(&f)
			if err := writeJSON(path, f); err != nil {
				t.Fatal(err)
			}

			if _, err := ReadTree(path); !errors.Is(err, ErrCorrupt) {
				t.Errorf("ReadTree error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestReadTree_Missing(t *testing.T) {
	if _, err := ReadTree(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAccountsRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), AccountsFile)
	recs := sampleRecords()
	if err := WriteAccounts(path, recs); err != nil {
		t.Fatalf("WriteAccounts: %v", err)
	}
	got, err := ReadAccounts(path)
	if err != nil {
		t.Fatalf("ReadAccounts: %v", err)
	}
	if len(got) != len(recs) {
		t.Fatalf("got %d accounts", len(got))
	}
	for i := range recs {
		if got[i].Address != recs[i].Address || !got[i].Balance.Eq(&recs[i].Balance) {
			t.Errorf("account %d mismatch", i)
		}
	}
	if got[2].NumberOfSignatures != 2 || len(got[2].MandatoryKeys) != 1 {
		t.Errorf("multisig fields lost: %+v", got[2])
	}
}

func TestReadAccounts_ExternalFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), AccountsFile)
	content := `[
		{"lskAddress": "lskbqdbu354hz87mnc7pddk8ywef33jnuqc5odhbp", "balanceBeddows": "12345"},
		{"lskAddress": "lskhysxtgcjjen7tsn8su64y3fs85knymvugw3wyt", "balanceBeddows": "7",
		 "numberOfSignatures": 1,
		 "mandatoryKeys": ["d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"],
		 "optionalKeys": []}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadAccounts(path)
	if err != nil {
		t.Fatalf("ReadAccounts: %v", err)
	}
	if len(got) != 2 || got[0].Balance.Uint64() != 12345 || got[1].MandatoryKeys[0][0] != 0xd7 {
		t.Errorf("unexpected accounts %+v", got)
	}
}

func TestWriteAirdropAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), AccountsFile)
	recs := sampleRecords()[:1]
	if err := WriteAirdropAccounts(path, recs); err != nil {
		t.Fatalf("WriteAirdropAccounts: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"balanceWei": "100000000"`) {
		t.Errorf("unexpected content %s", data)
	}
	got, err := ReadAccounts(path)
	if err != nil || got[0].Balance.Uint64() != 100_000_000 {
		t.Errorf("ReadAccounts = %+v, %v", got, err)
	}
}

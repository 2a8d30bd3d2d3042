package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Klingon-tech/token-claim/internal/claim"
	"github.com/Klingon-tech/token-claim/pkg/crypto"
	"github.com/Klingon-tech/token-claim/pkg/merkle"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// Example data defaults.
const (
	DefaultExamplePhrase = "lisk"
	DefaultExampleAmount = 100

	// DefaultExampleRecipient is the first contract address deployed by the
	// default Anvil/Ganache mnemonic.
	DefaultExampleRecipient = "0x34A1D3fff3958843C43aD80F30b94c510645C316"

	// exampleBalanceBytes bounds random balances to 2^40 beddows.
	exampleBalanceBytes = 5
)

// exampleMultisig describes the multisig accounts appended after the
// regular ones.
var exampleMultisig = []struct {
	numberOfSignatures uint32
	mandatory          int
	optional           int
}{
	{3, 3, 0},
	{2, 1, 2},
	{5, 3, 3},
	{64, 64, 0},
}

// ExampleKey is one derived example key pair.
type ExampleKey struct {
	Address    types.Address   `json:"address"`
	KeyPath    string          `json:"keyPath"`
	PublicKey  types.PublicKey `json:"publicKey"`
	PrivateKey string          `json:"privateKey"`
}

// SigPair is one signer's signature over a claim message.
type SigPair struct {
	PubKey types.PublicKey `json:"pubKey"`
	R      types.Hash      `json:"r"`
	S      types.Hash      `json:"s"`
}

// ExampleSignature holds the claim message of one leaf and the signatures
// of every key able to authorize it.
type ExampleSignature struct {
	Message string    `json:"message"`
	Sigs    []SigPair `json:"sigs"`
}

// CreateKeyPairs derives amount keys at m/44'/134'/i'.
func CreateKeyPairs(phrase, passphrase string, amount int) ([]ExampleKey, error) {
	master, err := NewMasterKey(SeedFromPhrase(phrase, passphrase))
	if err != nil {
		return nil, err
	}
	keys := make([]ExampleKey, 0, amount)
	for i := 0; i < amount; i++ {
		node, err := master.DeriveIndex(uint32(i))
		if err != nil {
			return nil, err
		}
		priv, err := node.PrivateKey()
		if err != nil {
			return nil, err
		}
		pub, err := types.PublicKeyFromBytes(priv.PublicKey())
		if err != nil {
			return nil, err
		}
		addr, err := node.Address()
		if err != nil {
			return nil, err
		}
		keys = append(keys, ExampleKey{
			Address:    addr,
			KeyPath:    fmt.Sprintf("m/44'/134'/%d'", i),
			PublicKey:  pub,
			PrivateKey: hex.EncodeToString(priv.Bytes()),
		})
	}
	return keys, nil
}

// CreateAccounts builds numberOfAccounts example accounts with random
// balances read from rnd (crypto/rand when nil). Holders are taken from keys
// in address order; the last accounts are multisig accounts whose members
// are keys[0:] in derivation order.
func CreateAccounts(keys []ExampleKey, numberOfAccounts int, rnd io.Reader) ([]types.AccountRecord, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	if numberOfAccounts < len(exampleMultisig) || numberOfAccounts > len(keys) {
		return nil, fmt.Errorf("need between %d and %d accounts, got %d",
			len(exampleMultisig), len(keys), numberOfAccounts)
	}
	for _, m := range exampleMultisig {
		if m.mandatory+m.optional > len(keys) {
			return nil, fmt.Errorf("need at least %d keys, got %d", m.mandatory+m.optional, len(keys))
		}
	}

	sorted := append([]ExampleKey(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Address.Less(sorted[j].Address)
	})

	regular := numberOfAccounts - len(exampleMultisig)
	out := make([]types.AccountRecord, 0, numberOfAccounts)
	for i := 0; i < numberOfAccounts; i++ {
		rec := types.AccountRecord{Address: sorted[i].Address}
		bal, err := randomBalance(rnd)
		if err != nil {
			return nil, err
		}
		rec.Balance.SetUint64(bal)

		if i >= regular {
			m := exampleMultisig[i-regular]
			rec.NumberOfSignatures = m.numberOfSignatures
			for k := 0; k < m.mandatory; k++ {
				rec.MandatoryKeys = append(rec.MandatoryKeys, keys[k].PublicKey)
			}
			for k := 0; k < m.optional; k++ {
				rec.OptionalKeys = append(rec.OptionalKeys, keys[m.mandatory+k].PublicKey)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func randomBalance(rnd io.Reader) (uint64, error) {
	var buf [exampleBalanceBytes]byte
	if _, err := io.ReadFull(rnd, buf[:]); err != nil {
		return 0, fmt.Errorf("random balance: %w", err)
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// SignAccounts signs every leaf of tree for recipient. Regular leaves are
// signed by the holder's own key, multisig leaves by every member key.
func SignAccounts(keys []ExampleKey, tree *merkle.Tree, recipient common.Address) ([]ExampleSignature, error) {
	byAddress := make(map[types.Address]*ExampleKey, len(keys))
	byPubKey := make(map[types.PublicKey]*ExampleKey, len(keys))
	for i := range keys {
		byAddress[keys[i].Address] = &keys[i]
		byPubKey[keys[i].PublicKey] = &keys[i]
	}

	out := make([]ExampleSignature, 0, len(tree.Leaves))
	for i := range tree.Leaves {
		leaf := &tree.Leaves[i]
		msg := claim.ClaimMessage(leaf.Hash, recipient)

		var signers []*ExampleKey
		if leaf.IsMultisig() {
			for _, pk := range append(append([]types.PublicKey{}, leaf.MandatoryKeys...), leaf.OptionalKeys...) {
				k, ok := byPubKey[pk]
				if !ok {
					return nil, fmt.Errorf("leaf %s: no example key for %s", leaf.Address, pk)
				}
				signers = append(signers, k)
			}
		} else {
			k, ok := byAddress[leaf.Address]
			if !ok {
				return nil, fmt.Errorf("leaf %s: no example key", leaf.Address)
			}
			signers = append(signers, k)
		}

		sig := ExampleSignature{Message: "0x" + hex.EncodeToString(msg)}
		for _, k := range signers {
			pair, err := k.sign(leaf.Hash, recipient)
			if err != nil {
				return nil, fmt.Errorf("leaf %s: %w", leaf.Address, err)
			}
			sig.Sigs = append(sig.Sigs, pair)
		}
		out = append(out, sig)
	}
	return out, nil
}

func (k *ExampleKey) sign(leafHash types.Hash, recipient common.Address) (SigPair, error) {
	raw, err := hex.DecodeString(k.PrivateKey)
	if err != nil {
		return SigPair{}, fmt.Errorf("decode private key: %w", err)
	}
	priv, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return SigPair{}, err
	}
	defer priv.Zero()

	r, s, err := claim.SignMessage(priv, leafHash, recipient)
	if err != nil {
		return SigPair{}, err
	}
	return SigPair{PubKey: k.PublicKey, R: r, S: s}, nil
}

// SaveJSON writes v to path as indented JSON.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadKeyPairs reads a key pairs file written by SaveJSON.
func LoadKeyPairs(path string) ([]ExampleKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var keys []ExampleKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return keys, nil
}

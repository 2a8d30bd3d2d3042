// derive_key.go prints the public key and Lisk32 address for a hex-encoded
// ed25519 private key file, or for a phrase and derivation path.
// Usage:
//
//	go run scripts/derive_key.go <keyfile>
//	go run scripts/derive_key.go -phrase "<words>" [-path "m/44'/134'/0'"]
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/token-claim/internal/wallet"
	"github.com/Klingon-tech/token-claim/pkg/crypto"
)

func main() {
	phrase := flag.String("phrase", "", "Derive from this phrase instead of a key file")
	passphrase := flag.String("passphrase", "", "Optional BIP-39 passphrase")
	path := flag.String("path", "m/44'/134'/0'", "Derivation path")
	flag.Parse()

	var (
		key *crypto.PrivateKey
		err error
	)
	switch {
	case *phrase != "":
		key, err = wallet.DeriveFromPhrase(*phrase, *passphrase, *path)
	case flag.NArg() == 1:
		key, err = readKeyFile(flag.Arg(0))
	default:
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile> | -phrase <words> [-path <path>]")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	pub := key.PublicKey()
	addr := crypto.AddressFromPubKey(pub)
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(pub))
	fmt.Printf("address=%s\n", addr.String())
	fmt.Printf("address_hex=%s\n", addr.Hex())
}

func readKeyFile(path string) (*crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(data)), "0x"))
	if err != nil {
		return nil, err
	}
	return crypto.PrivateKeyFromBytes(keyBytes)
}

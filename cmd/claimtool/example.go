package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/token-claim/config"
	"github.com/Klingon-tech/token-claim/internal/artifact"
	"github.com/Klingon-tech/token-claim/internal/claim"
	klog "github.com/Klingon-tech/token-claim/internal/log"
	"github.com/Klingon-tech/token-claim/internal/wallet"
	"github.com/Klingon-tech/token-claim/pkg/merkle"
)

const (
	keyPairsFile   = "key-pairs.json"
	signaturesFile = "signatures.json"
)

func exampleDir(cfg *config.Config) (string, error) {
	dir := cfg.ExampleDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create example dir: %w", err)
	}
	return dir, nil
}

// ── example-keys ────────────────────────────────────────────────────────

func cmdExampleKeys(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("example-keys", flag.ExitOnError)
	phrase := fs.String("phrase", wallet.DefaultExamplePhrase, "Phrase the keys are derived from")
	passphrase := fs.String("passphrase", "", "Optional BIP-39 passphrase")
	generate := fs.Bool("generate", false, "Derive from a freshly generated 24-word mnemonic")
	amount := fs.Int("amount", wallet.DefaultExampleAmount, "Number of key pairs")
	fs.Parse(args)

	if *generate {
		mnemonic, err := wallet.GenerateMnemonic()
		if err != nil {
			return err
		}
		*phrase = mnemonic
		fmt.Printf("Mnemonic: %s\n", mnemonic)
	}

	if len(strings.Fields(*phrase)) > 1 && !wallet.IsMnemonic(*phrase) {
		klog.Logger.Warn().Msg("Phrase is not a valid BIP-39 mnemonic, deriving anyway")
	}

	keys, err := wallet.CreateKeyPairs(*phrase, *passphrase, *amount)
	if err != nil {
		return err
	}
	dir, err := exampleDir(cfg)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, keyPairsFile)
	if err := wallet.SaveJSON(path, keys); err != nil {
		return err
	}
	fmt.Printf("%d key pairs written to %s\n", len(keys), path)
	return nil
}

// ── example-accounts ────────────────────────────────────────────────────

func cmdExampleAccounts(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("example-accounts", flag.ExitOnError)
	keysPath := fs.String("keys", "", "Key pairs file (default: <example dir>/"+keyPairsFile+")")
	amount := fs.Int("amount", wallet.DefaultExampleAmount, "Number of accounts (the last 4 are multisig)")
	fs.Parse(args)

	dir, err := exampleDir(cfg)
	if err != nil {
		return err
	}
	if *keysPath == "" {
		*keysPath = filepath.Join(dir, keyPairsFile)
	}
	keys, err := wallet.LoadKeyPairs(*keysPath)
	if err != nil {
		return err
	}

	accounts, err := wallet.CreateAccounts(keys, *amount, nil)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, artifact.AccountsFile)
	if err := artifact.WriteAccounts(path, accounts); err != nil {
		return err
	}
	fmt.Printf("Sample accounts written to %s\n", path)

	return buildAndWrite(merkle.SchemeRegular, accounts, dir)
}

// ── example-sign ────────────────────────────────────────────────────────

func cmdExampleSign(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("example-sign", flag.ExitOnError)
	keysPath := fs.String("keys", "", "Key pairs file (default: <example dir>/"+keyPairsFile+")")
	treePath := fs.String("tree", "", "Detailed tree (default: <example dir>/"+artifact.DetailedFile+")")
	recipient := fs.String("recipient", wallet.DefaultExampleRecipient, "Destination address the leaves are signed for")
	fs.Parse(args)

	dir, err := exampleDir(cfg)
	if err != nil {
		return err
	}
	if *keysPath == "" {
		*keysPath = filepath.Join(dir, keyPairsFile)
	}
	if *treePath == "" {
		*treePath = filepath.Join(dir, artifact.DetailedFile)
	}

	dest, err := claim.ParseDestination(*recipient)
	if err != nil {
		return err
	}
	keys, err := wallet.LoadKeyPairs(*keysPath)
	if err != nil {
		return err
	}
	tree, err := artifact.ReadTree(*treePath)
	if err != nil {
		return err
	}

	sigs, err := wallet.SignAccounts(keys, tree, dest)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, signaturesFile)
	if err := wallet.SaveJSON(path, sigs); err != nil {
		return err
	}
	fmt.Printf("Signatures for %d leaves written to %s\n", len(sigs), path)
	return nil
}

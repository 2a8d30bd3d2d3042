package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/Klingon-tech/token-claim/config"
	"github.com/Klingon-tech/token-claim/internal/artifact"
	"github.com/Klingon-tech/token-claim/internal/claim"
	"github.com/Klingon-tech/token-claim/internal/eligibility"
	klog "github.com/Klingon-tech/token-claim/internal/log"
	"github.com/Klingon-tech/token-claim/internal/sigstore"
	"github.com/Klingon-tech/token-claim/internal/storage"
	"github.com/Klingon-tech/token-claim/pkg/crypto"
	"github.com/Klingon-tech/token-claim/pkg/merkle"
	"github.com/Klingon-tech/token-claim/pkg/types"
)

// claimEngine bundles an engine with the index it serves and a cleanup.
type claimEngine struct {
	*claim.Engine
	index *eligibility.Index
	close func() error
}

func openEngine(ctx context.Context, cfg *config.Config) (*claimEngine, error) {
	treePath := cfg.Claim.Tree
	if treePath == "" {
		treePath = filepath.Join(cfg.OutputDir(), artifact.DetailedFile)
	}
	idx, err := eligibility.LoadTreeFile(treePath)
	if err != nil {
		return nil, err
	}

	var opts []claim.Option
	if cfg.Claim.AirdropTree != "" {
		airdropIdx, err := eligibility.LoadAirdropTreeFile(cfg.Claim.AirdropTree)
		if err != nil {
			return nil, err
		}
		opts = append(opts, claim.WithAirdropIndex(eligibility.NewHolder(airdropIdx)))
	}

	store, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &claimEngine{
		Engine: claim.NewEngine(eligibility.NewHolder(idx), store, opts...),
		index:  idx,
		close:  closeFn,
	}, nil
}

// openStore opens the configured signature store and returns its closer.
func openStore(ctx context.Context, cfg *config.Config) (sigstore.Store, func() error, error) {
	switch cfg.Claim.Store {
	case config.StorePostgres:
		pg, err := sigstore.OpenPostgres(ctx, cfg.Claim.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		db, err := storage.NewBadger(cfg.SignaturesDir())
		if err != nil {
			return nil, nil, fmt.Errorf("open signature store: %w", err)
		}
		return sigstore.NewKVStore(db), db.Close, nil
	}
}

// ── check ───────────────────────────────────────────────────────────────

func cmdCheck(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: claimtool check <lisk32 address>")
	}
	address := fs.Arg(0)

	e, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.CheckEligibility(ctx, address)
	if err != nil {
		return err
	}

	fmt.Printf("Merkle root: %s\n", e.index.Root())
	if res.Account == nil {
		fmt.Println("Account:     not in tree")
	} else {
		printLeaf("Account", res.Account.Leaf, res.Account.Ready)
	}
	for _, acc := range res.MultisigAccounts {
		printLeaf("Member of", acc.Leaf, acc.Ready)
	}
	if len(res.Signatures) > 0 {
		fmt.Println("Signatures:")
		for _, sig := range res.Signatures {
			kind := "mandatory"
			if sig.IsOptional {
				kind = "optional"
			}
			fmt.Printf("  %s  %s -> %s (%s)\n", sig.Account, sig.Signer, sig.Destination.Hex(), kind)
		}
	}

	if cfg.Claim.AirdropTree != "" {
		leaf, err := e.CheckAirdropEligibility(address)
		if err != nil {
			return err
		}
		if leaf == nil {
			fmt.Println("Airdrop:     not eligible")
		} else {
			fmt.Printf("Airdrop:     %s wei\n", leaf.Balance.Dec())
		}
	}
	return nil
}

func printLeaf(label string, leaf *merkle.Leaf, ready bool) {
	fmt.Printf("%-12s %s\n", label+":", leaf.Address)
	fmt.Printf("  Balance:   %s beddows\n", leaf.Balance.Dec())
	if leaf.IsMultisig() {
		fmt.Printf("  Multisig:  %d of %d mandatory + %d optional keys\n",
			leaf.NumberOfSignatures, len(leaf.MandatoryKeys), len(leaf.OptionalKeys))
		fmt.Printf("  Ready:     %v\n", ready)
	}
}

// ── submit ──────────────────────────────────────────────────────────────

func cmdSubmit(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	account := fs.String("account", "", "Lisk32 address of the multisig account")
	destination := fs.String("destination", "", "EVM address receiving the claim")
	publicKey := fs.String("public-key", "", "Signer's ed25519 public key (hex)")
	r := fs.String("r", "", "Signature R (hex)")
	s := fs.String("s", "", "Signature S (hex)")
	privateKey := fs.String("private-key", "", "Sign locally with this hex private key instead of --public-key/--r/--s")
	fs.Parse(args)

	if *account == "" || *destination == "" {
		return errors.New("usage: claimtool submit --account <lsk...> --destination <0x...> (--public-key <hex> --r <hex> --s <hex> | --private-key <hex>)")
	}

	e, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.close()

	req := claim.SubmitRequest{
		Account:     *account,
		Destination: *destination,
		PublicKey:   *publicKey,
		R:           *r,
		S:           *s,
	}
	if *privateKey != "" {
		if err := signLocally(e.index, &req, *privateKey); err != nil {
			return err
		}
	}

	res, err := e.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Signature recorded. Ready to claim: %v\n", res.Ready)
	return nil
}

func signLocally(idx *eligibility.Index, req *claim.SubmitRequest, keyHex string) error {
	raw, err := types.DecodeHex(keyHex)
	if err != nil {
		return fmt.Errorf("decode private key: %w", err)
	}
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return err
	}
	defer key.Zero()

	addr, err := types.ParseLisk32Address(req.Account)
	if err != nil {
		return fmt.Errorf("%w: %v", claim.ErrInvalidAddress, err)
	}
	leaf, ok := idx.Lookup(addr)
	if !ok {
		return fmt.Errorf("%w: %s is not in the tree", claim.ErrInvalidAddress, req.Account)
	}
	dest, err := claim.ParseDestination(req.Destination)
	if err != nil {
		return err
	}

	rHash, sHash, err := claim.SignMessage(key, leaf.Hash, dest)
	if err != nil {
		return err
	}
	pub, err := types.PublicKeyFromBytes(key.PublicKey())
	if err != nil {
		return err
	}
	req.PublicKey = pub.String()
	req.R = rHash.String()
	req.S = sHash.String()
	return nil
}

// ── reset-signatures ────────────────────────────────────────────────────

func cmdResetSignatures(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("reset-signatures", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm deleting every collected signature")
	fs.Parse(args)

	if !*yes {
		return errors.New("refusing to delete signatures without --yes")
	}

	store, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := store.Reset(ctx)
	if err != nil {
		return err
	}
	klog.Claim.Info().Int("deleted", n).Str("store", string(cfg.Claim.Store)).Msg("Signatures reset")
	fmt.Printf("Deleted %d signatures\n", n)
	return nil
}

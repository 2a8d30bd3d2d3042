package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Klingon-tech/token-claim/config"
	"github.com/Klingon-tech/token-claim/internal/airdrop"
	"github.com/Klingon-tech/token-claim/internal/artifact"
	klog "github.com/Klingon-tech/token-claim/internal/log"
	"github.com/Klingon-tech/token-claim/internal/snapshot"
	"github.com/Klingon-tech/token-claim/internal/storage"
	"github.com/Klingon-tech/token-claim/pkg/merkle"
	"github.com/Klingon-tech/token-claim/pkg/types"
)

// ── snapshot ────────────────────────────────────────────────────────────

func cmdSnapshot(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	fs.Parse(args)

	accounts, err := takeSnapshot(ctx, cfg)
	if err != nil {
		return err
	}
	out, err := outputDir(cfg)
	if err != nil {
		return err
	}
	path := filepath.Join(out, artifact.AccountsFile)
	if err := artifact.WriteAccounts(path, accounts); err != nil {
		return err
	}
	fmt.Printf("Account snapshot written to %s (%d accounts)\n", path, len(accounts))
	return nil
}

// takeSnapshot scans the configured state store for the configured token.
func takeSnapshot(ctx context.Context, cfg *config.Config) ([]types.AccountRecord, error) {
	if cfg.Snapshot.DBPath == "" {
		return nil, errors.New("state store path is required (--db or snapshot.db)")
	}
	path, err := airdrop.ExpandHome(cfg.Snapshot.DBPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("state store %s: %w", path, err)
	}
	tokenID, err := cfg.TokenID()
	if err != nil {
		return nil, err
	}

	db, err := storage.OpenBadgerReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	defer db.Close()

	klog.Snapshot.Info().Str("path", path).Str("token", tokenID.String()).Msg("Reading state store")
	scanner := snapshot.NewScanner(db, snapshot.WithPageSize(cfg.Snapshot.PageSize))
	accounts, err := scanner.Snapshot(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("state store has 0 accounts for token %s, check the token id or local chain status", tokenID)
	}
	return accounts, nil
}

func outputDir(cfg *config.Config) (string, error) {
	dir := cfg.OutputDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return dir, nil
}

// ── build ───────────────────────────────────────────────────────────────

func cmdBuild(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	accountsPath := fs.String("accounts", "", "Accounts file (default: <output>/accounts.json)")
	fromDB := fs.Bool("from-db", false, "Snapshot the state store instead of reading an accounts file")
	fs.Parse(args)

	out, err := outputDir(cfg)
	if err != nil {
		return err
	}

	var accounts []types.AccountRecord
	if *fromDB {
		accounts, err = takeSnapshot(ctx, cfg)
		if err != nil {
			return err
		}
		if err := artifact.WriteAccounts(filepath.Join(out, artifact.AccountsFile), accounts); err != nil {
			return err
		}
	} else {
		path := *accountsPath
		if path == "" {
			path = filepath.Join(out, artifact.AccountsFile)
		}
		accounts, err = artifact.ReadAccounts(path)
		if err != nil {
			return err
		}
	}

	return buildAndWrite(merkle.SchemeRegular, accounts, out)
}

func buildAndWrite(scheme merkle.Scheme, accounts []types.AccountRecord, out string) error {
	done := klog.Benchmark("build " + scheme.String() + " tree")
	tree, err := merkle.Build(scheme, accounts)
	done()
	if err != nil {
		return err
	}
	if err := artifact.WriteTree(out, tree); err != nil {
		return err
	}
	klog.Merkle.Info().
		Str("scheme", scheme.String()).
		Str("root", tree.Root.String()).
		Int("leaves", len(tree.Leaves)).
		Msg("Tree written")
	fmt.Printf("Merkle root: %s\n", tree.Root)
	fmt.Printf("Leaves:      %d\n", len(tree.Leaves))
	fmt.Printf("Written to:  %s\n", out)
	return nil
}

// ── airdrop ─────────────────────────────────────────────────────────────

func cmdAirdrop(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("airdrop", flag.ExitOnError)
	accountsPath := fs.String("accounts", "", "Snapshot accounts file (default: snapshot the state store)")
	cutOff := fs.String("cutoff", "", "Minimum LSK balance to take part")
	whaleCap := fs.String("whale-cap", "", "LSK balance cap per account")
	percent := fs.Uint64("percent", 0, "Percentage of the capped balance allocated")
	excluded := fs.String("excluded", "", "File of addresses excluded from the airdrop")
	outFlag := fs.String("out", "", "Output directory (default: <output>/airdrop)")
	fs.Parse(args)

	if *cutOff != "" {
		cfg.Airdrop.CutOff = *cutOff
	}
	if *whaleCap != "" {
		cfg.Airdrop.WhaleCap = *whaleCap
	}
	if *percent != 0 {
		cfg.Airdrop.Percent = *percent
	}
	if *excluded != "" {
		cfg.Airdrop.Excluded = *excluded
	}
	params, err := cfg.AirdropParams()
	if err != nil {
		return err
	}

	var accounts []types.AccountRecord
	if *accountsPath != "" {
		accounts, err = artifact.ReadAccounts(*accountsPath)
	} else {
		accounts, err = takeSnapshot(ctx, cfg)
	}
	if err != nil {
		return err
	}

	klog.Airdrop.Info().
		Str("cutoff", cfg.Airdrop.CutOff).
		Str("whaleCap", cfg.Airdrop.WhaleCap).
		Uint64("percent", params.Percent).
		Int("excluded", len(params.Excluded)).
		Msg("Applying airdrop rules")
	allocations, err := airdrop.Apply(accounts, params)
	if err != nil {
		return err
	}

	out := *outFlag
	if out == "" {
		out = filepath.Join(cfg.OutputDir(), "airdrop")
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := artifact.WriteAirdropAccounts(filepath.Join(out, artifact.AccountsFile), allocations); err != nil {
		return err
	}
	return buildAndWrite(merkle.SchemeAirdrop, allocations, out)
}

// ── verify ──────────────────────────────────────────────────────────────

func cmdVerify(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	file := fs.String("file", "", "Detailed tree artifact (default: <output>/"+artifact.DetailedFile+")")
	isAirdrop := fs.Bool("airdrop", false, "The artifact is an airdrop tree")
	rootFile := fs.String("root", "", "Root file to compare against")
	fs.Parse(args)

	path := *file
	if path == "" {
		path = filepath.Join(cfg.OutputDir(), artifact.DetailedFile)
	}

	var (
		tree *merkle.Tree
		err  error
	)
	if *isAirdrop {
		tree, err = artifact.ReadAirdropTree(path)
	} else {
		tree, err = artifact.ReadTree(path)
	}
	if err != nil {
		return err
	}

	if *rootFile != "" {
		root, err := artifact.ReadRoot(*rootFile)
		if err != nil {
			return err
		}
		if root != tree.Root {
			return fmt.Errorf("%w: root file %s does not match tree root %s", artifact.ErrCorrupt, root, tree.Root)
		}
	}

	fmt.Printf("Verified %d proofs against root %s\n", len(tree.Leaves), tree.Root)
	return nil
}

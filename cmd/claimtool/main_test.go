package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Klingon-tech/token-claim/config"
	"github.com/Klingon-tech/token-claim/internal/artifact"
	"github.com/Klingon-tech/token-claim/internal/claim"
	"github.com/Klingon-tech/token-claim/internal/wallet"
	"github.com/Klingon-tech/token-claim/pkg/merkle"
	"github.com/rs/zerolog"
)

// Silence component loggers during tests.
func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultTestnet()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestExampleFlow(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	if err := cmdExampleKeys(cfg, []string{"-amount", "70"}); err != nil {
		t.Fatalf("example-keys: %v", err)
	}
	if err := cmdExampleAccounts(cfg, []string{"-amount", "70"}); err != nil {
		t.Fatalf("example-accounts: %v", err)
	}
	if err := cmdExampleSign(cfg, nil); err != nil {
		t.Fatalf("example-sign: %v", err)
	}

	treePath := filepath.Join(cfg.ExampleDir(), artifact.DetailedFile)
	rootPath := filepath.Join(cfg.ExampleDir(), artifact.RootFile)
	if err := cmdVerify(cfg, []string{"-file", treePath, "-root", rootPath}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	keys, err := wallet.LoadKeyPairs(filepath.Join(cfg.ExampleDir(), keyPairsFile))
	if err != nil {
		t.Fatal(err)
	}
	tree, err := artifact.ReadTree(treePath)
	if err != nil {
		t.Fatal(err)
	}

	// The 1 mandatory + 2 optional account needs two signatures.
	var target *merkle.Leaf
	for i := range tree.Leaves {
		if tree.Leaves[i].NumberOfSignatures == 2 {
			target = &tree.Leaves[i]
		}
	}
	if target == nil {
		t.Fatal("no 2-of-3 multisig leaf")
	}

	cfg.Claim.Tree = treePath
	submit := func(key wallet.ExampleKey) error {
		return cmdSubmit(ctx, cfg, []string{
			"-account", target.Address.String(),
			"-destination", wallet.DefaultExampleRecipient,
			"-private-key", key.PrivateKey,
		})
	}

	if err := submit(keys[0]); err != nil {
		t.Fatalf("submit mandatory: %v", err)
	}
	if err := submit(keys[0]); !errors.Is(err, claim.ErrAlreadySigned) {
		t.Errorf("resubmit error = %v, want ErrAlreadySigned", err)
	}
	if err := submit(keys[1]); err != nil {
		t.Fatalf("submit optional: %v", err)
	}
	if err := submit(keys[2]); !errors.Is(err, claim.ErrQuotaReached) {
		t.Errorf("second optional error = %v, want ErrQuotaReached", err)
	}
	if err := submit(keys[5]); !errors.Is(err, claim.ErrKeyNotAuthorized) {
		t.Errorf("outsider error = %v, want ErrKeyNotAuthorized", err)
	}

	check := func() *claim.Eligibility {
		t.Helper()
		e, err := openEngine(ctx, cfg)
		if err != nil {
			t.Fatalf("openEngine: %v", err)
		}
		defer e.close()
		res, err := e.CheckEligibility(ctx, target.Address.String())
		if err != nil {
			t.Fatalf("CheckEligibility: %v", err)
		}
		return res
	}

	res := check()
	if res.Account == nil || !res.Account.Ready {
		t.Errorf("account not ready: %+v", res.Account)
	}
	if len(res.Signatures) != 2 {
		t.Errorf("signatures = %d, want 2", len(res.Signatures))
	}

	if err := cmdResetSignatures(ctx, cfg, nil); err == nil {
		t.Error("reset-signatures without --yes should fail")
	}
	if err := cmdResetSignatures(ctx, cfg, []string{"-yes"}); err != nil {
		t.Fatalf("reset-signatures: %v", err)
	}
	res = check()
	if res.Account == nil || res.Account.Ready || len(res.Signatures) != 0 {
		t.Errorf("after reset: account %+v, %d signatures", res.Account, len(res.Signatures))
	}
	if err := submit(keys[0]); err != nil {
		t.Errorf("submit after reset: %v", err)
	}
}

func TestBuildFromAccounts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tree.Output = filepath.Join(cfg.DataDir, "out")

	if err := cmdExampleKeys(cfg, []string{"-amount", "66"}); err != nil {
		t.Fatal(err)
	}
	if err := cmdExampleAccounts(cfg, []string{"-amount", "66"}); err != nil {
		t.Fatal(err)
	}
	accounts := filepath.Join(cfg.ExampleDir(), artifact.AccountsFile)
	if err := cmdBuild(context.Background(), cfg, []string{"-accounts", accounts}); err != nil {
		t.Fatalf("build: %v", err)
	}

	built, err := artifact.ReadRoot(filepath.Join(cfg.Tree.Output, artifact.RootFile))
	if err != nil {
		t.Fatal(err)
	}
	example, err := artifact.ReadRoot(filepath.Join(cfg.ExampleDir(), artifact.RootFile))
	if err != nil {
		t.Fatal(err)
	}
	if built != example {
		t.Errorf("rebuilt root %s differs from %s", built, example)
	}
}

func TestAirdropFromAccounts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Airdrop.CutOff = "0"

	if err := cmdExampleKeys(cfg, []string{"-amount", "66"}); err != nil {
		t.Fatal(err)
	}
	if err := cmdExampleAccounts(cfg, []string{"-amount", "66"}); err != nil {
		t.Fatal(err)
	}
	accounts := filepath.Join(cfg.ExampleDir(), artifact.AccountsFile)
	if err := cmdAirdrop(context.Background(), cfg, []string{"-accounts", accounts}); err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	treePath := filepath.Join(cfg.OutputDir(), "airdrop", artifact.DetailedFile)
	if err := cmdVerify(cfg, []string{"-airdrop", "-file", treePath}); err != nil {
		t.Fatalf("verify airdrop: %v", err)
	}
}

func TestSnapshotRequiresDB(t *testing.T) {
	cfg := testConfig(t)
	if err := cmdSnapshot(context.Background(), cfg, nil); err == nil {
		t.Error("expected error without a state store path")
	}
}

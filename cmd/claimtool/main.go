// claimtool snapshots legacy token balances, builds claim merkle trees and
// collects multisig claim signatures.
//
// Usage:
//
//	claimtool [global options] <command> [command options]
//	claimtool --help
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/token-claim/config"
	klog "github.com/Klingon-tech/token-claim/internal/log"
)

const version = "0.1.0"

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fatal("%v", err)
	}
	if flags.Help {
		config.PrintUsage(os.Stdout)
		return
	}
	if flags.Version {
		fmt.Printf("claimtool version %s\n", version)
		return
	}
	if len(flags.Args) == 0 {
		config.PrintUsage(os.Stderr)
		os.Exit(1)
	}

	logFile, err := klog.Init(klog.Config{
		Level:   cfg.Log.Level,
		JSON:    cfg.Log.JSON,
		File:    cfg.Log.File,
		Network: string(cfg.Network),
	})
	if err != nil {
		fatal("init logging: %v", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	switch cmd {
	case "snapshot":
		err = cmdSnapshot(ctx, cfg, cmdArgs)
	case "build":
		err = cmdBuild(ctx, cfg, cmdArgs)
	case "airdrop":
		err = cmdAirdrop(ctx, cfg, cmdArgs)
	case "verify":
		err = cmdVerify(cfg, cmdArgs)
	case "example-keys":
		err = cmdExampleKeys(cfg, cmdArgs)
	case "example-accounts":
		err = cmdExampleAccounts(cfg, cmdArgs)
	case "example-sign":
		err = cmdExampleSign(cfg, cmdArgs)
	case "check":
		err = cmdCheck(ctx, cfg, cmdArgs)
	case "submit":
		err = cmdSubmit(ctx, cfg, cmdArgs)
	case "reset-signatures":
		err = cmdResetSignatures(ctx, cfg, cmdArgs)
	case "help":
		config.PrintUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		config.PrintUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		stop()
		fatal("%s: %v", cmd, err)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

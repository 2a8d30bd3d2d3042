package config

import (
	"fmt"

	"github.com/Klingon-tech/token-claim/internal/airdrop"
	"github.com/Klingon-tech/token-claim/pkg/types"
)

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if _, err := cfg.TokenID(); err != nil {
		return fmt.Errorf("snapshot.tokenid: %w", err)
	}
	if cfg.Snapshot.PageSize <= 0 {
		return fmt.Errorf("snapshot.pagesize must be positive")
	}
	if _, err := airdrop.ParseLSK(cfg.Airdrop.CutOff); err != nil {
		return fmt.Errorf("airdrop.cutoff: %w", err)
	}
	if _, err := airdrop.ParseLSK(cfg.Airdrop.WhaleCap); err != nil {
		return fmt.Errorf("airdrop.whalecap: %w", err)
	}
	if cfg.Airdrop.Percent > 100 {
		return fmt.Errorf("airdrop.percent must be in range [0, 100]")
	}

	switch cfg.Claim.Store {
	case "":
		cfg.Claim.Store = StoreKV
	case StoreKV:
	case StorePostgres:
		if cfg.Claim.DSN == "" {
			return fmt.Errorf("claim.store=postgres requires claim.dsn")
		}
	default:
		return fmt.Errorf("claim.store must be %q or %q", StoreKV, StorePostgres)
	}
	return nil
}

// TokenID returns the parsed snapshot token ID.
func (c *Config) TokenID() (types.TokenID, error) {
	return types.HexToTokenID(c.Snapshot.TokenID)
}

// AirdropParams converts the airdrop settings into derivation parameters,
// reading the exclusion list when one is configured.
func (c *Config) AirdropParams() (airdrop.Params, error) {
	var p airdrop.Params
	cutOff, err := airdrop.ParseLSK(c.Airdrop.CutOff)
	if err != nil {
		return p, fmt.Errorf("airdrop.cutoff: %w", err)
	}
	whaleCap, err := airdrop.ParseLSK(c.Airdrop.WhaleCap)
	if err != nil {
		return p, fmt.Errorf("airdrop.whalecap: %w", err)
	}
	excluded, err := airdrop.ReadExcludedAddresses(c.Airdrop.Excluded)
	if err != nil {
		return p, fmt.Errorf("airdrop.excluded: %w", err)
	}
	p.CutOff = *cutOff
	p.WhaleCap = *whaleCap
	p.Percent = c.Airdrop.Percent
	p.Excluded = excluded
	return p, nil
}

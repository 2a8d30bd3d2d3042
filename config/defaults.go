package config

import (
	"github.com/Klingon-tech/token-claim/internal/snapshot"
	"github.com/Klingon-tech/token-claim/pkg/types"
)

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Snapshot: SnapshotConfig{
			TokenID:  types.MainnetTokenID.String(),
			PageSize: snapshot.DefaultPageSize,
		},
		Airdrop: AirdropConfig{
			CutOff:   "50",
			WhaleCap: "250000",
			Percent:  10,
		},
		Claim: ClaimConfig{
			Store: StoreKV,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Snapshot.TokenID = types.TestnetTokenID.String()
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}

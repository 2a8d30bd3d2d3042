// Package airdrop derives airdrop allocations from a balance snapshot.
package airdrop

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	klog "github.com/Klingon-tech/token-claim/internal/log"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/holiman/uint256"
)

// Unit conversions: 1 LSK = 10^8 beddows, and 18-decimal wei carries 10
// more decimal places than beddows.
var (
	BeddowsPerLSK = uint256.NewInt(100_000_000)
	WeiPerBeddow  = uint256.NewInt(10_000_000_000)
)

const lskDecimals = 8

var (
	// ErrInvalidAmount is returned for an unparsable LSK amount.
	ErrInvalidAmount = errors.New("airdrop: invalid amount")
	// ErrAllocationOverflow is returned when an allocation does not fit in
	// 256 bits.
	ErrAllocationOverflow = errors.New("airdrop: allocation overflows uint256")
)

// Params configures an airdrop derivation. Amounts are in beddows.
type Params struct {
	CutOff   uint256.Int
	WhaleCap uint256.Int
	Percent  uint64
	Excluded []types.Address
}

// DefaultParams returns a cut-off of 50 LSK, a whale cap of 250000 LSK and
// a 10% allocation.
func DefaultParams() Params {
	var p Params
	p.CutOff.Mul(uint256.NewInt(50), BeddowsPerLSK)
	p.WhaleCap.Mul(uint256.NewInt(250_000), BeddowsPerLSK)
	p.Percent = 10
	return p
}

// Apply turns snapshot accounts into airdrop accounts whose Balance is the
// allocation in wei. Accounts below the cut-off or on the exclusion list are
// dropped; balances above the whale cap count as the cap. Input order is kept.
func Apply(accounts []types.AccountRecord, p Params) ([]types.AccountRecord, error) {
	excluded := make(map[types.Address]struct{}, len(p.Excluded))
	for _, addr := range p.Excluded {
		excluded[addr] = struct{}{}
	}

	percent := uint256.NewInt(p.Percent)
	hundred := uint256.NewInt(100)

	out := make([]types.AccountRecord, 0, len(accounts))
	var skippedCutOff, skippedExcluded, capped int
	for i := range accounts {
		acc := &accounts[i]
		if acc.Balance.Lt(&p.CutOff) {
			skippedCutOff++
			continue
		}
		if _, ok := excluded[acc.Address]; ok {
			skippedExcluded++
			continue
		}

		var bal uint256.Int
		bal.Set(&acc.Balance)
		if bal.Gt(&p.WhaleCap) {
			bal.Set(&p.WhaleCap)
			capped++
		}

		var rec types.AccountRecord
		rec.Address = acc.Address
		if _, overflow := rec.Balance.MulOverflow(&bal, percent); overflow {
			return nil, fmt.Errorf("%w: account %s", ErrAllocationOverflow, acc.Address)
		}
		rec.Balance.Div(&rec.Balance, hundred)
		if _, overflow := rec.Balance.MulOverflow(&rec.Balance, WeiPerBeddow); overflow {
			return nil, fmt.Errorf("%w: account %s", ErrAllocationOverflow, acc.Address)
		}
		out = append(out, rec)
	}

	klog.Airdrop.Info().
		Int("eligible", len(out)).
		Int("below_cutoff", skippedCutOff).
		Int("excluded", skippedExcluded).
		Int("capped", capped).
		Msg("Airdrop applied")
	return out, nil
}

// BeddowsToWei converts an 8-decimal amount to 18 decimals.
func BeddowsToWei(beddows *uint256.Int) *uint256.Int {
	return new(uint256.Int).Mul(beddows, WeiPerBeddow)
}

// ParseLSK parses a decimal LSK amount ("50", "0.5") into beddows.
func ParseLSK(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && (frac == "" || len(frac) > lskDecimals) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", lskDecimals-len(frac))
	for _, c := range digits {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return v, nil
}

// ReadExcludedAddresses reads newline-separated Lisk32 addresses from path.
// A leading ~ is expanded to the home directory. An empty path yields no
// addresses; any invalid line is an error.
func ReadExcludedAddresses(path string) ([]types.Address, error) {
	if path == "" {
		return nil, nil
	}
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read excluded addresses: %w", err)
	}

	var out []types.Address
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		addr, err := types.ParseLisk32Address(text)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q on line %d: %w", text, line, err)
		}
		out = append(out, addr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read excluded addresses: %w", err)
	}
	return out, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

package artifact

import (
	"fmt"

	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/holiman/uint256"
)

// Account is one entry of an accounts file. Regular snapshots carry
// balanceBeddows; airdrop snapshots carry balanceWei.
type Account struct {
	LskAddress         types.Address     `json:"lskAddress"`
	BalanceBeddows     string            `json:"balanceBeddows,omitempty"`
	BalanceWei         string            `json:"balanceWei,omitempty"`
	NumberOfSignatures uint32            `json:"numberOfSignatures,omitempty"`
	MandatoryKeys      []types.PublicKey `json:"mandatoryKeys,omitempty"`
	OptionalKeys       []types.PublicKey `json:"optionalKeys,omitempty"`
}

// WriteAccounts writes a regular snapshot to path.
func WriteAccounts(path string, accounts []types.AccountRecord) error {
	out := make([]Account, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		out[i] = Account{
			LskAddress:         a.Address,
			BalanceBeddows:     a.Balance.Dec(),
			NumberOfSignatures: a.NumberOfSignatures,
			MandatoryKeys:      a.MandatoryKeys,
			OptionalKeys:       a.OptionalKeys,
		}
	}
	return writeJSON(path, out)
}

// WriteAirdropAccounts writes airdrop allocations (balances in wei) to path.
func WriteAirdropAccounts(path string, accounts []types.AccountRecord) error {
	out := make([]Account, len(accounts))
	for i := range accounts {
		out[i] = Account{
			LskAddress: accounts[i].Address,
			BalanceWei: accounts[i].Balance.Dec(),
		}
	}
	return writeJSON(path, out)
}

// ReadAccounts loads an accounts file. Each entry's balance is taken from
// balanceBeddows, or from balanceWei when the former is absent.
func ReadAccounts(path string) ([]types.AccountRecord, error) {
	var in []Account
	if err := readJSON(path, &in); err != nil {
		return nil, err
	}

	out := make([]types.AccountRecord, len(in))
	for i, a := range in {
		raw := a.BalanceBeddows
		if raw == "" {
			raw = a.BalanceWei
		}
		bal, err := uint256.FromDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("account %s: balance %q: %w", a.LskAddress, raw, err)
		}
		out[i] = types.AccountRecord{
			Address:            a.LskAddress,
			Balance:            *bal,
			NumberOfSignatures: a.NumberOfSignatures,
			MandatoryKeys:      a.MandatoryKeys,
			OptionalKeys:       a.OptionalKeys,
		}
	}
	return out, nil
}

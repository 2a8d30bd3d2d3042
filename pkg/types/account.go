package types

import (
	"github.com/holiman/uint256"
)

// AccountRecord is one eligible account extracted from a state snapshot.
// NumberOfSignatures == 0 marks a regular (single-key) account.
type AccountRecord struct {
	Address            Address
	Balance            uint256.Int
	NumberOfSignatures uint32
	MandatoryKeys      []PublicKey
	OptionalKeys       []PublicKey
}

// IsMultisig reports whether the account requires multiple signatures.
func (a *AccountRecord) IsMultisig() bool {
	return a.NumberOfSignatures > 0
}

// KeyIndex locates key among the mandatory keys followed by the optional keys.
// It returns -1 if the key is not part of the account.
func (a *AccountRecord) KeyIndex(key PublicKey) int {
	for i, k := range a.MandatoryKeys {
		if k == key {
			return i
		}
	}
	for i, k := range a.OptionalKeys {
		if k == key {
			return len(a.MandatoryKeys) + i
		}
	}
	return -1
}

// OptionalQuota is the number of optional signatures that complete the quorum.
func (a *AccountRecord) OptionalQuota() int {
	return int(a.NumberOfSignatures) - len(a.MandatoryKeys)
}

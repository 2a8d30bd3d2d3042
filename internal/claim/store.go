package claim

import (
	"context"

	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// SignatureRecord is one signer's authorization for an account to claim to
// a destination. At most one record exists per (Account, Signer).
type SignatureRecord struct {
	Account     types.Address
	Destination common.Address
	Signer      types.PublicKey
	IsOptional  bool
	R           types.Hash
	S           types.Hash
}

// SignatureStore persists signature records.
type SignatureStore interface {
	// Find returns the record of (account, signer), or nil if none exists.
	Find(ctx context.Context, account types.Address, signer types.PublicKey) (*SignatureRecord, error)
	// Create inserts rec. It fails with ErrDuplicateSigner if a record for
	// (rec.Account, rec.Signer) already exists.
	Create(ctx context.Context, rec *SignatureRecord) error
	// Update replaces the destination and signature of the existing
	// (rec.Account, rec.Signer) record.
	Update(ctx context.Context, rec *SignatureRecord) error
	// Count returns the number of records of account targeting destination.
	Count(ctx context.Context, account types.Address, destination common.Address) (int, error)
	// CountOptional is Count restricted to optional-key signers.
	CountOptional(ctx context.Context, account types.Address, destination common.Address) (int, error)
	// ListByAccounts returns every record of the given accounts.
	ListByAccounts(ctx context.Context, accounts []types.Address) ([]SignatureRecord, error)
}

package claim

import "errors"

// Validation and quorum errors returned by Submit and CheckEligibility.
var (
	ErrInvalidAddress     = errors.New("invalid lsk address")
	ErrInvalidDestination = errors.New("invalid destination address")
	ErrKeyNotAuthorized   = errors.New("public key is not part of the multisig account")
	ErrQuotaReached       = errors.New("number of optional signatures reached")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrAlreadySigned      = errors.New("already signed for this destination")
)

var (
	// ErrDuplicateSigner is returned by SignatureStore.Create when a record
	// for the same (account, signer) already exists.
	ErrDuplicateSigner = errors.New("signature for this signer already exists")
	// ErrTreeNotLoaded is returned when no eligibility index is installed.
	ErrTreeNotLoaded = errors.New("claim tree not loaded")
)

// Package claim collects multisignature authorizations for token claims and
// answers eligibility queries against the loaded claim tree.
package claim

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/token-claim/internal/eligibility"
	klog "github.com/Klingon-tech/token-claim/internal/log"
	"github.com/Klingon-tech/token-claim/pkg/crypto"
	"github.com/Klingon-tech/token-claim/pkg/merkle"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// SubmitRequest is one signer's authorization of a multisig claim.
type SubmitRequest struct {
	Account     string // Lisk32 address of the multisig account
	Destination string // EVM address receiving the claim
	PublicKey   string // hex ed25519 public key of the signer
	R           string // hex first half of the signature
	S           string // hex second half of the signature
}

// SubmitResult reports whether the account is ready to claim to the
// submitted destination.
type SubmitResult struct {
	Ready bool
}

// AccountStatus is a leaf plus its readiness. Ready is only meaningful for
// multisig accounts.
type AccountStatus struct {
	Leaf  *merkle.Leaf
	Ready bool
}

// Eligibility is the answer to an eligibility query.
type Eligibility struct {
	// Account is the queried address's own leaf, or nil.
	Account *AccountStatus
	// MultisigAccounts lists the multisig accounts the address's key belongs to.
	MultisigAccounts []AccountStatus
	// Signatures holds every record of the accounts above that are multisig.
	Signatures []SignatureRecord
}

// Engine validates and records multisig signatures.
type Engine struct {
	index    *eligibility.Holder[eligibility.Index]
	airdrop  *eligibility.Holder[eligibility.AirdropIndex]
	store    SignatureStore
	verifier crypto.Verifier
	locks    *keyedMutex
	logger   zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithVerifier overrides the ed25519 verifier.
func WithVerifier(v crypto.Verifier) Option {
	return func(e *Engine) {
		e.verifier = v
	}
}

// WithAirdropIndex sets the airdrop index holder.
func WithAirdropIndex(h *eligibility.Holder[eligibility.AirdropIndex]) Option {
	return func(e *Engine) {
		e.airdrop = h
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an engine over the given index holder and store.
func NewEngine(index *eligibility.Holder[eligibility.Index], store SignatureStore, opts ...Option) *Engine {
	e := &Engine{
		index:    index,
		airdrop:  eligibility.NewHolder[eligibility.AirdropIndex](nil),
		store:    store,
		verifier: crypto.Ed25519Verifier{},
		locks:    newKeyedMutex(),
		logger:   klog.Claim,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit validates one signer's authorization and records it. Submissions
// for the same account are serialized; different accounts run in parallel.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	idx := e.index.Load()
	if idx == nil {
		return nil, ErrTreeNotLoaded
	}

	account, err := types.ParseLisk32Address(req.Account)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	leaf, ok := idx.Lookup(account)
	if !ok || !leaf.IsMultisig() {
		return nil, fmt.Errorf("%w: %s is not an eligible multisig account", ErrInvalidAddress, req.Account)
	}

	destination, err := ParseDestination(req.Destination)
	if err != nil {
		return nil, err
	}

	signer, err := types.HexToPublicKey(req.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotAuthorized, err)
	}
	keyIndex := leaf.KeyIndex(signer)
	if keyIndex < 0 {
		return nil, ErrKeyNotAuthorized
	}
	isOptional := keyIndex >= len(leaf.MandatoryKeys)

	unlock := e.locks.Lock(account)
	defer unlock()

	if isOptional {
		signed, err := e.store.CountOptional(ctx, account, destination)
		if err != nil {
			return nil, fmt.Errorf("count optional signatures: %w", err)
		}
		if signed >= leaf.OptionalQuota() {
			return nil, ErrQuotaReached
		}
	}

	r, s, err := parseSignature(req.R, req.S)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 0, crypto.SignatureSize)
	sig = append(sig, r[:]...)
	sig = append(sig, s[:]...)
	if !e.verifier.Verify(ClaimMessage(leaf.Hash, destination), sig, signer[:]) {
		return nil, ErrInvalidSignature
	}

	rec := &SignatureRecord{
		Account:     account,
		Destination: destination,
		Signer:      signer,
		IsOptional:  isOptional,
		R:           r,
		S:           s,
	}

	existing, err := e.store.Find(ctx, account, signer)
	if err != nil {
		return nil, fmt.Errorf("find signature: %w", err)
	}
	switch {
	case existing != nil && existing.Destination == destination:
		return nil, ErrAlreadySigned
	case existing != nil:
		if err := e.store.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("update signature: %w", err)
		}
		e.logger.Info().
			Str("account", req.Account).
			Str("signer", signer.String()).
			Str("from", existing.Destination.Hex()).
			Str("to", destination.Hex()).
			Msg("Signature redirected")
	default:
		// A concurrent writer outside this process surfaces as ErrDuplicateSigner.
		if err := e.store.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("create signature: %w", err)
		}
		e.logger.Info().
			Str("account", req.Account).
			Str("signer", signer.String()).
			Str("destination", destination.Hex()).
			Bool("optional", isOptional).
			Msg("Signature recorded")
	}

	count, err := e.store.Count(ctx, account, destination)
	if err != nil {
		return nil, fmt.Errorf("count signatures: %w", err)
	}
	return &SubmitResult{Ready: count == int(leaf.NumberOfSignatures)}, nil
}

// CheckEligibility returns the address's own leaf, the multisig accounts its
// key can help authorize, and the signatures collected for them.
func (e *Engine) CheckEligibility(ctx context.Context, lskAddress string) (*Eligibility, error) {
	addr, err := types.ParseLisk32Address(lskAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	idx := e.index.Load()
	if idx == nil {
		return nil, ErrTreeNotLoaded
	}

	own, hasOwn := idx.Lookup(addr)
	members := idx.MultisigFor(addr)

	var accounts []types.Address
	for _, leaf := range members {
		accounts = append(accounts, leaf.Address)
	}
	if hasOwn && own.IsMultisig() {
		accounts = append(accounts, own.Address)
	}

	result := &Eligibility{MultisigAccounts: make([]AccountStatus, 0, len(members))}
	if len(accounts) > 0 {
		result.Signatures, err = e.store.ListByAccounts(ctx, accounts)
		if err != nil {
			return nil, fmt.Errorf("list signatures: %w", err)
		}
	}
	if result.Signatures == nil {
		result.Signatures = []SignatureRecord{}
	}

	counts := countByDestination(result.Signatures)
	if hasOwn {
		result.Account = &AccountStatus{Leaf: own}
		if own.IsMultisig() {
			result.Account.Ready = isReady(counts, own)
		}
	}
	for _, leaf := range members {
		result.MultisigAccounts = append(result.MultisigAccounts, AccountStatus{
			Leaf:  leaf,
			Ready: isReady(counts, leaf),
		})
	}
	return result, nil
}

// CheckAirdropEligibility returns the airdrop leaf of the address, or nil.
func (e *Engine) CheckAirdropEligibility(lskAddress string) (*merkle.Leaf, error) {
	addr, err := types.ParseLisk32Address(lskAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	idx := e.airdrop.Load()
	if idx == nil {
		return nil, ErrTreeNotLoaded
	}
	leaf, ok := idx.Lookup(addr)
	if !ok {
		return nil, nil
	}
	return leaf, nil
}

func countByDestination(records []SignatureRecord) map[types.Address]map[common.Address]int {
	out := make(map[types.Address]map[common.Address]int)
	for _, rec := range records {
		byDest, ok := out[rec.Account]
		if !ok {
			byDest = make(map[common.Address]int)
			out[rec.Account] = byDest
		}
		byDest[rec.Destination]++
	}
	return out
}

// isReady reports whether some destination has collected exactly the
// required number of signatures.
func isReady(counts map[types.Address]map[common.Address]int, leaf *merkle.Leaf) bool {
	best := 0
	for _, n := range counts[leaf.Address] {
		if n > best {
			best = n
		}
	}
	return best > 0 && best == int(leaf.NumberOfSignatures)
}

func parseSignature(rHex, sHex string) (r, s types.Hash, err error) {
	r, err = types.HexToHash(rHex)
	if err != nil {
		return r, s, fmt.Errorf("%w: r: %v", ErrInvalidSignature, err)
	}
	s, err = types.HexToHash(sHex)
	if err != nil {
		return r, s, fmt.Errorf("%w: s: %v", ErrInvalidSignature, err)
	}
	return r, s, nil
}

// Package snapshot extracts eligible accounts from a legacy chain state store.
//
// The store is scanned in bounded pages keyed by address. Each page resumes
// from the address after the last one seen, so memory stays proportional to
// the page size rather than the store size.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	klog "github.com/Klingon-tech/token-claim/internal/log"
	"github.com/Klingon-tech/token-claim/internal/storage"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultPageSize is the number of entries fetched per store round-trip.
const DefaultPageSize = 100000

// Scanner reads balances and multisig configuration from a state store.
type Scanner struct {
	store    storage.RangeIterator
	pageSize int
	logger   zerolog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithPageSize overrides DefaultPageSize. Values <= 0 are ignored.
func WithPageSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the scanner's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// NewScanner creates a scanner over store.
func NewScanner(store storage.RangeIterator, opts ...Option) *Scanner {
	s := &Scanner{
		store:    store,
		pageSize: DefaultPageSize,
		logger:   klog.Snapshot,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type entry struct {
	key   []byte
	value []byte
}

// Snapshot returns every account holding a positive balance of tokenID,
// sorted ascending by address. Multisig accounts carry their key sets.
func (s *Scanner) Snapshot(ctx context.Context, tokenID types.TokenID) ([]types.AccountRecord, error) {
	accounts := make(map[types.Address]*types.AccountRecord)

	balances := 0
	err := s.scan(ctx, TokenPrefix, tokenID[:], func(addr types.Address, suffix, value []byte) error {
		if !bytes.Equal(suffix, tokenID[:]) {
			return nil
		}
		bal, err := DecodeUserBalance(value)
		if err != nil {
			return fmt.Errorf("balance of %s: %w", addr, err)
		}
		balances++
		total := bal.Total()
		if total.IsZero() {
			return nil
		}
		accounts[addr] = &types.AccountRecord{Address: addr, Balance: *total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Int("records", balances).
		Int("holders", len(accounts)).
		Str("token_id", tokenID.String()).
		Msg("Balances scanned")

	multisig := 0
	err = s.scan(ctx, AuthPrefix, nil, func(addr types.Address, suffix, value []byte) error {
		if len(suffix) != 0 {
			return fmt.Errorf("%w: auth key for %s has %d trailing bytes", ErrDecodeFailure, addr, len(suffix))
		}
		auth, err := DecodeAuthAccount(value)
		if err != nil {
			return fmt.Errorf("auth account of %s: %w", addr, err)
		}
		if auth.NumberOfSignatures == 0 {
			return nil
		}
		acc, ok := accounts[addr]
		if !ok {
			return nil
		}
		acc.NumberOfSignatures = auth.NumberOfSignatures
		acc.MandatoryKeys = auth.MandatoryKeys
		acc.OptionalKeys = auth.OptionalKeys
		multisig++
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("multisig", multisig).Msg("Auth accounts scanned")

	out := make([]types.AccountRecord, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.Less(out[j].Address) })
	return out, nil
}

// scan pages through prefix ++ address ++ suffix keys from the zero address
// to 0xFF...FF. fn receives the address and the key bytes following it.
func (s *Scanner) scan(ctx context.Context, prefix, suffix []byte, fn func(addr types.Address, keySuffix, value []byte) error) error {
	keyFor := func(addr types.Address) []byte {
		k := make([]byte, 0, len(prefix)+types.AddressSize+len(suffix))
		k = append(k, prefix...)
		k = append(k, addr[:]...)
		return append(k, suffix...)
	}

	var maxAddr types.Address
	for i := range maxAddr {
		maxAddr[i] = 0xff
	}
	end := keyFor(maxAddr)
	start := keyFor(types.Address{})

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries := make([]entry, 0, min(s.pageSize, 1024))
		err := s.store.Iterate(start, end, s.pageSize, func(key, value []byte) error {
			entries = append(entries, entry{key: key, value: value})
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: page %d: %v", ErrStoreIO, page, err)
		}
		if len(entries) == 0 {
			return nil
		}

		var last types.Address
		var lastSuffix []byte
		for _, e := range entries {
			if len(e.key) < len(prefix)+types.AddressSize || !bytes.HasPrefix(e.key, prefix) {
				return fmt.Errorf("%w: malformed key %x", ErrDecodeFailure, e.key)
			}
			copy(last[:], e.key[len(prefix):])
			lastSuffix = e.key[len(prefix)+types.AddressSize:]
			if err := fn(last, lastSuffix, e.value); err != nil {
				return err
			}
		}

		s.logger.Debug().
			Int("page", page).
			Int("entries", len(entries)).
			Str("last", last.Hex()).
			Msg("Page scanned")

		// A page can end on an entry of the last address that sorts before
		// the requested suffix; the requested entry then still follows.
		if bytes.Compare(lastSuffix, suffix) < 0 {
			start = keyFor(last)
			continue
		}
		next, ok := IncrementAddress(last)
		if !ok {
			return nil
		}
		start = keyFor(next)
	}
}

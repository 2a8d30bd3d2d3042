// Package sigstore implements claim.SignatureStore on the key-value store
// and on PostgreSQL.
package sigstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/token-claim/internal/claim"
	"github.com/Klingon-tech/token-claim/internal/storage"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// KeyPrefix namespaces signature records in a shared database.
var KeyPrefix = []byte("sig/")

// Store is a claim.SignatureStore that can be emptied between claim rounds.
type Store interface {
	claim.SignatureStore
	// Reset deletes every signature record and returns how many it removed.
	Reset(ctx context.Context) (int, error)
}

var (
	_ Store = (*KVStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// KVStore keeps signature records in a storage.DB under
// sig/<account><signer>, one JSON value per record.
type KVStore struct {
	mu sync.Mutex // serializes Create's existence check with its write
	db *storage.PrefixDB
}

// NewKVStore creates a store on db.
func NewKVStore(db storage.DB) *KVStore {
	return &KVStore{db: storage.NewPrefixDB(db, KeyPrefix)}
}

type kvRecord struct {
	Account     types.Address   `json:"account"`
	Destination common.Address  `json:"destination"`
	Signer      types.PublicKey `json:"signer"`
	IsOptional  bool            `json:"isOptional"`
	R           types.Hash      `json:"r"`
	S           types.Hash      `json:"s"`
}

func recordKey(account types.Address, signer types.PublicKey) []byte {
	key := make([]byte, 0, types.AddressSize+types.PublicKeySize)
	key = append(key, account[:]...)
	return append(key, signer[:]...)
}

func encodeRecord(rec *claim.SignatureRecord) ([]byte, error) {
	return json.Marshal(kvRecord(*rec))
}

func decodeRecord(data []byte) (claim.SignatureRecord, error) {
	var r kvRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return claim.SignatureRecord{}, fmt.Errorf("decode signature record: %w", err)
	}
	return claim.SignatureRecord(r), nil
}

// Find returns the record of (account, signer), or nil.
func (s *KVStore) Find(_ context.Context, account types.Address, signer types.PublicKey) (*claim.SignatureRecord, error) {
	data, err := s.db.Get(recordKey(account, signer))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts rec, failing with claim.ErrDuplicateSigner on collision.
func (s *KVStore) Create(_ context.Context, rec *claim.SignatureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(rec.Account, rec.Signer)
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return claim.ErrDuplicateSigner
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.db.Put(key, data)
}

// Update replaces the destination and signature of an existing record.
func (s *KVStore) Update(_ context.Context, rec *claim.SignatureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(rec.Account, rec.Signer)
	data, err := s.db.Get(key)
	if err != nil {
		return err
	}
	existing, err := decodeRecord(data)
	if err != nil {
		return err
	}
	existing.Destination = rec.Destination
	existing.R = rec.R
	existing.S = rec.S

	out, err := encodeRecord(&existing)
	if err != nil {
		return err
	}
	return s.db.Put(key, out)
}

// Count returns the number of records of account targeting destination.
func (s *KVStore) Count(_ context.Context, account types.Address, destination common.Address) (int, error) {
	return s.count(account, func(r *claim.SignatureRecord) bool {
		return r.Destination == destination
	})
}

// CountOptional counts optional-key records of account targeting destination.
func (s *KVStore) CountOptional(_ context.Context, account types.Address, destination common.Address) (int, error) {
	return s.count(account, func(r *claim.SignatureRecord) bool {
		return r.IsOptional && r.Destination == destination
	})
}

func (s *KVStore) count(account types.Address, match func(*claim.SignatureRecord) bool) (int, error) {
	n := 0
	err := s.db.ForEach(account[:], func(_, value []byte) error {
		rec, err := decodeRecord(value)
		if err != nil {
			return err
		}
		if match(&rec) {
			n++
		}
		return nil
	})
	return n, err
}

// ListByAccounts returns every record of the given accounts.
func (s *KVStore) ListByAccounts(_ context.Context, accounts []types.Address) ([]claim.SignatureRecord, error) {
	var out []claim.SignatureRecord
	seen := make(map[types.Address]struct{}, len(accounts))
	for _, account := range accounts {
		if _, dup := seen[account]; dup {
			continue
		}
		seen[account] = struct{}{}

		err := s.db.ForEach(account[:], func(_, value []byte) error {
			rec, err := decodeRecord(value)
			if err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Reset deletes every record under KeyPrefix.
func (s *KVStore) Reset(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.db.DeleteAll()
	if err != nil {
		return n, fmt.Errorf("reset signatures: %w", err)
	}
	return n, nil
}

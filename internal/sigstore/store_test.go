package sigstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/Klingon-tech/token-claim/internal/claim"
	"github.com/Klingon-tech/token-claim/internal/storage"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	destA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	destB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func record(account byte, signer byte, dest common.Address, optional bool) *claim.SignatureRecord {
	return &claim.SignatureRecord{
		Account:     types.Address{account},
		Destination: dest,
		Signer:      types.PublicKey{signer},
		IsOptional:  optional,
		R:           types.Hash{0xab, signer},
		S:           types.Hash{0xcd, signer},
	}
}

// testStore runs the shared contract suite against a Store.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("FindMissing", func(t *testing.T) {
		rec, err := s.Find(ctx, types.Address{0x99}, types.PublicKey{0x99})
		if err != nil || rec != nil {
			t.Errorf("Find(missing) = %+v, %v", rec, err)
		}
	})

	t.Run("CreateFind", func(t *testing.T) {
		want := record(0x01, 0x01, destA, false)
		if err := s.Create(ctx, want); err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := s.Find(ctx, want.Account, want.Signer)
		if err != nil || got == nil {
			t.Fatalf("Find = %+v, %v", got, err)
		}
		if *got != *want {
			t.Errorf("Find = %+v, want %+v", got, want)
		}
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		dup := record(0x01, 0x01, destB, false)
		if err := s.Create(ctx, dup); !errors.Is(err, claim.ErrDuplicateSigner) {
			t.Errorf("Create(dup) error = %v, want ErrDuplicateSigner", err)
		}
	})

	t.Run("Counts", func(t *testing.T) {
		for _, rec := range []*claim.SignatureRecord{
			record(0x02, 0x01, destA, false),
			record(0x02, 0x02, destA, true),
			record(0x02, 0x03, destA, true),
			record(0x02, 0x04, destB, true),
			record(0x03, 0x01, destA, true),
		} {
			if err := s.Create(ctx, rec); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}
		n, err := s.Count(ctx, types.Address{0x02}, destA)
		if err != nil || n != 3 {
			t.Errorf("Count = %d, %v; want 3", n, err)
		}
		n, err = s.CountOptional(ctx, types.Address{0x02}, destA)
		if err != nil || n != 2 {
			t.Errorf("CountOptional = %d, %v; want 2", n, err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		moved := record(0x02, 0x04, destA, true)
		moved.R = types.Hash{0xee}
		if err := s.Update(ctx, moved); err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, _ := s.Find(ctx, moved.Account, moved.Signer)
		if got == nil || got.Destination != destA || got.R != moved.R || !got.IsOptional {
			t.Errorf("after Update = %+v", got)
		}
		if n, _ := s.Count(ctx, types.Address{0x02}, destB); n != 0 {
			t.Errorf("Count(destB) after redirect = %d, want 0", n)
		}
	})

	t.Run("ListByAccounts", func(t *testing.T) {
		recs, err := s.ListByAccounts(ctx, []types.Address{{0x02}, {0x03}, {0x02}})
		if err != nil {
			t.Fatalf("ListByAccounts: %v", err)
		}
		if len(recs) != 5 {
			t.Errorf("ListByAccounts = %d records, want 5", len(recs))
		}
		for _, r := range recs {
			if r.Account != (types.Address{0x02}) && r.Account != (types.Address{0x03}) {
				t.Errorf("unexpected account %s", r.Account)
			}
		}
		none, err := s.ListByAccounts(ctx, nil)
		if err != nil || len(none) != 0 {
			t.Errorf("ListByAccounts(nil) = %v, %v", none, err)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		n, err := s.Reset(ctx)
		if err != nil {
			t.Fatalf("Reset: %v", err)
		}
		if n != 6 {
			t.Errorf("Reset removed %d records, want 6", n)
		}
		if rec, err := s.Find(ctx, types.Address{0x01}, types.PublicKey{0x01}); err != nil || rec != nil {
			t.Errorf("Find after Reset = %+v, %v", rec, err)
		}
		if n, _ := s.Count(ctx, types.Address{0x02}, destA); n != 0 {
			t.Errorf("Count after Reset = %d, want 0", n)
		}
		// A reset signer can sign again.
		if err := s.Create(ctx, record(0x01, 0x01, destB, false)); err != nil {
			t.Errorf("Create after Reset: %v", err)
		}
	})
}

func TestKVStore_Memory(t *testing.T) {
	testStore(t, NewKVStore(storage.NewMemory()))
}

func TestKVStore_Badger(t *testing.T) {
	db, err := storage.NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer db.Close()
	testStore(t, NewKVStore(db))
}

func TestKVStore_Namespace(t *testing.T) {
	db := storage.NewMemory()
	s := NewKVStore(db)
	rec := record(0x01, 0x02, destA, false)
	if err := s.Create(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	var keys int
	db.ForEach([]byte("sig/"), func(key, _ []byte) error {
		keys++
		if len(key) != len("sig/")+types.AddressSize+types.PublicKeySize {
			t.Errorf("unexpected key length %d", len(key))
		}
		return nil
	})
	if keys != 1 {
		t.Errorf("keys under sig/ = %d, want 1", keys)
	}

	if err := db.Put([]byte("sib/other"), []byte("keep")); err != nil {
		t.Fatal(err)
	}
	if n, err := s.Reset(context.Background()); err != nil || n != 1 {
		t.Fatalf("Reset = %d, %v; want 1, nil", n, err)
	}
	if ok, _ := db.Has([]byte("sib/other")); !ok {
		t.Error("Reset removed a key outside the signature namespace")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("CLAIM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CLAIM_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer s.Close()
	if _, err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	testStore(t, s)
}

func TestOpenPostgres_EmptyDSN(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), ""); err == nil {
		t.Error("expected error for empty dsn")
	}
}

func TestSignatureRow_Roundtrip(t *testing.T) {
	rec := record(0x07, 0x08, destB, true)
	row := rowFromRecord(rec)
	row.R = "0xABCDEF" + row.R[8:]

	if err := row.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave: %v", err)
	}
	if row.R[:8] != "0xabcdef" {
		t.Errorf("R not lower-cased: %s", row.R)
	}
	if row.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("BeforeSave should assign an id")
	}

	got, err := row.toRecord()
	if err != nil {
		t.Fatalf("toRecord: %v", err)
	}
	if got.Account != rec.Account || got.Signer != rec.Signer || got.Destination != rec.Destination || !got.IsOptional {
		t.Errorf("toRecord = %+v, want %+v", got, rec)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "23505"}, true},
		{fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"}), true},
		{&pgconn.PgError{Code: "42P01"}, false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := isUniqueViolation(tt.err); got != tt.want {
			t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

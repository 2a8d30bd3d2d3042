package snapshot

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Klingon-tech/token-claim/internal/storage"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/rs/zerolog"
)

// Silence component loggers during tests.
func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func putBalance(t *testing.T, db storage.DB, addr types.Address, tokenID types.TokenID, available uint64, locked ...uint64) {
	t.Helper()
	bal := &UserBalance{AvailableBalance: available}
	for _, amt := range locked {
		bal.LockedBalances = append(bal.LockedBalances, LockedBalance{Module: "pos", Amount: amt})
	}
	if err := db.Put(BalanceKey(addr, tokenID), EncodeUserBalance(bal)); err != nil {
		t.Fatalf("put balance: %v", err)
	}
}

func putAuth(t *testing.T, db storage.DB, addr types.Address, auth *AuthAccount) {
	t.Helper()
	if err := db.Put(AuthKey(addr), EncodeAuthAccount(auth)); err != nil {
		t.Fatalf("put auth: %v", err)
	}
}

func TestStorePrefix(t *testing.T) {
	for _, name := range []string{"token", "auth"} {
		p := StorePrefix(name)
		if len(p) != 4 {
			t.Fatalf("StorePrefix(%s) length = %d", name, len(p))
		}
		if p[0]&0x80 != 0 {
			t.Errorf("StorePrefix(%s) top bit set: %x", name, p)
		}
	}
	if bytes.Equal(StorePrefix("token"), StorePrefix("auth")) {
		t.Error("module prefixes should differ")
	}
}

func TestSubstorePrefix(t *testing.T) {
	tests := []struct {
		index uint16
		want  []byte
	}{
		{0, []byte{0x00, 0x00}},
		{1, []byte{0x80, 0x00}},
		{2, []byte{0x40, 0x00}},
		{3, []byte{0xc0, 0x00}},
	}
	for _, tt := range tests {
		if got := SubstorePrefix(tt.index); !bytes.Equal(got, tt.want) {
			t.Errorf("SubstorePrefix(%d) = %x, want %x", tt.index, got, tt.want)
		}
	}
	if !bytes.Equal(TokenPrefix[4:], []byte{0, 0}) || len(TokenPrefix) != 6 {
		t.Errorf("TokenPrefix = %x", TokenPrefix)
	}
}

func TestIncrementAddress(t *testing.T) {
	tests := []struct {
		name   string
		in     types.Address
		want   types.Address
		wantOK bool
	}{
		{"zero", types.Address{}, types.Address{19: 0x01}, true},
		{"carry", types.Address{18: 0x01, 19: 0xff}, types.Address{18: 0x02}, true},
		{"long carry", types.Address{0: 0x01, 1: 0xff, 2: 0xff, 3: 0xff, 4: 0xff, 5: 0xff, 6: 0xff, 7: 0xff, 8: 0xff, 9: 0xff,
			10: 0xff, 11: 0xff, 12: 0xff, 13: 0xff, 14: 0xff, 15: 0xff, 16: 0xff, 17: 0xff, 18: 0xff, 19: 0xff},
			types.Address{0: 0x02}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IncrementAddress(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("IncrementAddress = %x, %v; want %x, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	var max types.Address
	for i := range max {
		max[i] = 0xff
	}
	if _, ok := IncrementAddress(max); ok {
		t.Error("0xFF...FF should have no successor")
	}
}

func TestDecodeUserBalance(t *testing.T) {
	bal := &UserBalance{
		AvailableBalance: 500,
		LockedBalances:   []LockedBalance{{"pos", 100}, {"dex", 25}},
	}
	got, err := DecodeUserBalance(EncodeUserBalance(bal))
	if err != nil {
		t.Fatalf("DecodeUserBalance: %v", err)
	}
	if got.AvailableBalance != 500 || len(got.LockedBalances) != 2 || got.LockedBalances[1].Module != "dex" {
		t.Errorf("unexpected balance %+v", got)
	}
	if got.Total().Uint64() != 625 {
		t.Errorf("Total = %s, want 625", got.Total().Dec())
	}
}

func TestDecodeUserBalance_Strict(t *testing.T) {
	valid := EncodeUserBalance(&UserBalance{AvailableBalance: 1, LockedBalances: []LockedBalance{{"pos", 2}}})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", valid[:len(valid)-1]},
		{"out of order", append(EncodeUserBalance(&UserBalance{LockedBalances: []LockedBalance{{"pos", 1}}})[2:], 0x08, 0x01)},
		{"duplicate available", append(EncodeUserBalance(&UserBalance{AvailableBalance: 1}), 0x08, 0x01)},
		{"unknown field", append(EncodeUserBalance(&UserBalance{AvailableBalance: 1}), 0x18, 0x01)},
		{"wrong wire type", []byte{0x0a, 0x01, 0x00}},
		{"empty module", EncodeUserBalance(&UserBalance{AvailableBalance: 1, LockedBalances: []LockedBalance{{"", 2}}})},
		{"long module", EncodeUserBalance(&UserBalance{AvailableBalance: 1, LockedBalances: []LockedBalance{{string(bytes.Repeat([]byte("m"), 33)), 2}}})},
		{"locked missing amount", []byte{0x08, 0x01, 0x12, 0x05, 0x0a, 0x03, 'p', 'o', 's'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeUserBalance(tt.data); !errors.Is(err, ErrDecodeFailure) {
				t.Errorf("error = %v, want ErrDecodeFailure", err)
			}
		})
	}
}

func TestDecodeAuthAccount(t *testing.T) {
	auth := &AuthAccount{
		Nonce:              7,
		NumberOfSignatures: 2,
		MandatoryKeys:      []types.PublicKey{{1}},
		OptionalKeys:       []types.PublicKey{{2}, {3}},
	}
	got, err := DecodeAuthAccount(EncodeAuthAccount(auth))
	if err != nil {
		t.Fatalf("DecodeAuthAccount: %v", err)
	}
	if got.Nonce != 7 || got.NumberOfSignatures != 2 || len(got.MandatoryKeys) != 1 || len(got.OptionalKeys) != 2 {
		t.Errorf("unexpected auth account %+v", got)
	}
	if got.OptionalKeys[1] != (types.PublicKey{3}) {
		t.Error("optional key order not preserved")
	}
}

func TestDecodeAuthAccount_Strict(t *testing.T) {
	base := EncodeAuthAccount(&AuthAccount{Nonce: 1, NumberOfSignatures: 1})

	shortKey := append([]byte(nil), base...)
	shortKey = append(shortKey, 0x1a, 0x02, 0xaa, 0xbb)

	keysReversed := append([]byte(nil), base...)
	keysReversed = append(keysReversed, 0x22, 0x20)
	keysReversed = append(keysReversed, make([]byte, 32)...)
	keysReversed = append(keysReversed, 0x1a, 0x20)
	keysReversed = append(keysReversed, make([]byte, 32)...)

	tests := []struct {
		name string
		data []byte
	}{
		{"missing numberOfSignatures", []byte{0x08, 0x01}},
		{"short key", shortKey},
		{"optional before mandatory", keysReversed},
		{"uint32 overflow", []byte{0x08, 0x01, 0x10, 0x80, 0x80, 0x80, 0x80, 0x10}},
		{"unknown field", append(append([]byte(nil), base...), 0x28, 0x01)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeAuthAccount(tt.data); !errors.Is(err, ErrDecodeFailure) {
				t.Errorf("error = %v, want ErrDecodeFailure", err)
			}
		})
	}
}

func TestSnapshot_AcrossPages(t *testing.T) {
	db := storage.NewMemory()
	token := types.MainnetTokenID

	var want []types.Address
	for i := 0; i < 7; i++ {
		addr := types.Address{byte(0x10 * (i + 1)), 0x13: byte(i)}
		putBalance(t, db, addr, token, uint64(100+i))
		want = append(want, addr)
	}

	for _, pageSize := range []int{1, 2, 3, 100} {
		accounts, err := NewScanner(db, WithPageSize(pageSize)).Snapshot(context.Background(), token)
		if err != nil {
			t.Fatalf("page %d: Snapshot: %v", pageSize, err)
		}
		if len(accounts) != len(want) {
			t.Fatalf("page %d: got %d accounts, want %d", pageSize, len(accounts), len(want))
		}
		for i, acc := range accounts {
			if acc.Address != want[i] {
				t.Errorf("page %d: account %d = %s, want %s", pageSize, i, acc.Address.Hex(), want[i].Hex())
			}
			if acc.Balance.Uint64() != uint64(100+i) {
				t.Errorf("page %d: balance %d = %s", pageSize, i, acc.Balance.Dec())
			}
		}
	}
}

func TestSnapshot_MaxAddress(t *testing.T) {
	db := storage.NewMemory()
	token := types.MainnetTokenID

	var max types.Address
	for i := range max {
		max[i] = 0xff
	}
	putBalance(t, db, types.Address{0x01}, token, 5)
	putBalance(t, db, max, token, 9)

	accounts, err := NewScanner(db, WithPageSize(1)).Snapshot(context.Background(), token)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(accounts) != 2 || accounts[1].Address != max {
		t.Fatalf("expected max address as last account, got %+v", accounts)
	}
}

func TestSnapshot_FiltersTokenAndZeroBalance(t *testing.T) {
	db := storage.NewMemory()
	lsk := types.TestnetTokenID
	other := types.TokenID{0x01, 0, 0, 0, 0, 0, 0, 0x01}

	putBalance(t, db, types.Address{0x01}, lsk, 10)
	putBalance(t, db, types.Address{0x01}, other, 999)
	putBalance(t, db, types.Address{0x02}, other, 50)
	putBalance(t, db, types.Address{0x03}, lsk, 0)
	putBalance(t, db, types.Address{0x04}, lsk, 0, 7)

	accounts, err := NewScanner(db, WithPageSize(2)).Snapshot(context.Background(), lsk)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}
	if accounts[0].Address != (types.Address{0x01}) || accounts[0].Balance.Uint64() != 10 {
		t.Errorf("account 0 = %+v", accounts[0])
	}
	if accounts[1].Address != (types.Address{0x04}) || accounts[1].Balance.Uint64() != 7 {
		t.Errorf("locked-only account = %+v", accounts[1])
	}
}

func TestSnapshot_PageEndsBeforeRequestedToken(t *testing.T) {
	db := storage.NewMemory()
	wanted := types.TestnetTokenID
	lower := types.MainnetTokenID

	a := types.Address{0x01}
	b := types.Address{0x02}
	putBalance(t, db, a, wanted, 1)
	putBalance(t, db, b, lower, 2)
	putBalance(t, db, b, wanted, 3)

	// The first page is [a/wanted, b/lower]; b/wanted must still be found.
	accounts, err := NewScanner(db, WithPageSize(2)).Snapshot(context.Background(), wanted)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(accounts) != 2 || accounts[1].Address != b || accounts[1].Balance.Uint64() != 3 {
		t.Fatalf("got %+v", accounts)
	}
}

func TestSnapshot_Multisig(t *testing.T) {
	db := storage.NewMemory()
	token := types.MainnetTokenID

	holder := types.Address{0x01}
	regular := types.Address{0x02}
	noBalance := types.Address{0x03}

	putBalance(t, db, holder, token, 100)
	putBalance(t, db, regular, token, 200)

	putAuth(t, db, holder, &AuthAccount{
		Nonce:              1,
		NumberOfSignatures: 2,
		MandatoryKeys:      []types.PublicKey{{0xaa}},
		OptionalKeys:       []types.PublicKey{{0xbb}, {0xcc}},
	})
	putAuth(t, db, regular, &AuthAccount{Nonce: 4})
	putAuth(t, db, noBalance, &AuthAccount{NumberOfSignatures: 1, MandatoryKeys: []types.PublicKey{{0xdd}}})

	accounts, err := NewScanner(db, WithPageSize(1)).Snapshot(context.Background(), token)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}
	ms := accounts[0]
	if !ms.IsMultisig() || ms.NumberOfSignatures != 2 || len(ms.MandatoryKeys) != 1 || len(ms.OptionalKeys) != 2 {
		t.Errorf("multisig account = %+v", ms)
	}
	if accounts[1].IsMultisig() {
		t.Error("regular account should not carry multisig config")
	}
}

func TestSnapshot_DecodeFailure(t *testing.T) {
	db := storage.NewMemory()
	db.Put(BalanceKey(types.Address{0x01}, types.MainnetTokenID), []byte{0xff})

	_, err := NewScanner(db).Snapshot(context.Background(), types.MainnetTokenID)
	if !errors.Is(err, ErrDecodeFailure) {
		t.Errorf("error = %v, want ErrDecodeFailure", err)
	}
}

type failingStore struct{ err error }

func (f failingStore) Iterate(_, _ []byte, _ int, _ func(key, value []byte) error) error {
	return f.err
}

func TestSnapshot_StoreError(t *testing.T) {
	_, err := NewScanner(failingStore{errors.New("disk gone")}).Snapshot(context.Background(), types.MainnetTokenID)
	if !errors.Is(err, ErrStoreIO) {
		t.Errorf("error = %v, want ErrStoreIO", err)
	}
}

func TestSnapshot_Canceled(t *testing.T) {
	db := storage.NewMemory()
	putBalance(t, db, types.Address{0x01}, types.MainnetTokenID, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewScanner(db).Snapshot(ctx, types.MainnetTokenID); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestSnapshot_Badger(t *testing.T) {
	db, err := storage.NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer db.Close()

	for i := 1; i <= 5; i++ {
		putBalance(t, db, types.Address{byte(i)}, types.MainnetTokenID, uint64(i))
	}
	accounts, err := NewScanner(db, WithPageSize(2)).Snapshot(context.Background(), types.MainnetTokenID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(accounts) != 5 {
		t.Errorf("got %d accounts, want 5", len(accounts))
	}
}

package claim

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Klingon-tech/token-claim/pkg/crypto"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

func TestClaimMessage(t *testing.T) {
	leaf := types.Hash{0x01, 31: 0xff}
	dest := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	msg := ClaimMessage(leaf, dest)
	if len(msg) != 41 {
		t.Fatalf("message length = %d, want 41", len(msg))
	}
	if !bytes.Equal(msg[32:], make([]byte, 9)) {
		t.Errorf("padding = %x, want zeros", msg[32:])
	}

	// abi.encode(bytes32, address) is two 32-byte words, the address left-padded.
	var encoded []byte
	encoded = append(encoded, leaf[:]...)
	encoded = append(encoded, make([]byte, 12)...)
	encoded = append(encoded, dest[:]...)
	want := crypto.Keccak256(encoded)
	if !bytes.Equal(msg[:32], want[:]) {
		t.Errorf("digest = %x, want %x", msg[:32], want)
	}
}

func TestSignMessage_Verifies(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	leaf := types.Hash{0x42}
	dest := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	r, s, err := SignMessage(key, leaf, dest)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	sig := append(r.Bytes(), s.Bytes()...)
	if !crypto.VerifySignature(ClaimMessage(leaf, dest), sig, key.PublicKey()) {
		t.Error("signature does not verify")
	}
}

func TestParseDestination(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", "", true},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1bea", "", true},
		{"lskbqdbu354hz87mnc7pddk8ywef33jnuqc5odhbp", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDestination(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDestination) {
				t.Errorf("ParseDestination(%q) error = %v, want ErrInvalidDestination", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDestination(%q): %v", tt.in, err)
			continue
		}
		if got.Hex() != tt.want {
			t.Errorf("ParseDestination(%q) = %s, want %s", tt.in, got.Hex(), tt.want)
		}
	}
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock(types.Address{0x01})
	unlockB := k.Lock(types.Address{0x02})
	if k.size() != 2 {
		t.Errorf("size = %d, want 2", k.size())
	}
	unlockA()
	unlockB()
	if k.size() != 0 {
		t.Errorf("size after unlock = %d, want 0", k.size())
	}
}

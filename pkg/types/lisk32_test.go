package types

import (
	"strings"
	"testing"
)

var knownLisk32 = []string{
	"lskbqdbu354hz87mnc7pddk8ywef33jnuqc5odhbp",
	"lskmpb6xzeux5tk65qm7ffs5qdtm7cu5b2rmog6tr",
	"lskqbhxe6h7ymjkg6h4dq6s88ptm4qh3jke7g4nva",
	"lskhysxtgcjjen7tsn8su64y3fs85knymvugw3wyt",
}

func TestLisk32_DecodeEncodeRoundtrip(t *testing.T) {
	for _, s := range knownLisk32 {
		data, err := Lisk32Decode(s)
		if err != nil {
			t.Fatalf("Lisk32Decode(%s): %v", s, err)
		}
		if len(data) != AddressSize {
			t.Fatalf("decoded length = %d, want %d", len(data), AddressSize)
		}
		got, err := Lisk32Encode(data)
		if err != nil {
			t.Fatalf("Lisk32Encode: %v", err)
		}
		if got != s {
			t.Errorf("roundtrip = %s, want %s", got, s)
		}
	}
}

func TestLisk32_EncodeDecodeRoundtrip(t *testing.T) {
	addrs := [][]byte{
		make([]byte, 20),
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a,
			0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14},
	}
	for _, addr := range addrs {
		s, err := Lisk32Encode(addr)
		if err != nil {
			t.Fatalf("Lisk32Encode: %v", err)
		}
		if len(s) != Lisk32Length {
			t.Errorf("encoded length = %d, want %d", len(s), Lisk32Length)
		}
		if !strings.HasPrefix(s, Lisk32Prefix) {
			t.Errorf("encoded %s missing prefix", s)
		}
		back, err := Lisk32Decode(s)
		if err != nil {
			t.Fatalf("Lisk32Decode(%s): %v", s, err)
		}
		if string(back) != string(addr) {
			t.Errorf("roundtrip mismatch: %x != %x", back, addr)
		}
	}
}

func TestLisk32_EncodeWrongLength(t *testing.T) {
	if _, err := Lisk32Encode(make([]byte, 19)); err == nil {
		t.Error("expected error for 19-byte input")
	}
}

func TestLisk32_DecodeInvalid(t *testing.T) {
	valid := knownLisk32[0]
	// Swap one character for another charset member.
	mutated := []byte(valid)
	if mutated[10] == 'z' {
		mutated[10] = 'x'
	} else {
		mutated[10] = 'z'
	}

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"wrong prefix", "smd" + valid[3:]},
		{"too short", valid[:38]},
		{"too long", valid + "z"},
		{"bad charset", valid[:10] + "1" + valid[11:]},
		{"uppercase", strings.ToUpper(valid)},
		{"bad checksum", string(mutated)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Lisk32Decode(tt.in); err == nil {
				t.Errorf("Lisk32Decode(%q) should fail", tt.in)
			}
		})
	}
}

package types

import (
	"fmt"
	"strings"
)

// Lisk32Prefix is the human-readable prefix of every Lisk32 address.
const Lisk32Prefix = "lsk"

// Lisk32Length is the length of an encoded address: prefix, 32 data
// characters and 6 checksum characters.
const Lisk32Length = len(Lisk32Prefix) + 32 + 6

// Lisk32 charset (LIP-0018).
const lisk32Charset = "zxvcpmbn3465o978uyrtkqew2adsjhfg"

// lisk32CharsetRev maps charset characters to their 5-bit values. -1 = invalid.
var lisk32CharsetRev [128]int8

func init() {
	for i := range lisk32CharsetRev {
		lisk32CharsetRev[i] = -1
	}
	for i, c := range lisk32Charset {
		lisk32CharsetRev[c] = int8(i)
	}
}

// Lisk32Encode encodes a 20-byte address as "lsk" + base32 data + checksum.
func Lisk32Encode(addr []byte) (string, error) {
	if len(addr) != AddressSize {
		return "", fmt.Errorf("lisk32: address must be %d bytes, got %d", AddressSize, len(addr))
	}
	conv, err := convertBits(addr, 8, 5, false)
	if err != nil {
		return "", fmt.Errorf("lisk32: convert bits: %w", err)
	}
	chk := lisk32CreateChecksum(conv)

	var sb strings.Builder
	sb.Grow(Lisk32Length)
	sb.WriteString(Lisk32Prefix)
	for _, b := range conv {
		sb.WriteByte(lisk32Charset[b])
	}
	for _, b := range chk {
		sb.WriteByte(lisk32Charset[b])
	}
	return sb.String(), nil
}

// Lisk32Decode validates a Lisk32 address and returns its 20 raw bytes.
func Lisk32Decode(s string) ([]byte, error) {
	if len(s) != Lisk32Length {
		return nil, fmt.Errorf("lisk32: address length must be %d, got %d", Lisk32Length, len(s))
	}
	if !strings.HasPrefix(s, Lisk32Prefix) {
		return nil, fmt.Errorf("lisk32: missing %q prefix", Lisk32Prefix)
	}

	dataStr := s[len(Lisk32Prefix):]
	data5 := make([]byte, len(dataStr))
	for i, c := range dataStr {
		if c > 127 || lisk32CharsetRev[c] < 0 {
			return nil, fmt.Errorf("lisk32: invalid character %q", c)
		}
		data5[i] = byte(lisk32CharsetRev[c])
	}

	if lisk32Polymod(data5) != 1 {
		return nil, fmt.Errorf("lisk32: invalid checksum")
	}

	data8, err := convertBits(data5[:len(data5)-6], 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("lisk32: convert bits: %w", err)
	}
	return data8, nil
}

// lisk32Polymod is the bech32 polynomial modulus without HRP expansion.
func lisk32Polymod(values []byte) uint32 {
	gen := [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func lisk32CreateChecksum(data []byte) []byte {
	values := make([]byte, 0, len(data)+6)
	values = append(values, data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	polymod := lisk32Polymod(values) ^ 1
	ret := make([]byte, 6)
	for i := 0; i < 6; i++ {
		ret[i] = byte((polymod >> uint(5*(5-i))) & 31)
	}
	return ret
}

// convertBits converts between bit groups.
// fromBits/toBits are the source/destination group sizes (e.g. 8 and 5).
// pad controls whether incomplete groups are zero-padded.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	maxv := uint32((1 << toBits) - 1)
	var ret []byte

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data byte: %d", b)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			ret = append(ret, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			ret = append(ret, byte((acc<<(toBits-bits))&maxv))
		}
	} else {
		if bits >= fromBits {
			return nil, fmt.Errorf("non-zero padding")
		}
		if (acc<<(toBits-bits))&maxv != 0 {
			return nil, fmt.Errorf("non-zero padding")
		}
	}
	return ret, nil
}

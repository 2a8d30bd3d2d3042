package snapshot

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/holiman/uint256"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	moduleNameMinLength = 1
	moduleNameMaxLength = 32
)

// LockedBalance is an amount held by a module on behalf of an account.
type LockedBalance struct {
	Module string
	Amount uint64
}

// UserBalance is the token store record of one (address, token) pair.
type UserBalance struct {
	AvailableBalance uint64
	LockedBalances   []LockedBalance
}

// Total returns the available balance plus every locked amount.
func (b *UserBalance) Total() *uint256.Int {
	total := uint256.NewInt(b.AvailableBalance)
	for _, lb := range b.LockedBalances {
		total.Add(total, uint256.NewInt(lb.Amount))
	}
	return total
}

// AuthAccount is the auth store record of one address.
type AuthAccount struct {
	Nonce              uint64
	NumberOfSignatures uint32
	MandatoryKeys      []types.PublicKey
	OptionalKeys       []types.PublicKey
}

// fieldReader walks a protobuf-wire message and enforces the strict field
// rules of the state codec: ascending field numbers, no unknown fields and
// only repeated fields may appear more than once.
type fieldReader struct {
	buf  []byte
	last protowire.Number
}

// next returns the next field number and wire type, or 0 at end of input.
func (r *fieldReader) next(maxField protowire.Number, repeated func(protowire.Number) bool) (protowire.Number, protowire.Type, error) {
	if len(r.buf) == 0 {
		return 0, 0, nil
	}
	num, typ, n := protowire.ConsumeTag(r.buf)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: tag: %v", ErrDecodeFailure, protowire.ParseError(n))
	}
	if num > maxField {
		return 0, 0, fmt.Errorf("%w: unknown field %d", ErrDecodeFailure, num)
	}
	if num < r.last || (num == r.last && !repeated(num)) {
		return 0, 0, fmt.Errorf("%w: field %d out of order", ErrDecodeFailure, num)
	}
	r.last = num
	r.buf = r.buf[n:]
	return num, typ, nil
}

func (r *fieldReader) varint(num protowire.Number, typ protowire.Type) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("%w: field %d: wire type %d, want varint", ErrDecodeFailure, num, typ)
	}
	v, n := protowire.ConsumeVarint(r.buf)
	if n < 0 {
		return 0, fmt.Errorf("%w: field %d: %v", ErrDecodeFailure, num, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return v, nil
}

func (r *fieldReader) bytes(num protowire.Number, typ protowire.Type) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, fmt.Errorf("%w: field %d: wire type %d, want bytes", ErrDecodeFailure, num, typ)
	}
	v, n := protowire.ConsumeBytes(r.buf)
	if n < 0 {
		return nil, fmt.Errorf("%w: field %d: %v", ErrDecodeFailure, num, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return v, nil
}

func notRepeated(protowire.Number) bool { return false }

// DecodeUserBalance decodes a token store value.
func DecodeUserBalance(data []byte) (*UserBalance, error) {
	r := &fieldReader{buf: data}
	out := &UserBalance{}
	var seenAvailable bool

	for {
		num, typ, err := r.next(2, func(n protowire.Number) bool { return n == 2 })
		if err != nil {
			return nil, err
		}
		if num == 0 {
			break
		}
		switch num {
		case 1:
			if out.AvailableBalance, err = r.varint(num, typ); err != nil {
				return nil, err
			}
			seenAvailable = true
		case 2:
			raw, err := r.bytes(num, typ)
			if err != nil {
				return nil, err
			}
			lb, err := decodeLockedBalance(raw)
			if err != nil {
				return nil, err
			}
			out.LockedBalances = append(out.LockedBalances, lb)
		}
	}

	if !seenAvailable {
		return nil, fmt.Errorf("%w: missing availableBalance", ErrDecodeFailure)
	}
	return out, nil
}

func decodeLockedBalance(data []byte) (LockedBalance, error) {
	r := &fieldReader{buf: data}
	var lb LockedBalance
	var seenModule, seenAmount bool

	for {
		num, typ, err := r.next(2, notRepeated)
		if err != nil {
			return LockedBalance{}, err
		}
		if num == 0 {
			break
		}
		switch num {
		case 1:
			raw, err := r.bytes(num, typ)
			if err != nil {
				return LockedBalance{}, err
			}
			if len(raw) < moduleNameMinLength || len(raw) > moduleNameMaxLength || !utf8.Valid(raw) {
				return LockedBalance{}, fmt.Errorf("%w: invalid locked balance module %q", ErrDecodeFailure, raw)
			}
			lb.Module = string(raw)
			seenModule = true
		case 2:
			if lb.Amount, err = r.varint(num, typ); err != nil {
				return LockedBalance{}, err
			}
			seenAmount = true
		}
	}

	if !seenModule || !seenAmount {
		return LockedBalance{}, fmt.Errorf("%w: incomplete locked balance", ErrDecodeFailure)
	}
	return lb, nil
}

// DecodeAuthAccount decodes an auth store value.
func DecodeAuthAccount(data []byte) (*AuthAccount, error) {
	r := &fieldReader{buf: data}
	out := &AuthAccount{}
	var seenNonce, seenNumSig bool

	for {
		num, typ, err := r.next(4, func(n protowire.Number) bool { return n == 3 || n == 4 })
		if err != nil {
			return nil, err
		}
		if num == 0 {
			break
		}
		switch num {
		case 1:
			if out.Nonce, err = r.varint(num, typ); err != nil {
				return nil, err
			}
			seenNonce = true
		case 2:
			v, err := r.varint(num, typ)
			if err != nil {
				return nil, err
			}
			if v > math.MaxUint32 {
				return nil, fmt.Errorf("%w: numberOfSignatures %d exceeds uint32", ErrDecodeFailure, v)
			}
			out.NumberOfSignatures = uint32(v)
			seenNumSig = true
		case 3, 4:
			raw, err := r.bytes(num, typ)
			if err != nil {
				return nil, err
			}
			key, err := types.PublicKeyFromBytes(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: field %d: %v", ErrDecodeFailure, num, err)
			}
			if num == 3 {
				out.MandatoryKeys = append(out.MandatoryKeys, key)
			} else {
				out.OptionalKeys = append(out.OptionalKeys, key)
			}
		}
	}

	if !seenNonce || !seenNumSig {
		return nil, fmt.Errorf("%w: missing nonce or numberOfSignatures", ErrDecodeFailure)
	}
	return out, nil
}

// EncodeUserBalance encodes a token store value.
func EncodeUserBalance(b *UserBalance) []byte {
	var out []byte
	out = protowire.AppendTag(out, 1, protowire.VarintType)
	out = protowire.AppendVarint(out, b.AvailableBalance)
	for _, lb := range b.LockedBalances {
		var inner []byte
		inner = protowire.AppendTag(inner, 1, protowire.BytesType)
		inner = protowire.AppendString(inner, lb.Module)
		inner = protowire.AppendTag(inner, 2, protowire.VarintType)
		inner = protowire.AppendVarint(inner, lb.Amount)

		out = protowire.AppendTag(out, 2, protowire.BytesType)
		out = protowire.AppendBytes(out, inner)
	}
	return out
}

// EncodeAuthAccount encodes an auth store value.
func EncodeAuthAccount(a *AuthAccount) []byte {
	var out []byte
	out = protowire.AppendTag(out, 1, protowire.VarintType)
	out = protowire.AppendVarint(out, a.Nonce)
	out = protowire.AppendTag(out, 2, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(a.NumberOfSignatures))
	for _, k := range a.MandatoryKeys {
		out = protowire.AppendTag(out, 3, protowire.BytesType)
		out = protowire.AppendBytes(out, k[:])
	}
	for _, k := range a.OptionalKeys {
		out = protowire.AppendTag(out, 4, protowire.BytesType)
		out = protowire.AppendBytes(out, k[:])
	}
	return out
}

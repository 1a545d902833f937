package amf3

import (
	"encoding/binary"
	"fmt"
)

const (
	u29Max      = 1<<29 - 1
	u29ThreeMax = 1 << 21
	u29TwoMax   = 1 << 14
	u29OneMax   = 1 << 7
	// i28Min/i28Max bound the signed range the Integer tag can carry;
	// values outside must be emitted as Double instead.
	i28Min = -(1 << 28)
	i28Max = 1<<28 - 1
)

// encodeU29 returns the 1-4 byte variable-length encoding of n, per
// spec.md §4.1. n must be in [0, 2^29-1].
func encodeU29(n uint32) ([]byte, error) {
	switch {
	case n > u29Max:
		return nil, fmt.Errorf("u29 %d exceeds 2^29-1: %w", n, ErrValueOutOfRange)
	case n < u29OneMax:
		return []byte{byte(n)}, nil
	case n < u29TwoMax:
		return []byte{
			byte(n>>7) | 0x80,
			byte(n & 0x7F),
		}, nil
	case n < u29ThreeMax:
		return []byte{
			byte(n>>14) | 0x80,
			byte(n>>7) | 0x80,
			byte(n & 0x7F),
		}, nil
	default:
		return []byte{
			byte(n>>22) | 0x80,
			byte(n>>15) | 0x80,
			byte(n>>8) | 0x80,
			byte(n),
		}, nil
	}
}

// decodeU29 reads a U29 from b starting at offset off, returning the
// decoded value and the number of bytes consumed.
func decodeU29(b []byte, off int) (uint32, int, error) {
	var result uint32
	for i := 0; i < 4; i++ {
		if off+i >= len(b) {
			return 0, 0, fmt.Errorf("u29 truncated at byte %d: %w", i, ErrDecode)
		}
		c := b[off+i]
		if i == 3 {
			// Fourth byte contributes a full 8 bits, no continuation flag.
			result = (result << 8) | uint32(c)
			return result, i + 1, nil
		}
		result = (result << 7) | uint32(c&0x7F)
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	return result, 4, nil
}

// encodeSignedU29 maps a signed integer in [-2^28, 2^28-1] onto the U29
// wire encoding, per spec.md §4.1's tag 0x04 body.
func encodeSignedU29(n int32) ([]byte, error) {
	if n < i28Min || n > i28Max {
		return nil, fmt.Errorf("integer %d outside signed-29 range: %w", n, ErrValueOutOfRange)
	}
	u := uint32(n) & u29Max
	return encodeU29(u)
}

// decodeSignedU29 reverses encodeSignedU29: the high bit of the 29-bit
// unsigned value (bit 28) marks a negative number, subtracting 2^29.
func decodeSignedU29(b []byte, off int) (int32, int, error) {
	u, n, err := decodeU29(b, off)
	if err != nil {
		return 0, 0, err
	}
	if u&(1<<28) != 0 {
		return int32(u) - (1 << 29), n, nil
	}
	return int32(u), n, nil
}

// fitsSignedU29 reports whether n can be carried by the Integer tag
// instead of falling back to Double.
func fitsSignedU29(n int64) bool {
	return n >= i28Min && n <= i28Max
}

// encodeUTF8Modified encodes s as a 2-byte big-endian length prefix
// followed by its raw UTF-8 bytes, per spec.md §4.9. The pair is
// unexported and is not called from outside this package; the amf0
// parser reads its length-prefixed strings itself.
func encodeUTF8Modified(s string) ([]byte, error) {
	b := []byte(s)
	if len(b) > 0xFFFF {
		return nil, fmt.Errorf("modified-utf8 length %d exceeds 2^16-1: %w", len(b), ErrValueOutOfRange)
	}
	out := make([]byte, 2+len(b))
	binary.BigEndian.PutUint16(out, uint16(len(b)))
	copy(out[2:], b)
	return out, nil
}

// decodeUTF8Modified reverses encodeUTF8Modified.
func decodeUTF8Modified(b []byte) (string, error) {
	if len(b) < 2 {
		return "", fmt.Errorf("modified-utf8 header truncated: %w", ErrDecode)
	}
	n := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+n {
		return "", fmt.Errorf("modified-utf8 body truncated: %w", ErrDecode)
	}
	return string(b[2 : 2+n]), nil
}

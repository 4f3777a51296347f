package ravrf

import "encoding/binary"

// Checksum16 folds an ordered sequence of items into a 16-bit checksum.
//
// Each item must be one of: an integer (reduced to the byte-wise sum of its
// four-byte little-endian representation), a string (reduced to the sum of
// its UTF-8 bytes), or a byte slice (reduced to the sum of its bytes). The
// total is reduced modulo 2^16; a zero result is replaced by 13 so that zero
// uniquely marks an uninitialized checksum field. Any other item kind fails
// with ErrorCode Invalid.
func Checksum16(items ...any) (uint16, error) {
	var total uint32
	for _, item := range items {
		switch v := item.(type) {
		case string:
			total += sumBytes([]byte(v))
		case []byte:
			total += sumBytes(v)
		default:
			n, ok := asUint32(v)
			if !ok {
				return 0, NewError(Invalid, "unsupported checksum item kind", nil)
			}
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], n)
			total += sumBytes(b[:])
		}
	}
	total &= 0xFFFF
	if total == 0 {
		return 13, nil
	}
	return uint16(total), nil
}

func sumBytes(b []byte) uint32 {
	var s uint32
	for _, c := range b {
		s = (s + uint32(c)) & 0xFFFF
	}
	return s
}

// asUint32 widens the supported integer kinds into a uint32 for the
// little-endian four-byte reduction. Negative signed values wrap the same
// way a four-byte little-endian pack of a negative int would.
func asUint32(v any) (uint32, bool) {
	switch n := v.(type) {
	case int:
		return uint32(n), true
	case int8:
		return uint32(n), true
	case int16:
		return uint32(n), true
	case int32:
		return uint32(n), true
	case int64:
		return uint32(n), true
	case uint:
		return uint32(n), true
	case uint8:
		return uint32(n), true
	case uint16:
		return uint32(n), true
	case uint32:
		return n, true
	case uint64:
		return uint32(n), true
	default:
		return 0, false
	}
}

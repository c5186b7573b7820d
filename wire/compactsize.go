package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Compact-size prefixes, per spec §6.
const (
	cs16 = 0xfd
	cs32 = 0xfe
	cs64 = 0xff
)

// WriteCompactSize writes n using Bitcoin's variable-length compact-size
// encoding: values below 0xfd encode as a single byte, values up to 0xffff
// as 0xfd followed by 2 little-endian bytes, up to 0xffffffff as 0xfe
// followed by 4, and anything larger as 0xff followed by 8.
func WriteCompactSize(w io.Writer, n uint64) error {
	switch {
	case n < cs16:
		_, err := w.Write([]byte{byte(n)})
		return err
	case n <= 0xffff:
		buf := make([]byte, 3)
		buf[0] = cs16
		binary.LittleEndian.PutUint16(buf[1:], uint16(n))
		_, err := w.Write(buf)
		return err
	case n <= 0xffffffff:
		buf := make([]byte, 5)
		buf[0] = cs32
		binary.LittleEndian.PutUint32(buf[1:], uint32(n))
		_, err := w.Write(buf)
		return err
	default:
		buf := make([]byte, 9)
		buf[0] = cs64
		binary.LittleEndian.PutUint64(buf[1:], n)
		_, err := w.Write(buf)
		return err
	}
}

// ReadCompactSize reads a compact-size encoded integer. It rejects
// non-minimal encodings (BIP-writer convention followed by every consensus
// implementation in the retrieval pack), since a maximally-large prefix for
// a small value is a common malleability/DoS vector.
func ReadCompactSize(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, err
	}

	switch prefix[0] {
	case cs16:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint16(buf[:]))
		if v < cs16 {
			return 0, fmt.Errorf("non-minimal compact-size encoding")
		}
		return v, nil
	case cs32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint32(buf[:]))
		if v <= 0xffff {
			return 0, fmt.Errorf("non-minimal compact-size encoding")
		}
		return v, nil
	case cs64:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint64(buf[:])
		if v <= 0xffffffff {
			return 0, fmt.Errorf("non-minimal compact-size encoding")
		}
		return v, nil
	default:
		return uint64(prefix[0]), nil
	}
}

// CompactSizeLen returns the number of bytes WriteCompactSize would emit
// for n, used by callers that need to precompute serialized sizes.
func CompactSizeLen(n uint64) int {
	switch {
	case n < cs16:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// readVarBytes reads a compact-size length prefix followed by that many
// bytes, guarding against a length prefix larger than the remaining input
// could plausibly contain.
func readVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	n, err := ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	if n > maxAllowed {
		return nil, fmt.Errorf("%s length %d exceeds max allowed %d",
			fieldName, n, maxAllowed)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeVarBytes(w io.Writer, b []byte) error {
	if err := WriteCompactSize(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

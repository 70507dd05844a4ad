package pipeline

import (
	"errors"
	"io"
)

const (
	// MaxVarIntBytes is the widest encoding of a 32-bit varint.
	MaxVarIntBytes = 5
	// frameLengthBytes limits frame length prefixes to 21 bits.
	frameLengthBytes = 3
)

var (
	ErrBadVarInt     = errors.New("pipeline: varint too wide")
	ErrFrameTooLarge = errors.New("pipeline: frame length wider than 21 bits")
	ErrEmptyFrame    = errors.New("pipeline: empty frame")
)

// ReadVarInt reads a little-endian base-128 varint of at most maxBytes bytes.
func ReadVarInt(r io.ByteReader, maxBytes int) (int32, error) {
	var v uint32
	for i := 0; i < maxBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && errors.Is(err, io.EOF) {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int32(v), nil
		}
	}
	return 0, ErrBadVarInt
}

func AppendVarInt(dst []byte, v int32) []byte {
	u := uint32(v)
	for u >= 0x80 {
		dst = append(dst, byte(u)|0x80)
		u >>= 7
	}
	return append(dst, byte(u))
}

func VarIntSize(v int32) int {
	u := uint32(v)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the largest payload a 21-bit length prefix can describe.
const MaxFrameSize = 1<<21 - 1

// ReadFrame reads one varint-length-prefixed frame.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	n, err := ReadVarInt(r, frameLengthBytes)
	if err != nil {
		if errors.Is(err, ErrBadVarInt) {
			return nil, ErrFrameTooLarge
		}
		return nil, err
	}
	if n < 0 {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// AppendFrame appends payload to dst behind its length prefix.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	dst = AppendVarInt(dst, int32(len(payload)))
	return append(dst, payload...), nil
}

package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MaxStringBytes caps the UTF-8 length of a wire string.
const MaxStringBytes = 32767 * 4

// AppendString appends s as a varint length followed by its UTF-8 bytes.
func AppendString(dst []byte, s string) []byte {
	dst = AppendVarInt(dst, int32(len(s)))
	return append(dst, s...)
}

// ReadString reads a string written by AppendString.
func ReadString(r *bytes.Reader) (string, error) {
	n, err := ReadVarInt(r, MaxVarIntBytes)
	if err != nil {
		return "", err
	}
	if n < 0 || int(n) > MaxStringBytes {
		return "", fmt.Errorf("pipeline: string length %d out of range", n)
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	_, _ = r.Read(b)
	return string(b), nil
}

// AppendChat appends text as a JSON chat component string.
func AppendChat(dst []byte, text string) []byte {
	b, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		b = []byte(`{"text":""}`)
	}
	return AppendString(dst, string(b))
}

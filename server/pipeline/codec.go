package pipeline

import (
	"bytes"
	"fmt"

	"netsys/server/domain"
)

// Codec turns frames into packets and back.
type Codec interface {
	Decode(frame []byte) (domain.Packet, error)
	Encode(pkt domain.Packet) ([]byte, error)
}

// PacketCodec frames a packet as a varint id followed by the opaque body.
type PacketCodec struct{}

func (PacketCodec) Decode(frame []byte) (domain.Packet, error) {
	if len(frame) == 0 {
		return domain.Packet{}, ErrEmptyFrame
	}
	r := bytes.NewReader(frame)
	id, err := ReadVarInt(r, MaxVarIntBytes)
	if err != nil {
		return domain.Packet{}, fmt.Errorf("packet id: %w", err)
	}
	return domain.Packet{ID: id, Data: frame[len(frame)-r.Len():]}, nil
}

func (PacketCodec) Encode(pkt domain.Packet) ([]byte, error) {
	out := make([]byte, 0, VarIntSize(pkt.ID)+len(pkt.Data))
	out = AppendVarInt(out, pkt.ID)
	return append(out, pkt.Data...), nil
}

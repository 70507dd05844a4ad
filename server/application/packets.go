package application

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"netsys/server/domain"
	"netsys/server/pipeline"
)

// パケットIDはプロトコル47のものです。
const (
	PacketHandshake = 0x00

	PacketStatusRequest  = 0x00
	PacketStatusPing     = 0x01
	PacketStatusResponse = 0x00
	PacketStatusPong     = 0x01

	PacketLoginStart      = 0x00
	PacketLoginDisconnect = 0x00
	PacketLoginSuccess    = 0x02

	PacketKeepAlive      = 0x00
	PacketPlayDisconnect = 0x40
)

// Intent はハンドシェイクで要求された次の状態です。
type Intent int32

const (
	IntentStatus Intent = 1
	IntentLogin  Intent = 2
)

var (
	// ErrUnexpectedPacket は現在の状態で受け付けないパケットが届いた場合に返されるエラーです。
	ErrUnexpectedPacket = errors.New("unexpected packet")
	// ErrUnknownIntent はハンドシェイクの次状態が不正な場合に返されるエラーです。
	ErrUnknownIntent = errors.New("unknown handshake intent")
	// ErrTrailingData はパケットの末尾に余分なデータがある場合に返されるエラーです。
	ErrTrailingData = errors.New("trailing data after packet")
)

type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	Intent          Intent
}

func ParseHandshake(data []byte) (Handshake, error) {
	r := bytes.NewReader(data)
	var h Handshake
	var err error
	if h.ProtocolVersion, err = pipeline.ReadVarInt(r, pipeline.MaxVarIntBytes); err != nil {
		return Handshake{}, fmt.Errorf("protocol version: %w", err)
	}
	if h.ServerAddress, err = pipeline.ReadString(r); err != nil {
		return Handshake{}, fmt.Errorf("server address: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &h.ServerPort); err != nil {
		return Handshake{}, fmt.Errorf("server port: %w", err)
	}
	intent, err := pipeline.ReadVarInt(r, pipeline.MaxVarIntBytes)
	if err != nil {
		return Handshake{}, fmt.Errorf("intent: %w", err)
	}
	h.Intent = Intent(intent)
	if r.Len() != 0 {
		return Handshake{}, ErrTrailingData
	}
	return h, nil
}

func (h Handshake) Packet() domain.Packet {
	b := pipeline.AppendVarInt(nil, h.ProtocolVersion)
	b = pipeline.AppendString(b, h.ServerAddress)
	b = binary.BigEndian.AppendUint16(b, h.ServerPort)
	b = pipeline.AppendVarInt(b, int32(h.Intent))
	return domain.Packet{ID: PacketHandshake, Data: b}
}

func LoginStart(name string) domain.Packet {
	return domain.Packet{ID: PacketLoginStart, Data: pipeline.AppendString(nil, name)}
}

func parseLoginStart(data []byte) (string, error) {
	r := bytes.NewReader(data)
	name, err := pipeline.ReadString(r)
	if err != nil {
		return "", fmt.Errorf("player name: %w", err)
	}
	if name == "" || len(name) > 16 {
		return "", fmt.Errorf("player name %q: invalid length", name)
	}
	return name, nil
}

func readInt64(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, io.ErrUnexpectedEOF
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

func unexpected(phase string, pkt domain.Packet) error {
	return fmt.Errorf("%s: %w 0x%02x", phase, ErrUnexpectedPacket, pkt.ID)
}

// disconnect は理由を送ってから接続を閉じます。送信の成否にかかわらず閉じます。
func disconnect(s *domain.Session, packetID int32, reason string) {
	s.Send(domain.Packet{ID: packetID, Data: pipeline.AppendChat(nil, reason)}, func(error) {
		s.Close(reason)
	})
	s.DisableReads()
}

package pipeline

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
)

const (
	legacyPingByte   = 0xFE
	legacyKickByte   = 0xFF
	legacyPluginByte = 0xFA
)

// LegacyStatus is what a pre-netty client sees in its server list.
type LegacyStatus struct {
	Protocol   int
	Version    string
	MOTD       string
	Online     int
	MaxPlayers int
}

type StatusProvider interface {
	LegacyStatus() LegacyStatus
}

// StaticStatus answers every query with the same status.
type StaticStatus LegacyStatus

func (s StaticStatus) LegacyStatus() LegacyStatus { return LegacyStatus(s) }

// SniffLegacy peeks at the first byte of a connection. A legacy status query
// is answered on w and reported as handled; anything else is left unread in br.
func SniffLegacy(br *bufio.Reader, w io.Writer, status StatusProvider) (bool, error) {
	first, err := br.Peek(1)
	if err != nil {
		return false, err
	}
	if first[0] != legacyPingByte {
		return false, nil
	}
	buffered, _ := br.Peek(br.Buffered())
	modern, ok := legacyShape(buffered)
	if !ok {
		// 0xFE also starts varint frame lengths 254, 382, ...
		return false, nil
	}
	_, _ = br.Discard(len(buffered))

	if _, err := w.Write(EncodeLegacyStatus(status.LegacyStatus(), modern)); err != nil {
		return true, fmt.Errorf("write legacy status: %w", err)
	}
	return true, nil
}

// legacyShape reports whether b is a whole legacy ping: bare 0xFE (pre-1.4),
// 0xFE 0x01 (1.4/1.5) or 0xFE 0x01 0xFA followed by the plugin message (1.6).
func legacyShape(b []byte) (modern, ok bool) {
	switch {
	case len(b) == 1:
		return false, true
	case len(b) == 2 && b[1] == 0x01:
		return true, true
	case len(b) >= 3 && b[1] == 0x01 && b[2] == legacyPluginByte:
		return true, true
	default:
		return false, false
	}
}

// EncodeLegacyStatus builds the kick packet carrying the status string.
func EncodeLegacyStatus(st LegacyStatus, modern bool) []byte {
	var s string
	if modern {
		s = strings.Join([]string{
			"§1",
			fmt.Sprint(st.Protocol),
			st.Version,
			st.MOTD,
			fmt.Sprint(st.Online),
			fmt.Sprint(st.MaxPlayers),
		}, "\x00")
	} else {
		s = fmt.Sprintf("%s§%d§%d", st.MOTD, st.Online, st.MaxPlayers)
	}

	units := utf16.Encode([]rune(s))
	out := make([]byte, 3, 3+2*len(units))
	out[0] = legacyKickByte
	binary.BigEndian.PutUint16(out[1:3], uint16(len(units)))
	for _, u := range units {
		out = binary.BigEndian.AppendUint16(out, u)
	}
	return out
}

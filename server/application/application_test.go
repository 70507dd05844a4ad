package application_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"netsys/server/application"
	"netsys/server/domain"
	"netsys/server/domain/mocks"
	"netsys/server/pipeline"

	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"
)

var testConfig = application.Config{
	Protocol:          47,
	Version:           "1.8.8",
	MOTD:              "A Test Server",
	MaxPlayers:        2,
	LoginTimeoutTicks: 3,
	KeepAliveTicks:    2,
}

// wire は送信されたパケットと Close の理由を記録するチャネルのモックです。
type wire struct {
	mu      sync.Mutex
	sent    []domain.Packet
	reasons []string
	open    bool
}

func newSession(t *testing.T, ctrl *gomock.Controller) (*domain.Session, *wire) {
	t.Helper()
	w := &wire{open: true}
	ch := mocks.NewMockChannel(ctrl)
	ch.EXPECT().IsLocal().Return(false).AnyTimes()
	ch.EXPECT().RemoteAddr().Return(nil).AnyTimes()
	ch.EXPECT().DisableRead().AnyTimes()
	ch.EXPECT().IsOpen().DoAndReturn(func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.open
	}).AnyTimes()
	ch.EXPECT().CloseReason().DoAndReturn(func() string {
		w.mu.Lock()
		defer w.mu.Unlock()
		if len(w.reasons) == 0 {
			return ""
		}
		return w.reasons[0]
	}).AnyTimes()
	ch.EXPECT().Send(gomock.Any(), gomock.Any()).Do(func(pkt domain.Packet, done func(error)) {
		w.mu.Lock()
		w.sent = append(w.sent, pkt)
		w.mu.Unlock()
		if done != nil {
			done(nil)
		}
	}).AnyTimes()
	ch.EXPECT().Close(gomock.Any()).Do(func(reason string) {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.reasons = append(w.reasons, reason)
		w.open = false
	}).AnyTimes()

	s := domain.NewSession(domain.DirectionServerbound)
	if err := s.AttachChannel(ch); err != nil {
		t.Fatal(err)
	}
	s.MarkReady()
	return s, w
}

func deliver(t *testing.T, s *domain.Session, pkts ...domain.Packet) error {
	t.Helper()
	for _, p := range pkts {
		s.Enqueue(p)
	}
	return s.ProcessReceived(context.Background())
}

func handshake(protocol int32, intent application.Intent) domain.Packet {
	return application.Handshake{
		ProtocolVersion: protocol,
		ServerAddress:   "localhost",
		ServerPort:      25565,
		Intent:          intent,
	}.Packet()
}

func readChat(t *testing.T, pkt domain.Packet) string {
	t.Helper()
	raw, err := pipeline.ReadString(bytes.NewReader(pkt.Data))
	if err != nil {
		t.Fatalf("read chat: %v", err)
	}
	var c struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("decode chat %q: %v", raw, err)
	}
	return c.Text
}

func TestParseHandshake_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		want := application.Handshake{
			ProtocolVersion: rapid.Int32().Draw(t, "protocol"),
			ServerAddress:   rapid.StringN(0, 255, -1).Draw(t, "addr"),
			ServerPort:      rapid.Uint16().Draw(t, "port"),
			Intent:          application.Intent(rapid.Int32Range(1, 2).Draw(t, "intent")),
		}
		got, err := application.ParseHandshake(want.Packet().Data)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})
}

func TestParseHandshake_TrailingData(t *testing.T) {
	pkt := handshake(47, application.IntentLogin)
	_, err := application.ParseHandshake(append(pkt.Data, 0x00))
	if !errors.Is(err, application.ErrTrailingData) {
		t.Fatalf("err = %v, want ErrTrailingData", err)
	}
}

func TestHandshake_Status(t *testing.T) {
	ctrl := gomock.NewController(t)
	host := application.NewHost(testConfig)
	s, w := newSession(t, ctrl)
	s.SetHandler(host.Handshake(s))

	ping := domain.Packet{ID: application.PacketStatusPing, Data: binary.BigEndian.AppendUint64(nil, 0xCAFE)}
	err := deliver(t, s,
		handshake(47, application.IntentStatus),
		domain.Packet{ID: application.PacketStatusRequest},
		ping,
	)
	if err != nil {
		t.Fatalf("ProcessReceived: %v", err)
	}
	if _, ok := s.Handler().(*application.StatusHandler); !ok {
		t.Fatalf("handler = %T, want *StatusHandler", s.Handler())
	}
	if len(w.sent) != 2 {
		t.Fatalf("sent %d packets, want 2", len(w.sent))
	}

	raw, err := pipeline.ReadString(bytes.NewReader(w.sent[0].Data))
	if err != nil {
		t.Fatal(err)
	}
	var resp struct {
		Version struct {
			Protocol int32 `json:"protocol"`
		} `json:"version"`
		Description struct {
			Text string `json:"text"`
		} `json:"description"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Version.Protocol != 47 || resp.Description.Text != "A Test Server" {
		t.Errorf("status response = %s", raw)
	}

	if !bytes.Equal(w.sent[1].Data, ping.Data) || w.sent[1].ID != application.PacketStatusPong {
		t.Errorf("pong = %v, want echo of %v", w.sent[1], ping)
	}
	if len(w.reasons) != 1 {
		t.Errorf("close reasons = %v, want one close after pong", w.reasons)
	}
}

func TestHandshake_LoginAndDisconnect(t *testing.T) {
	ctrl := gomock.NewController(t)
	host := application.NewHost(testConfig)
	s, w := newSession(t, ctrl)
	s.SetHandler(host.Handshake(s))

	if err := deliver(t, s, handshake(47, application.IntentLogin), application.LoginStart("Steve")); err != nil {
		t.Fatalf("ProcessReceived: %v", err)
	}
	if _, ok := s.Handler().(*application.PlayHandler); !ok {
		t.Fatalf("handler = %T, want *PlayHandler", s.Handler())
	}
	if host.Online() != 1 {
		t.Errorf("Online() = %d, want 1", host.Online())
	}
	if len(w.sent) != 1 || w.sent[0].ID != application.PacketLoginSuccess {
		t.Fatalf("sent = %v, want login success", w.sent)
	}
	r := bytes.NewReader(w.sent[0].Data)
	id, _ := pipeline.ReadString(r)
	name, _ := pipeline.ReadString(r)
	if id != "5627dd98-e6be-3c21-b8a8-e92344183641" || name != "Steve" {
		t.Errorf("login success = %q %q", id, name)
	}

	s.Close("End of stream")
	if !s.CheckDisconnected(context.Background()) {
		t.Fatal("CheckDisconnected did not fire")
	}
	if host.Online() != 0 {
		t.Errorf("Online() after disconnect = %d, want 0", host.Online())
	}
}

func TestOfflineUUID_KnownNames(t *testing.T) {
	for name, want := range map[string]string{
		"Notch": "b50ad385-829d-3141-a216-7e7d7539ba7f",
		"Steve": "5627dd98-e6be-3c21-b8a8-e92344183641",
	} {
		got := application.OfflineUUID(name)
		if got.String() != want {
			t.Errorf("OfflineUUID(%q) = %s, want %s", name, got, want)
		}
		if got.Version() != 3 {
			t.Errorf("OfflineUUID(%q) version = %d, want 3", name, got.Version())
		}
	}
}

func TestHandshake_OutdatedClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	host := application.NewHost(testConfig)
	s, w := newSession(t, ctrl)
	s.SetHandler(host.Handshake(s))

	if err := deliver(t, s, handshake(5, application.IntentLogin)); err != nil {
		t.Fatalf("ProcessReceived: %v", err)
	}
	if len(w.sent) != 1 || w.sent[0].ID != application.PacketLoginDisconnect {
		t.Fatalf("sent = %v, want login disconnect", w.sent)
	}
	if got := readChat(t, w.sent[0]); got != "Outdated client! Please use 1.8.8" {
		t.Errorf("reason = %q", got)
	}
	if !s.ReadsDisabled() {
		t.Error("reads still enabled after disconnect")
	}
	if s.IsOpen() {
		t.Error("session still open")
	}
}

func TestHandshake_RejectsUnknownIntentAndPacket(t *testing.T) {
	ctrl := gomock.NewController(t)
	host := application.NewHost(testConfig)

	s, _ := newSession(t, ctrl)
	s.SetHandler(host.Handshake(s))
	if err := deliver(t, s, handshake(47, 3)); !errors.Is(err, application.ErrUnknownIntent) {
		t.Errorf("err = %v, want ErrUnknownIntent", err)
	}

	s2, _ := newSession(t, ctrl)
	s2.SetHandler(host.Handshake(s2))
	if err := deliver(t, s2, domain.Packet{ID: 0x05}); !errors.Is(err, application.ErrUnexpectedPacket) {
		t.Errorf("err = %v, want ErrUnexpectedPacket", err)
	}
}

func TestMemoryHandshake_SkipsVersionCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	host := application.NewHost(testConfig)
	s, w := newSession(t, ctrl)
	s.SetHandler(host.MemoryHandshake(s))

	if err := deliver(t, s, handshake(1, application.IntentLogin), application.LoginStart("Alex")); err != nil {
		t.Fatalf("ProcessReceived: %v", err)
	}
	if _, ok := s.Handler().(*application.PlayHandler); !ok {
		t.Fatalf("handler = %T, want *PlayHandler", s.Handler())
	}
	if len(w.reasons) != 0 {
		t.Errorf("memory session was closed: %v", w.reasons)
	}
}

func TestLogin_TimesOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	host := application.NewHost(testConfig)
	s, w := newSession(t, ctrl)
	s.SetHandler(host.Handshake(s))
	if err := deliver(t, s, handshake(47, application.IntentLogin)); err != nil {
		t.Fatal(err)
	}

	for range testConfig.LoginTimeoutTicks {
		if err := s.ProcessReceived(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if len(w.sent) != 1 || readChat(t, w.sent[0]) != "Took too long to log in" {
		t.Fatalf("sent = %v, want login timeout disconnect", w.sent)
	}
}

func TestLogin_ServerFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	host := application.NewHost(application.Config{Protocol: 47, MaxPlayers: 1})

	first, _ := newSession(t, ctrl)
	first.SetHandler(host.Handshake(first))
	if err := deliver(t, first, handshake(47, application.IntentLogin), application.LoginStart("one")); err != nil {
		t.Fatal(err)
	}

	second, w := newSession(t, ctrl)
	second.SetHandler(host.Handshake(second))
	if err := deliver(t, second, handshake(47, application.IntentLogin), application.LoginStart("two")); err != nil {
		t.Fatal(err)
	}
	if len(w.sent) != 1 || readChat(t, w.sent[0]) != "The server is full!" {
		t.Fatalf("sent = %v, want server full disconnect", w.sent)
	}
	if host.Online() != 1 {
		t.Errorf("Online() = %d, want 1", host.Online())
	}
}

func TestPlay_KeepAlive(t *testing.T) {
	ctrl := gomock.NewController(t)
	host := application.NewHost(testConfig)
	s, w := newSession(t, ctrl)
	s.SetHandler(host.Handshake(s))
	if err := deliver(t, s, handshake(47, application.IntentLogin), application.LoginStart("Steve")); err != nil {
		t.Fatal(err)
	}
	// ログインした tick で Update が1回呼ばれている
	if err := s.ProcessReceived(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(w.sent) != 2 || w.sent[1].ID != application.PacketKeepAlive {
		t.Fatalf("sent = %v, want keep alive", w.sent)
	}

	// 応答すれば次の送信時期にも切断されない
	if err := deliver(t, s, domain.Packet{ID: application.PacketKeepAlive, Data: w.sent[1].Data}); err != nil {
		t.Fatal(err)
	}
	if err := s.ProcessReceived(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(w.sent) != 3 || w.sent[2].ID != application.PacketKeepAlive {
		t.Fatalf("sent = %v, want second keep alive", w.sent)
	}

	// 応答しなければ切断
	for range testConfig.KeepAliveTicks {
		if err := s.ProcessReceived(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	last := w.sent[len(w.sent)-1]
	if last.ID != application.PacketPlayDisconnect || readChat(t, last) != "Timed out" {
		t.Fatalf("last sent = %v, want play disconnect", last)
	}
}

func TestHost_LegacyStatus(t *testing.T) {
	host := application.NewHost(testConfig)
	st := host.LegacyStatus()
	if st.Protocol != 47 || st.Version != "1.8.8" || st.MOTD != "A Test Server" || st.MaxPlayers != 2 || st.Online != 0 {
		t.Errorf("LegacyStatus() = %+v", st)
	}
}

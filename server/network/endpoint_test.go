package network_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"netsys/server/domain"
	"netsys/server/network"
	"netsys/server/pipeline"
	"netsys/server/transport"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

// inbox はハンドラが受け取ったパケットを記録します。
type inbox struct {
	mu      sync.Mutex
	packets []domain.Packet
	reasons []string
}

func (b *inbox) Receive(_ context.Context, pkt domain.Packet) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.packets = append(b.packets, pkt)
	return nil
}

func (b *inbox) OnDisconnect(_ context.Context, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reasons = append(b.reasons, reason)
}

func (b *inbox) snapshot() ([]domain.Packet, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Packet(nil), b.packets...), append([]string(nil), b.reasons...)
}

func newSystem(t *testing.T, opts network.Options, box *inbox) *network.System {
	t.Helper()
	factory := func(*domain.Session) domain.Handler { return box }
	if opts.Handshake == nil {
		opts.Handshake = factory
	}
	if opts.LocalHandshake == nil {
		opts.LocalHandshake = factory
	}
	sys, err := network.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		sys.Shutdown(ctx)
	})
	return sys
}

func tick(t *testing.T, sys *network.System) {
	t.Helper()
	require.NoError(t, sys.Tick(context.Background()))
}

func writePacket(t *testing.T, w net.Conn, pkt domain.Packet) {
	t.Helper()
	body, err := pipeline.PacketCodec{}.Encode(pkt)
	require.NoError(t, err)
	frame, err := pipeline.AppendFrame(nil, body)
	require.NoError(t, err)
	_, err = w.Write(frame)
	require.NoError(t, err)
}

func TestAddEndpoint_SecondBindOnSameAddressFails(t *testing.T) {
	sys := newSystem(t, network.Options{}, &inbox{})

	ep, err := sys.AddEndpoint(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	port := ep.Addr().(*net.TCPAddr).Port

	_, err = sys.AddEndpoint(context.Background(), "127.0.0.1", port)
	require.Error(t, err)
	require.Len(t, sys.Endpoints(), 1)
}

func TestAddEndpoint_AfterTerminate(t *testing.T) {
	sys := newSystem(t, network.Options{}, &inbox{})
	sys.TerminateEndpoints(context.Background())

	_, err := sys.AddEndpoint(context.Background(), "127.0.0.1", 0)
	require.ErrorIs(t, err, network.ErrNotAlive)
	_, err = sys.AddLocalEndpoint(context.Background())
	require.ErrorIs(t, err, network.ErrNotAlive)
	require.False(t, sys.Alive())
}

func TestEndpoint_DeliversPacketsInOrder(t *testing.T) {
	box := &inbox{}
	sys := newSystem(t, network.Options{NativeTransport: true, ReadTimeout: 5 * time.Second}, box)
	ep, err := sys.AddEndpoint(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", ep.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	for i := range 4 {
		writePacket(t, conn, domain.Packet{ID: int32(i), Data: []byte{byte(i)}})
	}

	require.Eventually(t, func() bool {
		tick(t, sys)
		pkts, _ := box.snapshot()
		return len(pkts) == 4
	}, 2*time.Second, 10*time.Millisecond)

	pkts, _ := box.snapshot()
	for i, p := range pkts {
		require.Equal(t, int32(i), p.ID)
	}
}

func TestEndpoint_IdleSessionIsClosedWithoutMessages(t *testing.T) {
	box := &inbox{}
	sys := newSystem(t, network.Options{ReadTimeout: 100 * time.Millisecond}, box)
	ep, err := sys.AddEndpoint(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", ep.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return sys.SessionCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		tick(t, sys)
		return sys.SessionCount() == 0
	}, 2*time.Second, 20*time.Millisecond)

	pkts, reasons := box.snapshot()
	require.Empty(t, pkts)
	require.Equal(t, []string{pipeline.ReasonTimedOut}, reasons)
}

func TestEndpoint_AnswersLegacyQueryWithoutSession(t *testing.T) {
	sys := newSystem(t, network.Options{
		LegacyQuery: true,
		Status:      pipeline.StaticStatus{Protocol: 47, Version: "1.8.8", MOTD: "hi", Online: 1, MaxPlayers: 10},
	}, &inbox{})
	ep, err := sys.AddEndpoint(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", ep.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte{0xFE, 0x01})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	first, err := bufio.NewReader(conn).ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0xFF), first)
	require.Zero(t, sys.SessionCount())
}

func TestEndpoint_SilentClientIsDroppedBeforeSession(t *testing.T) {
	sys := newSystem(t, network.Options{
		LegacyQuery:   true,
		LegacyTimeout: 100 * time.Millisecond,
	}, &inbox{})
	ep, err := sys.AddEndpoint(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", ep.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// 何も送らないクライアントはセッションにならないまま閉じられる
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = bufio.NewReader(conn).ReadByte()
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, sys.SessionCount())
}

func TestEndpoint_LegacySniffPassesFramedClientWithoutReadTimeout(t *testing.T) {
	box := &inbox{}
	sys := newSystem(t, network.Options{
		LegacyQuery:   true,
		LegacyTimeout: 50 * time.Millisecond,
	}, box)
	ep, err := sys.AddEndpoint(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", ep.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	// 先頭が 0xFE になる長さ254のフレーム
	writePacket(t, conn, domain.Packet{ID: 0x00, Data: make([]byte, 253)})

	require.Eventually(t, func() bool {
		tick(t, sys)
		pkts, _ := box.snapshot()
		return len(pkts) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// sniff の期限は接続後には残らない
	time.Sleep(150 * time.Millisecond)
	tick(t, sys)
	require.Equal(t, 1, sys.SessionCount())
	_, reasons := box.snapshot()
	require.Empty(t, reasons)
}

func TestEndpoint_MalformedFrameDisconnects(t *testing.T) {
	box := &inbox{}
	sys := newSystem(t, network.Options{}, box)
	ep, err := sys.AddEndpoint(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", ep.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	// 21bit を超える長さ
	_, err = conn.Write([]byte{0xff, 0xff, 0xff, 0x01})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		tick(t, sys)
		return sys.SessionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	frame, err := pipeline.ReadFrame(bufio.NewReader(conn))
	require.NoError(t, err)
	pkt, err := pipeline.PacketCodec{}.Decode(frame)
	require.NoError(t, err)
	require.Equal(t, network.DisconnectPacket(network.ReasonInternalError), pkt)

	_, reasons := box.snapshot()
	require.Equal(t, []string{network.ReasonInternalError}, reasons)
}

func TestLocalEndpoint_RoundTrip(t *testing.T) {
	box := &inbox{}
	sys := newSystem(t, network.Options{}, box)
	addr, err := sys.AddLocalEndpoint(context.Background())
	require.NoError(t, err)

	client := &inbox{}
	cs, err := sys.DialLocal(context.Background(), addr, client)
	require.NoError(t, err)
	require.True(t, cs.IsLocal())
	require.Equal(t, domain.DirectionClientbound, cs.Direction())

	for i := range 3 {
		cs.Send(domain.Packet{ID: int32(i)}, nil)
	}
	require.Eventually(t, func() bool {
		tick(t, sys)
		pkts, _ := box.snapshot()
		return len(pkts) == 3
	}, 2*time.Second, 10*time.Millisecond)

	sessions := sys.Sessions()
	require.Len(t, sessions, 1)
	require.True(t, sessions[0].IsLocal())
	sessions[0].Send(domain.Packet{ID: 0x42}, nil)
	require.Eventually(t, func() bool {
		require.NoError(t, cs.ProcessReceived(context.Background()))
		pkts, _ := client.snapshot()
		return len(pkts) == 1 && pkts[0].ID == 0x42
	}, 2*time.Second, 10*time.Millisecond)
}

func TestShutdown_IsIdempotent(t *testing.T) {
	box := &inbox{}
	sys := newSystem(t, network.Options{}, box)
	ep, err := sys.AddEndpoint(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	_, err = sys.AddLocalEndpoint(context.Background())
	require.NoError(t, err)

	conn, err := net.Dial("tcp", ep.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return sys.SessionCount() == 1 }, time.Second, 5*time.Millisecond)

	sys.Shutdown(context.Background())
	select {
	case <-ep.Done():
	default:
		t.Fatal("endpoint accept loop still running")
	}
	session := sys.Sessions()[0]
	require.False(t, session.IsOpen())
	require.Equal(t, network.ReasonServerClosed, session.Channel().CloseReason())

	sys.Shutdown(context.Background())
	require.Empty(t, sys.Endpoints())
	require.False(t, sys.Alive())

	_, err = net.DialTimeout("tcp", ep.Addr().String(), 200*time.Millisecond)
	require.Error(t, err)
}

func TestShutdown_InterruptedWaitIsSwallowed(t *testing.T) {
	sys := newSystem(t, network.Options{}, &inbox{})
	_, err := sys.AddEndpoint(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sys.Shutdown(ctx)
	require.False(t, sys.Alive())
	require.Empty(t, sys.Endpoints())
}

func TestWebSocketEndpoint_FeedsSessionAndReportsHealth(t *testing.T) {
	box := &inbox{}
	sys := newSystem(t, network.Options{ReadTimeout: 5 * time.Second}, box)
	ep, err := sys.AddWebSocketEndpoint(context.Background(), "127.0.0.1:0", "/ws")
	require.NoError(t, err)
	base := "127.0.0.1:" + strconv.Itoa(ep.Addr().(*net.TCPAddr).Port)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, "ws://"+base+"/ws", nil)
	require.NoError(t, err)
	defer ws.CloseNow()

	body, _ := pipeline.PacketCodec{}.Encode(domain.Packet{ID: 9, Data: []byte("ws")})
	frame, _ := pipeline.AppendFrame(nil, body)
	require.NoError(t, ws.Write(ctx, websocket.MessageBinary, frame))

	require.Eventually(t, func() bool {
		tick(t, sys)
		pkts, _ := box.snapshot()
		return len(pkts) == 1 && pkts[0].ID == 9 && string(pkts[0].Data) == "ws"
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + base + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health struct {
		Alive    bool `json:"alive"`
		Sessions int  `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.True(t, health.Alive)
	require.Equal(t, 1, health.Sessions)
}

func TestDialLocal_UnknownAddress(t *testing.T) {
	sys := newSystem(t, network.Options{}, &inbox{})
	_, err := sys.DialLocal(context.Background(), transport.LocalAddr("local:404"), &inbox{})
	require.ErrorIs(t, err, transport.ErrNoSuchLocalEndpoint)
}

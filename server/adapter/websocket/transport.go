package adapterwebsocket

import (
	"context"
	"net"

	"github.com/coder/websocket"
)

// Addr はHTTPリクエストから得たリモートアドレスです。
type Addr string

func (a Addr) Network() string { return "websocket" }
func (a Addr) String() string  { return string(a) }

type wsConn struct {
	net.Conn
	remote net.Addr
}

// NewConnFrom は websocket 接続をバイナリメッセージのバイトストリームとして net.Conn に変換します。
// ctx は接続が閉じるまでキャンセルしてはいけません。
func NewConnFrom(ctx context.Context, conn *websocket.Conn, remoteAddr string) net.Conn {
	return &wsConn{
		Conn:   websocket.NetConn(ctx, conn, websocket.MessageBinary),
		remote: Addr(remoteAddr),
	}
}

func (c *wsConn) RemoteAddr() net.Addr { return c.remote }

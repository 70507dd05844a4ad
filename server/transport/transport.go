// Package transport selects and owns the listening backends a System binds
// endpoints on. Each backend kind is created once per Groups and shared by
// every endpoint bound with it.
package transport

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrNativeUnavailable is returned when the native backend is requested on a
	// platform that does not provide it.
	ErrNativeUnavailable = errors.New("transport: native backend is not available on this platform")
	// ErrNotTCP is returned by TuneConn for connections that are not TCP sockets.
	ErrNotTCP = errors.New("transport: connection is not a tcp socket")
	// ErrLocalListenerClosed is returned when dialing a closed local endpoint.
	ErrLocalListenerClosed = errors.New("transport: local listener closed")
	// ErrNoSuchLocalEndpoint is returned when dialing an unknown local address.
	ErrNoSuchLocalEndpoint = errors.New("transport: no such local endpoint")
	// ErrLocalAddressInUse is returned when a local address is already bound.
	ErrLocalAddressInUse = errors.New("transport: local address already in use")
)

// Kind identifies the backend an endpoint was bound with.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNative
	KindGeneric
	KindLocal
	KindWebSocket
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindGeneric:
		return "generic"
	case KindLocal:
		return "local"
	case KindWebSocket:
		return "websocket"
	default:
		return "unknown"
	}
}

// Group is a process-scoped backend shared by all endpoints of its kind.
type Group interface {
	Kind() Kind
	// Listen binds synchronously; the listener is ready when it returns.
	Listen(ctx context.Context, address string) (net.Listener, error)
	// TuneConn applies low-latency options to an accepted connection.
	TuneConn(conn net.Conn) error
}

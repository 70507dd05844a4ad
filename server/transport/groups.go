package transport

import (
	"log/slog"
	"sync"
)

// Groups creates each backend at most once and hands the same instance to
// every bind that selects it.
type Groups struct {
	nativeOnce  sync.Once
	native      Group
	nativeErr   error
	genericOnce sync.Once
	generic     Group
	localOnce   sync.Once
	local       *LocalHub
}

func NewGroups() *Groups {
	return &Groups{}
}

// NativeAvailable reports whether this build has a native backend.
func NativeAvailable() bool {
	return nativeAvailable()
}

func (g *Groups) Native() (Group, error) {
	g.nativeOnce.Do(func() {
		g.native, g.nativeErr = newNativeGroup()
		if g.nativeErr == nil {
			slog.Debug("created transport group", "kind", KindNative)
		}
	})
	return g.native, g.nativeErr
}

func (g *Groups) Generic() Group {
	g.genericOnce.Do(func() {
		g.generic = newGenericGroup()
		slog.Debug("created transport group", "kind", KindGeneric)
	})
	return g.generic
}

func (g *Groups) Local() *LocalHub {
	g.localOnce.Do(func() {
		g.local = NewLocalHub()
		slog.Debug("created transport group", "kind", KindLocal)
	})
	return g.local
}

// Select returns the native group when it is available and allowed, the
// generic group otherwise. A native group that fails to initialise is not
// retried.
func (g *Groups) Select(allowNative bool) (Group, error) {
	if allowNative && NativeAvailable() {
		return g.Native()
	}
	return g.Generic(), nil
}

//go:build !linux

package transport

func nativeAvailable() bool { return false }

func newNativeGroup() (Group, error) {
	return nil, ErrNativeUnavailable
}

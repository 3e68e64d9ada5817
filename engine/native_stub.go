//go:build !cgo || !(linux || darwin)

package engine

import (
	"context"

	"github.com/wippyai/msx-toolkit/errors"
)

// NativeLibrary is unavailable in this build; OpenNative always fails.
type NativeLibrary struct {
	Library
	path string
}

// OpenNative reports that native loading needs cgo on linux or darwin.
func OpenNative(path string) (*NativeLibrary, error) {
	return nil, errors.Unsupported(errors.PhaseLoad, "native engine "+path+" (built without cgo)")
}

// Path returns the path the library was loaded from.
func (l *NativeLibrary) Path() string { return l.path }

// Release is a no-op.
func (l *NativeLibrary) Release(context.Context) error { return nil }

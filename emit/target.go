package emit

import (
	"runtime"

	"modernc.org/libqbe"
)

// DefaultTarget returns the QBE target of the host.
func DefaultTarget() string {
	return libqbe.DefaultTarget(runtime.GOOS, runtime.GOARCH)
}

// WordTypeFor returns the pointer type of a QBE target.  Every target QBE
// supports is 64-bit.
func WordTypeFor(target string) string {
	return WordLong
}

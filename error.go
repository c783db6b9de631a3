package pageengine

import "errors"

// Recoverable errors a caller is expected to handle. Anything else the buffer
// manager or tree does wrong is a programming error and panics instead of
// returning an error (see buffer.go and tree.go).
var (
	// ErrBufferFull is returned by FixPage when every resident frame is
	// pinned and the requested page is not already resident.
	ErrBufferFull = errors.New("pageengine: buffer full, no evictable frame")

	// ErrDoubleUnfix is the panic value when a Handle is unfixed twice. It is
	// never returned from a function; double-unfix is a programming error,
	// not a recoverable condition, so it surfaces as a panic carrying this
	// sentinel rather than an arbitrary string.
	ErrDoubleUnfix = errors.New("pageengine: double-unfix of a page handle")
)

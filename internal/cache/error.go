package cache

import "errors"

// errBufferFull is replaced by the root package with pageengine.ErrBufferFull;
// it stays unexported here so callers only ever see the one public sentinel.
var errBufferFull = errors.New("pageengine/cache: buffer full, no evictable frame")

// IsBufferFull reports whether err is (or wraps) the buffer-full condition.
func IsBufferFull(err error) bool {
	return errors.Is(err, errBufferFull)
}

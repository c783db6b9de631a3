//go:build linux || darwin

package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockSegment takes a non-blocking exclusive advisory lock on f, so a
// second process opening the same segment directory fails fast instead of
// silently corrupting pages underneath this one.
func flockSegment(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if err == unix.EWOULDBLOCK {
			return ErrSegmentLocked
		}
		return err
	}
	return nil
}

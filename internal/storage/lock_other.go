//go:build !linux && !darwin

package storage

import "os"

// flockSegment is a no-op on platforms without flock support.
func flockSegment(*os.File) error {
	return nil
}

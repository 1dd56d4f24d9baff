//go:build unix

package sys

import (
	"os"

	"golang.org/x/sys/unix"
)

// Flock takes a non-blocking exclusive advisory lock on f, matching the
// original bp library's O_EXLOCK open flag (original_source/src/writer.c)
// and spec §5's "backing file is held under an exclusive advisory lock for
// the instance's lifetime."
func Flock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// Funlock releases the lock taken by Flock.
func Funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// PageSize reports the OS memory page size, used as the default nominal
// page size in Options (it does not affect the fanout).
func PageSize() int {
	return unix.Getpagesize()
}

//go:build windows

package sys

import (
	"os"

	"golang.org/x/sys/windows"
)

// Flock takes a non-blocking exclusive advisory lock on f. Mirrors
// Flock in sys_unix.go; see that file for rationale.
func Flock(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, ol,
	)
}

// Funlock releases the lock taken by Flock.
func Funlock(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol)
}

// PageSize reports a conservative default page size; Windows has no single
// universal page size API as cheap as unix.Getpagesize, so this is a fixed
// common value used as the default nominal page size in Options.
func PageSize() int {
	return 4096
}

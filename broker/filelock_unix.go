//go:build unix

package broker

import (
	"os"
	"syscall"
)

// lockExclusive takes an advisory exclusive lock on f for the lifetime of
// the open file descriptor (§5 "writes are protected by a file lock"). No
// library in the retrieval pack provides cross-platform advisory file
// locking (gofrs/flock is absent from every example repo's go.mod), so this
// uses syscall.Flock directly — the standard single-process-exclusive-lock
// primitive on unix targets, which is what this trading engine runs on.
func lockExclusive(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

func unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

//go:build !unix

package broker

import "os"

// No advisory locking primitive on non-unix targets; the rename-after-write
// pattern in TokenStore.Save still prevents readers from observing a
// partial write, just not cross-process mutual exclusion.
func lockExclusive(f *os.File) error { return nil }

func unlock(f *os.File) error { return nil }

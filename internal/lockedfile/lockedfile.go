// Package lockedfile provides an advisory file lock so that two atlasbuild
// processes cannot build into the same install prefix at once.
package lockedfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// Mutex is a mutual-exclusion lock backed by a lock file on disk.
type Mutex struct {
	path string
}

// MutexAt returns a Mutex for the lock file at the given path. The file is
// created on first Lock.
func MutexAt(path string) *Mutex {
	return &Mutex{path: path}
}

// Lock blocks until the lock is held and returns the function releasing it.
func (m *Mutex) Lock() (unlock func(), err error) {
	f, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

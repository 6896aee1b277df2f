package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// fileLock provides cross-process exclusive locking over a vault's data
// directory using gofrs/flock, guarding the single-writer SQLite
// connection from a second forest process opening the same vault.
// Works on Unix and Windows alike.
type fileLock struct {
	path string
	fl   *flock.Flock
}

// newFileLock returns a lock for dataDir's vault, backed by a
// <dataDir>/.forest.lock file.
func newFileLock(dataDir string) *fileLock {
	path := filepath.Join(dataDir, ".forest.lock")
	return &fileLock{path: path, fl: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking, returning false if
// another process already holds it.
func (l *fileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire vault lock: %w", err)
	}
	return ok, nil
}

// Unlock releases the lock. Safe to call on an unlocked fileLock.
func (l *fileLock) Unlock() error {
	if !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release vault lock: %w", err)
	}
	return nil
}

package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// processLock is a cross-process advisory file lock guarding the single-writer policy: two
// process launches must never open the same code_memory.db as concurrent writers.
type processLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// newProcessLock creates a lock at <dir>/code_memory.db.lock.
func newProcessLock(dir string) *processLock {
	path := filepath.Join(dir, "code_memory.db.lock")
	return &processLock{path: path, flock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking.
func (l *processLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	l.locked = ok
	return ok, nil
}

// Unlock releases the lock if held.
func (l *processLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	return l.flock.Unlock()
}

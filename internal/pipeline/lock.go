package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriteLock provides cross-process exclusive locking over a project's
// index, so at most one `ctx index` invocation can write to a given
// project at a time (spec.md §5). Works on all platforms via gofrs/flock.
type WriteLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewWriteLock creates a write lock for the given project directory. The
// lock file is created at <dir>/.ctx-index.lock.
func NewWriteLock(dir string) *WriteLock {
	lockPath := filepath.Join(dir, ".ctx-index.lock")
	return &WriteLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock acquires the exclusive lock, blocking until it is available.
func (l *WriteLock) Lock() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking. It returns false,
// not an error, if another process already holds the lock — the caller
// (typically `ctx index`) should report that the project is already being
// indexed rather than treat it as a failure.
func (l *WriteLock) TryLock() (bool, error) {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire write lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times or when unlocked.
func (l *WriteLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("release write lock: %w", err)
	}
	l.locked = false
	return nil
}

func (l *WriteLock) Path() string { return l.path }

func (l *WriteLock) IsLocked() bool { return l.locked }

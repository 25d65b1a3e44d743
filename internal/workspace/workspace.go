// Package workspace provides the scoped temporary directory of one run.
//
// A Workspace owns a fresh directory and, optionally, an exclusive file lock
// guarding the run's outputs against a concurrent run. Close releases both
// and is safe to call more than once.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("another run holds the lock")

type Options struct {
	// Parent is where the temporary directory is created; "" means os.TempDir.
	Parent string
	// LockPath, when set, is locked exclusively for the life of the workspace.
	LockPath string
}

type Workspace struct {
	dir  string
	lock *flock.Flock

	once     sync.Once
	closeErr error
}

// New acquires the lock, if any, then creates the directory.
func New(opts Options) (*Workspace, error) {
	w := &Workspace{}

	if opts.LockPath != "" {
		w.lock = flock.New(opts.LockPath)
		ok, err := w.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocked, opts.LockPath)
		}
	}

	dir, err := os.MkdirTemp(opts.Parent, "peresub-*")
	if err != nil {
		w.unlock()
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	w.dir = dir
	return w, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Close removes the directory and everything in it, then releases the lock.
// The lock file itself is left on disk.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		var errs []error
		if err := os.RemoveAll(w.dir); err != nil {
			errs = append(errs, fmt.Errorf("remove workspace: %w", err))
		}
		if err := w.unlock(); err != nil {
			errs = append(errs, err)
		}
		w.closeErr = errors.Join(errs...)
	})
	return w.closeErr
}

func (w *Workspace) unlock() error {
	if w.lock == nil {
		return nil
	}
	if err := w.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning means another process holds the instance lock.
// The new process must exit cleanly without touching any state.
var ErrAlreadyRunning = errors.New("another tickerpane instance is already running")

// Lock is an exclusive, advisory file lock held for the lifetime of
// the process so two instances never run a scheduler against the same
// config file.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock, failing fast with ErrAlreadyRunning when a
// holder exists.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. Safe to call once at shutdown.
func (l *Lock) Release() {
	if l == nil || l.fl == nil {
		return
	}
	if err := l.fl.Unlock(); err != nil {
		fmt.Printf("[LOCK] Release failed: %v\n", err)
	}
}

// DefaultPath places the lock file next to the config file.
func DefaultPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "tickerpane.lock")
}

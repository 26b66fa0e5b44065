package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process already owns the data directory.
var ErrLocked = errors.New("data directory is locked by another process")

// DirLock is an exclusive cross-process lock on a data directory. The engine
// retrains from the store it owns, so two engines must not share one corpus.
type DirLock struct {
	path  string
	flock *flock.Flock
}

// LockDataDir acquires <dataDir>/kabar.lock without blocking.
func LockDataDir(dataDir string) (*DirLock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(dataDir, "kabar.lock")
	fl := flock.New(path)
	acquired, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring %s: %w", path, err)
	}
	if !acquired {
		return nil, ErrLocked
	}
	return &DirLock{path: path, flock: fl}, nil
}

// Unlock releases the lock. Safe to call more than once.
func (l *DirLock) Unlock() error {
	if l == nil || !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing %s: %w", l.path, err)
	}
	return nil
}

func (l *DirLock) Path() string {
	return l.path
}

package cachestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another gamesort process holds the cache lock.
var ErrLocked = errors.New("cache is locked by another gamesort process")

// Lock is a held advisory lock on the cache database.
type Lock struct {
	lock *flock.Flock
}

// LockExclusive takes the lock for maintenance that rewrites many rows.
func LockExclusive(path string) (*Lock, error) {
	return acquire(path, true)
}

// LockShared takes the lock for reconciliation runs; any number may share it.
func LockShared(path string) (*Lock, error) {
	return acquire(path, false)
}

func acquire(path string, exclusive bool) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = lock.TryLock()
	} else {
		ok, err = lock.TryRLock()
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{lock: lock}, nil
}

// Release unlocks. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

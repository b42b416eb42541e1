//go:build unix

package flock

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// TryLock takes an exclusive advisory lock on fd without blocking.
func TryLock(fd uintptr) error {
	err := unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return ErrWouldBlock
	}
	if err != nil {
		return fmt.Errorf("flock: %w", err)
	}
	return nil
}

// Unlock releases the advisory lock on fd.
func Unlock(fd uintptr) error {
	if err := unix.Flock(int(fd), unix.LOCK_UN); err != nil {
		return fmt.Errorf("flock unlock: %w", err)
	}
	return nil
}

// Supported reports whether advisory locks are enforced on this platform.
func Supported() bool { return true }

// Package flock contains platform-specific advisory file locks used to extend
// in-process exclusion to other processes sharing the same file.
package flock

import "errors"

// ErrWouldBlock is returned by TryLock when another holder owns the lock.
var ErrWouldBlock = errors.New("file lock held elsewhere")

// Function implementations are provided in platform-specific files (flock_unix.go, flock_other.go).

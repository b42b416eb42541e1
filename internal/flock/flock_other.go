//go:build !unix

package flock

// TryLock always succeeds: only in-process exclusion applies here.
func TryLock(fd uintptr) error { return nil }

func Unlock(fd uintptr) error { return nil }

func Supported() bool { return false }

/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package fileres treats a file as a guarded resource: every read and write
// happens while holding an in-process lock and, where the platform supports
// it, an advisory lock shared with other processes.
package fileres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/valyala/bytebufferpool"

	"github.com/srediag/syncres/api"
	"github.com/srediag/syncres/internal/flock"
	"github.com/srediag/syncres/internal/logging"
	"github.com/srediag/syncres/pkg/guard"
)

var (
	// ErrClosed is returned by operations on a closed File.
	ErrClosed = errors.New("file resource closed")
	// ErrNoSpace is returned by Open when the target filesystem has less free
	// space than Options.MinFree.
	ErrNoSpace = errors.New("not enough free space")
)

var logger = logging.New("fileres", nil)

// Options tune Open.
type Options struct {
	// Truncate empties the file on open.
	Truncate bool
	// MinFree is the free space, in bytes, required on the target filesystem.
	// Zero disables the check.
	MinFree uint64
	// LockPoll is the first retry interval while another process holds the
	// advisory lock. Later retries back off exponentially.
	LockPoll time.Duration
	// Perm is used when the file is created.
	Perm os.FileMode
}

// DefaultOptions returns the options used when Open is given nil.
func DefaultOptions() *Options {
	return &Options{
		LockPoll: time.Millisecond,
		Perm:     0o644,
	}
}

// File is a file reachable only through its lock.
type File struct {
	path string
	opts Options
	res  *guard.Resource[*os.File]
}

// Open opens or creates path for appending.
func Open(path string, opts *Options) (*File, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	dir := filepath.Dir(path)
	//ignore mkdir error, OpenFile reports it
	_ = os.MkdirAll(dir, 0o755)
	if opts.MinFree > 0 {
		if ok, free := hasFreeSpace(dir, opts.MinFree); !ok {
			return nil, fmt.Errorf("%w: %s has %d bytes free, need %d", ErrNoSpace, dir, free, opts.MinFree)
		}
	}
	flags := os.O_CREATE | os.O_RDWR | os.O_APPEND
	if opts.Truncate {
		flags |= os.O_TRUNC
	}
	perm := opts.Perm
	if perm == 0 {
		perm = 0o644
	}
	fp, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return nil, err
	}
	logger.Infof("file resource opened: %s", path)
	return &File{
		path: path,
		opts: *opts,
		res:  guard.New(fp),
	}, nil
}

// hasFreeSpace reports whether dir's filesystem has at least need bytes free.
// It answers true when usage cannot be determined.
func hasFreeSpace(dir string, need uint64) (bool, uint64) {
	stat, err := disk.Usage(dir)
	if err != nil {
		logger.Warnf("could not stat free space of %s: %v", dir, err)
		return true, 0
	}
	return stat.Free >= need, stat.Free
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// WithFile runs fn with exclusive access to the open file. The advisory
// cross-process lock is taken after the in-process one and released first.
func (f *File) WithFile(ctx context.Context, fn func(fp *os.File) error) error {
	return f.res.WithLock(ctx, func(fp **os.File) error {
		if *fp == nil {
			return ErrClosed
		}
		if err := f.lockAcross(ctx, *fp); err != nil {
			return err
		}
		defer func() {
			if err := flock.Unlock((*fp).Fd()); err != nil {
				logger.Warnf("unlock %s: %v", f.path, err)
			}
		}()
		return fn(*fp)
	})
}

// lockAcross polls the non-blocking advisory lock so the wait stays
// cancellable through ctx.
func (f *File) lockAcross(ctx context.Context, fp *os.File) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.opts.LockPoll
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = time.Millisecond
	}
	eb.MaxInterval = 100 * eb.InitialInterval
	eb.MaxElapsedTime = 0
	eb.Reset()

	err := backoff.Retry(func() error {
		err := flock.TryLock(fp.Fd())
		if errors.Is(err, flock.ErrWouldBlock) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(eb, ctx))
	if err != nil && ctx.Err() != nil {
		return guard.Cancelled(ctx)
	}
	return err
}

// Append writes "[worker N] line\n" as one write.
func (f *File) Append(ctx context.Context, worker int, line string) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString("[worker ")
	_, _ = buf.WriteString(strconv.Itoa(worker))
	_, _ = buf.WriteString("] ")
	_, _ = buf.WriteString(line)
	_ = buf.WriteByte('\n')

	return f.WithFile(ctx, func(fp *os.File) error {
		_, err := fp.Write(buf.B)
		return err
	})
}

// ReadAll returns the whole content of the file.
func (f *File) ReadAll(ctx context.Context) (string, error) {
	var content string
	err := f.WithFile(ctx, func(fp *os.File) error {
		stat, err := fp.Stat()
		if err != nil {
			return err
		}
		b, err := io.ReadAll(io.NewSectionReader(fp, 0, stat.Size()))
		content = string(b)
		return err
	})
	return content, err
}

// Close waits for the current holder, then closes the file. Later calls
// fail with ErrClosed.
func (f *File) Close(ctx context.Context) error {
	return f.res.WithLock(ctx, func(fp **os.File) error {
		if *fp == nil {
			return ErrClosed
		}
		err := (*fp).Close()
		*fp = nil
		if err == nil {
			logger.Infof("file resource closed: %s", f.path)
		}
		return err
	})
}

var _ api.Sink = (*File)(nil)

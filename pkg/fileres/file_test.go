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

package fileres

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/syncres/pkg/guard"
)

func openTemp(t *testing.T, opts *Options) *File {
	t.Helper()
	f, err := Open(filepath.Join(t.TempDir(), "nested", "shared.log"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close(context.Background()) })
	return f
}

func TestConcurrentAppendKeepsLinesWhole(t *testing.T) {
	ctx := context.Background()
	f := openTemp(t, nil)

	const workers, lines = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < lines; i++ {
				assert.NoError(t, f.Append(ctx, w, fmt.Sprintf("message %d", i)))
			}
		}(w)
	}
	wg.Wait()

	content, err := f.ReadAll(ctx)
	require.NoError(t, err)
	got := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	require.Len(t, got, workers*lines)

	next := make(map[int]int)
	for _, l := range got {
		var w, i int
		_, err := fmt.Sscanf(l, "[worker %d] message %d", &w, &i)
		require.NoError(t, err, "torn line %q", l)
		assert.Equal(t, next[w], i)
		next[w]++
	}
}

func TestTruncateOnOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "t.log")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	f, err := Open(path, &Options{Truncate: true})
	require.NoError(t, err)
	defer f.Close(ctx)
	require.NoError(t, f.Append(ctx, 1, "fresh"))
	content, err := f.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[worker 1] fresh\n", content)
	assert.Equal(t, path, f.Path())
}

func TestMinFreeSpace(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.log"), &Options{MinFree: math.MaxUint64})
	assert.ErrorIs(t, err, ErrNoSpace)
}

func TestClosedFile(t *testing.T) {
	ctx := context.Background()
	f, err := Open(filepath.Join(t.TempDir(), "c.log"), nil)
	require.NoError(t, err)
	require.NoError(t, f.Close(ctx))
	assert.ErrorIs(t, f.Close(ctx), ErrClosed)
	assert.ErrorIs(t, f.Append(ctx, 0, "late"), ErrClosed)
}

func TestCancelWhileHeld(t *testing.T) {
	ctx := context.Background()
	f := openTemp(t, nil)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = f.WithFile(ctx, func(*os.File) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := f.Append(tctx, 2, "blocked")
	assert.ErrorIs(t, err, guard.ErrCancelled)
	close(release)

	require.NoError(t, f.Append(ctx, 2, "after"))
	content, err := f.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[worker 2] after\n", content)
}

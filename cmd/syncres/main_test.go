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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterCommand(t *testing.T) {
	for _, strategy := range []string{"mutex", "atomic"} {
		t.Run(strategy, func(t *testing.T) {
			var out bytes.Buffer
			err := counterCommand(context.Background(),
				[]string{"-strategy", strategy, "-threads", "4", "-increments", "1000"}, &out)
			require.NoError(t, err)
			assert.Contains(t, out.String(), "expected=4000 got=4000 lost=0")
		})
	}
}

func TestCounterCommandRejectsBadInput(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, counterCommand(context.Background(), []string{"-strategy", "spin"}, &out))
	assert.Error(t, counterCommand(context.Background(), []string{"-threads", "0"}, &out))
	assert.Error(t, counterCommand(context.Background(), []string{"-nope"}, &out))
}

func TestPipelineCommandWritesLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "producer_consumer.log")
	var out bytes.Buffer
	err := pipelineCommand(context.Background(), []string{
		"-producers", "3", "-items", "50", "-capacity", "2",
		"-log", path, "-listen", "127.0.0.1:0",
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "produced=150 consumed=150 duplicates=0 order_violations=0")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 150)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "[worker 0] producer "), line)
	}
}

func TestPipelineCommandRejectsBadCapacity(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, pipelineCommand(context.Background(), []string{"-capacity", "0"}, &out))
}

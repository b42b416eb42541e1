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

package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const waitFor = 2 * time.Second

type ChannelTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *ChannelTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *ChannelTestSuite) newChannel(capacity int) *Bounded[int] {
	b, err := New[int](capacity)
	s.Require().NoError(err)
	return b
}

func (s *ChannelTestSuite) fill(b *Bounded[int], from, n int) {
	for i := from; i < from+n; i++ {
		s.Require().NoError(b.Put(s.ctx, i))
	}
}

func (s *ChannelTestSuite) blockedPuts(b *Bounded[int], n int) {
	s.Require().Eventually(func() bool { return b.Stats().BlockedPuts == n }, waitFor, time.Millisecond)
}

func (s *ChannelTestSuite) blockedGets(b *Bounded[int], n int) {
	s.Require().Eventually(func() bool { return b.Stats().BlockedGets == n }, waitFor, time.Millisecond)
}

func (s *ChannelTestSuite) TestInvalidCapacity() {
	for _, c := range []int{0, -1, maxCapacity + 1} {
		_, err := New[int](c)
		s.ErrorIs(err, ErrInvalidCapacity)
	}
	s.ErrorIs(VerifyConfig(nil), ErrInvalidCapacity)
	s.NoError(VerifyConfig(DefaultConfig()))
}

func (s *ChannelTestSuite) TestFIFO() {
	b := s.newChannel(8)
	s.fill(b, 0, 8)
	s.Equal(8, b.Len())
	s.Equal(8, b.Cap())
	for i := 0; i < 8; i++ {
		v, err := b.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal(i, v)
	}
	s.Equal(0, b.Len())
}

func (s *ChannelTestSuite) TestTryPutTryGet() {
	b := s.newChannel(2)
	s.NoError(b.TryPut(1))
	s.NoError(b.TryPut(2))
	s.ErrorIs(b.TryPut(3), ErrFull)

	v, err := b.TryGet()
	s.NoError(err)
	s.Equal(1, v)
	v, err = b.TryGet()
	s.NoError(err)
	s.Equal(2, v)
	_, err = b.TryGet()
	s.ErrorIs(err, ErrEmpty)

	s.NoError(b.Close())
	s.ErrorIs(b.TryPut(4), ErrClosed)
	_, err = b.TryGet()
	s.ErrorIs(err, ErrClosedEmpty)
}

func (s *ChannelTestSuite) TestPerProducerOrder() {
	const producers, perProducer = 8, 500
	type msg struct{ producer, seq int }
	b, err := New[msg](4)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := b.Put(s.ctx, msg{p, i}); err != nil {
					s.Fail("put", err.Error())
					return
				}
			}
		}(p)
	}
	go func() {
		wg.Wait()
		s.NoError(b.Close())
	}()

	next := make([]int, producers)
	total := 0
	for {
		m, err := b.Get(s.ctx)
		if errors.Is(err, ErrClosedEmpty) {
			break
		}
		s.Require().NoError(err)
		s.Require().Equal(next[m.producer], m.seq, "producer %d out of order", m.producer)
		next[m.producer]++
		total++
	}
	s.Equal(producers*perProducer, total)
	for p := range next {
		s.Equal(perProducer, next[p])
	}
}

func (s *ChannelTestSuite) TestPutBlocksUntilGet() {
	b := s.newChannel(4)
	s.fill(b, 0, 4)

	putDone := make(chan error, 1)
	go func() {
		putDone <- b.Put(s.ctx, 4)
	}()
	s.blockedPuts(b, 1)
	select {
	case <-putDone:
		s.FailNow("put on a full channel returned")
	default:
	}
	s.Equal(4, b.Len())

	v, err := b.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, v)

	select {
	case err := <-putDone:
		s.NoError(err)
	case <-time.After(waitFor):
		s.FailNow("put was not woken by get")
	}
	s.Equal(4, b.Len())
	for want := 1; want <= 4; want++ {
		v, err := b.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal(want, v)
	}
}

func (s *ChannelTestSuite) TestGetBlocksUntilPut() {
	b := s.newChannel(1)
	got := make(chan int, 1)
	go func() {
		v, err := b.Get(s.ctx)
		s.NoError(err)
		got <- v
	}()
	s.blockedGets(b, 1)
	s.NoError(b.Put(s.ctx, 42))
	select {
	case v := <-got:
		s.Equal(42, v)
	case <-time.After(waitFor):
		s.FailNow("get was not woken by put")
	}
}

func (s *ChannelTestSuite) TestCloseDrainsThenFails() {
	b := s.newChannel(4)
	s.fill(b, 10, 3)
	s.NoError(b.Close())
	s.True(b.Closed())
	s.ErrorIs(b.Close(), ErrClosed)

	err := b.Put(s.ctx, 99)
	s.ErrorIs(err, ErrClosed)
	s.NotErrorIs(err, ErrClosedEmpty)

	for want := 10; want < 13; want++ {
		v, err := b.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal(want, v)
	}
	_, err = b.Get(s.ctx)
	s.ErrorIs(err, ErrClosedEmpty)
	s.ErrorIs(err, ErrClosed)
}

func (s *ChannelTestSuite) TestCloseWakesBlockedCallers() {
	full := s.newChannel(1)
	s.fill(full, 0, 1)
	empty := s.newChannel(1)

	errs := make(chan error, 4)
	for i := 0; i < 2; i++ {
		go func() { errs <- full.Put(s.ctx, 1) }()
		go func() {
			_, err := empty.Get(s.ctx)
			errs <- err
		}()
	}
	s.blockedPuts(full, 2)
	s.blockedGets(empty, 2)

	s.NoError(full.Close())
	s.NoError(empty.Close())
	for i := 0; i < 4; i++ {
		select {
		case err := <-errs:
			s.ErrorIs(err, ErrClosed)
		case <-time.After(waitFor):
			s.FailNow("blocked caller not woken by close")
		}
	}
	s.Equal(1, full.Len())
}

func (s *ChannelTestSuite) TestCancelledPutLeavesSizeUnchanged() {
	b := s.newChannel(2)
	s.fill(b, 0, 2)
	before := b.Len()

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	err := b.Put(ctx, 7)
	s.ErrorIs(err, ErrCancelled)
	s.ErrorIs(err, context.DeadlineExceeded)

	s.Equal(before, b.Len())
	st := b.Stats()
	s.Equal(uint64(1), st.Cancelled)
	s.Equal(0, st.BlockedPuts)
	for want := 0; want < 2; want++ {
		v, err := b.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal(want, v)
	}
}

func (s *ChannelTestSuite) TestCancelledGetLeavesSizeUnchanged() {
	b := s.newChannel(2)
	ctx, cancel := context.WithCancel(s.ctx)
	res := make(chan error, 1)
	go func() {
		_, err := b.Get(ctx)
		res <- err
	}()
	s.blockedGets(b, 1)
	cancel()

	select {
	case err := <-res:
		s.ErrorIs(err, ErrCancelled)
		s.ErrorIs(err, context.Canceled)
	case <-time.After(waitFor):
		s.FailNow("cancelled get did not return")
	}
	s.Equal(0, b.Len())
	s.Equal(0, b.Stats().BlockedGets)

	s.NoError(b.Put(s.ctx, 1))
	v, err := b.Get(s.ctx)
	s.NoError(err)
	s.Equal(1, v)
}

func (s *ChannelTestSuite) TestCancelledWaiterDoesNotStealWakeup() {
	b := s.newChannel(1)
	ctx, cancel := context.WithCancel(s.ctx)
	first := make(chan error, 1)
	go func() {
		_, err := b.Get(ctx)
		first <- err
	}()
	s.blockedGets(b, 1)
	second := make(chan int, 1)
	go func() {
		v, err := b.Get(s.ctx)
		s.NoError(err)
		second <- v
	}()
	s.blockedGets(b, 2)

	cancel()
	s.ErrorIs(<-first, ErrCancelled)
	s.NoError(b.Put(s.ctx, 5))
	select {
	case v := <-second:
		s.Equal(5, v)
	case <-time.After(waitFor):
		s.FailNow("remaining waiter never woken")
	}
}

func (s *ChannelTestSuite) TestManyProducersManyConsumers() {
	const producers, consumers, perProducer = 6, 3, 300
	b := s.newChannel(4)

	var pwg sync.WaitGroup
	for p := 0; p < producers; p++ {
		pwg.Add(1)
		go func(p int) {
			defer pwg.Done()
			for i := 0; i < perProducer; i++ {
				s.NoError(b.Put(s.ctx, p*perProducer+i))
			}
		}(p)
	}

	var mu sync.Mutex
	seen := make(map[int]bool)
	var cwg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for {
				v, err := b.Get(s.ctx)
				if err != nil {
					s.ErrorIs(err, ErrClosedEmpty)
					return
				}
				mu.Lock()
				s.False(seen[v], "duplicate %d", v)
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	pwg.Wait()
	s.NoError(b.Close())
	cwg.Wait()
	s.Len(seen, producers*perProducer)
}

func TestChannelTestSuite(t *testing.T) {
	suite.Run(t, new(ChannelTestSuite))
}

func TestNilInterfaceItem(t *testing.T) {
	b, err := New[error](1)
	assert.NoError(t, err)
	assert.NoError(t, b.Put(context.Background(), nil))
	v, err := b.Get(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func BenchmarkPutGet(b *testing.B) {
	ch, _ := New[int](1024)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ch.Put(ctx, i)
		_, _ = ch.Get(ctx)
	}
}

// MIT License
//
// Copyright (c) 2024 hat-open chatter authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package chatter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePutGetOrder(t *testing.T) {
	q := newQueue[int](0)
	require.NoError(t, q.put(1))
	require.NoError(t, q.put(2))
	v, err := q.get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = q.get()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestQueueBackpressure(t *testing.T) {
	q := newQueue[int](1)
	require.NoError(t, q.put(1))

	var wg sync.WaitGroup
	wg.Add(1)
	putDone := make(chan struct{})
	go func() {
		defer wg.Done()
		_ = q.put(2)
		close(putDone)
	}()

	select {
	case <-putDone:
		t.Fatal("put should have blocked on a full bounded queue")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := q.get()
	require.NoError(t, err)

	select {
	case <-putDone:
	case <-time.After(time.Second):
		t.Fatal("put should have unblocked after room freed up")
	}
	wg.Wait()
}

func TestQueueCloseWakesBlockedGet(t *testing.T) {
	q := newQueue[int](0)
	errCh := make(chan error, 1)
	go func() {
		_, err := q.get()
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.close()

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, ErrConnectionClosed))
	case <-time.After(time.Second):
		t.Fatal("get should have unblocked on close")
	}
}

func TestQueueCloseDiscardsBacklog(t *testing.T) {
	q := newQueue[int](0)
	require.NoError(t, q.put(1))
	q.close()

	_, err := q.get()
	assert.True(t, errors.Is(err, ErrConnectionClosed))

	err = q.put(2)
	assert.True(t, errors.Is(err, ErrConnectionClosed))
}

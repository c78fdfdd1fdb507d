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

import "sync"

// queue is a condition-variable-guarded FIFO shared between one or more
// producers and one consumer: put() applies backpressure when maxSize > 0
// and the queue is full (0 means unbounded), and both put() and get()
// unblock with ErrConnectionClosed once close() has run. Closing discards
// whatever was still queued, matching the protocol's "connection loss
// supersedes queued work" shutdown rule.
type queue[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []T
	maxSize int
	closed  bool
}

func newQueue[T any](maxSize int) *queue[T] {
	q := &queue[T]{maxSize: maxSize}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// put enqueues v, blocking for backpressure if the queue is bounded and
// full. It returns ErrConnectionClosed if the queue was, or becomes,
// closed before room is available.
func (q *queue[T]) put(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && q.maxSize > 0 && len(q.items) >= q.maxSize {
		q.cond.Wait()
	}
	if q.closed {
		return ErrConnectionClosed
	}
	q.items = append(q.items, v)
	q.cond.Signal()
	return nil
}

// get blocks until an item is available or the queue is closed.
func (q *queue[T]) get() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && len(q.items) == 0 {
		q.cond.Wait()
	}
	var zero T
	if q.closed {
		return zero, ErrConnectionClosed
	}
	v := q.items[0]
	q.items = q.items[1:]
	q.cond.Broadcast()
	return v, nil
}

// close marks the queue closed, drops anything still queued, and wakes
// every blocked put()/get().
func (q *queue[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

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
	"container/heap"
	"sync"
	"time"
)

// Conversation identifies a logical multi-message exchange by the ID of
// the message that opened it. Owner is true on the peer that created the
// conversation, false on the peer that received its first message.
type Conversation struct {
	FirstID uint64
	Owner   bool
}

// TimeoutFunc is invoked, at most once per registration, when a
// conversation's deadline elapses without a reply cancelling it.
type TimeoutFunc func(Conversation)

// pendingConv is one entry in the connection's timeout heap: a
// conversation awaiting a reply by a deadline. Entries are kept whether or
// not this peer owns the conversation.
type pendingConv struct {
	firstID  uint64
	deadline time.Time
	cb       TimeoutFunc
	conv     Conversation
	index    int // heap.Interface bookkeeping
}

// deadlineHeap is a container/heap min-heap ordered by deadline, the same
// data structure the teacher library uses for its write-priority queue,
// repurposed here to give the timeout task O(log n) register/cancel and
// O(1) access to the next-due entry.
type deadlineHeap []*pendingConv

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *deadlineHeap) Push(x interface{}) {
	p := x.(*pendingConv)
	p.index = len(*h)
	*h = append(*h, p)
}
func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// conversationRegistry tracks, per connection, the next message ID to
// allocate and the set of conversations currently awaiting a reply
// within a deadline. Send and the reader task register and cancel
// deadlines from their own goroutines; the timeout task wakes on wake
// whenever the earliest deadline might have changed. A mutex, not a
// channel, guards the shared state, since every operation here is O(log n)
// and never blocks.
type conversationRegistry struct {
	mu      sync.Mutex
	nextID  uint64
	byFirst map[uint64]*pendingConv
	heap    deadlineHeap
	wake    chan struct{}
}

func newConversationRegistry() *conversationRegistry {
	return &conversationRegistry{
		nextID:  1,
		byFirst: make(map[uint64]*pendingConv),
		wake:    make(chan struct{}, 1),
	}
}

func (r *conversationRegistry) notifyWake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// pending returns the number of conversations currently awaiting a
// timeout, for Connection.PendingConversations.
func (r *conversationRegistry) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byFirst)
}

// allocateFirst returns the next monotonically increasing message ID.
func (r *conversationRegistry) allocateFirst() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// registerTimeout inserts or replaces the deadline for conv.FirstID. The
// most recent call for a given conversation wins: any previously
// registered deadline and callback are dropped without firing.
func (r *conversationRegistry) registerTimeout(conv Conversation, deadline time.Time, cb TimeoutFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byFirst[conv.FirstID]; ok {
		heap.Remove(&r.heap, existing.index)
		delete(r.byFirst, conv.FirstID)
	}
	p := &pendingConv{firstID: conv.FirstID, deadline: deadline, cb: cb, conv: conv}
	heap.Push(&r.heap, p)
	r.byFirst[conv.FirstID] = p
	r.notifyWake()
}

// cancel removes a pending timeout, if any, without firing its callback.
func (r *conversationRegistry) cancel(firstID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked(firstID)
}

func (r *conversationRegistry) cancelLocked(firstID uint64) {
	p, ok := r.byFirst[firstID]
	if !ok {
		return
	}
	heap.Remove(&r.heap, p.index)
	delete(r.byFirst, firstID)
}

// nextDeadline reports the earliest pending deadline, if any.
func (r *conversationRegistry) nextDeadline() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.heap) == 0 {
		return time.Time{}, false
	}
	return r.heap[0].deadline, true
}

// tick pops and returns every entry whose deadline has elapsed as of now.
// The caller is responsible for invoking each callback exactly once.
func (r *conversationRegistry) tick(now time.Time) []*pendingConv {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []*pendingConv
	for len(r.heap) > 0 && !r.heap[0].deadline.After(now) {
		p := heap.Pop(&r.heap).(*pendingConv)
		delete(r.byFirst, p.firstID)
		expired = append(expired, p)
	}
	return expired
}

// discard empties the registry without firing any callback, used when the
// connection closes: connection loss supersedes per-conversation
// timeouts.
func (r *conversationRegistry) discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heap = nil
	r.byFirst = make(map[uint64]*pendingConv)
}

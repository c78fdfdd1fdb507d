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
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SendOptions customizes one Send call. Construct with NewSendOptions to
// get the reference implementation's defaults (Last and Token true).
type SendOptions struct {
	// Conv continues an existing conversation. Nil starts a new one
	// owned by this peer.
	Conv *Conversation
	Last bool
	// Token is the opaque end-to-end flag higher layers use for
	// turn-taking.
	Token bool
	// Timeout, if positive, registers TimeoutCB to fire if no further
	// Send/Receive activity cancels the conversation's pending timeout
	// first. Registering a new timeout on the same conversation replaces
	// any earlier one, discarding it without firing.
	Timeout   time.Duration
	TimeoutCB TimeoutFunc
}

// NewSendOptions returns the default options: a fresh conversation,
// Last=true, Token=true, no timeout.
func NewSendOptions() SendOptions {
	return SendOptions{Last: true, Token: true}
}

// ReceivedMessage is what Receive delivers to the user.
type ReceivedMessage struct {
	Conv  Conversation
	First bool
	Last  bool
	Token bool
	Data  Data
}

// Connection is a duplex, conversation-oriented pipeline over one byte
// stream. It owns the stream exclusively: only its internal reader task
// reads, only its internal writer task writes. Four cooperating
// goroutines (reader, writer, ping, timeout) share the connection's state
// through the queues and registry below; user code only ever calls Send,
// Receive, Close, and WaitClosed.
type Connection struct {
	id        uuid.UUID
	conn      net.Conn
	transport Transport
	codec     *frameCodec
	repo      SchemaRepo
	cfg       Config
	log       *logrus.Entry

	registry *conversationRegistry
	recvQ    *queue[ReceivedMessage]
	sendQ    *queue[wireMsg]

	ctx    context.Context
	cancel context.CancelFunc

	eg          *errgroup.Group
	closeOnce   sync.Once
	closeSignal chan struct{}
	doneCh      chan struct{}

	// wireMu serializes id allocation and sendQ enqueue into one critical
	// section shared by every internal producer (Send, the ping task, and
	// the reader's pong reply), so the order ids are handed out always
	// matches the order frames land on the wire. Without it, two
	// producers can interleave allocate/enqueue and hand the writer a
	// lower id after a higher one, which the peer's strict-increase check
	// reports as a protocol violation.
	wireMu sync.Mutex

	closingFlag atomic.Bool
	closedFlag  atomic.Bool

	errMu    sync.Mutex
	taskErrs *multierror.Error
	finalErr error

	frameSeen  atomic.Bool
	pongCh     chan struct{}
	lastRecvID uint64 // owned exclusively by the reader goroutine

	sentCount      atomic.Uint64
	receivedCount  atomic.Uint64
	pingsSentCount atomic.Uint64
	pongsMissed    atomic.Uint64
}

func newConnection(raw net.Conn, transport Transport, repo SchemaRepo, cfg Config, log *logrus.Entry) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	c := &Connection{
		id:          id,
		conn:        raw,
		transport:   transport,
		codec:       newFrameCodec(raw, repo),
		repo:        repo,
		cfg:         cfg,
		log:         log.WithField("conn_id", id.String()),
		registry:    newConversationRegistry(),
		recvQ:       newQueue[ReceivedMessage](cfg.queueMaxSize()),
		sendQ:       newQueue[wireMsg](0),
		ctx:         ctx,
		cancel:      cancel,
		closeSignal: make(chan struct{}),
		doneCh:      make(chan struct{}),
		pongCh:      make(chan struct{}, 1),
	}
	c.eg = new(errgroup.Group)

	c.runTask("reader", c.readerLoop)
	c.runTask("writer", c.writerLoop)
	c.runTask("ping", c.pingLoop)
	c.runTask("timeout", c.timeoutLoop)
	c.eg.Go(func() error {
		<-c.closeSignal
		c.drainAndClose()
		return nil
	})

	go c.supervise()

	c.log.Debug("connection established")
	return c
}

func (c *Connection) runTask(name string, fn func() error) {
	c.eg.Go(func() error {
		if err := fn(); err != nil {
			c.errMu.Lock()
			c.taskErrs = multierror.Append(c.taskErrs, fmt.Errorf("%s task: %w", name, err))
			c.errMu.Unlock()
		}
		return nil
	})
}

func (c *Connection) supervise() {
	_ = c.eg.Wait()
	c.closedFlag.Store(true)
	c.errMu.Lock()
	c.finalErr = c.taskErrs.ErrorOrNil()
	c.errMu.Unlock()
	c.log.WithError(c.finalErr).Debug("connection closed")
	close(c.doneCh)
}

// beginClosing is the Open/Closing transition. It is idempotent: only the
// first call takes effect and logs its reason; the reason is not stored.
// It never blocks.
func (c *Connection) beginClosing(reason error) {
	c.closeOnce.Do(func() {
		if reason != nil {
			c.log.WithError(reason).Info("connection closing")
		}
		c.closingFlag.Store(true)
		c.recvQ.close()
		c.registry.discard()
		c.cancel()
		// Unblock a reader goroutine parked in a blocking socket Read.
		_ = c.conn.SetReadDeadline(time.Now())
		close(c.closeSignal)
	})
}

// drainAndClose gives the writer a short grace window to flush whatever
// was already queued, then force-closes the outbound queue and the
// underlying stream.
func (c *Connection) drainAndClose() {
	const grace = 200 * time.Millisecond
	deadline := time.Now().Add(grace)
	for c.sendQ.len() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.sendQ.close()
	if half, ok := c.conn.(interface{ CloseWrite() error }); ok {
		_ = half.CloseWrite()
	}
	_ = c.conn.Close()
}

// --- reader task ----------------------------------------------------

func (c *Connection) readerLoop() error {
	for {
		msg, err := c.codec.readMsg()
		if err != nil {
			if c.closingFlag.Load() {
				return nil
			}
			closeErr := newProtocolError(err)
			c.beginClosing(closeErr)
			return closeErr
		}

		c.frameSeen.Store(true)

		if msg.ID <= c.lastRecvID {
			err := newProtocolError(fmt.Errorf("message id %d is not strictly greater than last observed id %d", msg.ID, c.lastRecvID))
			c.beginClosing(err)
			return err
		}
		if msg.First > msg.ID {
			err := newProtocolError(fmt.Errorf("message first %d exceeds id %d", msg.First, msg.ID))
			c.beginClosing(err)
			return err
		}
		c.lastRecvID = msg.ID

		switch {
		case isPing(msg):
			c.wireMu.Lock()
			pong := c.buildPong(msg)
			err := c.sendQ.put(pong)
			c.wireMu.Unlock()
			if err != nil {
				return nil
			}
		case isPong(msg):
			c.notifyPong()
		default:
			rm, err := c.toReceivedMessage(msg)
			if err != nil {
				protoErr := newProtocolError(err)
				c.beginClosing(protoErr)
				return protoErr
			}
			if err := c.recvQ.put(rm); err != nil {
				return nil
			}
			c.receivedCount.Add(1)
			if rm.Last {
				c.registry.cancel(rm.Conv.FirstID)
			}
		}
	}
}

func isPing(msg wireMsg) bool {
	return msg.Data.Module == chatterModule && msg.Data.Type == chatterPingType
}

func isPong(msg wireMsg) bool {
	return msg.Data.Module == chatterModule && msg.Data.Type == chatterPongType
}

func (c *Connection) buildPong(msg wireMsg) wireMsg {
	return wireMsg{
		ID:    c.registry.allocateFirst(),
		First: msg.First,
		Owner: !msg.Owner,
		Token: true,
		Last:  true,
		Data:  wireData{Module: chatterModule, Type: chatterPongType},
	}
}

func (c *Connection) notifyPong() {
	select {
	case c.pongCh <- struct{}{}:
	default:
	}
}

func (c *Connection) toReceivedMessage(msg wireMsg) (ReceivedMessage, error) {
	val, err := c.repo.Decode(msg.Data.Module, msg.Data.Type, msg.Data.Bytes)
	if err != nil {
		return ReceivedMessage{}, err
	}
	return ReceivedMessage{
		Conv:  Conversation{FirstID: msg.First, Owner: !msg.Owner},
		First: msg.ID == msg.First,
		Last:  msg.Last,
		Token: msg.Token,
		Data:  Data{Module: msg.Data.Module, Type: msg.Data.Type, Value: val},
	}, nil
}

// --- writer task ------------------------------------------------------

func (c *Connection) writerLoop() error {
	for {
		frame, err := c.sendQ.get()
		if err != nil {
			return nil
		}
		if err := c.codec.writeMsg(frame); err != nil {
			if c.closingFlag.Load() {
				return nil
			}
			te := &TransportError{Op: "write", Err: err}
			c.beginClosing(te)
			return te
		}
		c.sentCount.Add(1)
	}
}

// --- ping task ----------------------------------------------------------

func (c *Connection) pingLoop() error {
	timeout := c.cfg.pingTimeout()
	for {
		c.frameSeen.Store(false)
		select {
		case <-c.ctx.Done():
			return nil
		case <-time.After(timeout):
		}
		if c.frameSeen.Load() {
			continue
		}

		c.wireMu.Lock()
		firstID := c.registry.allocateFirst()
		ping := wireMsg{ID: firstID, First: firstID, Owner: true, Token: true, Last: false, Data: wireData{Module: chatterModule, Type: chatterPingType}}
		err := c.sendQ.put(ping)
		c.wireMu.Unlock()
		if err != nil {
			return nil
		}
		c.pingsSentCount.Add(1)

		select {
		case <-c.ctx.Done():
			return nil
		case <-c.pongCh:
			continue
		case <-time.After(timeout):
			c.pongsMissed.Add(1)
			err := &pingTimeoutError{}
			c.beginClosing(err)
			return err
		}
	}
}

// --- timeout task ---------------------------------------------------

func (c *Connection) timeoutLoop() error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	defer timer.Stop()

	for {
		deadline, ok := c.registry.nextDeadline()
		switch {
		case ok:
			d := time.Until(deadline)
			if d < 0 {
				d = 0
			}
			if armed && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d)
			armed = true
		case armed:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			armed = false
		}

		var timerCh <-chan time.Time
		if armed {
			timerCh = timer.C
		}

		select {
		case <-c.ctx.Done():
			return nil
		case <-c.registry.wake:
			continue
		case <-timerCh:
			if c.closingFlag.Load() {
				return nil
			}
			for _, p := range c.registry.tick(time.Now()) {
				p.cb(p.conv)
			}
		}
	}
}

// --- public contract --------------------------------------------------

// Send enqueues data for transmission and returns the conversation it
// belongs to. It never blocks on network I/O; it fails immediately if the
// connection has begun closing.
func (c *Connection) Send(data Data, opts SendOptions) (Conversation, error) {
	if c.closingFlag.Load() {
		return Conversation{}, ErrConnectionClosed
	}

	encoded, err := c.repo.Encode(data.Module, data.Type, data.Value)
	if err != nil {
		return Conversation{}, fmt.Errorf("chatter: encoding payload: %w", err)
	}

	c.wireMu.Lock()
	id := c.registry.allocateFirst()
	conv := Conversation{FirstID: id, Owner: true}
	if opts.Conv != nil {
		conv = *opts.Conv
	}

	msg := wireMsg{
		ID:    id,
		First: conv.FirstID,
		Owner: conv.Owner,
		Token: opts.Token,
		Last:  opts.Last,
		Data:  wireData{Module: data.Module, Type: data.Type, Bytes: encoded},
	}

	err = c.sendQ.put(msg)
	c.wireMu.Unlock()
	if err != nil {
		return Conversation{}, ErrConnectionClosed
	}

	if opts.Timeout > 0 && opts.TimeoutCB != nil {
		c.registry.registerTimeout(conv, time.Now().Add(opts.Timeout), opts.TimeoutCB)
	}
	if opts.Last {
		c.registry.cancel(conv.FirstID)
	}

	return conv, nil
}

// Receive blocks until a user-visible message arrives, or returns
// ErrConnectionClosed once the connection has closed.
func (c *Connection) Receive() (ReceivedMessage, error) {
	return c.recvQ.get()
}

// Close idempotently begins graceful shutdown. It does not block; use
// WaitClosed to wait for teardown to finish.
func (c *Connection) Close() {
	c.beginClosing(nil)
}

// WaitClosed blocks until every internal task has exited and the
// underlying stream is closed, returning a diagnostic error aggregating
// whatever task failures caused the shutdown (nil on a clean user close).
func (c *Connection) WaitClosed() error {
	<-c.doneCh
	return c.finalErr
}

// IsClosed reports whether the connection has fully torn down.
func (c *Connection) IsClosed() bool {
	return c.closedFlag.Load()
}

// LocalAddress returns the local endpoint of the underlying stream.
func (c *Connection) LocalAddress() Address {
	return addrFromNetAddr(c.transport, c.conn.LocalAddr())
}

// RemoteAddress returns the remote endpoint of the underlying stream.
func (c *Connection) RemoteAddress() Address {
	return addrFromNetAddr(c.transport, c.conn.RemoteAddr())
}

// SentCount, ReceivedCount, PingsSent, PongsMissed, and
// PendingConversations let a caller wire its own exporter without this
// package depending on one.
func (c *Connection) SentCount() uint64     { return c.sentCount.Load() }
func (c *Connection) ReceivedCount() uint64 { return c.receivedCount.Load() }
func (c *Connection) PingsSent() uint64     { return c.pingsSentCount.Load() }
func (c *Connection) PongsMissed() uint64   { return c.pongsMissed.Load() }
func (c *Connection) PendingConversations() int { return c.registry.pending() }

func addrFromNetAddr(t Transport, a net.Addr) Address {
	if a == nil {
		return Address{Transport: t}
	}
	host, portStr, err := net.SplitHostPort(a.String())
	if err != nil {
		return Address{Transport: t, Host: a.String()}
	}
	port, _ := strconv.ParseUint(portStr, 10, 16)
	return Address{Transport: t, Host: host, Port: uint16(port)}
}

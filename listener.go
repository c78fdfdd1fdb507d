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
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ConnHandler is invoked once per accepted connection, on its own
// goroutine. The Connection is already open; the handler owns it for as
// long as it wants and is responsible for closing it (or letting the
// peer/ping-timeout/protocol error do so).
type ConnHandler func(*Connection)

// Server listens for inbound connections on one address and hands each
// one to a ConnHandler. It keeps a registry of connections it accepted
// purely to be able to close them on shutdown: a Connection never
// references its Server back.
type Server struct {
	ln        net.Listener
	repo      SchemaRepo
	cfg       Config
	transport Transport
	handler   ConnHandler
	log       *logrus.Entry

	acceptErrGate rate.Sometimes

	mu    sync.Mutex
	conns map[uuid.UUID]*Connection

	closing      atomic.Bool
	closeOnce    sync.Once
	closingConns []*Connection
	doneCh       chan struct{}
}

// Listen binds addr (tcp+sbs:// or ssl+sbs://) and starts accepting
// connections in the background, dispatching each to handler. For a TLS
// address, cfg.PEMFile is mandatory.
func Listen(repo SchemaRepo, addr string, handler ConnHandler, cfg Config) (*Server, error) {
	a, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}

	hostport := net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))

	var ln net.Listener
	switch a.Transport {
	case TransportTLS:
		tlsCfg, terr := serverTLSConfig(cfg.PEMFile)
		if terr != nil {
			return nil, terr
		}
		ln, err = tls.Listen(a.Network(), hostport, tlsCfg)
	default:
		ln, err = net.Listen(a.Network(), hostport)
	}
	if err != nil {
		return nil, &TransportError{Op: "listen", Err: err}
	}

	s := &Server{
		ln:            ln,
		repo:          repo,
		cfg:           cfg,
		transport:     a.Transport,
		handler:       handler,
		log:           logrus.WithFields(logrus.Fields{"role": "server", "listen_addr": a.String()}),
		acceptErrGate: rate.Sometimes{Interval: time.Second},
		conns:         make(map[uuid.UUID]*Connection),
		doneCh:        make(chan struct{}),
	}
	go s.acceptLoop()
	return s, nil
}

// Addresses returns the endpoints this server is bound to. A single
// Listen call binds exactly one, so the slice always has length one; it
// is a slice rather than a single value to keep the shape the original
// multi-address listener exposed.
func (s *Server) Addresses() []Address {
	return []Address{addrFromNetAddr(s.transport, s.ln.Addr())}
}

func (s *Server) acceptLoop() {
	defer close(s.doneCh)
	for {
		raw, err := s.ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return
			}
			s.acceptErrGate.Do(func() {
				s.log.WithError(err).Warn("accept failed, retrying")
			})
			continue
		}
		s.handleAccept(raw)
	}
}

func (s *Server) handleAccept(raw net.Conn) {
	conn := newConnection(raw, s.transport, s.repo, s.cfg, s.log)

	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conns[conn.id] = conn
	s.mu.Unlock()

	go func() {
		_ = conn.WaitClosed()
		s.mu.Lock()
		delete(s.conns, conn.id)
		s.mu.Unlock()
	}()

	go s.dispatch(conn)
}

func (s *Server) dispatch(conn *Connection) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("connection handler panicked")
			conn.Close()
		}
	}()
	s.handler(conn)
}

// Close idempotently stops accepting new connections and begins closing
// every connection this server accepted. It does not block; use
// WaitClosed to wait for the accept loop and every connection to finish.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.closing.Store(true)

		s.mu.Lock()
		conns := make([]*Connection, 0, len(s.conns))
		for _, c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()
		s.closingConns = conns

		_ = s.ln.Close()
		for _, c := range conns {
			c.Close()
		}
	})
}

// WaitClosed blocks until the accept loop has exited and every connection
// it handed out has finished closing, returning their aggregated errors.
func (s *Server) WaitClosed() error {
	<-s.doneCh
	var merr *multierror.Error
	for _, c := range s.closingConns {
		if err := c.WaitClosed(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}

// IsClosed reports whether the accept loop has exited.
func (s *Server) IsClosed() bool {
	select {
	case <-s.doneCh:
		return true
	default:
		return false
	}
}

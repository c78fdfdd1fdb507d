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
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// dialTimeout bounds how long Connect waits for the TCP handshake (and,
// for a TLS address, the TLS handshake that rides on top of it) before
// giving up on a peer that never answers.
const dialTimeout = 10 * time.Second

// Connect dials addr and returns an open Connection once the transport
// (and, for a ssl+sbs address, TLS) handshake completes. It fails
// synchronously: a malformed address or a peer that refuses the
// connection is reported here, never discovered later through Receive.
func Connect(repo SchemaRepo, addr string, cfg Config) (*Connection, error) {
	a, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}

	hostport := net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))

	var raw net.Conn
	switch a.Transport {
	case TransportTLS:
		tlsCfg, terr := clientTLSConfig(cfg.PEMFile, cfg.InsecureSkipVerify)
		if terr != nil {
			return nil, terr
		}
		dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: dialTimeout}, Config: tlsCfg}
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		raw, err = dialer.DialContext(ctx, a.Network(), hostport)
	default:
		raw, err = net.DialTimeout(a.Network(), hostport, dialTimeout)
	}
	if err != nil {
		return nil, &TransportError{Op: "connect", Err: err}
	}

	log := logrus.WithFields(logrus.Fields{"role": "client", "remote_addr": a.String()})
	return newConnection(raw, a.Transport, repo, cfg, log), nil
}

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

import "time"

// defaultPingTimeout matches the reference implementation's 20s idle
// window before a ping probe is sent.
const defaultPingTimeout = 20 * time.Second

// Config holds the options recognized by Connect and Listen. The zero
// value is valid: every field has a documented default applied by its
// accessor below.
type Config struct {
	// PingTimeout is the idle interval after which a connection probes
	// its peer with a ping; a missed pong within another such interval
	// closes the connection. Zero selects the 20s default.
	PingTimeout time.Duration

	// QueueMaxSize bounds the receive queue: once full, the reader task
	// suspends instead of dropping frames, which is what ultimately
	// backs up the peer's writer and can close the connection. The
	// internal outbound queue is always unbounded, since Send is
	// documented as non-blocking.
	QueueMaxSize int

	// PEMFile names a file containing a PEM certificate followed by its
	// private key. It is mandatory for Listen on a TLS address, and
	// optional for Connect (when set, it is loaded as the client
	// certificate and sent only if the server requests one; a Listen
	// server does not request one).
	PEMFile string

	// InsecureSkipVerify disables server certificate verification on
	// Connect. It exists for exercising a TLS listener with a self-signed
	// certificate in tests; production callers should leave it false and
	// trust the certificate via the host's root pool instead.
	InsecureSkipVerify bool
}

func (c Config) pingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return defaultPingTimeout
	}
	return c.PingTimeout
}

func (c Config) queueMaxSize() int {
	if c.QueueMaxSize < 0 {
		return 0
	}
	return c.QueueMaxSize
}

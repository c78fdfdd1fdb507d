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
	"fmt"
)

// Sentinel errors for the taxonomy described by the protocol's error
// handling design. Wrap these with errors.Is/errors.As rather than
// comparing concrete types directly.
var (
	// ErrAddressInvalid is returned synchronously by Connect/Listen when
	// the address scheme or port is malformed.
	ErrAddressInvalid = errors.New("chatter: invalid address")

	// ErrConnectionClosed is returned by Send/Receive once a connection
	// has entered the Closing state.
	ErrConnectionClosed = errors.New("chatter: connection closed")

	// ErrPingTimeout is the reason a connection transitions to Closing
	// when a ping goes unanswered.
	ErrPingTimeout = errors.New("chatter: ping timeout")

	// ErrProtocol is the reason a connection transitions to Closing on a
	// decode failure or a wire-level invariant violation.
	ErrProtocol = errors.New("chatter: protocol error")
)

// AddressError reports why an address string was rejected.
type AddressError struct {
	Addr   string
	Reason error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("chatter: invalid address %q: %v", e.Addr, e.Reason)
}

func (e *AddressError) Unwrap() error { return e.Reason }

func (e *AddressError) Is(target error) bool { return target == ErrAddressInvalid }

// TransportError wraps a failure from the underlying socket or TLS layer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chatter: transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError wraps a decode failure or a wire-level invariant
// violation observed on an otherwise-open connection.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("chatter: protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

func newProtocolError(err error) *ProtocolError { return &ProtocolError{Err: err} }

// pingTimeoutError is the ping task's own close reason: a pong did not
// arrive within one more ping-timeout interval after the probe was sent.
type pingTimeoutError struct{}

func (e *pingTimeoutError) Error() string { return "chatter: ping timeout" }

func (e *pingTimeoutError) Is(target error) bool { return target == ErrPingTimeout }

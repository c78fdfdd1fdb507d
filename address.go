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
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// Transport identifies the byte-stream transport an Address names.
type Transport int

const (
	TransportTCP Transport = iota
	TransportTLS
)

func (t Transport) String() string {
	switch t {
	case TransportTCP:
		return "tcp"
	case TransportTLS:
		return "ssl"
	default:
		return "unknown"
	}
}

func (t Transport) scheme() string {
	return t.String() + "+sbs"
}

// Address is a parsed chatter endpoint: "<tcp|ssl>+sbs://host:port". The
// literal "+sbs" scheme suffix distinguishes this framing family from any
// future one; URL parsing itself is treated as an external collaborator
// (net/url), with only the scheme/host/port validation belonging to this
// package.
type Address struct {
	Transport Transport
	Host      string
	Port      uint16
}

func (a Address) String() string {
	return fmt.Sprintf("%s://%s", a.Transport.scheme(), net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port))))
}

// Network returns the transport's net.Dial/net.Listen network name. Both
// tcp and ssl addresses dial/listen over plain TCP; TLS is layered on top
// of the same network, not a distinct one.
func (a Address) Network() string {
	return "tcp"
}

// ParseAddress validates addr against "^(tcp|ssl)\+sbs://host:port$" and
// returns the decomposed endpoint. Any other scheme, or a missing port, is
// rejected with an *AddressError (errors.Is(err, ErrAddressInvalid)).
func ParseAddress(addr string) (Address, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return Address{}, &AddressError{Addr: addr, Reason: errors.Wrap(err, "malformed URL")}
	}

	var transport Transport
	switch u.Scheme {
	case "tcp+sbs":
		transport = TransportTCP
	case "ssl+sbs":
		transport = TransportTLS
	default:
		return Address{}, &AddressError{Addr: addr, Reason: errors.Errorf("unsupported scheme %q, want tcp+sbs or ssl+sbs", u.Scheme)}
	}

	host := u.Hostname()
	if host == "" {
		return Address{}, &AddressError{Addr: addr, Reason: errors.New("missing host")}
	}

	portStr := u.Port()
	if portStr == "" {
		return Address{}, &AddressError{Addr: addr, Reason: errors.New("missing port")}
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, &AddressError{Addr: addr, Reason: errors.Wrap(err, "invalid port")}
	}

	return Address{Transport: transport, Host: host, Port: uint16(port)}, nil
}

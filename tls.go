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

	"github.com/pkg/errors"
)

// loadPEM reads a combined certificate+key PEM file into a tls.Certificate.
// tls.LoadX509KeyPair accepts the same path for both arguments when a
// single file concatenates the CERTIFICATE and PRIVATE KEY blocks, which
// is exactly what the reference test suite's "openssl req -x509 -newkey"
// invocation produces.
func loadPEM(path string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(path, path)
	if err != nil {
		return tls.Certificate{}, errors.Wrapf(err, "chatter: loading pem file %q", path)
	}
	return cert, nil
}

// serverTLSConfig builds the listener-side TLS configuration. A PEM file
// is mandatory for a TLS listener.
func serverTLSConfig(pemFile string) (*tls.Config, error) {
	if pemFile == "" {
		return nil, errors.New("chatter: pem_file is required to listen on a TLS address")
	}
	cert, err := loadPEM(pemFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

// clientTLSConfig builds the dial-side TLS configuration. A PEM file is
// optional on the client: when absent, the system root pool is used with
// no client certificate.
func clientTLSConfig(pemFile string, insecureSkipVerify bool) (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: insecureSkipVerify}
	if pemFile == "" {
		return cfg, nil
	}
	cert, err := loadPEM(pemFile)
	if err != nil {
		return nil, err
	}
	cfg.Certificates = []tls.Certificate{cert}
	return cfg, nil
}

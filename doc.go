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

// Package chatter implements a bidirectional, message-oriented transport
// between two peers over a reliable byte stream (TCP or TLS). Messages are
// length-framed, self-describing envelopes carrying a typed payload
// encoded through a pluggable SchemaRepo; each message belongs to a
// conversation identified by the message ID that opened it. The package
// also runs a ping/pong keep-alive on every connection.
//
// The wire format and schema runtime are intentionally decoupled: Connect
// and Listen take a SchemaRepo collaborator, and package sbscodec ships a
// minimal reference implementation good enough to exercise the protocol
// and this package's tests without depending on an external schema
// toolchain.
package chatter

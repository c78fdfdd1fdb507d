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
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hat-open/chatter/sbscodec"
)

func testRepo() SchemaRepo {
	return sbscodec.BuiltinRepository().Merge(sbscodec.NewRepository(sbscodec.Module{
		Name: "Test",
		Types: map[string]sbscodec.Schema{
			"Data": sbscodec.Integer(),
		},
	}))
}

func testData(v int64) Data {
	return Data{Module: "Test", Type: "Data", Value: Int(v)}
}

// listenLoopback starts a TCP listener on an ephemeral port and delivers
// every accepted *Connection to the returned channel.
func listenLoopback(t *testing.T, cfg Config) (*Server, chan *Connection) {
	t.Helper()
	accepted := make(chan *Connection, 8)
	srv, err := Listen(testRepo(), "tcp+sbs://127.0.0.1:0", func(c *Connection) {
		accepted <- c
	}, cfg)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv, accepted
}

func TestConnectBeforeListenFails(t *testing.T) {
	_, err := Connect(testRepo(), "tcp+sbs://127.0.0.1:1", Config{})
	require.Error(t, err)
	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestConnectAndClose(t *testing.T) {
	srv, accepted := listenLoopback(t, Config{})
	addr := srv.Addresses()[0]

	client, err := Connect(testRepo(), addr.String(), Config{})
	require.NoError(t, err)
	defer client.Close()

	require.False(t, client.IsClosed())

	var server *Connection
	select {
	case server = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("server never accepted the connection")
	}
	require.False(t, server.IsClosed())

	assert.Equal(t, addr.Port, client.RemoteAddress().Port)
	assert.Equal(t, addr.Port, server.LocalAddress().Port)
}

func TestSendReceiveRoundTrip(t *testing.T) {
	srv, accepted := listenLoopback(t, Config{})
	addr := srv.Addresses()[0]

	client, err := Connect(testRepo(), addr.String(), Config{})
	require.NoError(t, err)
	defer client.Close()
	server := <-accepted

	conv, err := client.Send(testData(42), NewSendOptions())
	require.NoError(t, err)
	assert.True(t, conv.Owner)

	rm, err := server.Receive()
	require.NoError(t, err)
	assert.Equal(t, conv.FirstID, rm.Conv.FirstID)
	assert.False(t, rm.Conv.Owner)
	assert.True(t, rm.First)
	assert.True(t, rm.Last)
	assert.True(t, rm.Token)
	assert.True(t, rm.Data.Equal(testData(42)))

	reply, err := server.Send(testData(43), SendOptions{Conv: &rm.Conv, Last: true, Token: true})
	require.NoError(t, err)
	assert.Equal(t, rm.Conv.FirstID, reply.FirstID)

	back, err := client.Receive()
	require.NoError(t, err)
	assert.Equal(t, conv.FirstID, back.Conv.FirstID)
	assert.True(t, back.Conv.Owner)
	assert.True(t, back.Data.Equal(testData(43)))
}

func TestInvalidFrameClosesConnection(t *testing.T) {
	srv, accepted := listenLoopback(t, Config{})
	addr := srv.Addresses()[0]

	raw, err := net.Dial("tcp", net.JoinHostPort(addr.Host, strconv.Itoa(int(addr.Port))))
	require.NoError(t, err)
	defer raw.Close()

	server := <-accepted

	_, err = raw.Write([]byte{0x01, 0x02, 0x03, 0x04})
	require.NoError(t, err)

	_, err = server.Receive()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestPingTimeoutClosesConnection(t *testing.T) {
	srv, accepted := listenLoopback(t, Config{PingTimeout: 20 * time.Millisecond})
	addr := srv.Addresses()[0]

	raw, err := net.Dial("tcp", net.JoinHostPort(addr.Host, strconv.Itoa(int(addr.Port))))
	require.NoError(t, err)
	defer raw.Close()

	server := <-accepted

	waitErr := make(chan error, 1)
	go func() { waitErr <- server.WaitClosed() }()

	select {
	case err := <-waitErr:
		assert.ErrorIs(t, err, ErrPingTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("server connection never closed on ping timeout")
	}
}

func TestConversationTimeoutReplacementWins(t *testing.T) {
	srv, accepted := listenLoopback(t, Config{})
	addr := srv.Addresses()[0]

	client, err := Connect(testRepo(), addr.String(), Config{})
	require.NoError(t, err)
	defer client.Close()
	server := <-accepted
	_ = server

	var mu sync.Mutex
	var oldFired, newFired bool

	conv, err := client.Send(testData(1), SendOptions{
		Last: false, Token: true,
		Timeout: 500 * time.Millisecond,
		TimeoutCB: func(Conversation) {
			mu.Lock()
			oldFired = true
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	_, err = client.Send(testData(2), SendOptions{
		Conv: &conv, Last: false, Token: true,
		Timeout: 50 * time.Millisecond,
		TimeoutCB: func(Conversation) {
			mu.Lock()
			newFired = true
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return newFired
	}, time.Second, 5*time.Millisecond)

	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	assert.False(t, oldFired, "the replaced timeout must never fire")
	mu.Unlock()
}

func TestCloseUnblocksBackpressuredReader(t *testing.T) {
	srv, accepted := listenLoopback(t, Config{})
	addr := srv.Addresses()[0]

	client, err := Connect(testRepo(), addr.String(), Config{QueueMaxSize: 1})
	require.NoError(t, err)
	server := <-accepted
	defer server.Close()

	_, err = server.Send(testData(1), NewSendOptions())
	require.NoError(t, err)
	_, err = server.Send(testData(2), NewSendOptions())
	require.NoError(t, err)

	// Give the client's reader time to fill its bounded receive queue and
	// block on the second message, without ever calling client.Receive().
	time.Sleep(50 * time.Millisecond)

	client.Close()

	select {
	case <-closedSignal(client):
	case <-time.After(100 * time.Millisecond):
		t.Fatal("close did not unblock a reader parked on a full receive queue")
	}
}

func closedSignal(c *Connection) <-chan struct{} {
	return c.doneCh
}

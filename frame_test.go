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
	"bytes"
	"testing"

	"github.com/hat-open/chatter/sbscodec"
	"github.com/stretchr/testify/require"
)

func TestFrameCodecRoundTrip(t *testing.T) {
	repo := sbscodec.BuiltinRepository()
	buf := &bytes.Buffer{}
	codec := newFrameCodec(buf, repo)

	msg := wireMsg{
		ID:    1,
		First: 1,
		Owner: true,
		Token: true,
		Last:  true,
		Data: wireData{
			Module: "Test",
			Type:   "Data",
			Bytes:  []byte{1, 2, 3, 4},
		},
	}

	require.NoError(t, codec.writeMsg(msg))

	decoded, err := codec.readMsg()
	require.NoError(t, err)
	require.Equal(t, msg, decoded)
}

func TestFrameCodecRoundTripNoModule(t *testing.T) {
	repo := sbscodec.BuiltinRepository()
	buf := &bytes.Buffer{}
	codec := newFrameCodec(buf, repo)

	msg := wireMsg{
		ID:    5,
		First: 2,
		Owner: false,
		Token: false,
		Last:  false,
		Data: wireData{
			Type:  "Integer",
			Bytes: []byte{0x02},
		},
	}

	require.NoError(t, codec.writeMsg(msg))
	decoded, err := codec.readMsg()
	require.NoError(t, err)
	require.Equal(t, msg, decoded)
}

func TestFrameCodecGarbageIsError(t *testing.T) {
	repo := sbscodec.BuiltinRepository()
	buf := bytes.NewBuffer([]byte{0x01, 0x02, 0x03, 0x04})
	codec := newFrameCodec(buf, repo)

	_, err := codec.readMsg()
	require.Error(t, err)
}

func TestFrameCodecMultipleFrames(t *testing.T) {
	repo := sbscodec.BuiltinRepository()
	buf := &bytes.Buffer{}
	codec := newFrameCodec(buf, repo)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, codec.writeMsg(wireMsg{ID: i, First: 1, Owner: true, Token: true, Last: i == 3, Data: wireData{Type: "Integer", Bytes: []byte{byte(i)}}}))
	}
	for i := uint64(1); i <= 3; i++ {
		m, err := codec.readMsg()
		require.NoError(t, err)
		require.Equal(t, i, m.ID)
	}
}

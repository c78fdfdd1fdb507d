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

package sbscodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntegerRoundTrip(t *testing.T) {
	repo := NewRepository()
	for _, n := range []int64{0, 1, -1, 123, -123, 1 << 40, -(1 << 40)} {
		encoded, err := repo.Encode("", "Integer", Int(n))
		require.NoError(t, err)
		decoded, err := repo.Decode("", "Integer", encoded)
		require.NoError(t, err)
		require.Equal(t, n, decoded.Int())
	}
}

func TestStringAndBytesRoundTrip(t *testing.T) {
	repo := NewRepository()

	encoded, err := repo.Encode("", "String", Str("hello, chatter"))
	require.NoError(t, err)
	decoded, err := repo.Decode("", "String", encoded)
	require.NoError(t, err)
	require.Equal(t, "hello, chatter", decoded.String())

	encoded, err = repo.Encode("", "Bytes", Bytes([]byte{1, 2, 3}))
	require.NoError(t, err)
	decoded, err = repo.Decode("", "Bytes", encoded)
	require.NoError(t, err)
	require.True(t, Bytes([]byte{1, 2, 3}).Equal(decoded))
}

func TestHatMsgRoundTrip(t *testing.T) {
	repo := BuiltinRepository()

	msg := Record(map[string]Value{
		"id":    Int(1),
		"first": Int(1),
		"owner": Bool(true),
		"token": Bool(false),
		"last":  Bool(true),
		"data": Record(map[string]Value{
			"module": Some(Str("Test")),
			"type":   Str("Data"),
			"data":   Bytes([]byte{0xde, 0xad, 0xbe, 0xef}),
		}),
	})

	encoded, err := repo.Encode("Hat", "Msg", msg)
	require.NoError(t, err)

	decoded, err := repo.Decode("Hat", "Msg", encoded)
	require.NoError(t, err)
	require.True(t, msg.Equal(decoded))
}

func TestUserModuleMergedOnTopOfBuiltin(t *testing.T) {
	testModule := NewRepository(Module{
		Name: "Test",
		Types: map[string]Schema{
			"Data": Integer(),
		},
	})
	repo := BuiltinRepository().Merge(testModule)

	encoded, err := repo.Encode("Test", "Data", Int(123))
	require.NoError(t, err)
	decoded, err := repo.Decode("Test", "Data", encoded)
	require.NoError(t, err)
	require.Equal(t, int64(123), decoded.Int())

	// Builtin module is still reachable after merging.
	_, err = repo.Encode("Hat", "Msg", Record(map[string]Value{
		"id":    Int(1),
		"first": Int(1),
		"owner": Bool(true),
		"token": Bool(true),
		"last":  Bool(true),
		"data": Record(map[string]Value{
			"module": None(),
			"type":   Str("Integer"),
			"data":   Bytes(encoded),
		}),
	}))
	require.NoError(t, err)
}

func TestUnknownTypeIsAnError(t *testing.T) {
	repo := NewRepository()
	_, err := repo.Encode("Missing", "Nope", Bool(true))
	require.Error(t, err)
}

func TestTrailingBytesIsAnError(t *testing.T) {
	repo := NewRepository()
	encoded, err := repo.Encode("", "Boolean", Bool(true))
	require.NoError(t, err)
	_, err = repo.Decode("", "Boolean", append(encoded, 0xff))
	require.Error(t, err)
}

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressValid(t *testing.T) {
	a, err := ParseAddress("tcp+sbs://127.0.0.1:5000")
	require.NoError(t, err)
	assert.Equal(t, TransportTCP, a.Transport)
	assert.Equal(t, "127.0.0.1", a.Host)
	assert.Equal(t, uint16(5000), a.Port)
	assert.Equal(t, "tcp+sbs://127.0.0.1:5000", a.String())

	a, err = ParseAddress("ssl+sbs://example.com:443")
	require.NoError(t, err)
	assert.Equal(t, TransportTLS, a.Transport)
	assert.Equal(t, "example.com", a.Host)
	assert.Equal(t, uint16(443), a.Port)
}

func TestParseAddressRejectsMissingPort(t *testing.T) {
	_, err := ParseAddress("tcp+sbs://127.0.0.1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAddressInvalid))
}

func TestParseAddressRejectsWrongScheme(t *testing.T) {
	_, err := ParseAddress("tcp://127.0.0.1:1234")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAddressInvalid))
}

func TestParseAddressRejectsUnknownScheme(t *testing.T) {
	_, err := ParseAddress("udp+sbs://127.0.0.1:1234")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAddressInvalid))
}

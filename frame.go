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
	"bufio"
	"fmt"
	"io"

	singbufio "github.com/sagernet/sing/common/bufio"

	"github.com/hat-open/chatter/sbscodec"
)

// wireMsg is the outer envelope exactly as defined by the Hat.Msg schema.
type wireMsg struct {
	ID    uint64
	First uint64
	Owner bool
	Token bool
	Last  bool
	Data  wireData
}

// wireData is the Hat.Data record nested inside every wireMsg: the user
// payload's module/type tag plus its already schema-encoded bytes.
type wireData struct {
	Module string // "" means absent (built-in SBS type)
	Type   string
	Bytes  []byte
}

func (m wireMsg) toValue() Value {
	var moduleValue Value
	if m.Data.Module == "" {
		moduleValue = sbscodec.None()
	} else {
		moduleValue = sbscodec.Some(sbscodec.Str(m.Data.Module))
	}
	return sbscodec.Record(map[string]Value{
		"id":    sbscodec.Int(int64(m.ID)),
		"first": sbscodec.Int(int64(m.First)),
		"owner": sbscodec.Bool(m.Owner),
		"token": sbscodec.Bool(m.Token),
		"last":  sbscodec.Bool(m.Last),
		"data": sbscodec.Record(map[string]Value{
			"module": moduleValue,
			"type":   sbscodec.Str(m.Data.Type),
			"data":   sbscodec.Bytes(m.Data.Bytes),
		}),
	})
}

func wireMsgFromValue(v Value) (wireMsg, error) {
	if v.Kind() != sbscodec.KindRecord {
		return wireMsg{}, fmt.Errorf("chatter: decoded Msg is not a record")
	}
	fields := v.Fields()
	get := func(name string) (Value, error) {
		fv, ok := fields[name]
		if !ok {
			return Value{}, fmt.Errorf("chatter: Msg missing field %q", name)
		}
		return fv, nil
	}

	idV, err := get("id")
	if err != nil {
		return wireMsg{}, err
	}
	firstV, err := get("first")
	if err != nil {
		return wireMsg{}, err
	}
	ownerV, err := get("owner")
	if err != nil {
		return wireMsg{}, err
	}
	tokenV, err := get("token")
	if err != nil {
		return wireMsg{}, err
	}
	lastV, err := get("last")
	if err != nil {
		return wireMsg{}, err
	}
	dataV, err := get("data")
	if err != nil {
		return wireMsg{}, err
	}
	if dataV.Kind() != sbscodec.KindRecord {
		return wireMsg{}, fmt.Errorf("chatter: Msg.data is not a record")
	}
	dataFields := dataV.Fields()

	moduleV, ok := dataFields["module"]
	if !ok {
		return wireMsg{}, fmt.Errorf("chatter: Msg.data missing field %q", "module")
	}
	var module string
	if !moduleV.IsNone() {
		module = moduleV.Inner().String()
	}
	typeV, ok := dataFields["type"]
	if !ok {
		return wireMsg{}, fmt.Errorf("chatter: Msg.data missing field %q", "type")
	}
	bytesV, ok := dataFields["data"]
	if !ok {
		return wireMsg{}, fmt.Errorf("chatter: Msg.data missing field %q", "data")
	}

	if idV.Int() < 0 || firstV.Int() < 0 {
		return wireMsg{}, fmt.Errorf("chatter: Msg.id/first must be non-negative")
	}

	return wireMsg{
		ID:    uint64(idV.Int()),
		First: uint64(firstV.Int()),
		Owner: ownerV.Bool(),
		Token: tokenV.Bool(),
		Last:  lastV.Bool(),
		Data: wireData{
			Module: module,
			Type:   typeV.String(),
			Bytes:  bytesV.BytesValue(),
		},
	}, nil
}

// frameCodec reads and writes length-prefixed Hat.Msg frames over a single
// byte stream. The length prefix is a variable-length unsigned integer
// read and written directly (see sbscodec.ReadUvarint/PutUvarint): it is a
// stream-level framing primitive, not a call through SchemaRepo.Decode,
// since the latter needs the whole frame's bytes up front.
type frameCodec struct {
	r    *bufio.Reader
	repo SchemaRepo

	// writeFrame hands the length prefix and payload to the transport.
	// When the transport supports scatter-gather writes, it is a single
	// vectorised write instead of two separate Write calls — the same
	// batching session.go's sendLoop does for a frame's header and data.
	// Not every io.Writer supports it (a plain net.Conn's underlying fd
	// usually does; an in-memory pipe in tests typically doesn't), so the
	// closure falls back to two writes when CreateVectorisedWriter can't
	// offer one.
	writeFrame func(lenBuf, payload []byte) error
}

func newFrameCodec(rw io.ReadWriter, repo SchemaRepo) *frameCodec {
	c := &frameCodec{r: bufio.NewReader(rw), repo: repo}
	if bw, ok := singbufio.CreateVectorisedWriter(rw); ok {
		c.writeFrame = func(lenBuf, payload []byte) error {
			_, err := singbufio.WriteVectorised(bw, [][]byte{lenBuf, payload})
			return err
		}
	} else {
		c.writeFrame = func(lenBuf, payload []byte) error {
			if _, err := rw.Write(lenBuf); err != nil {
				return err
			}
			_, err := rw.Write(payload)
			return err
		}
	}
	return c
}

// writeMsg encodes msg and writes it as one length-prefixed frame.
func (c *frameCodec) writeMsg(m wireMsg) error {
	payload, err := c.repo.Encode(hatModule, hatMsgType, m.toValue())
	if err != nil {
		return fmt.Errorf("chatter: encoding frame: %w", err)
	}
	lenBuf := sbscodec.PutUvarint(nil, uint64(len(payload)))
	return c.writeFrame(lenBuf, payload)
}

// readMsg blocks until one full frame has arrived, decoding it into a
// wireMsg. Any decode failure, EOF mid-frame, or length the transport
// cannot satisfy is reported as an error; the caller treats it as fatal.
func (c *frameCodec) readMsg() (wireMsg, error) {
	n, err := sbscodec.ReadUvarint(c.r)
	if err != nil {
		return wireMsg{}, err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return wireMsg{}, err
	}
	v, err := c.repo.Decode(hatModule, hatMsgType, payload)
	if err != nil {
		return wireMsg{}, fmt.Errorf("chatter: decoding frame: %w", err)
	}
	return wireMsgFromValue(v)
}

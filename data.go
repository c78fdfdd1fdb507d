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

import "github.com/hat-open/chatter/sbscodec"

// Value is the duck-typed schema value the SBS runtime produces and
// consumes: a tagged union over boolean, integer, float, string, bytes,
// array, record, tuple, and union (optional/choice) kinds. The chatter
// core never inspects its shape; only a SchemaRepo does.
type Value = sbscodec.Value

// Convenience constructors re-exported from sbscodec so callers building
// Data values don't need a second import.
var (
	Bool   = sbscodec.Bool
	Int    = sbscodec.Int
	Float  = sbscodec.Float
	Str    = sbscodec.Str
	Bytes  = sbscodec.Bytes
	Array  = sbscodec.Array
	Tuple  = sbscodec.Tuple
	Record = sbscodec.Record
	Some   = sbscodec.Some
	None   = sbscodec.None
)

// SchemaRepo is the opaque collaborator that encodes and decodes typed
// values against named (module, type) schemas. The chatter core depends
// only on this interface; package sbscodec provides a concrete
// implementation.
type SchemaRepo interface {
	Encode(module, typ string, value Value) ([]byte, error)
	Decode(module, typ string, data []byte) (Value, error)
}

// Data is the user payload envelope the core accepts from Send and
// delivers from Receive.
type Data struct {
	// Module is the schema module name the value's type belongs to. An
	// empty Module means a built-in SBS type (see SchemaRepo).
	Module string
	Type   string
	Value  Value
}

// Equal reports whether two Data envelopes are bit-exact: same module,
// same type, and an equal decoded value.
func (d Data) Equal(o Data) bool {
	return d.Module == o.Module && d.Type == o.Type && d.Value.Equal(o.Value)
}

const (
	hatModule       = "Hat"
	hatMsgType      = "Msg"
	chatterModule   = "HatChatter"
	chatterPingType = "MsgPing"
	chatterPongType = "MsgPong"
)

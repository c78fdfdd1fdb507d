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

// Package sbscodec is a minimal reference runtime for the schema-driven
// binary format (SBS) that the chatter protocol treats as an opaque
// collaborator. It is not a schema-language compiler: schemas are built by
// composing Go values (Boolean(), Integer(), RecordSchema(...), ...), not by
// parsing ".sbs" source. It exists so the chatter package, and its tests,
// have a concrete SchemaRepo to exercise without depending on an external
// schema toolchain.
package sbscodec

import "fmt"

// Kind identifies the shape of a Value.
type Kind int

const (
	KindBoolean Kind = iota
	KindInteger
	KindFloat
	KindString
	KindBytes
	KindArray
	KindRecord
	KindTuple
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindRecord:
		return "record"
	case KindTuple:
		return "tuple"
	case KindUnion:
		return "union"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a tagged union over the SBS primitive kinds: boolean, integer,
// float, string, bytes, array (list), record, tuple, and union
// (tag + nested value, used for Maybe<T>/optional fields and choices).
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	by     []byte
	arr    []Value
	rec    map[string]Value
	tup    []Value
	tag    string
	inner  *Value
}

func Bool(v bool) Value  { return Value{kind: KindBoolean, b: v} }
func Int(v int64) Value  { return Value{kind: KindInteger, i: v} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }
func Str(v string) Value { return Value{kind: KindString, s: v} }
func Bytes(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindBytes, by: cp}
}
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }
func Tuple(items ...Value) Value { return Value{kind: KindTuple, tup: items} }

// Record builds a record value from field name/value pairs.
func Record(fields map[string]Value) Value {
	return Value{kind: KindRecord, rec: fields}
}

// Union builds a tagged union value, e.g. the Maybe<T> encoding: tag
// "none" carries no inner value, tag "value" carries one.
func Union(tag string, inner *Value) Value {
	return Value{kind: KindUnion, tag: tag, inner: inner}
}

// None is the absent case of an optional value.
func None() Value { return Union("none", nil) }

// Some wraps v as the present case of an optional value.
func Some(v Value) Value { return Union("value", &v) }

func (v Value) Kind() Kind { return v.kind }
func (v Value) Bool() bool { return v.b }
func (v Value) Int() int64 { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) String() string {
	if v.kind == KindString {
		return v.s
	}
	return fmt.Sprintf("%s(%v)", v.kind, v.Raw())
}
func (v Value) BytesValue() []byte { return v.by }
func (v Value) Items() []Value {
	switch v.kind {
	case KindArray:
		return v.arr
	case KindTuple:
		return v.tup
	default:
		return nil
	}
}
func (v Value) Fields() map[string]Value { return v.rec }
func (v Value) Tag() string              { return v.tag }
func (v Value) Inner() *Value            { return v.inner }

// IsNone reports whether a union value is the absent/"none" case.
func (v Value) IsNone() bool { return v.kind == KindUnion && v.tag == "none" }

// Raw returns the underlying Go value for simple kinds, for debugging.
func (v Value) Raw() interface{} {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return v.by
	default:
		return nil
	}
}

// Equal performs a deep, bit-exact comparison between two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBoolean:
		return v.b == o.b
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBytes:
		if len(v.by) != len(o.by) {
			return false
		}
		for i := range v.by {
			if v.by[i] != o.by[i] {
				return false
			}
		}
		return true
	case KindArray, KindTuple:
		a, b := v.Items(), o.Items()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(v.rec) != len(o.rec) {
			return false
		}
		for k, val := range v.rec {
			ov, ok := o.rec[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	case KindUnion:
		if v.tag != o.tag {
			return false
		}
		if (v.inner == nil) != (o.inner == nil) {
			return false
		}
		if v.inner == nil {
			return true
		}
		return v.inner.Equal(*o.inner)
	default:
		return false
	}
}

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
	"bufio"
	"fmt"
	"io"
)

// Schema describes how to encode/decode one SBS type. Schemas compose:
// a Record is built from named fields, each with its own Schema; an
// Optional/List/Tuple wraps element Schemas. There is deliberately no
// schema-language parser here — schemas are assembled in Go.
type Schema interface {
	encode(w io.Writer, v Value) error
	decode(r *bufio.Reader) (Value, error)
}

// --- primitives -------------------------------------------------------

type booleanSchema struct{}

func Boolean() Schema { return booleanSchema{} }

func (booleanSchema) encode(w io.Writer, v Value) error {
	if v.Kind() != KindBoolean {
		return fmt.Errorf("sbscodec: expected boolean, got %s", v.Kind())
	}
	var b byte
	if v.Bool() {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

func (booleanSchema) decode(r *bufio.Reader) (Value, error) {
	b, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	return Bool(b != 0), nil
}

type integerSchema struct{}

// Integer is the SBS native variable-length integer type: a zigzag-mapped
// value written with PutUvarint. The frame codec's outer length prefix
// uses PutUvarint directly, without the zigzag step.
func Integer() Schema { return integerSchema{} }

func (integerSchema) encode(w io.Writer, v Value) error {
	if v.Kind() != KindInteger {
		return fmt.Errorf("sbscodec: expected integer, got %s", v.Kind())
	}
	buf := PutUvarint(nil, zigzag(v.Int()))
	_, err := w.Write(buf)
	return err
}

func (integerSchema) decode(r *bufio.Reader) (Value, error) {
	u, err := ReadUvarint(r)
	if err != nil {
		return Value{}, err
	}
	return Int(unzigzag(u)), nil
}

func zigzag(v int64) uint64   { return uint64((v << 1) ^ (v >> 63)) }
func unzigzag(u uint64) int64 { return int64(u>>1) ^ -int64(u&1) }

type floatSchema struct{}

func Float() Schema { return floatSchema{} }

func (floatSchema) encode(w io.Writer, v Value) error {
	if v.Kind() != KindFloat {
		return fmt.Errorf("sbscodec: expected float, got %s", v.Kind())
	}
	var buf [8]byte
	putFloat64(buf[:], v.Float())
	_, err := w.Write(buf[:])
	return err
}

func (floatSchema) decode(r *bufio.Reader) (Value, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Value{}, err
	}
	return Float(getFloat64(buf[:])), nil
}

type stringSchema struct{}

func Str() Schema { return stringSchema{} }

func (stringSchema) encode(w io.Writer, v Value) error {
	if v.Kind() != KindString {
		return fmt.Errorf("sbscodec: expected string, got %s", v.Kind())
	}
	return writeLenPrefixed(w, []byte(v.String()))
}

func (stringSchema) decode(r *bufio.Reader) (Value, error) {
	b, err := readLenPrefixed(r)
	if err != nil {
		return Value{}, err
	}
	return Str(string(b)), nil
}

type bytesSchema struct{}

func BytesSchema() Schema { return bytesSchema{} }

func (bytesSchema) encode(w io.Writer, v Value) error {
	if v.Kind() != KindBytes {
		return fmt.Errorf("sbscodec: expected bytes, got %s", v.Kind())
	}
	return writeLenPrefixed(w, v.BytesValue())
}

func (bytesSchema) decode(r *bufio.Reader) (Value, error) {
	b, err := readLenPrefixed(r)
	if err != nil {
		return Value{}, err
	}
	return Bytes(b), nil
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	buf := PutUvarint(nil, uint64(len(b)))
	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readLenPrefixed(r *bufio.Reader) ([]byte, error) {
	n, err := ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// --- composites ---------------------------------------------------------

type optionalSchema struct{ elem Schema }

// Optional encodes SBS's Maybe<T>: a one-byte union tag followed by the
// element encoding when present.
func Optional(elem Schema) Schema { return optionalSchema{elem: elem} }

func (o optionalSchema) encode(w io.Writer, v Value) error {
	if v.Kind() != KindUnion {
		return fmt.Errorf("sbscodec: expected optional union, got %s", v.Kind())
	}
	if v.IsNone() {
		_, err := w.Write([]byte{0})
		return err
	}
	if _, err := w.Write([]byte{1}); err != nil {
		return err
	}
	return o.elem.encode(w, *v.Inner())
}

func (o optionalSchema) decode(r *bufio.Reader) (Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	if tag == 0 {
		return None(), nil
	}
	inner, err := o.elem.decode(r)
	if err != nil {
		return Value{}, err
	}
	return Some(inner), nil
}

type listSchema struct{ elem Schema }

func List(elem Schema) Schema { return listSchema{elem: elem} }

func (l listSchema) encode(w io.Writer, v Value) error {
	if v.Kind() != KindArray {
		return fmt.Errorf("sbscodec: expected array, got %s", v.Kind())
	}
	items := v.Items()
	buf := PutUvarint(nil, uint64(len(items)))
	if _, err := w.Write(buf); err != nil {
		return err
	}
	for _, item := range items {
		if err := l.elem.encode(w, item); err != nil {
			return err
		}
	}
	return nil
}

func (l listSchema) decode(r *bufio.Reader) (Value, error) {
	n, err := ReadUvarint(r)
	if err != nil {
		return Value{}, err
	}
	items := make([]Value, 0, n)
	for i := uint64(0); i < n; i++ {
		item, err := l.elem.decode(r)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return Array(items...), nil
}

// Field is one named, ordered field of a Record schema.
type Field struct {
	Name   string
	Schema Schema
}

type recordSchema struct{ fields []Field }

// RecordSchema builds a schema over an ordered sequence of required fields.
// Field order is the wire order: there are no field tags, matching a
// schema-driven format where both peers compile from the same definition.
func RecordSchema(fields ...Field) Schema { return recordSchema{fields: fields} }

func (rs recordSchema) encode(w io.Writer, v Value) error {
	if v.Kind() != KindRecord {
		return fmt.Errorf("sbscodec: expected record, got %s", v.Kind())
	}
	for _, f := range rs.fields {
		fv, ok := v.Fields()[f.Name]
		if !ok {
			return fmt.Errorf("sbscodec: record missing required field %q", f.Name)
		}
		if err := f.Schema.encode(w, fv); err != nil {
			return fmt.Errorf("sbscodec: field %q: %w", f.Name, err)
		}
	}
	return nil
}

func (rs recordSchema) decode(r *bufio.Reader) (Value, error) {
	out := make(map[string]Value, len(rs.fields))
	for _, f := range rs.fields {
		fv, err := f.Schema.decode(r)
		if err != nil {
			return Value{}, fmt.Errorf("sbscodec: field %q: %w", f.Name, err)
		}
		out[f.Name] = fv
	}
	return Record(out), nil
}

type tupleSchema struct{ elems []Schema }

func TupleSchema(elems ...Schema) Schema { return tupleSchema{elems: elems} }

func (ts tupleSchema) encode(w io.Writer, v Value) error {
	if v.Kind() != KindTuple {
		return fmt.Errorf("sbscodec: expected tuple, got %s", v.Kind())
	}
	items := v.Items()
	if len(items) != len(ts.elems) {
		return fmt.Errorf("sbscodec: tuple arity mismatch: want %d, got %d", len(ts.elems), len(items))
	}
	for i, elem := range ts.elems {
		if err := elem.encode(w, items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (ts tupleSchema) decode(r *bufio.Reader) (Value, error) {
	items := make([]Value, len(ts.elems))
	for i, elem := range ts.elems {
		v, err := elem.decode(r)
		if err != nil {
			return Value{}, err
		}
		items[i] = v
	}
	return Tuple(items...), nil
}

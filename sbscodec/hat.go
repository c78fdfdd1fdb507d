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

// BuiltinRepository returns a Repository pre-registered with the two
// protocol-level modules the chatter wire format depends on:
//
//   Hat          { Msg, Data }           — the envelope itself
//   HatChatter   { MsgPing, MsgPong }     — internal keep-alive payloads
//
// Callers merge their own modules on top via Merge, mirroring the
// reference Python implementation's sbs.Repository(chatter.sbs_repo, ...).
func BuiltinRepository() *Repository {
	dataSchema := RecordSchema(
		Field{Name: "module", Schema: Optional(Str())},
		Field{Name: "type", Schema: Str()},
		Field{Name: "data", Schema: BytesSchema()},
	)
	msgSchema := RecordSchema(
		Field{Name: "id", Schema: Integer()},
		Field{Name: "first", Schema: Integer()},
		Field{Name: "owner", Schema: Boolean()},
		Field{Name: "token", Schema: Boolean()},
		Field{Name: "last", Schema: Boolean()},
		Field{Name: "data", Schema: dataSchema},
	)
	empty := RecordSchema()

	return NewRepository(
		Module{
			Name: "Hat",
			Types: map[string]Schema{
				"Msg":  msgSchema,
				"Data": dataSchema,
			},
		},
		Module{
			Name: "HatChatter",
			Types: map[string]Schema{
				"MsgPing": empty,
				"MsgPong": empty,
			},
		},
	)
}

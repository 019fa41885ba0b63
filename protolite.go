// Package protolite encodes and decodes the Protocol Buffers wire format
// against message schemas declared directly as Go struct types, with no
// .proto files and no code generation. Declare a record type with
// `protolite` struct tags, compile it once with schema.Compile (or let the
// convenience functions below compile it on first use), and Marshal/
// Unmarshal move between that type and the canonical length-delimited,
// tag-prefixed wire format.
package protolite

import (
	"bytes"
	"io"
	"reflect"

	"github.com/protolite-go/protolite/codec"
	"github.com/protolite-go/protolite/schema"
)

// Marshal serializes v, a pointer to a struct compiled against a
// MessageSchema, into the wire format. v's schema is derived from its Go
// type via schema.Compile rather than passed explicitly.
func Marshal(v interface{}) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, errNotAPointer(v)
	}
	s, err := schema.Compile(rv.Type())
	if err != nil {
		return nil, err
	}
	return codec.Write(nil, rv.Elem(), s)
}

// Unmarshal decodes buf into v, a pointer to a struct compiled against a
// MessageSchema. Fields absent from the wire are left as they are in v (so
// a zero-valued v keeps its Go zero values, nil for Optional pointer
// fields); there are no declared defaults. Fields present on the wire but
// absent from v's schema are collected into v's Unknown slot, if it has
// one (see schema.UnknownFields).
func Unmarshal(buf []byte, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return errNotAPointer(v)
	}
	s, err := schema.Compile(rv.Type())
	if err != nil {
		return err
	}
	r := codec.NewReader(buf)
	return r.Read(v, s, -1)
}

// Dumps serializes v to wire bytes. It is Marshal under another name.
func Dumps(v interface{}) ([]byte, error) {
	return Marshal(v)
}

// Dump serializes v and writes it to w, returning the number of bytes
// written. Dump does not close w.
func Dump(v interface{}, w io.Writer) (int, error) {
	buf, err := Marshal(v)
	if err != nil {
		return 0, err
	}
	return w.Write(buf)
}

// Loads decodes buf into v. It is Unmarshal under another name.
func Loads(buf []byte, v interface{}) error {
	return Unmarshal(buf, v)
}

// Load reads all of r's remaining bytes and decodes them into v. Load does
// not close r.
func Load(r io.Reader, v interface{}) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}
	return Unmarshal(buf.Bytes(), v)
}

// Parse decodes buf with no schema, returning every field's raw wire
// values keyed by field number in wire-arrival order.
func Parse(buf []byte) (map[uint32][]codec.RawField, error) {
	return codec.ParseRaw(buf)
}

// ParseStream reads all of r's remaining bytes and decodes them with no
// schema, like Parse. ParseStream does not close r.
func ParseStream(r io.Reader) (map[uint32][]codec.RawField, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return codec.ParseRaw(buf.Bytes())
}

func errNotAPointer(v interface{}) error {
	return &typeError{v: v}
}

type typeError struct{ v interface{} }

func (e *typeError) Error() string {
	return "protolite: not a valid protobuf type: expected pointer to struct, got " + reflectTypeName(e.v)
}

func reflectTypeName(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}

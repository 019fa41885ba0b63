package codec

import (
	"fmt"
	"io"
	"reflect"

	"github.com/protolite-go/protolite/schema"
	"github.com/protolite-go/protolite/wire"
)

// Reader decodes the protobuf wire format from an in-memory byte slice.
// It owns a mutable read position and is not safe to share across
// goroutines, matching the single-threaded contract the wire format's
// cursor-based framing implies.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding. buf is not copied; the
// Reader must not outlive mutation of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) remaining() []byte { return r.buf[r.pos:] }

// ReadRecord consumes one tag+value pair. If s is nil or pid is absent
// from s, value is a schema.RawValue carrying the undecoded payload.
// io.EOF means a clean end of message (no bytes consumed); any other
// error aborts the read with the position left where it failed — the
// stream is considered corrupt from that point and is never rewound.
func (r *Reader) ReadRecord(s *schema.MessageSchema) (pid uint32, value interface{}, wt wire.WireType, err error) {
	tagStart := r.pos
	tagVal, n, err := wire.ConsumeVarint(r.remaining())
	if err != nil {
		if err == wire.ErrEOF {
			return 0, nil, 0, io.EOF
		}
		return 0, nil, 0, err
	}
	r.pos += n

	fieldNum, wireType := wire.ParseTag(wire.Tag(tagVal))
	if !wireType.Valid() {
		return 0, nil, 0, fmt.Errorf("wire: invalid wire type bits %d", wireType)
	}
	if wireType == wire.SGROUP || wireType == wire.EGROUP {
		return 0, nil, 0, wire.ErrGroupUnsupported
	}

	var fd *schema.FieldDescriptor
	if s != nil {
		fd = s.ByPID[fieldNum]
	}
	if fd == nil {
		raw, err := r.readRaw(wireType)
		if err == nil && wire.GetConfig().PreserveUnknownBytes {
			raw.RawBytes = append([]byte(nil), r.buf[tagStart:r.pos]...)
		}
		return fieldNum, raw, wireType, err
	}

	if fd.IsMapEntry {
		key, val, err := r.readMapEntry(fd, wireType)
		return fieldNum, [2]interface{}{key, val}, wireType, err
	}

	if fd.Mode.Multiple() {
		values, err := r.readMultiple(fd, wireType)
		return fieldNum, values, wireType, err
	}

	v, err := r.readOne(fd, wireType)
	return fieldNum, v, wireType, err
}

// readOne decodes a single field value whose wire type must match
// fd.ProtoType's native wire type exactly (the Single/Optional case, and
// the per-element case inside readMultiple).
func (r *Reader) readOne(fd *schema.FieldDescriptor, wireType wire.WireType) (interface{}, error) {
	want := fd.ProtoType.WireType()
	if wireType != want {
		return nil, fmt.Errorf("unexpected value type for %s: expected %s, got %s", fd.Name, want, wireType)
	}
	if fd.ProtoType == schema.Embed {
		return r.readEmbed(fd)
	}
	v, n, err := decodeScalar(fd, r.remaining())
	if err != nil {
		return nil, err
	}
	r.pos += n
	return v, nil
}

func (r *Reader) readEmbed(fd *schema.FieldDescriptor) (interface{}, error) {
	data, n, err := wire.ConsumeRawBytes(r.remaining())
	if err != nil {
		return nil, fixEOF(err)
	}
	r.pos += n
	out := reflect.New(fd.EmbedSchema.GoType)
	sub := NewReader(data)
	if err := sub.Read(out.Interface(), fd.EmbedSchema, len(data)); err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// readMultiple handles a Packed/Repeated field occurrence: either one
// element in its native wire type, or — when the incoming wire type is
// LEN but the element's native type isn't — a packed run of elements
// inside one length-delimited payload.
func (r *Reader) readMultiple(fd *schema.FieldDescriptor, wireType wire.WireType) ([]interface{}, error) {
	elemWire := fd.Elem.ProtoType.WireType()
	if wireType == elemWire {
		v, err := r.readOne(fd.Elem, wireType)
		if err != nil {
			return nil, err
		}
		return []interface{}{v}, nil
	}
	if wireType == wire.LEN && elemWire != wire.LEN {
		length, n, err := wire.ConsumeVarint(r.remaining())
		if err != nil {
			return nil, fixEOF(err)
		}
		r.pos += n
		start := r.pos
		end := start + int(length)
		if end > len(r.buf) {
			return nil, wire.ErrNonMatchingPackedLength
		}
		var values []interface{}
		for r.pos < end {
			v, n, err := decodeScalar(fd.Elem, r.buf[r.pos:end])
			if err != nil {
				return nil, err
			}
			r.pos += n
			values = append(values, v)
		}
		if r.pos != end {
			return nil, wire.ErrNonMatchingPackedLength
		}
		return values, nil
	}
	return nil, fmt.Errorf("unexpected value type for %s: expected %s, got %s", fd.Name, elemWire, wireType)
}

// readMapEntry decodes one occurrence of a synthesized MapEntry: a
// length-delimited submessage with key at pid 1 and value at pid 2.
func (r *Reader) readMapEntry(fd *schema.FieldDescriptor, wireType wire.WireType) (key, val interface{}, err error) {
	if wireType != wire.LEN {
		return nil, nil, fmt.Errorf("unexpected value type for %s: expected %s, got %s", fd.Name, wire.LEN, wireType)
	}
	data, n, err := wire.ConsumeRawBytes(r.remaining())
	if err != nil {
		return nil, nil, fixEOF(err)
	}
	r.pos += n

	sub := NewReader(data)
	for {
		pid, value, _, err := sub.ReadRecord(fd.EmbedSchema)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch pid {
		case 1:
			key = value
		case 2:
			val = value
		}
	}
	if key == nil {
		key = reflect.Zero(fd.KeyDesc.GoType).Interface()
	}
	if val == nil {
		val = reflect.Zero(fd.ValDesc.GoType).Interface()
	}
	return key, val, nil
}

// readRaw decodes a field with no matching descriptor into a RawValue,
// keyed by wire type alone.
func (r *Reader) readRaw(wireType wire.WireType) (schema.RawValue, error) {
	switch wireType {
	case wire.Varint:
		v, n, err := wire.ConsumeVarint(r.remaining())
		if err != nil {
			return schema.RawValue{}, fixEOF(err)
		}
		r.pos += n
		return schema.RawValue{WireType: wireType, Varint: v}, nil
	case wire.I32:
		v, n, err := wire.ConsumeFixed32(r.remaining())
		if err != nil {
			return schema.RawValue{}, err
		}
		r.pos += n
		return schema.RawValue{WireType: wireType, Fixed32: v}, nil
	case wire.I64:
		v, n, err := wire.ConsumeFixed64(r.remaining())
		if err != nil {
			return schema.RawValue{}, err
		}
		r.pos += n
		return schema.RawValue{WireType: wireType, Fixed64: v}, nil
	case wire.LEN:
		v, n, err := wire.ConsumeBytes(r.remaining())
		if err != nil {
			return schema.RawValue{}, fixEOF(err)
		}
		r.pos += n
		return schema.RawValue{WireType: wireType, Bytes: v}, nil
	default:
		return schema.RawValue{}, fmt.Errorf("wire: cannot decode wire type %s without a schema", wireType)
	}
}

// Read decodes a message body into out, a pointer to a struct compiled
// against s. When length is negative, decoding continues until the
// buffer is exhausted; a clean end of stream is only valid before a
// record's tag. When length is non-negative, exactly that many bytes
// must be consumed or ErrNonMatchingLength is raised.
func (r *Reader) Read(out interface{}, s *schema.MessageSchema, length int) error {
	start := r.pos
	end := len(r.buf)
	if length >= 0 {
		if start+length > len(r.buf) {
			return wire.ErrNonMatchingLength
		}
		end = start + length
	}
	sub := &Reader{buf: r.buf[:end], pos: start}

	rv := reflect.ValueOf(out).Elem()
	unknownField := findUnknownField(rv)

	for {
		pid, value, _, err := sub.ReadRecord(s)
		if err == io.EOF {
			break
		}
		if err != nil {
			r.pos = sub.pos
			if length >= 0 && err == wire.ErrTruncated && end < len(r.buf) {
				// the record runs past the declared length, not past the data
				return wire.ErrNonMatchingLength
			}
			return err
		}

		var fd *schema.FieldDescriptor
		if s != nil {
			fd = s.ByPID[pid]
		}
		if fd == nil {
			if unknownField.IsValid() {
				appendUnknown(unknownField, pid, value.(schema.RawValue))
			}
			continue
		}
		if err := assignField(rv, fd, value); err != nil {
			r.pos = sub.pos
			return wire.WrapFieldError(err, fd.Name)
		}
	}
	r.pos = sub.pos
	if length >= 0 && sub.pos != end {
		return wire.ErrNonMatchingLength
	}
	return nil
}

func findUnknownField(rv reflect.Value) reflect.Value {
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	f := rv.FieldByName("Unknown")
	if !f.IsValid() || f.Type() != reflect.TypeOf(schema.UnknownFields{}) {
		return reflect.Value{}
	}
	return f
}

func appendUnknown(field reflect.Value, pid uint32, raw schema.RawValue) {
	if field.IsNil() {
		field.Set(reflect.MakeMap(field.Type()))
	}
	key := reflect.ValueOf(pid)
	var list []schema.RawValue
	if cur := field.MapIndex(key); cur.IsValid() {
		list = cur.Interface().([]schema.RawValue)
	}
	list = append(list, raw)
	field.SetMapIndex(key, reflect.ValueOf(list))
}

// assignField writes a decoded value into rv's field for fd, boxing into
// an Optional pointer or extending a Packed/Repeated slice or map as
// required by fd.Mode.
func assignField(rv reflect.Value, fd *schema.FieldDescriptor, value interface{}) error {
	field := rv.Field(fd.GoIndex)

	if fd.IsMapEntry {
		pair := value.([2]interface{})
		if field.IsNil() {
			field.Set(reflect.MakeMap(fd.GoType))
		}
		field.SetMapIndex(
			conformTo(fd.GoType.Key(), reflect.ValueOf(pair[0])),
			conformTo(fd.GoType.Elem(), reflect.ValueOf(pair[1])),
		)
		return nil
	}

	if fd.Mode.Multiple() {
		values := value.([]interface{})
		elemType := fd.GoType.Elem()
		for _, v := range values {
			field.Set(reflect.Append(field, conformTo(elemType, reflect.ValueOf(v))))
		}
		return nil
	}

	if fd.Mode == schema.Optional && fd.ProtoType == schema.Bytes {
		// []byte is never pointer-boxed: Optional here only governs
		// default elision, not the Go representation.
		field.Set(reflect.ValueOf(value))
		return nil
	}

	if fd.Mode == schema.Optional && fd.ProtoType != schema.Embed {
		ptr := reflect.New(fd.GoType.Elem())
		ptr.Elem().Set(conformTo(fd.GoType.Elem(), reflect.ValueOf(value)))
		field.Set(ptr)
		return nil
	}

	field.Set(conformTo(fd.GoType, reflect.ValueOf(value)))
	return nil
}

// conformTo adapts a decoded value to the declared field type: dereferencing
// the pointer readEmbed always returns when the declaration holds the struct
// by value, and converting across compatible kinds (an enum's named type, or
// a field declared with a narrower proto_type than its Go type).
func conformTo(want reflect.Type, rv reflect.Value) reflect.Value {
	if rv.Type() == want {
		return rv
	}
	if rv.Kind() == reflect.Ptr && rv.Type().Elem() == want {
		return rv.Elem()
	}
	if rv.Type().ConvertibleTo(want) {
		return rv.Convert(want)
	}
	return rv
}

package codec

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/protolite-go/protolite/schema"
	"github.com/protolite-go/protolite/wire"
)

// Write serializes rv (a struct value compiled against s) by appending
// its wire encoding to buf, and returns the extended buffer. It is used
// both for the top-level record and, recursively, for every embedded
// message: the nested call's result is buffered in full before the
// caller prefixes it with a length, since the wire format requires the
// length before the body.
func Write(buf []byte, rv reflect.Value, s *schema.MessageSchema) ([]byte, error) {
	for _, fd := range s.Fields {
		var err error
		buf, err = writeField(buf, rv, fd)
		if err != nil {
			return nil, wire.WrapFieldError(err, fd.Name)
		}
	}
	return writeUnknownFields(buf, rv), nil
}

// writeUnknownFields re-emits whatever rv.Unknown collected on a prior
// decode, so a decode-then-encode round trip doesn't silently drop fields
// the active schema doesn't know about. Pids are emitted in sorted order
// (Go map iteration isn't stable); occurrences within a pid keep their
// original arrival order. When an occurrence carries RawBytes (only
// populated under wire.Config.PreserveUnknownBytes), those exact bytes are
// reused instead of re-deriving tag+value from the decoded RawValue.
func writeUnknownFields(buf []byte, rv reflect.Value) []byte {
	field := findUnknownField(rv)
	if !field.IsValid() || field.IsNil() {
		return buf
	}
	unknown := field.Interface().(schema.UnknownFields)
	pids := make([]uint32, 0, len(unknown))
	for pid := range unknown {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	for _, pid := range pids {
		for _, raw := range unknown[pid] {
			if raw.RawBytes != nil {
				buf = append(buf, raw.RawBytes...)
				continue
			}
			buf = wire.AppendVarint(buf, uint64(wire.MakeTag(pid, raw.WireType)))
			switch raw.WireType {
			case wire.Varint:
				buf = wire.AppendVarint(buf, raw.Varint)
			case wire.I32:
				buf = wire.AppendFixed32(buf, raw.Fixed32)
			case wire.I64:
				buf = wire.AppendFixed64(buf, raw.Fixed64)
			case wire.LEN:
				buf = wire.AppendBytes(buf, raw.Bytes)
			}
		}
	}
	return buf
}

func writeField(buf []byte, rv reflect.Value, fd *schema.FieldDescriptor) ([]byte, error) {
	field := rv.Field(fd.GoIndex)

	if fd.IsMapEntry {
		return writeMapField(buf, field, fd)
	}
	if fd.Mode.Multiple() {
		return writeListField(buf, field, fd)
	}
	if fd.Mode == schema.Optional {
		if field.IsNil() {
			return buf, nil
		}
		if fd.ProtoType == schema.Embed {
			return appendEmbed(buf, fd.PID, fd.EmbedSchema, field.Elem())
		}
		if fd.ProtoType == schema.Bytes {
			// []byte is never pointer-boxed: Optional here only governs
			// default elision (a nil slice), not the Go representation.
			return appendTaggedScalar(buf, fd.PID, fd, field.Interface())
		}
		return appendTaggedScalar(buf, fd.PID, fd, field.Elem().Interface())
	}
	// Single: no default, always present.
	if fd.ProtoType == schema.Embed {
		return nil, fmt.Errorf("invalid field type: embed fields must be Optional (*%s)", fd.GoType)
	}
	return appendTaggedScalar(buf, fd.PID, fd, field.Interface())
}

func appendTaggedScalar(buf []byte, pid uint32, fd *schema.FieldDescriptor, v interface{}) ([]byte, error) {
	buf = wire.AppendVarint(buf, uint64(wire.MakeTag(pid, fd.ProtoType.WireType())))
	return encodeScalar(fd, v, buf)
}

func appendEmbed(buf []byte, pid uint32, sub *schema.MessageSchema, structVal reflect.Value) ([]byte, error) {
	buf = wire.AppendVarint(buf, uint64(wire.MakeTag(pid, wire.LEN)))
	nested, err := Write(nil, structVal, sub)
	if err != nil {
		return nil, err
	}
	buf = wire.AppendVarint(buf, uint64(len(nested)))
	return append(buf, nested...), nil
}

// packThreshold is the largest list length that does not get packed
// encoding: at or below it the length prefix costs more than it saves, so a
// Packed field falls back to one tag+value pair per element.
const packThreshold = 2

// writeListField implements the Packed/Repeated emission rule: a Packed
// field longer than packThreshold is buffered into one LEN payload;
// everything else (a short Packed field, or a Repeated field, which by
// definition holds a non-packable element type) emits one tag+value pair
// per element.
func writeListField(buf []byte, field reflect.Value, fd *schema.FieldDescriptor) ([]byte, error) {
	n := field.Len()
	if n == 0 {
		return buf, nil
	}
	if fd.Mode == schema.Packed && n > packThreshold {
		var packed []byte
		var err error
		for i := 0; i < n; i++ {
			packed, err = encodeScalar(fd.Elem, field.Index(i).Interface(), packed)
			if err != nil {
				return nil, err
			}
		}
		buf = wire.AppendVarint(buf, uint64(wire.MakeTag(fd.PID, wire.LEN)))
		buf = wire.AppendVarint(buf, uint64(len(packed)))
		return append(buf, packed...), nil
	}

	for i := 0; i < n; i++ {
		elem := field.Index(i)
		var err error
		if fd.Elem.ProtoType == schema.Embed {
			if elem.Kind() == reflect.Ptr {
				if elem.IsNil() {
					continue
				}
				elem = elem.Elem()
			}
			buf, err = appendEmbed(buf, fd.PID, fd.Elem.EmbedSchema, elem)
		} else {
			buf, err = appendTaggedScalar(buf, fd.PID, fd.Elem, elem.Interface())
		}
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// writeMapField emits one synthesized MapEntry message per (k, v) pair.
// Map iteration order is unspecified in Go, so keys are sorted by their
// formatted value to keep Dumps output deterministic across calls.
func writeMapField(buf []byte, field reflect.Value, fd *schema.FieldDescriptor) ([]byte, error) {
	if field.IsNil() || field.Len() == 0 {
		return buf, nil
	}
	keys := field.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	for _, k := range keys {
		var entry []byte
		var err error
		entry, err = writeMapEntryField(entry, 1, fd.KeyDesc, k)
		if err != nil {
			return nil, err
		}
		entry, err = writeMapEntryField(entry, 2, fd.ValDesc, field.MapIndex(k))
		if err != nil {
			return nil, err
		}
		buf = wire.AppendVarint(buf, uint64(wire.MakeTag(fd.PID, wire.LEN)))
		buf = wire.AppendVarint(buf, uint64(len(entry)))
		buf = append(buf, entry...)
	}
	return buf, nil
}

func writeMapEntryField(buf []byte, pid uint32, fd *schema.FieldDescriptor, v reflect.Value) ([]byte, error) {
	if fd.ProtoType == schema.Embed {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return buf, nil
			}
			v = v.Elem()
		}
		return appendEmbed(buf, pid, fd.EmbedSchema, v)
	}
	if isZero(v.Interface()) {
		return buf, nil
	}
	return appendTaggedScalar(buf, pid, fd, v.Interface())
}

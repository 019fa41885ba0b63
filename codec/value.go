// Package codec implements the schema-aware reader and writer: the part
// of the system that actually walks the wire format, guided by the
// descriptor tables package schema compiles.
package codec

import (
	"fmt"
	"math"
	"reflect"

	"github.com/protolite-go/protolite/schema"
	"github.com/protolite-go/protolite/wire"
)

// checkVarintWidth32 enforces wire.Config.RangeCheckVarintWidth for the
// 32-bit varint proto_types: a record may declare a field int32/sint32 while
// holding it in a wider Go type, and by default any value it holds is
// emitted as-is. The flag opts into rejecting values that only fit in 64
// bits.
func checkVarintWidth32(n int64) error {
	if wire.GetConfig().RangeCheckVarintWidth && (n > math.MaxInt32 || n < math.MinInt32) {
		return fmt.Errorf("invalid field type: value %d does not fit in int32", n)
	}
	return nil
}

// scalarGoKind reports the reflect.Kind a scalar FieldDescriptor's value
// should be produced as / read from, unwrapping the Optional pointer
// wrapper first. Used only for the Fixed32/Fixed64 signed-vs-unsigned
// choice, which is resolved by what the record actually declares rather
// than by a global switch (see wire.Config.UnsignedFixed for the
// schema-less raw-parse equivalent).
func scalarGoKind(fd *schema.FieldDescriptor) reflect.Kind {
	t := fd.GoType
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind()
}

// decodeScalar decodes one value of fd.ProtoType from the front of buf,
// returning the decoded Go value (unwrapped — never pointer-boxed; that
// happens only when assigning into a struct's Optional field) and the
// number of bytes consumed.
func decodeScalar(fd *schema.FieldDescriptor, buf []byte) (value interface{}, n int, err error) {
	switch fd.ProtoType {
	case schema.Int32:
		v, n, err := wire.ConsumeVarint(buf)
		return int32(v), n, fixEOF(err)
	case schema.Int64:
		v, n, err := wire.ConsumeVarint(buf)
		return int64(v), n, fixEOF(err)
	case schema.UInt32:
		v, n, err := wire.ConsumeVarint(buf)
		return uint32(v), n, fixEOF(err)
	case schema.UInt64:
		v, n, err := wire.ConsumeVarint(buf)
		return v, n, fixEOF(err)
	case schema.SInt32:
		v, n, err := wire.ConsumeVarint(buf)
		return wire.DecodeZigZag32(v), n, fixEOF(err)
	case schema.SInt64:
		v, n, err := wire.ConsumeVarint(buf)
		return wire.DecodeZigZag64(v), n, fixEOF(err)
	case schema.Bool:
		v, n, err := wire.ConsumeVarint(buf)
		return v != 0, n, fixEOF(err)
	case schema.Enum:
		v, n, err := wire.ConsumeVarint(buf)
		if err != nil {
			return nil, 0, fixEOF(err)
		}
		ev, err := decodeEnum(fd, int32(v))
		return ev, n, err
	case schema.Fixed32:
		v, n, err := wire.ConsumeFixed32(buf)
		if err != nil {
			return nil, 0, err
		}
		if scalarGoKind(fd) == reflect.Uint32 {
			return v, n, nil
		}
		return int32(v), n, nil
	case schema.SFixed32:
		v, n, err := wire.ConsumeFixed32(buf)
		return int32(v), n, err
	case schema.Float:
		v, n, err := wire.ConsumeFixed32(buf)
		return wire.DecodeFloat32(v), n, err
	case schema.Fixed64:
		v, n, err := wire.ConsumeFixed64(buf)
		if err != nil {
			return nil, 0, err
		}
		if scalarGoKind(fd) == reflect.Uint64 {
			return v, n, nil
		}
		return int64(v), n, nil
	case schema.SFixed64:
		v, n, err := wire.ConsumeFixed64(buf)
		return int64(v), n, err
	case schema.Double:
		v, n, err := wire.ConsumeFixed64(buf)
		return wire.DecodeFloat64(v), n, err
	case schema.String:
		v, n, err := wire.ConsumeString(buf)
		return v, n, fixEOF(err)
	case schema.Bytes:
		v, n, err := wire.ConsumeBytes(buf)
		return v, n, fixEOF(err)
	default:
		return nil, 0, fmt.Errorf("codec: unsupported scalar proto_type %s", fd.ProtoType)
	}
}

func fixEOF(err error) error {
	if err == wire.ErrEOF {
		return wire.ErrTruncated
	}
	return err
}

func decodeEnum(fd *schema.FieldDescriptor, number int32) (interface{}, error) {
	t := fd.EnumType
	d, ok := schema.EnumDescriptorOf(t)
	if !ok {
		return reflect.ValueOf(number).Convert(t).Interface(), nil
	}
	ev, ok := schema.ResolveEnum(t, d, number)
	if !ok {
		return nil, fmt.Errorf("unknown enum value %d for %s", number, t.Name())
	}
	return reflect.ValueOf(ev.Number).Convert(t).Interface(), nil
}

// encodeScalar appends the wire encoding of v (fd.ProtoType, as produced
// by decodeScalar's inverse) to buf.
func encodeScalar(fd *schema.FieldDescriptor, v interface{}, buf []byte) ([]byte, error) {
	switch fd.ProtoType {
	case schema.Int32:
		n := reflect.ValueOf(v).Int()
		if err := checkVarintWidth32(n); err != nil {
			return nil, err
		}
		return wire.AppendVarint(buf, uint64(n)), nil
	case schema.Int64:
		return wire.AppendVarint(buf, uint64(reflect.ValueOf(v).Int())), nil
	case schema.UInt32:
		u := reflect.ValueOf(v).Uint()
		if wire.GetConfig().RangeCheckVarintWidth && u > math.MaxUint32 {
			return nil, fmt.Errorf("invalid field type: value %d does not fit in uint32", u)
		}
		return wire.AppendVarint(buf, u), nil
	case schema.UInt64:
		return wire.AppendVarint(buf, reflect.ValueOf(v).Uint()), nil
	case schema.SInt32:
		n := reflect.ValueOf(v).Int()
		if err := checkVarintWidth32(n); err != nil {
			return nil, err
		}
		return wire.AppendVarint(buf, wire.EncodeZigZag64(n)), nil
	case schema.SInt64:
		return wire.AppendVarint(buf, wire.EncodeZigZag64(reflect.ValueOf(v).Int())), nil
	case schema.Bool:
		b := v.(bool)
		if b {
			return wire.AppendVarint(buf, 1), nil
		}
		return wire.AppendVarint(buf, 0), nil
	case schema.Enum:
		rv := reflect.ValueOf(v)
		return wire.AppendVarint(buf, uint64(rv.Int())), nil
	case schema.Fixed32:
		var u uint32
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Uint32 {
			u = uint32(rv.Uint())
		} else {
			if rv.Int() < 0 {
				return nil, fmt.Errorf("invalid field type: negative value %d not allowed for fixed32", rv.Int())
			}
			u = uint32(rv.Int())
		}
		return wire.AppendFixed32(buf, u), nil
	case schema.SFixed32:
		return wire.AppendFixed32(buf, uint32(v.(int32))), nil
	case schema.Float:
		return wire.AppendFixed32(buf, wire.EncodeFloat32(v.(float32))), nil
	case schema.Fixed64:
		rv := reflect.ValueOf(v)
		var u uint64
		if rv.Kind() == reflect.Uint64 {
			u = rv.Uint()
		} else {
			if rv.Int() < 0 {
				return nil, fmt.Errorf("invalid field type: negative value %d not allowed for fixed64", rv.Int())
			}
			u = uint64(rv.Int())
		}
		return wire.AppendFixed64(buf, u), nil
	case schema.SFixed64:
		return wire.AppendFixed64(buf, uint64(v.(int64))), nil
	case schema.Double:
		return wire.AppendFixed64(buf, wire.EncodeFloat64(v.(float64))), nil
	case schema.String:
		return wire.AppendString(buf, v.(string)), nil
	case schema.Bytes:
		return wire.AppendBytes(buf, v.([]byte)), nil
	default:
		return nil, fmt.Errorf("codec: unsupported scalar proto_type %s", fd.ProtoType)
	}
}

// isZero reports whether v equals its Go zero value, the implicit
// default an Optional field is skipped against.
func isZero(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.IsZero()
}

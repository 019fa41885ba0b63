package codec

import (
	"io"

	"github.com/protolite-go/protolite/wire"
)

// RawField is one decoded-without-a-schema field occurrence: its wire
// type and the schema.RawValue ReadRecord produced for it.
type RawField struct {
	WireType wire.WireType
	Value    interface{}
}

// ParseRaw decodes buf without a schema, returning every field's raw
// values keyed by field number in wire-arrival order.
//
// An I32/I64 field's RawValue carries the undecoded bit pattern in
// Fixed32/Fixed64: with no declared Go field type to disambiguate
// Fixed32/SFixed32/Float (or Fixed64/SFixed64/Double), a caller that wants
// a signed or unsigned integer interpretation calls
// RawValue.AsFixed32/AsFixed64, which branch on wire.Config.UnsignedFixed.
func ParseRaw(buf []byte) (map[uint32][]RawField, error) {
	r := NewReader(buf)
	out := map[uint32][]RawField{}
	for {
		pid, value, wt, err := r.ReadRecord(nil)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out[pid] = append(out[pid], RawField{WireType: wt, Value: value})
	}
}

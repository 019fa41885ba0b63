// Package wire implements the shared low-level primitives of the protobuf
// wire format: tags, varints, zigzag signed integers, fixed-width values
// and length-delimited framing. It has no notion of schemas or records;
// those live in package schema and package codec.
package wire

import "fmt"

// WireType is one of the six on-wire value encodings defined by the
// protobuf wire format.
type WireType uint8

const (
	Varint WireType = 0
	I64    WireType = 1
	LEN    WireType = 2
	SGROUP WireType = 3
	EGROUP WireType = 4
	I32    WireType = 5
)

func (w WireType) String() string {
	switch w {
	case Varint:
		return "varint"
	case I64:
		return "i64"
	case LEN:
		return "len"
	case SGROUP:
		return "sgroup"
	case EGROUP:
		return "egroup"
	case I32:
		return "i32"
	default:
		return fmt.Sprintf("wiretype(%d)", uint8(w))
	}
}

// Valid reports whether w is one of the six bit patterns defined by the
// wire format. Patterns 6 and 7 are never assigned.
func (w WireType) Valid() bool {
	return w <= I32
}

// Tag is a field number and wire type packed together exactly as they
// appear on the wire: (field_number << 3) | wire_type.
type Tag uint64

// MakeTag packs a field number and wire type into a tag.
func MakeTag(fieldNumber uint32, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType&0x7))
}

// ParseTag unpacks a tag into its field number and wire type.
func ParseTag(tag Tag) (fieldNumber uint32, wireType WireType) {
	return uint32(tag >> 3), WireType(tag & 0x7)
}

// Package schema compiles Go struct types carrying `protolite` tags into
// MessageSchema descriptor tables, the host-language realization of a
// declared record type. It has no notion of wire bytes; that lives in
// package codec.
package schema

import (
	"reflect"

	"github.com/protolite-go/protolite/wire"
)

// ProtoType is the logical type of a field, independent of its ProtoMode.
// The mapping to wire.WireType is total and fixed.
type ProtoType string

const (
	Int32    ProtoType = "int32"
	Int64    ProtoType = "int64"
	UInt32   ProtoType = "uint32"
	UInt64   ProtoType = "uint64"
	SInt32   ProtoType = "sint32"
	SInt64   ProtoType = "sint64"
	Enum     ProtoType = "enum"
	Bool     ProtoType = "bool"
	Fixed32  ProtoType = "fixed32"
	SFixed32 ProtoType = "sfixed32"
	Float    ProtoType = "float"
	Fixed64  ProtoType = "fixed64"
	SFixed64 ProtoType = "sfixed64"
	Double   ProtoType = "double"
	String   ProtoType = "string"
	Bytes    ProtoType = "bytes"
	Embed    ProtoType = "embed"
)

var knownProtoTypes = map[ProtoType]bool{
	Int32: true, Int64: true, UInt32: true, UInt64: true,
	SInt32: true, SInt64: true, Enum: true, Bool: true,
	Fixed32: true, SFixed32: true, Float: true,
	Fixed64: true, SFixed64: true, Double: true,
	String: true, Bytes: true, Embed: true,
}

// Valid reports whether t is one of the 17 declared ProtoType tokens. A
// `protolite` tag's proto_type segment must pass this check at schema-build
// time: an unrecognized token must never reach WireType, which panics
// rather than erroring (there is no valid wire encoding to fall back to).
func (t ProtoType) Valid() bool { return knownProtoTypes[t] }

// WireType returns the on-wire encoding for t.
func (t ProtoType) WireType() wire.WireType {
	switch t {
	case Int32, Int64, UInt32, UInt64, SInt32, SInt64, Enum, Bool:
		return wire.Varint
	case Fixed32, SFixed32, Float:
		return wire.I32
	case Fixed64, SFixed64, Double:
		return wire.I64
	case String, Bytes, Embed:
		return wire.LEN
	default:
		panic("schema: unknown ProtoType " + string(t))
	}
}

// Packable reports whether t may appear in a Packed field. String, Bytes
// and Embed never pack: each instance already carries its own length.
func (t ProtoType) Packable() bool {
	switch t {
	case String, Bytes, Embed:
		return false
	default:
		return true
	}
}

// ProtoMode describes how many values a field carries and whether it has a
// default that permits it to be elided from the wire.
type ProtoMode uint8

const (
	// Single fields have no default: every instance must carry a value and
	// it is always emitted.
	Single ProtoMode = iota
	// Optional fields carry a default (or the null sentinel) and are
	// omitted from the wire when the record's value equals it.
	Optional
	// Packed fields are repeated scalars, preferentially encoded as one
	// length-delimited run (see codec.packThreshold for the exact rule).
	Packed
	// Repeated fields are repeated values whose ProtoType cannot pack
	// (String, Bytes, Embed), always encoded one tag+value pair per
	// element.
	Repeated
)

// Multiple reports whether m is Packed or Repeated.
func (m ProtoMode) Multiple() bool {
	return m == Packed || m == Repeated
}

func (m ProtoMode) String() string {
	switch m {
	case Single:
		return "single"
	case Optional:
		return "optional"
	case Packed:
		return "packed"
	case Repeated:
		return "repeated"
	default:
		return "mode(?)"
	}
}

// EnumDescriptor is implemented by host enum types so the codec can resolve
// a wire number to a name and know whether unrecognized numbers are an
// error (strict) or should be interned under the "?" name (open).
type EnumDescriptor interface {
	EnumName(number int32) (string, bool)
	EnumStrict() bool
}

// EnumValue is what ResolveEnum returns for an enum wire number: the
// number plus its resolved name ("?" for an open enum's unrecognized
// number). The decoded record field itself holds the host enum type.
type EnumValue struct {
	Number int32
	Name   string
}

// FieldDescriptor is the compiled, immutable description of one record
// field: its wire identity (PID), its Go identity (struct field index and
// name) and its proto identity (ProtoType, ProtoMode).
type FieldDescriptor struct {
	PID       uint32
	Name      string
	ProtoType ProtoType
	Mode      ProtoMode

	// GoIndex is this field's index in the owning struct, for reflect.Value.Field.
	GoIndex int
	// GoType is the field's declared Go type, before unwrapping pointer/
	// slice/map wrappers.
	GoType reflect.Type

	// Elem describes one element of a Packed/Repeated list field (its PID
	// and Name are not meaningful; its ProtoType/GoType/EmbedSchema/EnumType
	// matter).
	Elem *FieldDescriptor

	// KeyDesc and ValDesc are populated for a synthesized MapEntry field:
	// the compiled descriptors for pid 1 (key) and pid 2 (value).
	KeyDesc *FieldDescriptor
	ValDesc *FieldDescriptor
	// IsMapEntry marks a Repeated Embed field whose element schema is a
	// synthetic MapEntry, so the codec collapses it to/from a Go map.
	IsMapEntry bool

	// EmbedSchema is populated when ProtoType is Embed: the compiled
	// schema of the message type this field (or its Elem) embeds.
	EmbedSchema *MessageSchema

	// EnumType is populated when ProtoType is Enum: the host enum's
	// reflect.Type, used to look up its EnumDescriptor.
	EnumType reflect.Type
}

// MessageSchema is the compiled descriptor table for one record type: two
// lookup tables over the same FieldDescriptors, plus their declaration
// order for deterministic encoding.
type MessageSchema struct {
	GoType     reflect.Type
	ByPID      map[uint32]*FieldDescriptor
	ByName     map[string]*FieldDescriptor
	Fields     []*FieldDescriptor
	IsMapEntry bool
}

// RawValue is one undecoded field value as read off the wire, retained
// verbatim for fields with no matching descriptor (unknown fields) or for
// schema-less parsing.
type RawValue struct {
	WireType wire.WireType
	Varint   uint64
	Fixed32  uint32
	Fixed64  uint64
	Bytes    []byte // owns its storage; LEN payloads only

	// RawBytes is the exact tag+value bytes this occurrence was read from,
	// populated only when wire.Config.PreserveUnknownBytes is set. It lets
	// a decode-then-encode round trip reproduce an unknown field exactly
	// rather than just its decoded value.
	RawBytes []byte
}

// UnknownFields collects, per PID, every raw value seen for fields absent
// from the active schema, in wire-arrival order.
type UnknownFields map[uint32][]RawValue

// AsFixed32 interprets v's I32 payload as a Fixed32/SFixed32 value per
// wire.Config.UnsignedFixed: the schema-less caller has no declared Go
// field type to disambiguate signedness with, so it opts into one
// interpretation or the other through that flag instead.
func (v RawValue) AsFixed32() interface{} {
	if wire.GetConfig().UnsignedFixed {
		return v.Fixed32
	}
	return int32(v.Fixed32)
}

// AsFixed64 is AsFixed32's I64 counterpart.
func (v RawValue) AsFixed64() interface{} {
	if wire.GetConfig().UnsignedFixed {
		return v.Fixed64
	}
	return int64(v.Fixed64)
}

package schema

import (
	"reflect"
	"sync"
)

type enumKey struct {
	t      reflect.Type
	number int32
}

// openEnumTable interns decoded values for open enums so that
// decode(x) == decode(x) holds by value across repeated decodes of the
// same unrecognized number, race-free across concurrent readers.
var openEnumTable sync.Map // enumKey -> EnumValue

// ResolveEnum looks up the name for number against t's EnumDescriptor. If
// number is unrecognized and the enum is open, the result is interned
// under the "?" name; if strict, ok is false and the caller should raise a
// decode error.
func ResolveEnum(t reflect.Type, descriptor EnumDescriptor, number int32) (EnumValue, bool) {
	if name, known := descriptor.EnumName(number); known {
		return EnumValue{Number: number, Name: name}, true
	}
	if descriptor.EnumStrict() {
		return EnumValue{}, false
	}
	key := enumKey{t: t, number: number}
	if v, ok := openEnumTable.Load(key); ok {
		return v.(EnumValue), true
	}
	v := EnumValue{Number: number, Name: "?"}
	actual, _ := openEnumTable.LoadOrStore(key, v)
	return actual.(EnumValue), true
}

// EnumDescriptorOf returns the EnumDescriptor for a compiled enum field's
// Go type, by instantiating its zero value.
func EnumDescriptorOf(t reflect.Type) (EnumDescriptor, bool) {
	zero := reflect.Zero(t).Interface()
	d, ok := zero.(EnumDescriptor)
	return d, ok
}

package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// TagName is the struct tag key a declared record field carries its field
// number, ProtoType and modifiers under: `protolite:"<pid>,<proto_type>[,<modifier>...]"`.
const TagName = "protolite"

var (
	registryMu sync.Mutex
	registry   = map[reflect.Type]*MessageSchema{}
)

// Compile returns the MessageSchema for t, a struct type (or pointer to
// one). Schemas are built once per type and cached for the process
// lifetime; cyclic type references (a message embedding itself, directly
// or transitively) are handled by registering a placeholder before
// resolving fields, so a recursive Compile call during field resolution
// observes the same *MessageSchema it is currently populating.
func Compile(t reflect.Type) (*MessageSchema, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct type", t)
	}

	registryMu.Lock()
	if s, ok := registry[t]; ok {
		registryMu.Unlock()
		return s, nil
	}
	s := &MessageSchema{
		GoType: t,
		ByPID:  map[uint32]*FieldDescriptor{},
		ByName: map[string]*FieldDescriptor{},
	}
	registry[t] = s
	registryMu.Unlock()

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue // unexported
		}
		if sf.Name == "Unknown" && sf.Type == reflect.TypeOf(UnknownFields{}) {
			continue // auxiliary slot for fields the schema doesn't cover
		}
		tag, ok := sf.Tag.Lookup(TagName)
		if !ok {
			return nil, fmt.Errorf("%s.%s: not annotated as protobuf field", t.Name(), sf.Name)
		}
		fd, err := compileField(sf, i, tag)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
		}
		if _, dup := s.ByPID[fd.PID]; dup {
			return nil, fmt.Errorf("duplicate id: %d", fd.PID)
		}
		s.ByPID[fd.PID] = fd
		s.ByName[fd.Name] = fd
		s.Fields = append(s.Fields, fd)
	}
	return s, nil
}

// parsedTag is the result of splitting a protolite tag into its pid,
// proto_type token and modifier map.
type parsedTag struct {
	pid       uint32
	protoType string
	mods      map[string]string
	flags     map[string]bool
}

func parseTag(tag string) (parsedTag, error) {
	parts := strings.Split(tag, ",")
	if len(parts) < 2 {
		return parsedTag{}, fmt.Errorf("invalid field type: malformed tag %q", tag)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return parsedTag{}, fmt.Errorf("invalid field type: bad pid %q", parts[0])
	}
	if pid < 0 {
		return parsedTag{}, fmt.Errorf("negative id not allowed: %d", pid)
	}
	pt := parsedTag{
		pid:       uint32(pid),
		protoType: strings.ToLower(strings.TrimSpace(parts[1])),
		mods:      map[string]string{},
		flags:     map[string]bool{},
	}
	for _, m := range parts[2:] {
		m = strings.TrimSpace(m)
		if kv := strings.SplitN(m, "=", 2); len(kv) == 2 {
			pt.mods[kv[0]] = kv[1]
		} else if m != "" {
			pt.flags[m] = true
		}
	}
	return pt, nil
}

// compileField derives a FieldDescriptor from one struct field's Go type
// and protolite tag, per the resolution algorithm: list<T> and dict<K,V>
// recurse on the collection's element type(s); Optional<T> is a Go
// pointer; everything else is a primitive, enum or embedded message
// resolved directly off the tag's proto_type token.
func compileField(sf reflect.StructField, index int, tag string) (*FieldDescriptor, error) {
	pt, err := parseTag(tag)
	if err != nil {
		return nil, err
	}
	name := sf.Name
	if n, ok := pt.mods["name"]; ok {
		name = n
	}

	ft := sf.Type

	// []byte is the Bytes primitive, never a list.
	if ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Uint8 {
		return &FieldDescriptor{
			PID: pt.pid, Name: name, GoIndex: index, GoType: ft,
			ProtoType: Bytes, Mode: Optional,
		}, nil
	}

	switch ft.Kind() {
	case reflect.Map:
		return compileMapField(pt, name, index, ft)
	case reflect.Slice:
		return compileListField(pt, name, index, ft)
	case reflect.Ptr:
		return compilePtrField(pt, name, index, ft)
	default:
		protoType, err := validatedProtoType(pt.protoType)
		if err != nil {
			return nil, err
		}
		fd := &FieldDescriptor{
			PID: pt.pid, Name: name, GoIndex: index, GoType: ft,
			ProtoType: protoType, Mode: Single,
		}
		if fd.ProtoType == Enum {
			fd.EnumType = ft
		}
		if fd.ProtoType == Embed {
			return nil, fmt.Errorf("invalid field type: embed fields must be pointers (*%s)", ft)
		}
		return fd, nil
	}
}

// validatedProtoType resolves a tag's proto_type token to a ProtoType,
// rejecting anything outside the 17 declared tokens at schema-build time:
// letting an unrecognized token through would otherwise surface as a panic
// the first time ProtoType.WireType() sees it, on the first encode or
// decode rather than at Compile.
func validatedProtoType(token string) (ProtoType, error) {
	pt := ProtoType(token)
	if !pt.Valid() {
		return "", fmt.Errorf("invalid field type: %q", token)
	}
	return pt, nil
}

func compilePtrField(pt parsedTag, name string, index int, ft reflect.Type) (*FieldDescriptor, error) {
	elem := ft.Elem()
	if elem.Kind() == reflect.Slice || elem.Kind() == reflect.Map {
		// A collection is already elidable when empty; pointer-wrapping it
		// buys nothing and the codec never produces one.
		return nil, fmt.Errorf("remove the optional annotation: %s", ft)
	}
	fd := &FieldDescriptor{PID: pt.pid, Name: name, GoIndex: index, GoType: ft, Mode: Optional}
	if elem.Kind() == reflect.Struct {
		sub, err := Compile(elem)
		if err != nil {
			return nil, err
		}
		fd.ProtoType = Embed
		fd.EmbedSchema = sub
		return fd, nil
	}
	protoType, err := validatedProtoType(pt.protoType)
	if err != nil {
		return nil, err
	}
	fd.ProtoType = protoType
	if fd.ProtoType == Enum {
		fd.EnumType = elem
	}
	return fd, nil
}

func compileListField(pt parsedTag, name string, index int, ft reflect.Type) (*FieldDescriptor, error) {
	elemGoType := ft.Elem()
	elemProtoType, err := validatedProtoType(pt.protoType)
	if err != nil {
		return nil, err
	}

	elemDesc := &FieldDescriptor{Name: name, ProtoType: elemProtoType, Mode: Single, GoType: elemGoType}
	if elemProtoType == Embed {
		target := elemGoType
		if target.Kind() == reflect.Ptr {
			target = target.Elem()
		}
		sub, err := Compile(target)
		if err != nil {
			return nil, err
		}
		elemDesc.EmbedSchema = sub
	}
	if elemProtoType == Enum {
		elemDesc.EnumType = elemGoType
	}

	mode := Repeated
	if elemProtoType.Packable() {
		mode = Packed
	} else if pt.flags["packed"] {
		return nil, fmt.Errorf("proto_type %s is not packable", elemProtoType)
	}

	return &FieldDescriptor{
		PID: pt.pid, Name: name, GoIndex: index, GoType: ft,
		ProtoType: elemProtoType, Mode: mode, Elem: elemDesc,
	}, nil
}

// compileMapField synthesizes the MapEntry submessage a map field rides
// the wire as: a two-field message with key (pid 1, Optional) and value
// (pid 2, Optional), compiled like any other embedded message and
// collapsed back into a Go map by the codec.
func compileMapField(pt parsedTag, name string, index int, ft reflect.Type) (*FieldDescriptor, error) {
	keyToken, ok := pt.mods["key"]
	if !ok {
		return nil, fmt.Errorf("missing specialization: map field requires key=<proto_type>")
	}
	valToken, ok := pt.mods["value"]
	if !ok {
		return nil, fmt.Errorf("missing specialization: map field requires value=<proto_type>")
	}

	keyGoType := ft.Key()
	valGoType := ft.Elem()

	keyProtoType, err := validatedProtoType(keyToken)
	if err != nil {
		return nil, err
	}
	valProtoType, err := validatedProtoType(valToken)
	if err != nil {
		return nil, err
	}

	keyDesc := &FieldDescriptor{PID: 1, Name: "key", ProtoType: keyProtoType, Mode: Optional, GoType: keyGoType}
	valDesc := &FieldDescriptor{PID: 2, Name: "value", ProtoType: valProtoType, Mode: Optional, GoType: valGoType}
	if valDesc.ProtoType == Embed {
		sub, err := Compile(valGoType)
		if err != nil {
			return nil, err
		}
		valDesc.EmbedSchema = sub
	}
	if valDesc.ProtoType == Enum {
		valDesc.EnumType = valGoType
	}

	entrySchema := &MessageSchema{
		GoType:     ft,
		ByPID:      map[uint32]*FieldDescriptor{1: keyDesc, 2: valDesc},
		ByName:     map[string]*FieldDescriptor{"key": keyDesc, "value": valDesc},
		Fields:     []*FieldDescriptor{keyDesc, valDesc},
		IsMapEntry: true,
	}

	return &FieldDescriptor{
		PID: pt.pid, Name: name, GoIndex: index, GoType: ft,
		ProtoType: Embed, Mode: Repeated, IsMapEntry: true,
		KeyDesc: keyDesc, ValDesc: valDesc, EmbedSchema: entrySchema,
	}, nil
}

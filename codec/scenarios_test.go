package codec

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/protolite-go/protolite/schema"
)

// Byte-exact fixtures for the wire format's canonical examples: each
// record pins one encoding rule to the exact bytes it must produce.

type scenarioMsg1 struct {
	A int32 `protolite:"1,int32"`
}

type scenarioMsg2 struct {
	B string `protolite:"2,string"`
}

type scenarioMsg3 struct {
	C *scenarioMsg1 `protolite:"3,embed"`
}

type scenarioMsg5 struct {
	F []int32 `protolite:"6,int32"`
}

type scenarioMsg6 struct {
	G map[string]int32 `protolite:"7,map,key=string,value=int32"`
}

type scenarioMsg8 struct {
	I float32 `protolite:"9,float"`
}

func compileOrFatal(t *testing.T, v interface{}) *schema.MessageSchema {
	t.Helper()
	s, err := schema.Compile(reflect.TypeOf(v))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return s
}

func TestScenario1_Varint(t *testing.T) {
	s := compileOrFatal(t, scenarioMsg1{})
	got, err := Write(nil, reflect.ValueOf(scenarioMsg1{A: 150}), s)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x08, 0x96, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("Write = % x, want % x", got, want)
	}

	var out scenarioMsg1
	if err := NewReader(want).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}
	if out.A != 150 {
		t.Errorf("decoded A = %d, want 150", out.A)
	}
}

func TestScenario2_String(t *testing.T) {
	s := compileOrFatal(t, scenarioMsg2{})
	got, err := Write(nil, reflect.ValueOf(scenarioMsg2{B: "testing"}), s)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x12, 0x07, 0x74, 0x65, 0x73, 0x74, 0x69, 0x6e, 0x67}
	if !bytes.Equal(got, want) {
		t.Errorf("Write = % x, want % x", got, want)
	}
}

func TestScenario3_Embed(t *testing.T) {
	s := compileOrFatal(t, scenarioMsg3{})
	got, err := Write(nil, reflect.ValueOf(scenarioMsg3{C: &scenarioMsg1{A: 150}}), s)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x1a, 0x03, 0x08, 0x96, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("Write = % x, want % x", got, want)
	}

	var out scenarioMsg3
	if err := NewReader(want).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}
	if out.C == nil || out.C.A != 150 {
		t.Errorf("decoded C = %+v, want &{A:150}", out.C)
	}
}

func TestScenario4_PackedOverThreshold(t *testing.T) {
	s := compileOrFatal(t, scenarioMsg5{})
	got, err := Write(nil, reflect.ValueOf(scenarioMsg5{F: []int32{3, 270, 86942}}), s)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x32, 0x06, 0x03, 0x8e, 0x02, 0x9e, 0xa7, 0x05}
	if !bytes.Equal(got, want) {
		t.Errorf("Write = % x, want % x", got, want)
	}

	var out scenarioMsg5
	if err := NewReader(want).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.F, []int32{3, 270, 86942}) {
		t.Errorf("decoded F = %v", out.F)
	}
}

func TestScenario5_PackedAtOrBelowThresholdFallsBackToRepeated(t *testing.T) {
	s := compileOrFatal(t, scenarioMsg5{})
	got, err := Write(nil, reflect.ValueOf(scenarioMsg5{F: []int32{3, 270}}), s)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x30, 0x03, 0x30, 0x8e, 0x02}
	if !bytes.Equal(got, want) {
		t.Errorf("Write = % x, want % x", got, want)
	}

	var out scenarioMsg5
	if err := NewReader(want).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.F, []int32{3, 270}) {
		t.Errorf("decoded F = %v", out.F)
	}
}

func TestScenario6_Map(t *testing.T) {
	s := compileOrFatal(t, scenarioMsg6{})
	got, err := Write(nil, reflect.ValueOf(scenarioMsg6{G: map[string]int32{"a": 1, "b": 2, "c": 3}}), s)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x3a, 0x05, 0x0a, 0x01, 0x61, 0x10, 0x01,
		0x3a, 0x05, 0x0a, 0x01, 0x62, 0x10, 0x02,
		0x3a, 0x05, 0x0a, 0x01, 0x63, 0x10, 0x03,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Write = % x, want % x", got, want)
	}

	var out scenarioMsg6
	if err := NewReader(want).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}
	if out.G["a"] != 1 || out.G["b"] != 2 || out.G["c"] != 3 || len(out.G) != 3 {
		t.Errorf("decoded G = %v", out.G)
	}
}

func TestScenario7_Float(t *testing.T) {
	s := compileOrFatal(t, scenarioMsg8{})
	got, err := Write(nil, reflect.ValueOf(scenarioMsg8{I: 1.0}), s)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x4d, 0x00, 0x00, 0x80, 0x3f}
	if !bytes.Equal(got, want) {
		t.Errorf("Write = % x, want % x", got, want)
	}
}

func TestScenario8_TruncatedVarintEOF(t *testing.T) {
	s := compileOrFatal(t, scenarioMsg1{})
	var out scenarioMsg1
	err := NewReader([]byte{0x00, 0xff}).Read(&out, s, -1)
	if err == nil {
		t.Fatal("expected an error decoding 00 ff (truncated varint)")
	}
}

func TestScenario9_TruncatedEmbed(t *testing.T) {
	s := compileOrFatal(t, scenarioMsg6{})
	var out scenarioMsg6
	// field 7 tag (0x3a), length 5, but only one byte of body follows.
	err := NewReader([]byte{0x3a, 0x05, 0x0a}).Read(&out, s, -1)
	if err == nil {
		t.Fatal("expected an error decoding a truncated embedded message")
	}
}

func TestScenario10_UnknownFieldsPreserved(t *testing.T) {
	type withUnknown struct {
		A       int32 `protolite:"1,int32"`
		Unknown schema.UnknownFields
	}
	s := compileOrFatal(t, withUnknown{})
	buf := []byte{0x00, 0x00, 0x08, 0x96, 0x01, 0x00, 0x00}
	var out withUnknown
	if err := NewReader(buf).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}
	if out.A != 150 {
		t.Errorf("A = %d, want 150", out.A)
	}
	if len(out.Unknown[0]) != 2 {
		t.Errorf("Unknown[0] = %v, want 2 entries", out.Unknown[0])
	}
}

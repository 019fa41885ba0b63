package codec

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/protolite-go/protolite/schema"
	"github.com/protolite-go/protolite/wire"
)

type itemMsg struct {
	Name string `protolite:"1,string"`
}

type listOfEmbedMsg struct {
	Items []*itemMsg `protolite:"1,embed"`
}

func TestRepeatedEmbedMessages(t *testing.T) {
	s := compileOrFatal(t, listOfEmbedMsg{})
	in := listOfEmbedMsg{Items: []*itemMsg{{Name: "a"}, {Name: "b"}}}
	buf, err := Write(nil, reflect.ValueOf(in), s)
	if err != nil {
		t.Fatal(err)
	}
	var out listOfEmbedMsg
	if err := NewReader(buf).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}
	if len(out.Items) != 2 || out.Items[0].Name != "a" || out.Items[1].Name != "b" {
		t.Errorf("decoded Items = %+v", out.Items)
	}
}

type mapOfEmbedMsg struct {
	ById map[int32]*itemMsg `protolite:"1,map,key=int32,value=embed"`
}

func TestMapWithEmbeddedValue(t *testing.T) {
	s := compileOrFatal(t, mapOfEmbedMsg{})
	in := mapOfEmbedMsg{ById: map[int32]*itemMsg{1: {Name: "one"}, 2: {Name: "two"}}}
	buf, err := Write(nil, reflect.ValueOf(in), s)
	if err != nil {
		t.Fatal(err)
	}
	var out mapOfEmbedMsg
	if err := NewReader(buf).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}
	if len(out.ById) != 2 || out.ById[1].Name != "one" || out.ById[2].Name != "two" {
		t.Errorf("decoded ById = %+v", out.ById)
	}
}

func TestParseRawSchemaLess(t *testing.T) {
	s := compileOrFatal(t, scenarioMsg1{})
	buf, err := Write(nil, reflect.ValueOf(scenarioMsg1{A: 150}), s)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := ParseRaw(buf)
	if err != nil {
		t.Fatal(err)
	}
	fields, ok := raw[1]
	if !ok || len(fields) != 1 {
		t.Fatalf("raw[1] = %v, want one entry", raw[1])
	}
	rv, ok := fields[0].Value.(schema.RawValue)
	if !ok || rv.Varint != 150 {
		t.Errorf("raw[1][0] = %+v, want RawValue{Varint: 150}", fields[0].Value)
	}
}

func TestEmptyBytesDecodeToDefaults(t *testing.T) {
	s := compileOrFatal(t, allScalarsMsg{})
	var out allScalarsMsg
	if err := NewReader(nil).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out, allScalarsMsg{}) {
		t.Errorf("empty bytes should decode to all zero values, got %+v", out)
	}
}

func TestSemanticRoundTripPackedToRepeatedIsTransparent(t *testing.T) {
	// A packed-encoded field and a repeated-encoded field for the same Packed
	// descriptor must decode to the same value: the round trip is semantic,
	// not byte-for-byte.
	s := compileOrFatal(t, scenarioMsg5{})
	packed, err := Write(nil, reflect.ValueOf(scenarioMsg5{F: []int32{3, 270, 86942}}), s)
	if err != nil {
		t.Fatal(err)
	}
	var out1 scenarioMsg5
	if err := NewReader(packed).Read(&out1, s, -1); err != nil {
		t.Fatal(err)
	}

	reencoded, err := Write(nil, reflect.ValueOf(out1), s)
	if err != nil {
		t.Fatal(err)
	}
	var out2 scenarioMsg5
	if err := NewReader(reencoded).Read(&out2, s, -1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out1.F, out2.F) {
		t.Errorf("semantic round trip mismatch: %v != %v", out1.F, out2.F)
	}

	// The same values written as one tag+value pair per element (repeated
	// encoding) must decode to the same slice as the packed form.
	repeated := []byte{0x30, 0x03, 0x30, 0x8e, 0x02, 0x30, 0x9e, 0xa7, 0x05}
	var out3 scenarioMsg5
	if err := NewReader(repeated).Read(&out3, s, -1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out1.F, out3.F) {
		t.Errorf("packed and repeated encodings decode differently: %v != %v", out1.F, out3.F)
	}
}

func TestUnknownFieldsSurviveDecodeEncodeRoundTrip(t *testing.T) {
	prev := wire.GetConfig()
	wire.SetConfig(wire.Config{PreserveUnknownBytes: true})
	defer wire.SetConfig(prev)

	type narrow struct {
		A       int32 `protolite:"1,int32"`
		Unknown schema.UnknownFields
	}
	type wide struct {
		A int32  `protolite:"1,int32"`
		B string `protolite:"2,string"`
		C int32  `protolite:"3,int32"`
	}
	ns := compileOrFatal(t, narrow{})
	ws := compileOrFatal(t, wide{})

	original, err := Write(nil, reflect.ValueOf(wide{A: 150, B: "testing", C: 7}), ws)
	if err != nil {
		t.Fatal(err)
	}

	var decoded narrow
	if err := NewReader(original).Read(&decoded, ns, -1); err != nil {
		t.Fatal(err)
	}
	if decoded.A != 150 {
		t.Fatalf("A = %d, want 150", decoded.A)
	}
	if len(decoded.Unknown) != 2 {
		t.Fatalf("Unknown = %v, want fields 2 and 3 preserved", decoded.Unknown)
	}

	reencoded, err := Write(nil, reflect.ValueOf(decoded), ns)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(reencoded, original) {
		t.Errorf("decode-then-encode = % x, want exact original % x", reencoded, original)
	}
}

type byValueEmbeds struct {
	Items []itemMsg         `protolite:"1,embed"`
	ById  map[int32]itemMsg `protolite:"2,map,key=int32,value=embed"`
}

func TestEmbeddedMessagesHeldByValue(t *testing.T) {
	s := compileOrFatal(t, byValueEmbeds{})
	in := byValueEmbeds{
		Items: []itemMsg{{Name: "a"}, {Name: "b"}},
		ById:  map[int32]itemMsg{7: {Name: "seven"}},
	}
	buf, err := Write(nil, reflect.ValueOf(in), s)
	if err != nil {
		t.Fatal(err)
	}
	var out byValueEmbeds
	if err := NewReader(buf).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Items, in.Items) {
		t.Errorf("Items = %+v, want %+v", out.Items, in.Items)
	}
	if out.ById[7].Name != "seven" {
		t.Errorf("ById = %+v", out.ById)
	}
}

type wideInt32Msg struct {
	A int64 `protolite:"1,int32"`
}

func TestRangeCheckVarintWidth(t *testing.T) {
	s := compileOrFatal(t, wideInt32Msg{})

	// Default: a value that needs more than 32 bits is still emitted.
	buf, err := Write(nil, reflect.ValueOf(wideInt32Msg{A: 1 << 40}), s)
	if err != nil {
		t.Fatalf("default config should emit oversized int32 values: %v", err)
	}
	var out wideInt32Msg
	if err := NewReader(buf).Read(&out, s, -1); err != nil {
		t.Fatal(err)
	}

	prev := wire.GetConfig()
	wire.SetConfig(wire.Config{RangeCheckVarintWidth: true})
	defer wire.SetConfig(prev)

	if _, err := Write(nil, reflect.ValueOf(wideInt32Msg{A: 1 << 40}), s); err == nil {
		t.Fatal("RangeCheckVarintWidth should reject a value that does not fit in int32")
	}
	if _, err := Write(nil, reflect.ValueOf(wideInt32Msg{A: -5}), s); err != nil {
		t.Fatalf("in-range negative value should still encode: %v", err)
	}
}

package msxtoolkit

import (
	"testing"

	"github.com/wippyai/msx-toolkit/errors"
)

func TestObjectType_Codes(t *testing.T) {
	want := map[ObjectType]int32{
		Node: 0, Link: 1, Tank: 2, Species: 3,
		Term: 4, Parameter: 5, Constant: 6, Pattern: 7,
	}
	for typ, code := range want {
		if int32(typ) != code {
			t.Errorf("%s = %d, want %d", typ, int32(typ), code)
		}
	}
	if int32(Bulk) != 0 || int32(Wall) != 1 {
		t.Errorf("location codes = %d/%d, want 0/1", Bulk, Wall)
	}
	sources := map[SourceType]int32{NoSource: -1, Concen: 0, Mass: 1, Setpoint: 2, FlowPaced: 3}
	for typ, code := range sources {
		if int32(typ) != code {
			t.Errorf("%s = %d, want %d", typ, int32(typ), code)
		}
	}
}

func TestParseObjectType_NameAndCodeAgree(t *testing.T) {
	for code := int32(0); code < 8; code++ {
		byCode, err := ParseObjectType(int(code))
		if err != nil {
			t.Fatalf("code %d: %v", code, err)
		}
		byName, err := ParseObjectType(byCode.String())
		if err != nil {
			t.Fatalf("name %s: %v", byCode, err)
		}
		if byCode != byName {
			t.Errorf("code %d -> %v, name %s -> %v", code, byCode, byCode.String(), byName)
		}
	}
}

func TestParseObjectType_Inputs(t *testing.T) {
	tests := []struct {
		in   any
		want ObjectType
	}{
		{"MSX_SPECIES", Species},
		{"msx_species", Species},
		{"species", Species},
		{"  Pattern ", Pattern},
		{3, Species},
		{int8(6), Constant},
		{int64(7), Pattern},
		{uint16(1), Link},
		{uint64(2), Tank},
		{Term, Term},
	}
	for _, tt := range tests {
		got, err := ParseObjectType(tt.in)
		if err != nil {
			t.Errorf("ParseObjectType(%#v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseObjectType(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseObjectType_Unrecognized(t *testing.T) {
	inputs := []any{"MSX_PIPE", "", "3", -1, 8, 100, uint64(1 << 40), 3.0, nil, Bulk, ObjectType(42)}
	for _, in := range inputs {
		got, err := ParseObjectType(in)
		if err == nil {
			t.Errorf("ParseObjectType(%#v) = %v, want error", in, got)
			continue
		}
		if got != UnrecognizedObject {
			t.Errorf("ParseObjectType(%#v) = %v, want sentinel", in, got)
		}
		if !errors.IsUnrecognizedType(err) {
			t.Errorf("ParseObjectType(%#v) error kind: %v", in, err)
		}
	}
}

func TestParseSourceType(t *testing.T) {
	tests := []struct {
		in   any
		want SourceType
	}{
		{"MSX_NOSOURCE", NoSource},
		{-1, NoSource},
		{"concen", Concen},
		{0, Concen},
		{"MSX_MASS", Mass},
		{2, Setpoint},
		{"FLOWPACED", FlowPaced},
		{3, FlowPaced},
	}
	for _, tt := range tests {
		got, err := ParseSourceType(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseSourceType(%#v) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	for _, bad := range []any{-2, 4, "MSX_DRIP", uint8(200)} {
		if got := NormalizeSourceType(bad); got != UnrecognizedSource {
			t.Errorf("NormalizeSourceType(%#v) = %v, want sentinel", bad, got)
		}
	}
}

func TestParseLocationType(t *testing.T) {
	if v, err := ParseLocationType("wall"); err != nil || v != Wall {
		t.Errorf("wall -> %v, %v", v, err)
	}
	if v, err := ParseLocationType(0); err != nil || v != Bulk {
		t.Errorf("0 -> %v, %v", v, err)
	}
	if _, err := ParseLocationType(2); err == nil {
		t.Error("2 should be unrecognized")
	}
}

func TestSentinelsAreInvalid(t *testing.T) {
	if UnrecognizedObject.Valid() || UnrecognizedLocation.Valid() || UnrecognizedSource.Valid() {
		t.Error("sentinels must fall outside every valid range")
	}
	if got := UnrecognizedObject.String(); got != "object_type(100)" {
		t.Errorf("sentinel String() = %q", got)
	}
}

func TestUnmarshalText(t *testing.T) {
	var o ObjectType
	if err := o.UnmarshalText([]byte("LINK")); err != nil || o != Link {
		t.Errorf("LINK -> %v, %v", o, err)
	}
	if err := o.UnmarshalText([]byte("5")); err != nil || o != Parameter {
		t.Errorf("5 -> %v, %v", o, err)
	}
	var s SourceType
	if err := s.UnmarshalText([]byte("-1")); err != nil || s != NoSource {
		t.Errorf("-1 -> %v, %v", s, err)
	}
	var l LocationType
	if err := l.UnmarshalText([]byte("roof")); err == nil {
		t.Error("roof should fail")
	}
	b, _ := Setpoint.MarshalText()
	if string(b) != "MSX_SETPOINT" {
		t.Errorf("MarshalText = %s", b)
	}
}

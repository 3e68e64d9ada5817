package msxtoolkit

import (
	"fmt"
	"strings"

	"github.com/wippyai/msx-toolkit/errors"
)

// ObjectType tags the kind of object an index refers to.
type ObjectType int32

const (
	Node ObjectType = iota
	Link
	Tank
	Species
	Term
	Parameter
	Constant
	Pattern
)

// LocationType tells whether a species lives in the bulk fluid or on the pipe wall.
type LocationType int32

const (
	Bulk LocationType = iota
	Wall
)

// SourceType describes how an external source injects a species at a node.
type SourceType int32

const (
	NoSource SourceType = iota - 1
	Concen
	Mass
	Setpoint
	FlowPaced
)

// Sentinels returned by normalization for inputs that match nothing. The
// value sits outside every valid range.
const (
	UnrecognizedObject   ObjectType   = 100
	UnrecognizedLocation LocationType = 100
	UnrecognizedSource   SourceType   = 100
)

var objectTypes = enumTable[ObjectType]{
	kind:         "object type",
	unrecognized: UnrecognizedObject,
	names: []string{
		Node:      "MSX_NODE",
		Link:      "MSX_LINK",
		Tank:      "MSX_TANK",
		Species:   "MSX_SPECIES",
		Term:      "MSX_TERM",
		Parameter: "MSX_PARAMETER",
		Constant:  "MSX_CONSTANT",
		Pattern:   "MSX_PATTERN",
	},
}

var locationTypes = enumTable[LocationType]{
	kind:         "location type",
	unrecognized: UnrecognizedLocation,
	names: []string{
		Bulk: "MSX_BULK",
		Wall: "MSX_WALL",
	},
}

// Source codes start at -1, so names are stored with an offset of one.
var sourceTypes = enumTable[SourceType]{
	kind:         "source type",
	unrecognized: UnrecognizedSource,
	offset:       1,
	names: []string{
		"MSX_NOSOURCE",
		"MSX_CONCEN",
		"MSX_MASS",
		"MSX_SETPOINT",
		"MSX_FLOWPACED",
	},
}

// enumTable maps the dense code range [-offset, len(names)-offset) to
// symbolic names.
type enumTable[T ~int32] struct {
	kind         string
	names        []string
	offset       int
	unrecognized T
}

func (t enumTable[T]) valid(v T) bool {
	i := int(v) + t.offset
	return i >= 0 && i < len(t.names)
}

func (t enumTable[T]) name(v T) string {
	if !t.valid(v) {
		return fmt.Sprintf("%s(%d)", strings.ReplaceAll(t.kind, " ", "_"), int32(v))
	}
	return t.names[int(v)+t.offset]
}

// normalize is the single conversion used for every enumerated argument. It
// accepts a symbolic name (with or without the MSX_ prefix, any case), the
// typed value itself, or any Go integer. Everything else, including integers
// outside the valid range, yields the sentinel.
func (t enumTable[T]) normalize(v any) T {
	var code int64
	switch x := v.(type) {
	case T:
		code = int64(x)
	case string:
		return t.lookup(x)
	case int:
		code = int64(x)
	case int8:
		code = int64(x)
	case int16:
		code = int64(x)
	case int32:
		code = int64(x)
	case int64:
		code = x
	case uint:
		if uint64(x) > uint64(len(t.names)) {
			return t.unrecognized
		}
		code = int64(x)
	case uint8:
		code = int64(x)
	case uint16:
		code = int64(x)
	case uint32:
		code = int64(x)
	case uint64:
		if x > uint64(len(t.names)) {
			return t.unrecognized
		}
		code = int64(x)
	default:
		return t.unrecognized
	}
	if code < -int64(t.offset) || code >= int64(len(t.names)-t.offset) {
		return t.unrecognized
	}
	return T(code)
}

func (t enumTable[T]) lookup(s string) T {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return t.unrecognized
	}
	if !strings.HasPrefix(s, "MSX_") {
		s = "MSX_" + s
	}
	for i, n := range t.names {
		if n == s {
			return T(i - t.offset)
		}
	}
	return t.unrecognized
}

func (t enumTable[T]) parse(v any) (T, error) {
	out := t.normalize(v)
	if out == t.unrecognized {
		return out, errors.UnrecognizedType("", t.kind, v)
	}
	return out, nil
}

// String returns the engine's symbolic name, e.g. MSX_SPECIES.
func (o ObjectType) String() string { return objectTypes.name(o) }

// Valid reports whether o is one of the eight engine object types.
func (o ObjectType) Valid() bool { return objectTypes.valid(o) }

// String returns the engine's symbolic name, e.g. MSX_WALL.
func (l LocationType) String() string { return locationTypes.name(l) }

// Valid reports whether l is BULK or WALL.
func (l LocationType) Valid() bool { return locationTypes.valid(l) }

// String returns the engine's symbolic name, e.g. MSX_FLOWPACED.
func (s SourceType) String() string { return sourceTypes.name(s) }

// Valid reports whether s is one of the five source types.
func (s SourceType) Valid() bool { return sourceTypes.valid(s) }

// ParseObjectType normalizes a symbolic name or integer code.
func ParseObjectType(v any) (ObjectType, error) { return objectTypes.parse(v) }

// ParseLocationType normalizes a symbolic name or integer code.
func ParseLocationType(v any) (LocationType, error) { return locationTypes.parse(v) }

// ParseSourceType normalizes a symbolic name or integer code.
func ParseSourceType(v any) (SourceType, error) { return sourceTypes.parse(v) }

// NormalizeObjectType is ParseObjectType without the error: unknown input
// maps to UnrecognizedObject.
func NormalizeObjectType(v any) ObjectType { return objectTypes.normalize(v) }

// NormalizeLocationType maps unknown input to UnrecognizedLocation.
func NormalizeLocationType(v any) LocationType { return locationTypes.normalize(v) }

// NormalizeSourceType maps unknown input to UnrecognizedSource.
func NormalizeSourceType(v any) SourceType { return sourceTypes.normalize(v) }

// UnmarshalText lets object types be read from config files by name or code.
func (o *ObjectType) UnmarshalText(b []byte) error {
	v, err := ParseObjectType(textValue(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MarshalText writes the symbolic name.
func (o ObjectType) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText lets location types be read from config files by name or code.
func (l *LocationType) UnmarshalText(b []byte) error {
	v, err := ParseLocationType(textValue(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// MarshalText writes the symbolic name.
func (l LocationType) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText lets source types be read from config files by name or code.
func (s *SourceType) UnmarshalText(b []byte) error {
	v, err := ParseSourceType(textValue(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalText writes the symbolic name.
func (s SourceType) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// textValue turns config text into either an integer code or a name.
func textValue(b []byte) any {
	s := strings.TrimSpace(string(b))
	var n int64
	if _, err := fmt.Sscan(s, &n); err == nil && fmt.Sprint(n) == s {
		return n
	}
	return s
}

// Package path compiles typed accessor expressions into JSON path strings
// plus the numeric/boolean/datetime flags the filter and sort builders use
// to choose comparison SQL. Go has no expression trees to walk at
// runtime (unlike a reflection-over-lambda source), so paths here are
// declared once per field with a small fluent builder instead of compiled
// from a call-site accessor expression — see SPEC_FULL.md's design-note
// carryover on this point.
//
//	var StringProperty = path.String("StringProperty")
//	var Nested = path.String("Values").NumericMember("FloatProperty")
package path

import (
	"strings"
	"unicode"

	"github.com/tychodb/tycho/internal/terr"
)

// Kind marks which SQL comparison family a path's terminal member belongs to.
type Kind uint8

const (
	// KindString is the default: comparisons render as quoted strings.
	KindString Kind = iota
	// KindNumeric marks a path whose comparisons must cast the extracted value to numeric.
	KindNumeric
	// KindBool marks a path whose equality comparisons render as bare 0/1.
	KindBool
	// KindDateTime marks a path whose comparisons serialize via the codec's
	// canonical textual format before quoting.
	KindDateTime
)

// Path is a JSON path string together with the type flags derived from its
// terminal member. It satisfies the Path Compiler contract (spec.md §4.1):
// a root-to-leaf `$.A.B.C` string, plus IsNumeric/IsBool/IsDateTime.
type Path struct {
	segments []string
	kind     Kind
}

var identifierRe = func(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !(unicode.IsLetter(r) || r == '_') {
			return false
		}
		if i > 0 && !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}

func newPath(name string, kind Kind) Path {
	if !identifierRe(name) {
		panic(terr.InvalidPath(name))
	}
	return Path{segments: []string{name}, kind: kind}
}

// String declares a root path with string (the default) comparison kind.
func String(name string) Path { return newPath(name, KindString) }

// Int declares a root path with numeric comparison kind.
func Int(name string) Path { return newPath(name, KindNumeric) }

// Int64 declares a root path with numeric comparison kind.
func Int64(name string) Path { return newPath(name, KindNumeric) }

// Float64 declares a root path with numeric comparison kind.
func Float64(name string) Path { return newPath(name, KindNumeric) }

// Bool declares a root path with boolean comparison kind.
func Bool(name string) Path { return newPath(name, KindBool) }

// Time declares a root path with datetime comparison kind.
func Time(name string) Path { return newPath(name, KindDateTime) }

// Member appends a member access, returning a new Path rooted the same way
// but one level deeper, taking on the new member's kind. Determinism
// (spec.md §4.1) falls out of segments being appended in call order and
// never reordered.
func (p Path) Member(name string, kind Kind) Path {
	if !identifierRe(name) {
		panic(terr.InvalidPath(name))
	}
	segs := make([]string, len(p.segments)+1)
	copy(segs, p.segments)
	segs[len(p.segments)] = name
	return Path{segments: segs, kind: kind}
}

// StringMember is Member with KindString.
func (p Path) StringMember(name string) Path { return p.Member(name, KindString) }

// NumericMember is Member with KindNumeric.
func (p Path) NumericMember(name string) Path { return p.Member(name, KindNumeric) }

// BoolMember is Member with KindBool.
func (p Path) BoolMember(name string) Path { return p.Member(name, KindBool) }

// TimeMember is Member with KindDateTime.
func (p Path) TimeMember(name string) Path { return p.Member(name, KindDateTime) }

// String renders the JSON path as `$.A.B.C`.
func (p Path) String() string {
	if len(p.segments) == 0 {
		return "$"
	}
	return "$." + strings.Join(p.segments, ".")
}

// IsNumeric reports whether the terminal member is numeric.
func (p Path) IsNumeric() bool { return p.kind == KindNumeric }

// IsBool reports whether the terminal member is boolean.
func (p Path) IsBool() bool { return p.kind == KindBool }

// IsDateTime reports whether the terminal member is a date/time value.
func (p Path) IsDateTime() bool { return p.kind == KindDateTime }

// Kind returns the terminal member's comparison kind.
func (p Path) Kind() Kind { return p.kind }

// Name returns the path's terminal segment (the last declared field name)
// without the rooting `$.`.
func (p Path) Name() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

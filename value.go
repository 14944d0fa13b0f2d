// value.go: the runtime value model shared by every stage of the pipeline.
//
// A Value is a small tagged union. The tag decides which Go type sits in Data:
//
//	VTNull   → nil
//	VTBool   → bool
//	VTInt    → int64
//	VTFloat  → float64
//	VTText   → string
//	VTArray  → []Value
//	VTHandle → *Handle (opaque; produced and consumed by native modules only)
//
// Values have copy semantics. Arrays are deep-copied whenever a value crosses
// a variable, stack or element boundary (see Clone), so two bindings never
// share a mutable backing array. Handles are the one exception: they wrap host
// resources and are copied by reference.
package giffiscript

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueTag enumerates all runtime kinds a Value may hold.
type ValueTag int

const (
	VTNull   ValueTag = iota // null (no payload)
	VTBool                   // bool
	VTInt                    // int64
	VTFloat                  // float64
	VTText                   // string
	VTArray                  // []Value
	VTHandle                 // *Handle
)

var tagNames = [...]string{
	VTNull:   "Null",
	VTBool:   "Boolean",
	VTInt:    "Int",
	VTFloat:  "Float",
	VTText:   "Text",
	VTArray:  "Array",
	VTHandle: "NativeHandle",
}

func (t ValueTag) String() string {
	if int(t) >= 0 && int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("ValueTag(%d)", int(t))
}

// Value is the universal runtime carrier.
//
// Invariants:
//   - When Tag==VTNull, Data is nil.
//   - When Tag==VTArray, Data is a []Value owned by this Value.
type Value struct {
	Tag  ValueTag
	Data interface{}
}

// Handle is an opaque host resource. The core never looks inside; Kind lets
// native modules check they were handed one of their own.
type Handle struct {
	Kind string
	Data any
}

// Null is the singleton null Value.
var Null = Value{Tag: VTNull}

// Constructors.
func Bool(b bool) Value       { return Value{Tag: VTBool, Data: b} }
func Int(n int64) Value       { return Value{Tag: VTInt, Data: n} }
func Float(f float64) Value   { return Value{Tag: VTFloat, Data: f} }
func Text(s string) Value     { return Value{Tag: VTText, Data: s} }
func Arr(xs []Value) Value    { return Value{Tag: VTArray, Data: xs} }
func HandleVal(kind string, data any) Value {
	return Value{Tag: VTHandle, Data: &Handle{Kind: kind, Data: data}}
}

// Accessors. They assume the caller already checked the tag.
func (v Value) AsBool() bool      { return v.Data.(bool) }
func (v Value) AsInt() int64      { return v.Data.(int64) }
func (v Value) AsFloat() float64  { return v.Data.(float64) }
func (v Value) AsText() string    { return v.Data.(string) }
func (v Value) AsArray() []Value  { return v.Data.([]Value) }
func (v Value) AsHandle() *Handle { return v.Data.(*Handle) }

// IsNumber reports whether v is an Int or a Float.
func (v Value) IsNumber() bool { return v.Tag == VTInt || v.Tag == VTFloat }

// Clone returns a deep copy of v. Arrays are copied element by element.
func (v Value) Clone() Value {
	if v.Tag != VTArray {
		return v
	}
	xs := v.AsArray()
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = x.Clone()
	}
	return Arr(out)
}

// Truthy maps any Value to a boolean for control-flow conditions.
//
//	Null → false, Bool → itself, Int/Float → non-zero,
//	Text → non-empty, Array → non-empty, Handle → true.
func (v Value) Truthy() bool {
	switch v.Tag {
	case VTNull:
		return false
	case VTBool:
		return v.AsBool()
	case VTInt:
		return v.AsInt() != 0
	case VTFloat:
		return v.AsFloat() != 0
	case VTText:
		return v.AsText() != ""
	case VTArray:
		return len(v.AsArray()) > 0
	case VTHandle:
		return true
	}
	return false
}

// Equal is full structural equality: values of different tags are never
// equal, so Int(1) and Float(1.0) differ.
func (v Value) Equal(o Value) bool {
	if v.Tag != o.Tag {
		return false
	}
	switch v.Tag {
	case VTNull:
		return true
	case VTBool:
		return v.AsBool() == o.AsBool()
	case VTInt:
		return v.AsInt() == o.AsInt()
	case VTFloat:
		return v.AsFloat() == o.AsFloat()
	case VTText:
		return v.AsText() == o.AsText()
	case VTArray:
		a, b := v.AsArray(), o.AsArray()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case VTHandle:
		return v.AsHandle() == o.AsHandle()
	}
	return false
}

// String renders the value the way `print` shows it: texts are raw,
// arrays are bracketed with quoted text elements.
func (v Value) String() string {
	if v.Tag == VTText {
		return v.AsText()
	}
	return FormatValue(v)
}

// FormatValue renders a value as source-like text (texts quoted).
func FormatValue(v Value) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v Value) {
	switch v.Tag {
	case VTNull:
		b.WriteString("null")
	case VTBool:
		b.WriteString(strconv.FormatBool(v.AsBool()))
	case VTInt:
		b.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case VTFloat:
		f := v.AsFloat()
		s := strconv.FormatFloat(f, 'g', -1, 64)
		// keep floats visibly floats: 2 → 2.0
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		b.WriteString(s)
	case VTText:
		b.WriteByte('"')
		b.WriteString(v.AsText())
		b.WriteByte('"')
	case VTArray:
		b.WriteByte('[')
		for i, x := range v.AsArray() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, x)
		}
		b.WriteByte(']')
	case VTHandle:
		fmt.Fprintf(b, "<handle %s>", v.AsHandle().Kind)
	default:
		b.WriteString("<unknown>")
	}
}

func toFloat(v Value) float64 {
	if v.Tag == VTInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// Package machine implements the managed heap and the bytecode
// interpreter: value kinds, the GC, the open-addressed table used for
// globals/fields/methods/string interning, and the VM dispatch loop.
package machine

import "github.com/salmon-lang/salmon/lang/bytecode"

// Value is the interface implemented by every runtime value: Nil, Bool,
// Number, and every Obj kind. It intentionally carries no methods beyond
// String/Type (mirroring bytecode.Value, which it satisfies) — arithmetic,
// equality, and truthiness are free functions (Equal and IsFalsey below,
// arithmetic in vm.go), not dynamic dispatch, since the VM's dispatch loop already knows which
// opcode it is executing and needs exhaustive type switches regardless.
type Value interface {
	bytecode.Value
}

// Nil is the value of the "nil" literal. There is exactly one Nil value.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

// Number is an IEEE-754 double-precision value. The language has no other
// numeric type.
type Number float64

func (n Number) String() string { return formatNumber(float64(n)) }
func (Number) Type() string     { return "number" }

// IsFalsey reports whether v is one of the three falsey values: Nil,
// Bool(false), or Number(0). Every other value, including empty strings and
// empty arrays, is truthy. This is the one place the language's truthiness
// rule differs from Lox-family VMs: zero is falsey here.
func IsFalsey(v Value) bool {
	switch v := v.(type) {
	case Nil:
		return true
	case Bool:
		return !bool(v)
	case Number:
		return float64(v) == 0
	default:
		return false
	}
}

// Equal implements OP_EQUAL: deep-equal on primitives, pointer-equal on
// heap objects. Because strings are interned, two strings with equal bytes
// are always the same pointer, so string equality falls out of the object
// identity check for free.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case Number:
		bb, ok := b.(Number)
		return ok && a == bb
	default:
		ao, aIsObj := a.(Obj)
		bo, bIsObj := b.(Obj)
		return aIsObj && bIsObj && ao.objHeader() == bo.objHeader()
	}
}

package machine

import "strings"

// Array is a dynamic, ordered sequence of Value. Per the language's
// functional-array semantics, neither Append nor SetElement ever mutates
// the receiver's backing storage: both return a brand-new Array, always
// deep-copying the element slice. The original C implementation's
// equivalent (the `append()` helper backing OP_ADD) mutated a local copy
// of the array header and then wrapped it in a fresh ObjArray, which left
// the new array's values buffer aliasing the original's — a leak this
// reimplementation avoids by copying unconditionally rather than sharing.
type Array struct {
	Header
	Elements []Value
}

func (a *Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range a.Elements {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}
func (*Array) Type() string { return "array" }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.Elements) }

// Get returns the element at index i, which must be in range.
func (a *Array) Get(i int) Value { return a.Elements[i] }

package machine

import "fmt"

// NativeFunc is the signature every native binding implements: given the
// arguments passed at the call site, return a result or a runtime error.
// Natives must not re-enter the interpreter and must not retain any Value
// past return.
type NativeFunc func(args []Value) (Value, error)

// Native wraps a Go function so it can be called as a Salmon value,
// registered under a global name by the VM at startup.
type Native struct {
	Header
	NativeName string
	Arity      int // -1 means variadic/unchecked
	Fn         NativeFunc
}

func (n *Native) String() string { return fmt.Sprintf("<native fn %s>", n.NativeName) }
func (*Native) Type() string     { return "native" }

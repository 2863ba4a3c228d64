package machine

import (
	"fmt"
	"time"
)

// defineNatives registers the three natives the language ships with.
// Called once when a VM is constructed.
func (vm *VM) defineNatives() {
	vm.defineNative("_clock", 0, nativeClock)
	vm.defineNative("_length", 1, vm.nativeLength)
	vm.defineNative("_print", 1, vm.nativePrint)
}

func (vm *VM) defineNative(name string, arity int, fn NativeFunc) {
	n := vm.heap.NewNative(name, arity, fn)
	vm.globals.Set(name, n)
}

// nativeClock returns the current time in seconds, as a Number.
func nativeClock(_ []Value) (Value, error) {
	return Number(float64(time.Now().UnixNano()) / 1e9), nil
}

// nativeLength returns the length of a String or Array argument, and Nil
// for anything else.
func (vm *VM) nativeLength(args []Value) (Value, error) {
	switch v := args[0].(type) {
	case *String:
		return Number(len(v.Bytes)), nil
	case *Array:
		return Number(v.Len()), nil
	default:
		return Nil{}, nil
	}
}

// nativePrint writes one value to the VM's stdout, followed by a newline,
// and returns Nil.
func (vm *VM) nativePrint(args []Value) (Value, error) {
	fmt.Fprintln(vm.Stdout, args[0].String())
	return Nil{}, nil
}

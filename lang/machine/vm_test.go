package machine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salmon-lang/salmon/lang/bytecode"
	"github.com/salmon-lang/salmon/lang/machine"
)

func TestArithmeticAndPrint(t *testing.T) {
	var out, errOut bytes.Buffer
	vm := machine.New(machine.WithStdio(&out, &errOut))
	fn := vm.Heap().NewFunction(nil)
	printName := vm.Heap().InternString("_print", false)
	fn.Chunk.Constants = []bytecode.Value{printName, machine.Number(1), machine.Number(2)}
	fn.Chunk.Code = []byte{
		byte(bytecode.GET_GLOBAL), 0, // push _print
		byte(bytecode.CONSTANT), 1, // push 1
		byte(bytecode.CONSTANT), 2, // push 2
		byte(bytecode.ADD),     // 1 + 2 -> 3
		byte(bytecode.CALL), 1, // _print(3)
		byte(bytecode.POP),
		byte(bytecode.NIL),
		byte(bytecode.RETURN),
	}
	fn.Chunk.Lines = []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	res := vm.Interpret(fn, "test.salmon")
	require.Equal(t, machine.InterpretOK, res)
	require.Equal(t, "3\n", out.String())
}

func TestGlobalsDefineAndGet(t *testing.T) {
	var out, errOut bytes.Buffer
	vm := machine.New(machine.WithStdio(&out, &errOut))
	fn := vm.Heap().NewFunction(nil)
	name := vm.Heap().InternString("a", false)
	val := vm.Heap().InternString("hi", false)
	fn.Chunk.Constants = []bytecode.Value{val, name, name}
	fn.Chunk.Code = []byte{
		byte(bytecode.CONSTANT), 0,
		byte(bytecode.DEFINE_GLOBAL), 1,
		byte(bytecode.GET_GLOBAL), 2,
		byte(bytecode.POP),
		byte(bytecode.NIL),
		byte(bytecode.RETURN),
	}
	fn.Chunk.Lines = []int{1, 1, 1, 1, 1, 1, 1, 1, 1}
	res := vm.Interpret(fn, "test.salmon")
	require.Equal(t, machine.InterpretOK, res)
}

func TestArrayFunctionalSetElementDoesNotAlias(t *testing.T) {
	heap := machine.NewHeap(0, false, false, nil)
	arr := heap.NewArray([]machine.Value{machine.Number(1), machine.Number(2)})
	updated := heap.SetArrayElement(arr, 0, machine.Number(99))

	require.NotSame(t, arr, updated)
	require.Equal(t, machine.Number(1), arr.Get(0))
	require.Equal(t, machine.Number(99), updated.Get(0))
}

func TestArrayAppendDoesNotMutateOriginal(t *testing.T) {
	heap := machine.NewHeap(0, false, false, nil)
	arr := heap.NewArray(nil)
	a1 := heap.AppendArray(arr, machine.Number(1))
	a2 := heap.AppendArray(arr, machine.Number(2))

	require.Equal(t, 0, arr.Len())
	require.Equal(t, 1, a1.Len())
	require.Equal(t, 1, a2.Len())
}

func TestStringInterningPointerIdentity(t *testing.T) {
	heap := machine.NewHeap(0, false, false, nil)
	a := heap.InternString("hello", false)
	b := heap.InternString("hello", false)
	require.Same(t, a, b)
}

func TestStringLiteralEscapesInterpretedOnce(t *testing.T) {
	heap := machine.NewHeap(0, false, false, nil)
	s := heap.InternString(`line one\nline two`, true)
	require.Equal(t, "line one\nline two", s.Bytes)
}

func TestAllocationPressureTriggersShouldCollect(t *testing.T) {
	heap := machine.NewHeap(0, false, false, nil)
	require.False(t, heap.ShouldCollect())
	heap.NewArray(make([]machine.Value, 200000))
	require.True(t, heap.ShouldCollect())
}

func TestIsFalseyZeroIsFalsey(t *testing.T) {
	require.True(t, machine.IsFalsey(machine.Number(0)))
	require.False(t, machine.IsFalsey(machine.Number(1)))
	require.True(t, machine.IsFalsey(machine.Nil{}))
	require.True(t, machine.IsFalsey(machine.Bool(false)))
	require.False(t, machine.IsFalsey(machine.Bool(true)))
}

func TestGetElementOnStringReturnsOneByte(t *testing.T) {
	var out, errOut bytes.Buffer
	vm := machine.New(machine.WithStdio(&out, &errOut))
	fn := vm.Heap().NewFunction(nil)
	printName := vm.Heap().InternString("_print", false)
	s := vm.Heap().InternString("hello", false)
	idx := machine.Number(1)
	fn.Chunk.Constants = []bytecode.Value{printName, s, idx}
	fn.Chunk.Code = []byte{
		byte(bytecode.GET_GLOBAL), 0,
		byte(bytecode.CONSTANT), 1,
		byte(bytecode.CONSTANT), 2,
		byte(bytecode.GET_ELEMENT), // "hello"[1] -> "e"
		byte(bytecode.CALL), 1,
		byte(bytecode.POP),
		byte(bytecode.NIL),
		byte(bytecode.RETURN),
	}
	fn.Chunk.Lines = []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	res := vm.Interpret(fn, "test.salmon")
	require.Equal(t, machine.InterpretOK, res)
	require.Equal(t, "e\n", out.String())
}

package machine

import (
	"fmt"
	"io"
	"os"

	"github.com/salmon-lang/salmon/lang/bytecode"
)

const (
	// FramesMax bounds the call-frame array; exceeding it is a stack
	// overflow runtime error, not a Go panic.
	FramesMax = 64
	// StackMax is the value stack's fixed capacity.
	StackMax = FramesMax * 256
)

// Result is the outcome of running a chunk to completion.
type Result int

const (
	InterpretOK Result = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM is a single, self-contained interpreter: its value stack, call
// frames, globals, heap, and open-upvalue list. All of it is owned by one
// VM instance and touched only from the goroutine that calls Interpret;
// there is no internal locking (see the single-threaded execution model).
type VM struct {
	stack      [StackMax]Value
	stackTop   int
	frames     [FramesMax]frame
	frameCount int

	globals      *Table
	heap         *Heap
	openUpvalues *Upvalue

	path string // current source file, for stack-trace formatting (OP_PATH)

	Stdout io.Writer
	Stderr io.Writer

	traceExecution bool
	printCode      bool
}

// Option configures a new VM.
type Option func(*VM)

// WithStdio overrides the VM's stdout/stderr; both default to os.Stdout
// and os.Stderr.
func WithStdio(stdout, stderr io.Writer) Option {
	return func(vm *VM) { vm.Stdout, vm.Stderr = stdout, stderr }
}

// WithTraceExecution enables per-instruction tracing to Stdout, the
// runtime analogue of DEBUG_TRACE_EXECUTION.
func WithTraceExecution(on bool) Option {
	return func(vm *VM) { vm.traceExecution = on }
}

// WithHeap supplies a pre-configured Heap (e.g. with GC debug knobs set);
// a default Heap is used otherwise.
func WithHeap(h *Heap) Option {
	return func(vm *VM) { vm.heap = h }
}

// WithPrintCode disassembles the top-level script chunk to Stdout just
// before running it, the runtime analogue of DEBUG_PRINT_CODE. Chunks of
// nested functions are not printed.
func WithPrintCode(on bool) Option {
	return func(vm *VM) { vm.printCode = on }
}

// New returns a ready-to-use VM with its natives registered.
func New(opts ...Option) *VM {
	vm := &VM{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.heap == nil {
		vm.heap = NewHeap(0, false, false, nil)
	}
	vm.globals = NewTable(16)
	vm.defineNatives()
	return vm
}

// Heap exposes the VM's heap, e.g. so the compiler can intern string
// constants and allocate the script Function into the same heap the VM
// will later execute against.
func (vm *VM) Heap() *Heap { return vm.heap }

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v Value) { vm.stack[vm.stackTop] = v; vm.stackTop++ }
func (vm *VM) pop() Value   { vm.stackTop--; return vm.stack[vm.stackTop] }
func (vm *VM) peek(dist int) Value { return vm.stack[vm.stackTop-1-dist] }

// Interpret compiles is not this function's job: Interpret wraps an
// already-compiled top-level Function in a Closure and runs it to
// completion.
func (vm *VM) Interpret(fn *Function, path string) Result {
	vm.path = path
	vm.resetStack()

	if vm.printCode {
		name := "<script>"
		if fn.Name != nil {
			name = fn.Name.Bytes
		}
		bytecode.Disassemble(vm.Stdout, &fn.Chunk, name)
	}

	closure := vm.heap.NewClosure(fn)
	vm.push(closure)
	if err := vm.call(closure, 0); err != nil {
		fmt.Fprintln(vm.Stderr, err)
		vm.resetStack()
		return InterpretRuntimeError
	}
	if err := vm.run(); err != nil {
		vm.runtimeError(err)
		return InterpretRuntimeError
	}
	return InterpretOK
}

type runtimeErr struct{ msg string }

func (e *runtimeErr) Error() string { return e.msg }

func rtErrf(format string, args ...any) error { return &runtimeErr{msg: fmt.Sprintf(format, args...)} }

// runtimeError prints the failing message followed by a stack trace
// (innermost frame first) and resets the VM to a clean state.
func (vm *VM) runtimeError(err error) {
	fmt.Fprintln(vm.Stderr, err)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		fn := f.closure.Function
		line := 0
		if f.ip-1 >= 0 && f.ip-1 < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[f.ip-1]
		}
		fmt.Fprintf(vm.Stderr, "[file %s, line %d] in %s\n", vm.path, line, frameLabel(fn))
	}
	vm.resetStack()
}

func frameLabel(fn *Function) string {
	if fn.Name == nil {
		return "script"
	}
	return fn.Name.Bytes + "()"
}

func (vm *VM) call(closure *Closure, argCount int) error {
	if argCount != closure.Function.Arity {
		return rtErrf("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == FramesMax {
		return rtErrf("Stack overflow.")
	}
	vm.frames[vm.frameCount] = frame{closure: closure, ip: 0, base: vm.stackTop - argCount - 1}
	vm.frameCount++
	return nil
}

func (vm *VM) callValue(callee Value, argCount int) error {
	switch callee := callee.(type) {
	case *Closure:
		return vm.call(callee, argCount)
	case *Class:
		instance := vm.heap.NewInstance(callee)
		vm.stack[vm.stackTop-argCount-1] = instance
		if initializer, ok := callee.Methods.Get("init"); ok {
			return vm.call(initializer.(*Closure), argCount)
		}
		if argCount != 0 {
			return rtErrf("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	case *BoundMethod:
		vm.stack[vm.stackTop-argCount-1] = callee.Receiver
		return vm.call(callee.Method, argCount)
	case *Native:
		if callee.Arity >= 0 && argCount != callee.Arity {
			return rtErrf("Expected %d arguments but got %d.", callee.Arity, argCount)
		}
		args := vm.stack[vm.stackTop-argCount : vm.stackTop]
		result, err := callee.Fn(args)
		if err != nil {
			return err
		}
		vm.stackTop -= argCount + 1
		vm.push(result)
		return nil
	default:
		return rtErrf("Can only call functions and classes.")
	}
}

func (vm *VM) invoke(name string, argCount int) error {
	receiver := vm.peek(argCount)
	instance, ok := receiver.(*Instance)
	if !ok {
		return rtErrf("Only instances have methods.")
	}
	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *Class, name string, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return rtErrf("Undefined property '%s'.", name)
	}
	return vm.call(method.(*Closure), argCount)
}

func (vm *VM) bindMethod(class *Class, name string) (*BoundMethod, error) {
	method, ok := class.Methods.Get(name)
	if !ok {
		return nil, rtErrf("Undefined property '%s'.", name)
	}
	receiver := vm.peek(0)
	bound := vm.heap.NewBoundMethod(receiver, method.(*Closure))
	return bound, nil
}

// captureUpvalue returns the open upvalue for the given stack slot,
// reusing an existing node if one is already open for that slot (the
// "at-most-one-open-per-slot" invariant), inserting a new one in the
// list's decreasing-stack-address order otherwise.
func (vm *VM) captureUpvalue(local *Value) *Upvalue {
	var prev *Upvalue
	cur := vm.openUpvalues
	for cur != nil && slotAddr(cur.Location) > slotAddr(local) {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && slotAddr(cur.Location) == slotAddr(local) {
		return cur
	}
	created := vm.heap.NewUpvalue(local)
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// slotAddr gives open upvalues a total order over stack slots by their raw
// address, without doing pointer arithmetic on the stack array: callers
// pass a pointer into vm.stack, whose element addresses increase with
// index on a fixed array.
func slotAddr(p *Value) uintptr { return uintptr(ptrOf(p)) }

func (vm *VM) closeUpvalues(from *Value) {
	for vm.openUpvalues != nil && slotAddr(vm.openUpvalues.Location) >= slotAddr(from) {
		u := vm.openUpvalues
		u.Close()
		vm.openUpvalues = u.NextOpen
	}
}

func (vm *VM) defineMethod(name string, private bool) error {
	method := vm.peek(0)
	class, ok := vm.peek(1).(*Class)
	if !ok {
		return rtErrf("Only classes may define methods.")
	}
	class.Methods.Set(name, method)
	vm.pop()
	_ = private // PRIVATE_METHOD is accepted identically to METHOD
	return nil
}

// run executes the current top frame (and any frames it calls into) until
// the call-frame stack empties.
func (vm *VM) run() error {
	f := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := f.closure.Function.Chunk.Code[f.ip]
		f.ip++
		return b
	}
	readShort := func() int {
		hi := int(f.closure.Function.Chunk.Code[f.ip])
		lo := int(f.closure.Function.Chunk.Code[f.ip+1])
		f.ip += 2
		return hi<<8 | lo
	}
	readConstant := func() Value {
		return f.closure.Function.Chunk.Constants[readByte()].(Value)
	}
	readString := func() *String { return readConstant().(*String) }

	for {
		if vm.heap.ShouldCollect() {
			vm.Collect()
		}
		if vm.traceExecution {
			bytecode.DisassembleInstruction(vm.Stdout, &f.closure.Function.Chunk, f.ip)
		}

		op := bytecode.Opcode(readByte())
		switch op {
		case bytecode.CONSTANT:
			vm.push(readConstant())
		case bytecode.NIL:
			vm.push(Nil{})
		case bytecode.TRUE:
			vm.push(Bool(true))
		case bytecode.FALSE:
			vm.push(Bool(false))
		case bytecode.POP:
			vm.pop()
		case bytecode.PATH:
			vm.path = readString().Bytes

		case bytecode.GET_LOCAL:
			vm.push(vm.stack[f.base+int(readByte())])
		case bytecode.SET_LOCAL:
			vm.stack[f.base+int(readByte())] = vm.peek(0)

		case bytecode.GET_GLOBAL:
			name := readString()
			v, ok := vm.globals.Get(name.Bytes)
			if !ok {
				return rtErrf("Undefined variable '%s'.", name.Bytes)
			}
			vm.push(v)
		case bytecode.DEFINE_GLOBAL:
			name := readString()
			vm.globals.Set(name.Bytes, vm.peek(0))
			vm.pop()
		case bytecode.SET_GLOBAL:
			name := readString()
			if vm.globals.Set(name.Bytes, vm.peek(0)) {
				vm.globals.Delete(name.Bytes)
				return rtErrf("Undefined variable '%s'.", name.Bytes)
			}

		case bytecode.GET_UPVALUE:
			vm.push(*f.closure.Upvalues[readByte()].Location)
		case bytecode.SET_UPVALUE:
			*f.closure.Upvalues[readByte()].Location = vm.peek(0)

		case bytecode.GET_PROPERTY:
			instance, ok := vm.peek(0).(*Instance)
			if !ok {
				return rtErrf("Only instances have properties.")
			}
			name := readString()
			if v, ok := instance.Fields.Get(name.Bytes); ok {
				vm.pop()
				vm.push(v)
				break
			}
			bound, err := vm.bindMethod(instance.Class, name.Bytes)
			if err != nil {
				return err
			}
			vm.pop()
			vm.push(bound)

		case bytecode.SET_PROPERTY:
			instance, ok := vm.peek(1).(*Instance)
			if !ok {
				return rtErrf("Only instances have fields.")
			}
			name := readString()
			instance.Fields.Set(name.Bytes, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case bytecode.GET_SUPER:
			name := readString()
			super := vm.pop().(*Class)
			bound, err := vm.bindMethod(super, name.Bytes)
			if err != nil {
				return err
			}
			vm.pop()
			vm.push(bound)

		case bytecode.GET_ELEMENT:
			index := vm.peek(0)
			container := vm.peek(1)
			n, isNum := index.(Number)
			if !isNum {
				return rtErrf("Index must be a number.")
			}
			i := int(n)
			switch c := container.(type) {
			case *Array:
				if i < 0 || i >= c.Len() {
					return rtErrf("Index of %d out of bounds for array of length %d.", i, c.Len())
				}
				vm.pop()
				vm.pop()
				vm.push(c.Get(i))
			case *String:
				if i < 0 || i >= len(c.Bytes) {
					return rtErrf("Index of %d out of bounds for array of length %d.", i, len(c.Bytes))
				}
				vm.pop()
				vm.pop()
				vm.push(vm.heap.InternString(c.Bytes[i:i+1], false))
			default:
				return rtErrf("Can not access element of a non array/string.")
			}

		case bytecode.SET_ELEMENT:
			value := vm.peek(0)
			index := vm.peek(1)
			arr, isArr := vm.peek(2).(*Array)
			if !isArr {
				return rtErrf("Cannot set element of a non-array.")
			}
			n, isNum := index.(Number)
			if !isNum {
				return rtErrf("Index must be a number.")
			}
			i := int(n)
			if i < 0 || i >= arr.Len() {
				return rtErrf("Index of %d out of bounds for array of length %d.", i, arr.Len())
			}
			result := vm.heap.SetArrayElement(arr, i, value)
			vm.pop()
			vm.pop()
			vm.pop()
			vm.push(result)

		case bytecode.EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(Bool(Equal(a, b)))
		case bytecode.GREATER:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return Bool(a > b) }); err != nil {
				return err
			}
		case bytecode.LESS:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return Bool(a < b) }); err != nil {
				return err
			}
		case bytecode.ADD:
			if err := vm.add(); err != nil {
				return err
			}
		case bytecode.SUBTRACT:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return Number(a - b) }); err != nil {
				return err
			}
		case bytecode.MULTIPLY:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return Number(a * b) }); err != nil {
				return err
			}
		case bytecode.DIVIDE:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return Number(a / b) }); err != nil {
				return err
			}
		case bytecode.NOT:
			vm.push(Bool(IsFalsey(vm.pop())))
		case bytecode.NEGATE:
			n, ok := vm.peek(0).(Number)
			if !ok {
				return rtErrf("Operand must be a number.")
			}
			vm.pop()
			vm.push(-n)

		case bytecode.JUMP:
			f.ip += readShort()
		case bytecode.JUMP_IF_FALSE:
			offset := readShort()
			if IsFalsey(vm.peek(0)) {
				f.ip += offset
			}
		case bytecode.LOOP:
			f.ip -= readShort()

		case bytecode.CALL:
			argCount := int(readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			f = &vm.frames[vm.frameCount-1]

		case bytecode.INVOKE:
			name := readString()
			argCount := int(readByte())
			if err := vm.invoke(name.Bytes, argCount); err != nil {
				return err
			}
			f = &vm.frames[vm.frameCount-1]

		case bytecode.SUPER_INVOKE:
			name := readString()
			argCount := int(readByte())
			super := vm.pop().(*Class)
			if err := vm.invokeFromClass(super, name.Bytes, argCount); err != nil {
				return err
			}
			f = &vm.frames[vm.frameCount-1]

		case bytecode.CLOSURE:
			fn := readConstant().(*Function)
			closure := vm.heap.NewClosure(fn)
			vm.push(closure)
			for i := range closure.Upvalues {
				isLocal := readByte()
				index := int(readByte())
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[f.base+index])
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}

		case bytecode.CLOSE_UPVALUE:
			vm.closeUpvalues(&vm.stack[vm.stackTop-1])
			vm.pop()

		case bytecode.RETURN:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[f.base])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = f.base
			vm.push(result)
			f = &vm.frames[vm.frameCount-1]

		case bytecode.CLASS:
			vm.push(vm.heap.NewClass(readString()))

		case bytecode.INHERIT:
			super, ok := vm.peek(1).(*Class)
			if !ok {
				return rtErrf("Superclass must be a class.")
			}
			sub := vm.peek(0).(*Class)
			sub.Methods.AddAll(super.Methods)
			vm.pop()

		case bytecode.METHOD:
			if err := vm.defineMethod(readString().Bytes, false); err != nil {
				return err
			}
		case bytecode.PRIVATE_METHOD:
			if err := vm.defineMethod(readString().Bytes, true); err != nil {
				return err
			}

		default:
			return rtErrf("unimplemented opcode %s", op)
		}
	}
}

func (vm *VM) binaryNumberOp(op func(a, b float64) Value) error {
	b, bOk := vm.peek(0).(Number)
	a, aOk := vm.peek(1).(Number)
	if !aOk || !bOk {
		return rtErrf("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	vm.push(op(float64(a), float64(b)))
	return nil
}

// add implements OP_ADD's three overloads: number+number, string+string
// (concatenation, producing an interned string), and array+value (a
// functional append producing a brand-new array).
func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)

	switch a := a.(type) {
	case Number:
		bn, ok := b.(Number)
		if !ok {
			return rtErrf("Operands must be numbers.")
		}
		vm.pop()
		vm.pop()
		vm.push(a + bn)
	case *String:
		bs, ok := b.(*String)
		if !ok {
			return rtErrf("Operands must be either two strings or two numbers.")
		}
		vm.pop()
		vm.pop()
		vm.push(vm.heap.InternString(a.Bytes+bs.Bytes, false))
	case *Array:
		vm.pop()
		vm.pop()
		vm.push(vm.heap.AppendArray(a, b))
	default:
		return rtErrf("Operands must be either two strings or two numbers.")
	}
	return nil
}

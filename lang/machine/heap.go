package machine

import "github.com/dolthub/swiss"

// heapGrowFactor is the default multiplier applied to bytesAllocated to
// compute the next collection threshold, matching next_gc = bytes_allocated * 2.
const heapGrowFactor = 2

// Heap owns every heap-allocated object: the intern set, the intrusive
// objects list, and the allocation-pressure bookkeeping that drives
// garbage collection. A VM embeds exactly one Heap.
type Heap struct {
	strings *swiss.Map[string, *String]
	objects Obj

	bytesAllocated int64
	nextGC         int64
	growFactor     int64

	stressGC bool
	logGC    bool
	onLogGC  func(format string, args ...any)

	initString *String

	// compilerRoots holds Functions still under construction by an
	// in-progress compile, so a collection triggered by a constant
	// allocation mid-compile does not reclaim them before CLOSURE wires
	// them into a constant pool.
	compilerRoots []Obj
}

// PushCompilerRoot registers fn as a GC root for the duration of its
// compilation; the compiler calls this when it opens a new function frame
// and PopCompilerRoot when that frame ends.
func (h *Heap) PushCompilerRoot(fn *Function) { h.compilerRoots = append(h.compilerRoots, fn) }

// PopCompilerRoot un-registers the most recently pushed compiler root.
func (h *Heap) PopCompilerRoot() {
	if n := len(h.compilerRoots); n > 0 {
		h.compilerRoots = h.compilerRoots[:n-1]
	}
}

// NewHeap returns an initialized, empty Heap. growFactor overrides the
// default heap-growth multiplier when positive (SALMON_GC_HEAP_GROW_FACTOR).
func NewHeap(growFactor int, stressGC, logGC bool, onLogGC func(string, ...any)) *Heap {
	h := &Heap{
		strings:    swiss.NewMap[string, *String](64),
		nextGC:     1 << 20,
		growFactor: heapGrowFactor,
		stressGC:   stressGC,
		logGC:      logGC,
		onLogGC:    onLogGC,
	}
	if growFactor > 0 {
		h.growFactor = int64(growFactor)
	}
	h.initString = h.InternString("init", false)
	return h
}

// InitString returns the interned "init" string used to recognize
// initializer methods.
func (h *Heap) InitString() *String { return h.initString }

func (h *Heap) link(o Obj) {
	hdr := o.objHeader()
	hdr.Next = h.objects
	h.objects = o
	h.account(objSize(o))
}

func (h *Heap) account(size int64) {
	h.bytesAllocated += size
}

// objSize estimates o's heap footprint for the allocation-pressure GC
// trigger: a fixed per-object base plus the size of any variable-length
// payload, mirroring how reallocate() in the reference implementation
// tracks sizeof(ObjType) plus any trailing array storage.
func objSize(o Obj) int64 {
	const objBase = 16
	const wordSize = 8
	switch o := o.(type) {
	case *String:
		return objBase + int64(len(o.Bytes))
	case *Array:
		return objBase + int64(len(o.Elements))*wordSize
	case *Closure:
		return objBase + int64(len(o.Upvalues))*wordSize
	default:
		return objBase
	}
}

// InternString returns the unique String for bytes, allocating a new one
// only if none exists yet. When literal is true, escape sequences (\n \t
// \r \\ \") in bytes are interpreted once, here, at the literal-to-constant
// boundary; runtime-produced strings (concatenation, indexing) pass
// literal=false and are stored byte-for-byte, since they are already
// materialized data, not source text to unescape.
func (h *Heap) InternString(bytes string, literal bool) *String {
	if literal {
		bytes = unescapeLiteral(bytes)
	}
	if s, ok := h.strings.Get(bytes); ok {
		return s
	}
	s := &String{Bytes: bytes, Hash: hashString(bytes)}
	s.Kind = KindString
	h.link(s)
	h.strings.Put(bytes, s)
	return s
}

func unescapeLiteral(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				out = append(out, '\n')
				i++
				continue
			case 't':
				out = append(out, '\t')
				i++
				continue
			case 'r':
				out = append(out, '\r')
				i++
				continue
			case '\\':
				out = append(out, '\\')
				i++
				continue
			case '"':
				out = append(out, '"')
				i++
				continue
			}
		}
		out = append(out, c)
	}
	return string(out)
}

// NewArray allocates a new Array wrapping elems (taking ownership of the
// slice; callers that must not let later mutation alias the caller's slice
// should pass a copy).
func (h *Heap) NewArray(elems []Value) *Array {
	a := &Array{Elements: elems}
	a.Kind = KindArray
	h.link(a)
	return a
}

// NewFunction allocates a new, empty Function named name (nil for the
// top-level script).
func (h *Heap) NewFunction(name *String) *Function {
	f := &Function{Name: name}
	f.Kind = KindFunction
	h.link(f)
	return f
}

// NewClosure allocates a Closure over fn with upvalueCount empty upvalue
// slots, to be filled in by the CLOSURE opcode handler.
func (h *Heap) NewClosure(fn *Function) *Closure {
	c := &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount())}
	c.Kind = KindClosure
	h.link(c)
	return c
}

// NewUpvalue allocates an open upvalue pointing at slot.
func (h *Heap) NewUpvalue(slot *Value) *Upvalue {
	u := &Upvalue{Location: slot}
	u.Kind = KindUpvalue
	h.link(u)
	return u
}

// NewClass allocates an empty class named name.
func (h *Heap) NewClass(name *String) *Class {
	c := &Class{Name: name, Methods: NewTable(8)}
	c.Kind = KindClass
	h.link(c)
	return c
}

// NewInstance allocates a new instance of class.
func (h *Heap) NewInstance(class *Class) *Instance {
	i := &Instance{Class: class, Fields: NewTable(8)}
	i.Kind = KindInstance
	h.link(i)
	return i
}

// NewBoundMethod allocates a BoundMethod binding receiver to method.
func (h *Heap) NewBoundMethod(receiver Value, method *Closure) *BoundMethod {
	b := &BoundMethod{Receiver: receiver, Method: method}
	b.Kind = KindBoundMethod
	h.link(b)
	return b
}

// AppendArray returns a new Array holding a's elements followed by v. a is
// left untouched: its Elements slice is copied, never extended in place,
// so any other live reference to a still observes its original length.
func (h *Heap) AppendArray(a *Array, v Value) *Array {
	elems := make([]Value, len(a.Elements)+1)
	copy(elems, a.Elements)
	elems[len(a.Elements)] = v
	return h.NewArray(elems)
}

// SetArrayElement returns a new Array equal to a except at index i, which
// holds v. a's own Elements slice is never written to.
func (h *Heap) SetArrayElement(a *Array, i int, v Value) *Array {
	elems := make([]Value, len(a.Elements))
	copy(elems, a.Elements)
	elems[i] = v
	return h.NewArray(elems)
}

// NewNative allocates a Native wrapping fn under the given name.
func (h *Heap) NewNative(name string, arity int, fn NativeFunc) *Native {
	n := &Native{NativeName: name, Arity: arity, Fn: fn}
	n.Kind = KindNative
	h.link(n)
	return n
}

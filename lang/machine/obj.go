package machine

import "strconv"

// Kind identifies which of the nine heap object variants an Obj is.
type Kind uint8

const (
	KindString Kind = iota
	KindFunction
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
	KindArray
	KindNative
)

//nolint:revive
var kindNames = [...]string{
	KindString:      "string",
	KindFunction:    "function",
	KindClosure:     "closure",
	KindUpvalue:     "upvalue",
	KindClass:       "class",
	KindInstance:    "instance",
	KindBoundMethod: "bound method",
	KindArray:       "array",
	KindNative:      "native",
}

func (k Kind) String() string { return kindNames[k] }

// Header is embedded by every heap object. It carries the GC mark bit and
// the intrusive next-object link the VM's objects list threads through;
// its address is the object's identity for pointer-equality comparisons
// (OP_EQUAL on two Obj values, and the "array unchanged" functional-update
// invariant).
type Header struct {
	Kind    Kind
	Marked  bool
	Next    Obj
}

func (h *Header) objHeader() *Header { return h }

// Obj is implemented by every heap-allocated value kind.
type Obj interface {
	Value
	objHeader() *Header
}

// formatNumber renders a Number the way the reference VM's print_value
// does: integral values print without a decimal point, others print with
// Go's shortest round-tripping representation.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

package machine

import (
	"fmt"

	"github.com/salmon-lang/salmon/lang/bytecode"
)

// Function is a compiled function body: fixed arity, upvalue count, and an
// owned Chunk. It is immutable once the compiler finishes emitting it.
type Function struct {
	Header
	Name        *String
	Arity       int
	Upvalues    int
	Chunk       bytecode.Chunk
}

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Bytes)
}
func (*Function) Type() string { return "function" }

// UpvalueCount reports how many upvalues a Closure over this Function
// must allocate. Implements bytecode.hasUpvalueCount so the disassembler
// can read CLOSURE's trailing (is_local, index) pairs.
func (f *Function) UpvalueCount() int { return f.Upvalues }

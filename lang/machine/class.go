package machine

import "fmt"

// Class is a named collection of methods. Inheritance (OP_INHERIT) copies
// a superclass's method table into the subclass when INHERIT executes,
// before the subclass's own METHOD instructions run; methods the subclass
// itself defines afterward overwrite those entries.
type Class struct {
	Header
	Name    *String
	Methods *Table // string -> *Closure
}

func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name.Bytes) }
func (*Class) Type() string     { return "class" }

// Instance is a single object of a Class, with its own field table
// independent of the class's (shared) method table.
type Instance struct {
	Header
	Class  *Class
	Fields *Table // string -> Value
}

func (i *Instance) String() string { return fmt.Sprintf("<%s instance>", i.Class.Name.Bytes) }
func (*Instance) Type() string     { return "instance" }

// BoundMethod pairs a receiver with one of its class's methods, produced
// when a property access resolves to a method rather than a field (the
// slow path; INVOKE/SUPER_INVOKE avoid allocating one on the common call
// path).
type BoundMethod struct {
	Header
	Receiver Value
	Method   *Closure
}

func (b *BoundMethod) String() string { return b.Method.String() }
func (*BoundMethod) Type() string     { return "bound method" }

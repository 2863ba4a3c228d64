package machine

// frame is one call-frame: the closure being executed, the instruction
// pointer into its chunk, and the base index into the VM's value stack
// where this call's receiver/function and arguments (and its locals) live.
type frame struct {
	closure *Closure
	ip      int
	base    int
}

// funcName returns the name of the function this frame is executing:
// "script" for the top-level chunk. Stack traces format frames with
// frameLabel (vm.go) instead.
func (f *frame) funcName() string {
	fn := f.closure.Function
	if fn.Name == nil {
		return "script"
	}
	return fn.Name.Bytes
}

package machine

// Collect runs one tri-color mark-sweep cycle: mark every root reachable
// from the VM (stack, frames, open upvalues, globals, init string, any
// in-progress compiler Functions), trace the gray worklist to darken
// everything transitively reachable, then sweep the intern set and the
// objects list of everything left unmarked.
//
// Go's own runtime already reclaims the memory of anything this unlinks
// from the objects list once no other reference remains; Collect's job is
// to maintain the object-identity and liveness bookkeeping the language
// spec requires (string intern uniqueness, "every object on the objects
// list is reachable"), not to manage memory Go already manages.
func (vm *VM) Collect() {
	if vm.heap.logGC && vm.heap.onLogGC != nil {
		vm.heap.onLogGC("-- gc begin")
	}

	var gray []Obj
	mark := func(v Value) {
		if o, ok := v.(Obj); ok && o != nil {
			gray = markObj(o, gray)
		}
	}

	for _, v := range vm.stack[:vm.stackTop] {
		mark(v)
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(vm.frames[i].closure)
	}
	for u := vm.openUpvalues; u != nil; u = u.NextOpen {
		gray = markObj(u, gray)
	}
	vm.globals.m.Iter(func(_ string, v Value) (stop bool) {
		mark(v)
		return false
	})
	if vm.heap.initString != nil {
		gray = markObj(vm.heap.initString, gray)
	}
	for _, o := range vm.heap.compilerRoots {
		gray = markObj(o, gray)
	}

	for len(gray) > 0 {
		o := gray[len(gray)-1]
		gray = gray[:len(gray)-1]
		gray = blacken(o, gray)
	}

	// Sweep the intern set first so no dangling key survives the object sweep.
	vm.heap.strings.Iter(func(k string, s *String) (stop bool) {
		if !s.Marked {
			vm.heap.strings.Delete(k)
		}
		return false
	})

	var prev Obj
	cur := vm.heap.objects
	for cur != nil {
		hdr := cur.objHeader()
		next := hdr.Next
		if hdr.Marked {
			hdr.Marked = false
			prev = cur
		} else {
			if prev == nil {
				vm.heap.objects = next
			} else {
				prev.objHeader().Next = next
			}
		}
		cur = next
	}

	vm.heap.nextGC = vm.heap.bytesAllocated * vm.heap.growFactor
}

// markObj darkens o to gray (if not already marked) and appends it to the
// worklist so blacken can trace its outgoing references later.
func markObj(o Obj, gray []Obj) []Obj {
	hdr := o.objHeader()
	if hdr.Marked {
		return gray
	}
	hdr.Marked = true
	return append(gray, o)
}

// blacken traces one gray object's outgoing references, marking each and
// adding unmarked ones to the worklist.
func blacken(o Obj, gray []Obj) []Obj {
	mark := func(v Value) {
		if ob, ok := v.(Obj); ok && ob != nil {
			gray = markObj(ob, gray)
		}
	}

	switch o := o.(type) {
	case *String:
		// no outgoing references
	case *Function:
		mark(o.Name)
		for _, c := range o.Chunk.Constants {
			if v, ok := c.(Value); ok {
				mark(v)
			}
		}
	case *Closure:
		mark(o.Function)
		for _, u := range o.Upvalues {
			mark(u)
		}
	case *Upvalue:
		mark(*o.Location)
	case *Class:
		mark(o.Name)
		o.Methods.m.Iter(func(_ string, v Value) (stop bool) {
			mark(v)
			return false
		})
	case *Instance:
		mark(o.Class)
		o.Fields.m.Iter(func(_ string, v Value) (stop bool) {
			mark(v)
			return false
		})
	case *BoundMethod:
		mark(o.Receiver)
		mark(o.Method)
	case *Array:
		for _, v := range o.Elements {
			mark(v)
		}
	case *Native:
		// no outgoing references
	}
	return gray
}

// ShouldCollect reports whether allocation pressure (or the stress-test
// flag) warrants a collection before the next allocation is satisfied.
func (h *Heap) ShouldCollect() bool {
	return h.stressGC || h.bytesAllocated > h.nextGC
}

package machine

import "unsafe"

// ptrOf exposes a *Value's raw address so the open-upvalue list can order
// its nodes by stack position without reaching into the VM's stack array
// directly. This is the one place the VM steps outside safe Go to mirror
// the reference implementation's raw pointer-into-the-stack technique.
func ptrOf(p *Value) unsafe.Pointer { return unsafe.Pointer(p) }

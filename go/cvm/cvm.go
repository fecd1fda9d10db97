// Package cvm is the boundary between Go and the dynamips VM runtime.
//
// The runtime owns every object reached through this package. Go code only
// holds non-owning pointers (*VM, *VTTY) handed out by the runtime, and those
// pointers stay valid only while the runtime has not destroyed the object.
// Nothing here makes a handle safe for concurrent use: each handle must be
// driven from a single goroutine, usually the emulation goroutine of its VM.
//
// Functions that take a handle panic on a nil handle. Every other contract
// violation (a dangling handle, a freed foreign string) is undefined behavior
// inherited from the runtime and is not detected.
package cvm

// #include "vm.h"
import "C"

// VM is a virtual-machine instance owned by the runtime.
type VM C.vm_instance_t

// VTTY is a virtual terminal owned by the runtime.
type VTTY C.vtty_t

func (vm *VM) c() *C.vm_instance_t {
	if vm == nil {
		panic("cvm: nil VM handle")
	}
	return (*C.vm_instance_t)(vm)
}

func (t *VTTY) c() *C.vtty_t {
	if t == nil {
		panic("cvm: nil VTTY handle")
	}
	return (*C.vtty_t)(t)
}

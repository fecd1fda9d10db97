//go:build !dynamips

package cvm

// #include <stdlib.h>
// #include "runtime.h"
import "C"

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// The loopback runtime stands in for dynamips when the module is built
// without the dynamips tag. The functions below play the part of the runtime
// code that creates handles and inspects them; they are not part of the
// dynamips ABI.

// LoopbackVM creates a VM. Log lines go to logFD unless it is negative.
func LoopbackVM(name string, logFD int) (*VM, error) {
	cname := C.CString(name)
	vm, err := C.rt_vm_create(cname, C.int(logFD))
	C.free(unsafe.Pointer(cname))
	if vm == nil {
		if err == nil {
			err = unix.ENOMEM
		}
		return nil, errnoError("rt_vm_create", err)
	}
	return (*VM)(vm), nil
}

// LoopbackDestroyVM destroys vm. Any VTTY attached to it must be destroyed first.
func LoopbackDestroyVM(vm *VM) {
	C.rt_vm_destroy(vm.c())
}

// LoopbackName returns the name the VM was created with.
func LoopbackName(vm *VM) string {
	return (*CStr)(unsafe.Pointer(C.rt_vm_name(vm.c()))).String()
}

// LoopbackIRQ returns the active interrupt lines as a bit mask.
func LoopbackIRQ(vm *VM) uint64 {
	return uint64(C.rt_vm_irq_state(vm.c()))
}

// LoopbackLogCalls returns how many times vm_log_msg reached vm, and the raw
// buffers of the last call, terminating NUL included.
func LoopbackLogCalls(vm *VM) (calls uint, module, msg []byte) {
	h := vm.c()
	calls = uint(C.rt_vm_log_count(h))
	return calls, lastLog(h, 0), lastLog(h, 1)
}

func lastLog(vm *C.vm_instance_t, field C.int) []byte {
	n := C.rt_vm_last_log(vm, field, nil, 0)
	if n == 0 {
		return nil
	}
	buf := make([]byte, int(n))
	C.rt_vm_last_log(vm, field, (*C.char)(unsafe.Pointer(&buf[0])), n)
	return buf
}

// LoopbackVTTY attaches a terminal to vm. Flushed output is written to outFD
// unless it is negative.
func LoopbackVTTY(vm *VM, outFD int) (*VTTY, error) {
	t, err := C.rt_vtty_create(vm.c(), C.int(outFD))
	if t == nil {
		if err == nil {
			err = unix.ENOMEM
		}
		return nil, errnoError("rt_vtty_create", err)
	}
	return (*VTTY)(t), nil
}

// LoopbackDestroyVTTY destroys t.
func LoopbackDestroyVTTY(t *VTTY) {
	C.rt_vtty_destroy(t.c())
}

// LoopbackInput appends p to the terminal input and returns how many bytes fit.
func LoopbackInput(t *VTTY, p []byte) int {
	h := t.c()
	for i, b := range p {
		if C.rt_vtty_store(h, C.uchar(b)) != 0 {
			return i
		}
	}
	return len(p)
}

// LoopbackPending returns the number of output bytes waiting for a flush.
func LoopbackPending(t *VTTY) int {
	return int(C.rt_vtty_pending_output(t.c()))
}

// LoopbackSetErrno sets errno of the calling thread.
func LoopbackSetErrno(code unix.Errno) {
	C.rt_set_errno(C.int(code))
}

// LoopbackRelease gives a string obtained from StrDup back to the runtime,
// which frees it.
func LoopbackRelease(p *CStr) {
	C.rt_release(unsafe.Pointer(p))
}

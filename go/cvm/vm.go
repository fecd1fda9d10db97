package cvm

// #include "vm.h"
import "C"

import (
	"runtime"
	"strings"
	"unsafe"
)

// SetIRQ raises interrupt line irq on the VM.
func (vm *VM) SetIRQ(irq uint) {
	C.vm_set_irq(vm.c(), C.uint(irq))
}

// ClearIRQ lowers interrupt line irq on the VM.
func (vm *VM) ClearIRQ(irq uint) {
	C.vm_clear_irq(vm.c(), C.uint(irq))
}

// Log records msg in the VM log, tagged with module.
//
// Both strings are copied into NUL-terminated Go buffers that stay pinned
// until vm_log_msg returns. The runtime must not keep the pointers.
func (vm *VM) Log(module, msg string) {
	h := vm.c()
	if debug {
		if strings.IndexByte(module, 0) >= 0 || strings.IndexByte(msg, 0) >= 0 {
			panic("cvm: NUL byte inside log string would truncate it")
		}
	}
	m, s := terminate(module), terminate(msg)
	C.vm_log_msg(h, (*C.char)(unsafe.Pointer(&m[0])), (*C.char)(unsafe.Pointer(&s[0])))
	runtime.KeepAlive(m)
	runtime.KeepAlive(s)
}

// terminate returns a fresh copy of s with a trailing NUL byte.
func terminate(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

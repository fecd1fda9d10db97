package cvm

// #include <stdlib.h>
// #include <string.h>
//
// // C.malloc aborts on failure, callers here want NULL back instead.
// static void *vmglue_malloc(size_t n) { return malloc(n); }
import "C"

import (
	"fmt"
	"unicode/utf8"
	"unsafe"
)

// MaxStrLen bounds the scan for the terminating NUL of a foreign string.
const MaxStrLen = 1 << 20

// CStr is the first byte of a NUL-terminated string in foreign memory.
type CStr C.char

// StrDup copies s into the foreign heap with a trailing NUL byte and returns
// the copy, or nil if the allocation failed. The runtime owns the result:
// Go code must not free it and must not assume how long it lives.
func StrDup(s string) *CStr {
	n := len(s)
	p := C.vmglue_malloc(C.size_t(n + 1))
	if p == nil {
		return nil
	}
	if n > 0 {
		C.memcpy(p, unsafe.Pointer(unsafe.StringData(s)), C.size_t(n))
	}
	*(*byte)(unsafe.Add(p, n)) = 0
	return (*CStr)(p)
}

func (p *CStr) len() int {
	if p == nil {
		panic("cvm: nil foreign string")
	}
	n := int(C.strnlen((*C.char)(p), MaxStrLen+1))
	if n > MaxStrLen {
		panic(fmt.Sprintf("cvm: foreign string not terminated within %d bytes", MaxStrLen))
	}
	return n
}

// View borrows the foreign string without copying it. The result is only
// valid while the runtime keeps the buffer alive and unmodified, so it must
// not outlive the call that produced p. View panics on invalid UTF-8.
func (p *CStr) View() string {
	n := p.len()
	s := unsafe.String((*byte)(unsafe.Pointer(p)), n)
	if !utf8.ValidString(s) {
		panic("cvm: foreign string is not valid UTF-8")
	}
	return s
}

// String copies the foreign string into Go memory. It panics on invalid UTF-8.
func (p *CStr) String() string {
	s := C.GoStringN((*C.char)(p), C.int(p.len()))
	if !utf8.ValidString(s) {
		panic("cvm: foreign string is not valid UTF-8")
	}
	return s
}

// Bytes copies the whole foreign buffer, terminating NUL included.
func (p *CStr) Bytes() []byte {
	n := p.len()
	return C.GoBytes(unsafe.Pointer(p), C.int(n+1))
}

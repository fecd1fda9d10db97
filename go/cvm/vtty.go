package cvm

// #include "vm.h"
import "C"

// NoChar is what vtty_get_char returns when no input is buffered. It lies
// outside the byte range so it can never be mistaken for input.
const NoChar = -1

// GetChar pops the next input byte. ok is false when nothing is buffered.
func (t *VTTY) GetChar() (ch byte, ok bool) {
	r := C.vtty_get_char(t.c())
	if r < 0 || r > 0xff {
		return 0, false
	}
	return byte(r), true
}

// IsCharAvail reports whether input is buffered.
func (t *VTTY) IsCharAvail() bool {
	return C.vtty_is_char_avail(t.c()) != 0
}

// PutChar queues ch for output.
func (t *VTTY) PutChar(ch byte) {
	C.vtty_put_char(t.c(), C.char(ch))
}

// Flush delivers queued output.
func (t *VTTY) Flush() {
	C.vtty_flush(t.c())
}

package cvm

// #include <errno.h>
// #include <string.h>
//
// static int vmglue_errno(void) { return errno; }
import "C"

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// strerror returns a static buffer that later calls may overwrite.
var strerrorMu sync.Mutex

// LastError returns errno of the calling OS thread.
//
// It is only meaningful immediately after the failing C call, with the
// goroutine locked to its thread (runtime.LockOSThread) and no other C call
// in between. Prefer the two-value cgo call form where the call site is in Go.
func LastError() unix.Errno {
	return unix.Errno(C.vmglue_errno())
}

// ErrorText describes code using the C library, or "(null)" if it has no
// description for it.
func ErrorText(code unix.Errno) string {
	strerrorMu.Lock()
	defer strerrorMu.Unlock()
	p := C.strerror(C.int(code))
	if p == nil {
		return "(null)"
	}
	return C.GoString(p)
}

// Perror writes the description of the current errno to stderr, prefixed by
// context and ": " unless context is empty.
func Perror(context string) {
	FprintError(os.Stderr, context, LastError())
}

// FprintError writes the description of code to w in perror format.
func FprintError(w io.Writer, context string, code unix.Errno) {
	if context == "" {
		fmt.Fprintln(w, ErrorText(code))
	} else {
		fmt.Fprintf(w, "%s: %s\n", context, ErrorText(code))
	}
}

// Error is an errno reported by a runtime call.
type Error struct {
	Op    string
	Errno unix.Errno
}

func (e *Error) Error() string {
	if e.Op == "" {
		return ErrorText(e.Errno)
	}
	return e.Op + ": " + ErrorText(e.Errno)
}

func (e *Error) Unwrap() error { return e.Errno }

// Name is the symbolic errno name, such as "ENOMEM".
func (e *Error) Name() string {
	if name := unix.ErrnoName(e.Errno); name != "" {
		return name
	}
	return fmt.Sprintf("errno %d", int(e.Errno))
}

// errnoError converts the non-nil error of a two-value cgo call into an *Error.
func errnoError(op string, err error) error {
	var code unix.Errno
	if errors.As(err, &code) {
		return &Error{Op: op, Errno: code}
	}
	return errors.Wrap(err, op)
}

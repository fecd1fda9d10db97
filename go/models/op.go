package models

import "io"

// Op is one record of a boundary trace.
type Op interface {
	Sizeof() int
	Pack(p []byte)
	Unpack(r io.Reader) (int, error)
}

package trace

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/dynamips/vmglue/go/models"
)

var order = binary.LittleEndian

const (
	OP_NOP     = 0
	OP_IRQ     = 1
	OP_PUTCHAR = 2
	OP_GETCHAR = 3
	OP_FLUSH   = 4
	OP_LOG     = 5
	OP_POOL    = 6
	OP_ERRNO   = 7
	OP_STRDUP  = 8
)

// pool actions for OpPool
const (
	POOL_INIT = 0
	POOL_ADD  = 1
	POOL_FREE = 2
)

func Unpack(r io.Reader) (models.Op, int, error) {
	var tmp [1]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return nil, 0, err
	}
	var op models.Op
	switch tmp[0] {
	case OP_NOP:
		op = &OpNop{}
	case OP_IRQ:
		op = &OpIRQ{}
	case OP_PUTCHAR:
		op = &OpPutChar{}
	case OP_GETCHAR:
		op = &OpGetChar{}
	case OP_FLUSH:
		op = &OpFlush{}
	case OP_LOG:
		op = &OpLog{}
	case OP_POOL:
		op = &OpPool{}
	case OP_ERRNO:
		op = &OpErrno{}
	case OP_STRDUP:
		op = &OpStrDup{}
	default:
		return nil, 0, errors.Errorf("Unknown op: %d", tmp[0])
	}
	n, err := op.Unpack(r)
	return op, n + 1, err
}

// Pack serializes a single op.
func Pack(w io.Writer, op models.Op) error {
	buf := make([]byte, op.Sizeof())
	op.Pack(buf)
	_, err := w.Write(buf)
	return err
}

// packString writes a uint16 length prefix followed by s. Strings longer
// than 64KiB are truncated.
func packString(p []byte, s string) int {
	if len(s) > 0xffff {
		s = s[:0xffff]
	}
	order.PutUint16(p, uint16(len(s)))
	copy(p[2:], s)
	return 2 + len(s)
}

func sizeofString(s string) int {
	if len(s) > 0xffff {
		return 2 + 0xffff
	}
	return 2 + len(s)
}

func unpackString(r io.Reader) (string, int, error) {
	var tmp [2]byte
	total, err := io.ReadFull(r, tmp[:])
	if err != nil {
		return "", total, err
	}
	buf := make([]byte, order.Uint16(tmp[:]))
	n, err := io.ReadFull(r, buf)
	return string(buf), total + n, err
}

type OpNop struct{}

func (o *OpNop) Sizeof() int   { return 1 }
func (o *OpNop) Pack(p []byte) { p[0] = OP_NOP }

func (o *OpNop) Unpack(r io.Reader) (int, error) { return 0, nil }

type OpFlush struct{ OpNop }

func (o *OpFlush) Pack(p []byte) { p[0] = OP_FLUSH }

// OpIRQ is a vm_set_irq (Set) or vm_clear_irq call.
type OpIRQ struct {
	Line uint32
	Set  bool
}

func (o *OpIRQ) Sizeof() int { return 1 + 4 + 1 }
func (o *OpIRQ) Pack(p []byte) {
	p[0] = OP_IRQ
	order.PutUint32(p[1:], o.Line)
	p[5] = 0
	if o.Set {
		p[5] = 1
	}
}

func (o *OpIRQ) Unpack(r io.Reader) (int, error) {
	var tmp [4 + 1]byte
	n, err := io.ReadFull(r, tmp[:])
	if err == nil {
		o.Line = order.Uint32(tmp[:])
		o.Set = tmp[4] != 0
	}
	return n, err
}

type OpPutChar struct {
	Ch byte
}

func (o *OpPutChar) Sizeof() int { return 2 }
func (o *OpPutChar) Pack(p []byte) {
	p[0] = OP_PUTCHAR
	p[1] = o.Ch
}

func (o *OpPutChar) Unpack(r io.Reader) (int, error) {
	var tmp [1]byte
	n, err := io.ReadFull(r, tmp[:])
	o.Ch = tmp[0]
	return n, err
}

// OpGetChar is a vtty_get_char call. Ok is false when no input was buffered.
type OpGetChar struct {
	Ch byte
	Ok bool
}

func (o *OpGetChar) Sizeof() int { return 3 }
func (o *OpGetChar) Pack(p []byte) {
	p[0] = OP_GETCHAR
	p[1] = o.Ch
	p[2] = 0
	if o.Ok {
		p[2] = 1
	}
}

func (o *OpGetChar) Unpack(r io.Reader) (int, error) {
	var tmp [2]byte
	n, err := io.ReadFull(r, tmp[:])
	if err == nil {
		o.Ch = tmp[0]
		o.Ok = tmp[1] != 0
	}
	return n, err
}

type OpLog struct {
	Module string
	Msg    string
}

func (o *OpLog) Sizeof() int {
	return 1 + sizeofString(o.Module) + sizeofString(o.Msg)
}
func (o *OpLog) Pack(p []byte) {
	p[0] = OP_LOG
	n := packString(p[1:], o.Module)
	packString(p[1+n:], o.Msg)
}

func (o *OpLog) Unpack(r io.Reader) (int, error) {
	var n, m int
	var err error
	o.Module, n, err = unpackString(r)
	if err == nil {
		o.Msg, m, err = unpackString(r)
	}
	return n + m, errors.Wrap(err, "log unpack")
}

type OpPool struct {
	Action uint8
	FD     int32
}

func (o *OpPool) Sizeof() int { return 1 + 1 + 4 }
func (o *OpPool) Pack(p []byte) {
	p[0] = OP_POOL
	p[1] = o.Action
	order.PutUint32(p[2:], uint32(o.FD))
}

func (o *OpPool) Unpack(r io.Reader) (int, error) {
	var tmp [1 + 4]byte
	n, err := io.ReadFull(r, tmp[:])
	if err == nil {
		o.Action = tmp[0]
		o.FD = int32(order.Uint32(tmp[1:]))
	}
	return n, err
}

// OpErrno records a failed runtime call and the errno it left behind.
type OpErrno struct {
	Code uint32
	Op   string
}

func (o *OpErrno) Sizeof() int { return 1 + 4 + sizeofString(o.Op) }
func (o *OpErrno) Pack(p []byte) {
	p[0] = OP_ERRNO
	order.PutUint32(p[1:], o.Code)
	packString(p[5:], o.Op)
}

func (o *OpErrno) Unpack(r io.Reader) (int, error) {
	var tmp [4]byte
	total, err := io.ReadFull(r, tmp[:])
	if err != nil {
		return total, err
	}
	o.Code = order.Uint32(tmp[:])
	var n int
	o.Op, n, err = unpackString(r)
	return total + n, errors.Wrap(err, "errno unpack")
}

// OpStrDup records a string handed over to the foreign heap. Failed is set
// when the allocation returned NULL.
type OpStrDup struct {
	Text   string
	Failed bool
}

func (o *OpStrDup) Sizeof() int { return 1 + 1 + sizeofString(o.Text) }
func (o *OpStrDup) Pack(p []byte) {
	p[0] = OP_STRDUP
	p[1] = 0
	if o.Failed {
		p[1] = 1
	}
	packString(p[2:], o.Text)
}

func (o *OpStrDup) Unpack(r io.Reader) (int, error) {
	var tmp [1]byte
	total, err := io.ReadFull(r, tmp[:])
	if err != nil {
		return total, err
	}
	o.Failed = tmp[0] != 0
	var n int
	o.Text, n, err = unpackString(r)
	return total + n, errors.Wrap(err, "strdup unpack")
}

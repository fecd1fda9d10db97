package trace

import (
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/dynamips/vmglue/go/models"
)

var TRACE_MAGIC = "VMGT"

const TRACE_VERSION = 1

type TraceHeader struct {
	// MAGIC ("VMGT")
	Magic string `struc:"[4]byte"`
	// file format version
	Version uint32

	// Runtime on the other side of the boundary, "loopback" or "dynamips". Right-null-padded.
	Runtime string `struc:"[32]byte"`

	// Name of the traced VM instance. Right-null-padded.
	VM string `struc:"[32]byte"`
}

type TraceWriter struct {
	sync.Mutex
	w  io.WriteCloser
	zw *snappy.Writer
}

func NewWriter(w io.WriteCloser, runtime, vm string) (*TraceWriter, error) {
	header := &TraceHeader{
		Magic:   TRACE_MAGIC,
		Version: TRACE_VERSION,
		Runtime: runtime,
		VM:      vm,
	}
	if err := struc.Pack(w, header); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	zw := snappy.NewBufferedWriter(w)
	return &TraceWriter{w: w, zw: zw}, nil
}

// Pack appends one op to the trace.
func (t *TraceWriter) Pack(op models.Op) error {
	t.Lock()
	defer t.Unlock()
	return Pack(t.zw, op)
}

func (t *TraceWriter) Close() error {
	t.Lock()
	defer t.Unlock()
	if err := t.zw.Close(); err != nil {
		t.w.Close()
		return errors.Wrap(err, "failed to flush trace")
	}
	return t.w.Close()
}

type TraceReader struct {
	r      io.ReadCloser
	zr     *snappy.Reader
	Header TraceHeader
}

func NewReader(r io.ReadCloser) (*TraceReader, error) {
	t := &TraceReader{r: r}
	if err := struc.Unpack(r, &t.Header); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if t.Header.Magic != TRACE_MAGIC {
		return nil, errors.New("invalid trace file magic")
	}
	if t.Header.Version != TRACE_VERSION {
		return nil, errors.Errorf("unsupported trace version %d", t.Header.Version)
	}
	t.Header.Runtime = strings.TrimRight(t.Header.Runtime, "\x00")
	t.Header.VM = strings.TrimRight(t.Header.VM, "\x00")
	t.zr = snappy.NewReader(r)
	return t, nil
}

// Next returns the next op, or io.EOF at the end of the trace.
func (t *TraceReader) Next() (models.Op, error) {
	op, _, err := Unpack(t.zr)
	return op, err
}

func (t *TraceReader) Close() error {
	t.zr.Reset(nil)
	return t.r.Close()
}

package trace

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dynamips/vmglue/go/models"
)

var allOps = []models.Op{
	&OpNop{},
	&OpIRQ{Line: 3, Set: true},
	&OpIRQ{Line: 3, Set: false},
	&OpPutChar{'R'},
	&OpGetChar{Ch: 0xff, Ok: true},
	&OpGetChar{},
	&OpFlush{},
	&OpLog{Module: "devA", Msg: "hello"},
	&OpLog{},
	&OpPool{Action: POOL_ADD, FD: 7},
	&OpPool{Action: POOL_FREE, FD: -1},
	&OpErrno{Code: 12, Op: "fd_pool_get_free_fd"},
	&OpStrDup{Text: "vtty0"},
	&OpStrDup{Failed: true},
}

func TestOps(t *testing.T) {
	var buf bytes.Buffer
	for _, op := range allOps {
		require.NoError(t, Pack(&buf, op))
	}
	r := bytes.NewReader(buf.Bytes())
	for _, want := range allOps {
		op, n, err := Unpack(r)
		require.NoError(t, err)
		require.Equal(t, want.Sizeof(), n)
		require.Equal(t, want, op)
	}
	_, _, err := Unpack(r)
	require.Equal(t, io.EOF, err)
}

func TestUnknownOp(t *testing.T) {
	_, _, err := Unpack(bytes.NewReader([]byte{0x7f}))
	require.Error(t, err)
}

func TestTruncatedLog(t *testing.T) {
	op := &OpLog{Module: "devA", Msg: "hello"}
	buf := make([]byte, op.Sizeof())
	op.Pack(buf)
	_, _, err := Unpack(bytes.NewReader(buf[:len(buf)-2]))
	require.Error(t, err)
}

func TestLongString(t *testing.T) {
	op := &OpLog{Module: "m", Msg: strings.Repeat("x", 70000)}
	buf := make([]byte, op.Sizeof())
	op.Pack(buf)
	out, _, err := Unpack(bytes.NewReader(buf))
	require.NoError(t, err)
	require.Len(t, out.(*OpLog).Msg, 0xffff)
}

type closeBuffer struct {
	bytes.Buffer
	closed bool
}

func (c *closeBuffer) Close() error {
	c.closed = true
	return nil
}

func TestTraceFile(t *testing.T) {
	var file closeBuffer
	w, err := NewWriter(&file, "loopback", "R1")
	require.NoError(t, err)
	for _, op := range allOps {
		require.NoError(t, w.Pack(op))
	}
	require.NoError(t, w.Close())
	require.True(t, file.closed)

	r, err := NewReader(io.NopCloser(bytes.NewReader(file.Bytes())))
	require.NoError(t, err)
	require.Equal(t, "loopback", r.Header.Runtime)
	require.Equal(t, "R1", r.Header.VM)
	for _, want := range allOps {
		op, err := r.Next()
		require.NoError(t, err)
		require.Equal(t, want, op)
	}
	_, err = r.Next()
	require.Equal(t, io.EOF, err)
	require.NoError(t, r.Close())
}

func TestBadMagic(t *testing.T) {
	buf := bytes.Repeat([]byte{0}, 72)
	_, err := NewReader(io.NopCloser(bytes.NewReader(buf)))
	require.Error(t, err)
}

func BenchmarkPack(b *testing.B) {
	var buf bytes.Buffer
	for i := 0; i < b.N; i++ {
		buf.Reset()
		for _, op := range allOps {
			Pack(&buf, op)
		}
	}
}

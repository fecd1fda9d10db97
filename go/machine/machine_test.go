//go:build !dynamips

package machine

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sys/unix"

	"github.com/dynamips/vmglue/go/cvm"
	"github.com/dynamips/vmglue/go/models"
	"github.com/dynamips/vmglue/go/models/trace"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

type fixture struct {
	m    *Machine
	logs *observer.ObservedLogs
	file *bytes.Buffer
	tw   *trace.TraceWriter
}

func newFixture(t *testing.T) *fixture {
	vm, err := cvm.LoopbackVM("R1", -1)
	require.NoError(t, err)
	t.Cleanup(func() { cvm.LoopbackDestroyVM(vm) })

	core, logs := observer.New(zapcore.DebugLevel)
	file := &bytes.Buffer{}
	tw, err := trace.NewWriter(nopCloser{file}, "loopback", "R1")
	require.NoError(t, err)

	return &fixture{
		m:    New(vm, "R1", zap.New(core), tw),
		logs: logs,
		file: file,
		tw:   tw,
	}
}

func (f *fixture) ops(t *testing.T) []models.Op {
	require.NoError(t, f.tw.Close())
	r, err := trace.NewReader(io.NopCloser(bytes.NewReader(f.file.Bytes())))
	require.NoError(t, err)
	var ops []models.Op
	for {
		op, err := r.Next()
		if err == io.EOF {
			return ops
		}
		require.NoError(t, err)
		ops = append(ops, op)
	}
}

func TestIRQ(t *testing.T) {
	f := newFixture(t)
	f.m.SetIRQ(4)
	require.Equal(t, uint64(1<<4), cvm.LoopbackIRQ(f.m.VM()))
	f.m.ClearIRQ(4)
	require.Zero(t, cvm.LoopbackIRQ(f.m.VM()))

	require.Equal(t, 1, f.logs.FilterMessage("vm_set_irq").Len())
	require.Equal(t, 1, f.logs.FilterMessage("vm_clear_irq").Len())
	require.Equal(t, []models.Op{
		&trace.OpIRQ{Line: 4, Set: true},
		&trace.OpIRQ{Line: 4, Set: false},
	}, f.ops(t))
}

func TestLog(t *testing.T) {
	f := newFixture(t)
	f.m.Logf("devA", "port %d up", 1)

	calls, module, msg := cvm.LoopbackLogCalls(f.m.VM())
	require.Equal(t, uint(1), calls)
	require.Equal(t, "devA\x00", string(module))
	require.Equal(t, "port 1 up\x00", string(msg))

	entries := f.logs.FilterMessage("vm_log_msg").All()
	require.Len(t, entries, 1)
	require.Equal(t, "R1", entries[0].ContextMap()["vm"])
	require.Equal(t, []models.Op{&trace.OpLog{Module: "devA", Msg: "port 1 up"}}, f.ops(t))
}

func TestStrDup(t *testing.T) {
	f := newFixture(t)
	p, err := f.m.StrDup("vtty0")
	require.NoError(t, err)
	require.Equal(t, "vtty0", p.View())
	cvm.LoopbackRelease(p)
	require.Equal(t, []models.Op{&trace.OpStrDup{Text: "vtty0"}}, f.ops(t))
}

func TestFail(t *testing.T) {
	f := newFixture(t)
	f.m.fail(&cvm.Error{Op: "rt_vtty_create", Errno: unix.ENOMEM})
	entries := f.logs.FilterMessage("runtime call failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "ENOMEM", entries[0].ContextMap()["errno"])
	require.Equal(t, []models.Op{&trace.OpErrno{Code: uint32(unix.ENOMEM), Op: "rt_vtty_create"}}, f.ops(t))
}

func TestTerminal(t *testing.T) {
	f := newFixture(t)
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	tty, err := cvm.LoopbackVTTY(f.m.VM(), int(w.Fd()))
	require.NoError(t, err)
	defer cvm.LoopbackDestroyVTTY(tty)
	term := f.m.Terminal(tty)

	require.False(t, term.Avail())
	_, ok := term.GetChar()
	require.False(t, ok)

	cvm.LoopbackInput(tty, []byte("hi"))
	require.Equal(t, 2, term.Echo())
	require.Zero(t, term.Echo())

	n, err := term.Write([]byte("!\n"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	buf := make([]byte, 4)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	require.Equal(t, "hi!\n", string(buf))

	require.Equal(t, []models.Op{
		&trace.OpGetChar{},
		&trace.OpGetChar{Ch: 'h', Ok: true},
		&trace.OpGetChar{Ch: 'i', Ok: true},
		&trace.OpPutChar{Ch: 'h'},
		&trace.OpPutChar{Ch: 'i'},
		&trace.OpFlush{},
		&trace.OpPutChar{Ch: '!'},
		&trace.OpPutChar{Ch: '\n'},
		&trace.OpFlush{},
	}, f.ops(t))
}

func TestPool(t *testing.T) {
	f := newFixture(t)
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))

	pool := f.m.NewPool()
	require.NoError(t, pool.Add(fds[0]))
	require.NoError(t, pool.Add(fds[1]))
	require.NoError(t, pool.Close())
	require.Error(t, pool.Close())
	require.Error(t, pool.Add(0))

	// the pool closed both ends
	require.Equal(t, unix.EBADF, unix.Close(fds[0]))

	require.Equal(t, []models.Op{
		&trace.OpPool{Action: trace.POOL_INIT, FD: -1},
		&trace.OpPool{Action: trace.POOL_ADD, FD: int32(fds[0])},
		&trace.OpPool{Action: trace.POOL_ADD, FD: int32(fds[1])},
		&trace.OpPool{Action: trace.POOL_FREE, FD: -1},
	}, f.ops(t))
}

func TestNilHandle(t *testing.T) {
	require.Panics(t, func() { New(nil, "R1", nil, nil) })
}

func TestStrDupFailure(t *testing.T) {
	f := newFixture(t)
	strdup = func(string) *cvm.CStr { return nil }
	defer func() { strdup = cvm.StrDup }()

	p, err := f.m.StrDup("vtty0")
	require.Nil(t, p)
	var cerr *cvm.Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, unix.ENOMEM, cerr.Errno)

	entries := f.logs.FilterMessage("runtime call failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "strdup", entries[0].ContextMap()["op"])
	require.Equal(t, []models.Op{
		&trace.OpStrDup{Text: "vtty0", Failed: true},
		&trace.OpErrno{Code: uint32(unix.ENOMEM), Op: "strdup"},
	}, f.ops(t))
}

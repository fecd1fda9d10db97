package trace

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dynamips/vmglue/go/models/trace"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func testTrace(t *testing.T) *trace.TraceReader {
	var buf bytes.Buffer
	tw, err := trace.NewWriter(nopCloser{&buf}, "loopback", "R1")
	require.NoError(t, err)
	require.NoError(t, tw.Pack(&trace.OpIRQ{Line: 2, Set: true}))
	require.NoError(t, tw.Pack(&trace.OpLog{Module: "devA", Msg: "hello"}))
	require.NoError(t, tw.Pack(&trace.OpGetChar{}))
	require.NoError(t, tw.Close())
	tf, err := trace.NewReader(io.NopCloser(&buf))
	require.NoError(t, err)
	return tf
}

func TestPrintPretty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, PrintPretty(&out, testTrace(t)))
	require.Equal(t, strings.Join([]string{
		"# loopback runtime, vm R1",
		"     0  vm_set_irq(2)",
		`     1  vm_log_msg("devA", "hello")`,
		"     2  vtty_get_char() = none",
		"",
	}, "\n"), out.String())
}

func TestPrintJson(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, PrintJson(&out, testTrace(t)))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], `"Runtime":"loopback"`)
	require.Equal(t, `{"args":{"Line":2,"Set":true},"op":"IRQ"}`, lines[1])
}

func TestDescribe(t *testing.T) {
	require.Equal(t, "vm_clear_irq(9)", Describe(&trace.OpIRQ{Line: 9}))
	require.Equal(t, "vtty_put_char('A')", Describe(&trace.OpPutChar{Ch: 'A'}))
	require.Equal(t, "fd_pool_get_free_fd() <- 4", Describe(&trace.OpPool{Action: trace.POOL_ADD, FD: 4}))
	require.Equal(t, `strdup("x") = NULL`, Describe(&trace.OpStrDup{Text: "x", Failed: true}))
	require.Equal(t, "strdup failed: errno 12", Describe(&trace.OpErrno{Code: 12, Op: "strdup"}))
}

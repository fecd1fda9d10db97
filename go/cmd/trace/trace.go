package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/dynamips/vmglue/go/cmd"
	"github.com/dynamips/vmglue/go/models"
	"github.com/dynamips/vmglue/go/models/trace"
)

func PrintJson(w io.Writer, tf *trace.TraceReader) error {
	out, err := json.Marshal(&tf.Header)
	if err != nil {
		return errors.Wrap(err, "error printing header")
	}
	fmt.Fprintf(w, "%s\n", out)
	for {
		op, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace operation")
		}
		out, _ := json.Marshal(map[string]interface{}{
			"op":   strings.TrimPrefix(fmt.Sprintf("%T", op), "*trace.Op"),
			"args": op,
		})
		fmt.Fprintf(w, "%s\n", out)
	}
	return nil
}

func Describe(op models.Op) string {
	switch o := op.(type) {
	case *trace.OpNop:
		return "nop"
	case *trace.OpIRQ:
		if o.Set {
			return fmt.Sprintf("vm_set_irq(%d)", o.Line)
		}
		return fmt.Sprintf("vm_clear_irq(%d)", o.Line)
	case *trace.OpPutChar:
		return fmt.Sprintf("vtty_put_char(%s)", strconv.QuoteRune(rune(o.Ch)))
	case *trace.OpGetChar:
		if !o.Ok {
			return "vtty_get_char() = none"
		}
		return fmt.Sprintf("vtty_get_char() = %s", strconv.QuoteRune(rune(o.Ch)))
	case *trace.OpFlush:
		return "vtty_flush()"
	case *trace.OpLog:
		return fmt.Sprintf("vm_log_msg(%q, %q)", o.Module, o.Msg)
	case *trace.OpPool:
		switch o.Action {
		case trace.POOL_INIT:
			return "fd_pool_init()"
		case trace.POOL_ADD:
			return fmt.Sprintf("fd_pool_get_free_fd() <- %d", o.FD)
		case trace.POOL_FREE:
			return "fd_pool_free()"
		}
		return fmt.Sprintf("fd pool action %d", o.Action)
	case *trace.OpErrno:
		return fmt.Sprintf("%s failed: errno %d", o.Op, o.Code)
	case *trace.OpStrDup:
		if o.Failed {
			return fmt.Sprintf("strdup(%q) = NULL", o.Text)
		}
		return fmt.Sprintf("strdup(%q)", o.Text)
	}
	return fmt.Sprintf("%T", op)
}

func PrintPretty(w io.Writer, tf *trace.TraceReader) error {
	fmt.Fprintf(w, "# %s runtime, vm %s\n", tf.Header.Runtime, tf.Header.VM)
	for i := 0; ; i++ {
		op, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace operation")
		}
		fmt.Fprintf(w, "%6d  %s\n", i, Describe(op))
	}
	return nil
}

func Command() *cli.Command {
	return &cli.Command{
		Name:      "trace",
		Usage:     "dump a boundary trace file",
		ArgsUsage: "<tracefile>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print one JSON object per op"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: vmglue trace [-json] <tracefile>", 1)
			}
			f, err := os.Open(c.Args().First())
			if err != nil {
				return errors.Wrap(err, "error opening trace file")
			}
			tf, err := trace.NewReader(f)
			if err != nil {
				f.Close()
				return errors.Wrap(err, "error reading trace file")
			}
			defer tf.Close()
			if c.Bool("json") {
				return PrintJson(c.App.Writer, tf)
			}
			return PrintPretty(c.App.Writer, tf)
		},
	}
}

func init() { cmd.Register(Command()) }

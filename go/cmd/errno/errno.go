package errno

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"

	"github.com/dynamips/vmglue/go/cmd"
	"github.com/dynamips/vmglue/go/cvm"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:      "errno",
		Usage:     "describe an errno value the way perror does",
		ArgsUsage: "<code> [context...]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("usage: vmglue errno <code> [context...]", 1)
			}
			code, err := strconv.ParseUint(c.Args().First(), 0, 32)
			if err != nil {
				return errors.Wrap(err, "bad errno")
			}
			cvm.FprintError(c.App.Writer, strings.Join(c.Args().Tail(), " "), unix.Errno(code))
			return nil
		},
	}
}

func init() { cmd.Register(Command()) }

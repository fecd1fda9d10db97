//go:build !dynamips

package irq

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/dynamips/vmglue/go/cmd"
	"github.com/dynamips/vmglue/go/machine"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:      "irq",
		Usage:     "raise interrupt lines on a loopback VM and show the line state",
		ArgsUsage: "<line>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "pulse", Usage: "clear each line right after raising it"},
		},
		Action: run,
	}
}

func parseLines(args []string) ([]uint, error) {
	lines := make([]uint, 0, len(args))
	for _, arg := range args {
		n, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "bad irq line %q", arg)
		}
		lines = append(lines, uint(n))
	}
	return lines, nil
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: vmglue irq [-pulse] <line>...", 1)
	}
	lines, err := parseLines(c.Args().Slice())
	if err != nil {
		return err
	}
	env, err := cmd.Setup(c, "loopback")
	if err != nil {
		return err
	}
	defer env.Close()

	s, err := machine.NewSession(env.Config.Name, env.Log, env.Trace)
	if err != nil {
		return err
	}
	waitLog := s.ForwardLog(env.Log)
	defer func() {
		s.Close()
		waitLog()
		s.LogOutput().Close()
		s.Output().Close()
	}()

	for _, line := range lines {
		s.SetIRQ(line)
		fmt.Fprintf(c.App.Writer, "set %d: %#016x\n", line, s.IRQ())
		if c.Bool("pulse") {
			s.ClearIRQ(line)
			fmt.Fprintf(c.App.Writer, "clear %d: %#016x\n", line, s.IRQ())
		}
	}
	return nil
}

func init() { cmd.Register(Command()) }

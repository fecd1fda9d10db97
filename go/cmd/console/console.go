//go:build !dynamips

package console

import (
	"runtime"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dynamips/vmglue/go/cmd"
	"github.com/dynamips/vmglue/go/console"
	"github.com/dynamips/vmglue/go/machine"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:  "console",
		Usage: "attach this terminal to a loopback VM terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prompt", Value: "> ", Usage: "console `prompt`"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	// the VM belongs to this thread for the whole session
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	env, err := cmd.Setup(c, "loopback")
	if err != nil {
		return err
	}
	defer env.Close()
	env.Config.Prompt = c.String("prompt")

	s, err := machine.NewSession(env.Config.Name, env.Log, env.Trace)
	if err != nil {
		return err
	}
	con, err := console.New(s, env.Config)
	if err != nil {
		s.Close()
		s.Output().Close()
		s.LogOutput().Close()
		return err
	}
	s.Log("console", "attached")
	env.Log.Info("console attached", zap.String("vm", env.Config.Name))
	err = con.Run()
	if cerr := con.Close(); err == nil {
		err = cerr
	}
	return err
}

func init() { cmd.Register(Command()) }

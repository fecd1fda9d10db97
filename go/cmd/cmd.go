package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dynamips/vmglue/go/models"
	"github.com/dynamips/vmglue/go/models/trace"
)

var commands []*cli.Command

// Register adds a subcommand. Subcommand packages call it from init.
func Register(c *cli.Command) {
	commands = append(commands, c)
}

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "loglvl",
		Usage:   "set logging `level` to debug, info, warn or error",
		Value:   "info",
		EnvVars: []string{"VMGLUE_LOGLVL"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "debug logging with stack traces",
		EnvVars: []string{"VMGLUE_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:    "color",
		Usage:   "colorize output on terminals",
		Value:   true,
		EnvVars: []string{"VMGLUE_COLOR"},
	},
	&cli.PathFlag{
		Name:        "trace",
		Aliases:     []string{"to"},
		Usage:       "record boundary calls to `file`",
		DefaultText: "disabled",
		EnvVars:     []string{"VMGLUE_TRACE"},
	},
	&cli.StringFlag{
		Name:    "name",
		Usage:   "VM instance `name`",
		Value:   "R1",
		EnvVars: []string{"VMGLUE_NAME"},
	},
}

// Config builds the configuration from the global flags.
func Config(c *cli.Context) *models.Config {
	config := models.NewConfig()
	config.LogLevel = c.String("loglvl")
	config.Verbose = c.Bool("verbose")
	config.Color = c.Bool("color")
	config.TraceFile = c.Path("trace")
	config.Name = c.String("name")
	return config
}

// Env is what a subcommand needs to drive a VM.
type Env struct {
	Config *models.Config
	Log    *zap.Logger
	Trace  *trace.TraceWriter
}

// Setup builds the logger and opens the trace file if one was requested.
func Setup(c *cli.Context, runtime string) (*Env, error) {
	config := Config(c)
	log, err := config.Logger()
	if err != nil {
		return nil, errors.Wrap(err, "logger")
	}
	env := &Env{Config: config, Log: log}
	if config.TraceFile != "" {
		f, err := os.Create(config.TraceFile)
		if err != nil {
			return nil, errors.Wrap(err, "trace file")
		}
		if env.Trace, err = trace.NewWriter(f, runtime, config.Name); err != nil {
			f.Close()
			return nil, err
		}
	}
	return env, nil
}

// Close flushes the trace and the logger.
func (e *Env) Close() error {
	var err error
	if e.Trace != nil {
		err = e.Trace.Close()
	}
	e.Log.Sync()
	return err
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// PrintError writes err to stderr, followed by its stack trace when err
// carries one from pkg/errors.
func PrintError(err error) {
	// print an error, and a stacktrace if available
	fmt.Fprintf(os.Stderr, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if err, ok := err.(stackTracer); ok {
		// parse full path and method name for each stack frame
		var frames [][]string
		for _, f := range err.StackTrace() {
			fullpath := ""
			fileline := fmt.Sprintf("%s:%d", f, f)
			method := fmt.Sprintf("%n", f)

			frame := fmt.Sprintf("%+s", f)
			tmp := strings.SplitN(frame, "\n", 3)
			if len(tmp) == 2 {
				pathsplit := strings.Split(tmp[0], "/")
				method = pathsplit[len(pathsplit)-1]
				fullpath = strings.TrimSpace(tmp[1])
			}
			frames = append(frames, []string{fullpath, fileline, method})
			if method == "main.main" {
				break
			}
		}
		// calculate column widths
		widths := make([]int, 3)
		for _, f := range frames {
			for i, s := range f {
				if len(s) > widths[i] {
					widths[i] = len(s)
				}
			}
		}
		// print pretty stacktrace
		for _, f := range frames {
			method := f[2]
			for i := 0; i < 2; i++ {
				if widths[i] > 0 {
					pad := strings.Repeat(" ", widths[i]-len(f[i]))
					fmt.Fprintf(os.Stderr, "%s%s | ", f[i], pad)
				}
			}
			fmt.Fprintf(os.Stderr, "%s()\n", method)
		}
	}
}

func NewApp() *cli.App {
	return &cli.App{
		Name:     "vmglue",
		Usage:    "drive the dynamips VM runtime boundary",
		Flags:    flags,
		Commands: commands,
		// errors are printed by Main with their stack trace
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func Main() {
	if err := NewApp().Run(os.Args); err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			if msg := exit.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(exit.ExitCode())
		}
		PrintError(err)
		os.Exit(1)
	}
}

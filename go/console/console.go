//go:build !dynamips

// Package console attaches the host terminal to a loopback session: typed
// lines go to the VM terminal input, terminal output and VM log lines come
// back to the host.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/lunixbochs/vtclean"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"golang.org/x/sys/unix"

	"github.com/dynamips/vmglue/go/cvm"
	"github.com/dynamips/vmglue/go/machine"
	"github.com/dynamips/vmglue/go/models"
)

var (
	colorName   = ansi.ColorFunc("cyan+b")
	colorModule = ansi.ColorFunc("yellow")
)

type Console struct {
	s   *machine.Session
	rl  *readline.Instance
	out io.Writer

	// tty is set when out is a terminal: escape sequences pass through
	tty   bool
	color bool

	wg sync.WaitGroup
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func historyPath() string {
	configDirs := configdir.New("vmglue", "console")
	cacheDir := configDirs.QueryCacheFolder()
	if err := cacheDir.MkdirAll(); err != nil {
		return ""
	}
	return filepath.Join(cacheDir.Path, "history")
}

// New takes ownership of s and starts copying its output to stdout.
func New(s *machine.Session, config *models.Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          config.Prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryFile:     historyPath(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "readline")
	}
	tty := isTerminal(os.Stdout)
	c := newConsole(s, rl.Stdout(), tty, config.Color && tty)
	c.rl = rl
	return c, nil
}

// lockedWriter serializes the output pumps and command replies.
type lockedWriter struct {
	sync.Mutex
	w io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.Lock()
	defer l.Unlock()
	return l.w.Write(p)
}

func newConsole(s *machine.Session, out io.Writer, tty, color bool) *Console {
	c := &Console{s: s, out: &lockedWriter{w: out}, tty: tty, color: color}
	c.wg.Add(2)
	go c.pump(s.Output(), c.formatOutput)
	go c.pump(s.LogOutput(), c.formatLog)
	return c
}

// pump copies r to the console line by line until r hits EOF.
func (c *Console) pump(r io.ReadCloser, format func(string) string) {
	defer c.wg.Done()
	defer r.Close()
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			fmt.Fprint(c.out, format(line))
		}
		if err != nil {
			return
		}
	}
}

func (c *Console) formatOutput(line string) string {
	if c.tty {
		return line
	}
	// keep the trailing newline, Clean drops it
	nl := strings.HasSuffix(line, "\n")
	line = vtclean.Clean(strings.TrimSuffix(line, "\n"), false)
	if nl {
		line += "\n"
	}
	return line
}

// formatLog highlights the "vm: module: " prefix of a VM log line.
func (c *Console) formatLog(line string) string {
	if !c.color {
		return line
	}
	parts := strings.SplitN(line, ": ", 3)
	if len(parts) != 3 {
		return line
	}
	return colorName(parts[0]) + ": " + colorModule(parts[1]) + ": " + parts[2]
}

// Feed handles one line of user input. Lines starting with ':' are console
// commands, anything else is typed into the VM terminal. It returns true
// when the user asked to quit.
func (c *Console) Feed(line string) (bool, error) {
	if strings.HasPrefix(line, ":") {
		return c.command(strings.Fields(line[1:]))
	}
	data := []byte(line + "\n")
	n := c.s.Input(data)
	c.s.Term.Echo()
	if n < len(data) {
		return false, errors.Errorf("terminal input full, dropped %d bytes", len(data)-n)
	}
	return false, nil
}

func (c *Console) command(args []string) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}
	switch args[0] {
	case "q", "quit", "exit":
		return true, nil
	case "irq", "clear":
		if len(args) != 2 {
			return false, errors.Errorf("usage: :%s <line>", args[0])
		}
		line, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return false, errors.Wrap(err, "bad irq line")
		}
		if args[0] == "irq" {
			c.s.SetIRQ(uint(line))
		} else {
			c.s.ClearIRQ(uint(line))
		}
		fmt.Fprintf(c.out, "irq state %#x\n", c.s.IRQ())
	case "log":
		if len(args) < 3 {
			return false, errors.New("usage: :log <module> <message>")
		}
		c.s.Log(args[1], strings.Join(args[2:], " "))
	case "errno":
		if len(args) < 2 {
			return false, errors.New("usage: :errno <code> [context]")
		}
		code, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return false, errors.Wrap(err, "bad errno")
		}
		cvm.FprintError(c.out, strings.Join(args[2:], " "), unix.Errno(code))
	default:
		return false, errors.Errorf("unknown command :%s", args[0])
	}
	return false, nil
}

// Run reads lines until EOF, interrupt on an empty line, or :quit.
func (c *Console) Run() error {
	for {
		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		quit, err := c.Feed(line)
		if err != nil {
			fmt.Fprintln(c.out, err)
		}
		if quit {
			return nil
		}
	}
}

// Close closes the session and waits for its remaining output.
func (c *Console) Close() error {
	err := c.s.Close()
	c.wg.Wait()
	if c.rl != nil {
		c.rl.Close()
	}
	return err
}

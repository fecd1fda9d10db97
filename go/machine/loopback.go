//go:build !dynamips

package machine

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dynamips/vmglue/go/cvm"
	"github.com/dynamips/vmglue/go/models/trace"
)

// Session is a VM of the loopback runtime with one terminal. Terminal output
// and VM log lines come out of two pipes.
type Session struct {
	*Machine
	Term *Terminal

	vm   *cvm.VM
	tty  *cvm.VTTY
	outR *os.File
	outW *os.File
	logR *os.File
	logW *os.File
}

// NewSession creates a loopback VM called name with one terminal. Calls are
// logged to log and recorded to tw unless it is nil. The caller owns the
// session and must Close it, then close both output pipes.
func NewSession(name string, log *zap.Logger, tw *trace.TraceWriter) (*Session, error) {
	s := &Session{}
	var err error
	if s.outR, s.outW, err = os.Pipe(); err != nil {
		return nil, errors.Wrap(err, "terminal pipe")
	}
	if s.logR, s.logW, err = os.Pipe(); err != nil {
		s.closePipes()
		return nil, errors.Wrap(err, "log pipe")
	}
	if s.vm, err = cvm.LoopbackVM(name, int(s.logW.Fd())); err != nil {
		s.closePipes()
		return nil, err
	}
	if s.tty, err = cvm.LoopbackVTTY(s.vm, int(s.outW.Fd())); err != nil {
		cvm.LoopbackDestroyVM(s.vm)
		s.closePipes()
		return nil, err
	}
	s.Machine = New(s.vm, name, log, tw)
	s.Term = s.Machine.Terminal(s.tty)
	return s, nil
}

func (s *Session) closePipes() {
	for _, f := range []*os.File{s.outR, s.outW, s.logR, s.logW} {
		if f != nil {
			f.Close()
		}
	}
}

// Output carries flushed terminal output.
func (s *Session) Output() *os.File { return s.outR }

// LogOutput carries VM log lines.
func (s *Session) LogOutput() *os.File { return s.logR }

// Input feeds p to the terminal input and returns how many bytes fit.
func (s *Session) Input(p []byte) int {
	n := cvm.LoopbackInput(s.tty, p)
	if n < len(p) {
		s.log.Warn("terminal input full", zap.Int("dropped", len(p)-n))
	}
	return n
}

// ForwardLog copies VM log lines to the zap logger at debug level until the
// log pipe is closed, so the runtime never blocks on a full pipe. The
// returned function waits for the copy to finish; call it after Close.
func (s *Session) ForwardLog(log *zap.Logger) (wait func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		br := bufio.NewReader(s.logR)
		for {
			line, err := br.ReadString('\n')
			if line != "" {
				log.Debug("vm log", zap.String("line", strings.TrimSuffix(line, "\n")))
			}
			if err != nil {
				return
			}
		}
	}()
	return func() { <-done }
}

// IRQ returns the active interrupt lines as a bit mask.
func (s *Session) IRQ() uint64 {
	return cvm.LoopbackIRQ(s.vm)
}

// Close destroys the terminal and the VM and closes the write side of both
// pipes. Readers then see EOF; closing them is up to the caller.
func (s *Session) Close() error {
	cvm.LoopbackDestroyVTTY(s.tty)
	cvm.LoopbackDestroyVM(s.vm)
	err := s.outW.Close()
	if err2 := s.logW.Close(); err == nil {
		err = err2
	}
	return errors.Wrap(err, "close session")
}

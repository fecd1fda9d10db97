package machine

import (
	"go.uber.org/zap"

	"github.com/dynamips/vmglue/go/cvm"
	"github.com/dynamips/vmglue/go/models/trace"
)

// Terminal is a VTTY of the machine.
type Terminal struct {
	m   *Machine
	tty *cvm.VTTY
}

func (m *Machine) Terminal(tty *cvm.VTTY) *Terminal {
	if tty == nil {
		panic("machine: nil VTTY handle")
	}
	return &Terminal{m: m, tty: tty}
}

func (t *Terminal) VTTY() *cvm.VTTY { return t.tty }

// Avail reports whether input is buffered.
func (t *Terminal) Avail() bool {
	return t.tty.IsCharAvail()
}

// GetChar pops one input byte; ok is false when the terminal has none.
func (t *Terminal) GetChar() (byte, bool) {
	ch, ok := t.tty.GetChar()
	t.m.record(&trace.OpGetChar{Ch: ch, Ok: ok})
	return ch, ok
}

// Drain moves buffered input into p without blocking and returns the byte count.
func (t *Terminal) Drain(p []byte) int {
	n := 0
	for n < len(p) && t.tty.IsCharAvail() {
		ch, ok := t.GetChar()
		if !ok {
			break
		}
		p[n] = ch
		n++
	}
	return n
}

func (t *Terminal) PutChar(ch byte) {
	t.tty.PutChar(ch)
	t.m.record(&trace.OpPutChar{Ch: ch})
}

func (t *Terminal) Flush() {
	t.tty.Flush()
	t.m.record(&trace.OpFlush{})
}

// Write queues p and flushes it. It never fails.
func (t *Terminal) Write(p []byte) (int, error) {
	for _, ch := range p {
		t.PutChar(ch)
	}
	t.Flush()
	t.m.log.Debug("vtty write", zap.Int("bytes", len(p)))
	return len(p), nil
}

// Echo copies all buffered input back to the output, the way a device in
// local echo mode does, and returns the echoed byte count.
func (t *Terminal) Echo() int {
	var buf [256]byte
	total := 0
	for {
		n := t.Drain(buf[:])
		if n == 0 {
			break
		}
		for _, ch := range buf[:n] {
			t.PutChar(ch)
		}
		total += n
	}
	if total > 0 {
		t.Flush()
	}
	return total
}

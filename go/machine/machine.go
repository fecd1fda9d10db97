// Package machine drives a VM through the cvm boundary, logging every call
// with zap and optionally recording it to a boundary trace.
//
// A Machine is not safe for concurrent use, same as the handle it wraps.
package machine

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/dynamips/vmglue/go/cvm"
	"github.com/dynamips/vmglue/go/models"
	"github.com/dynamips/vmglue/go/models/trace"
)

// strdup is replaced in tests to simulate allocation failure.
var strdup = cvm.StrDup

type Machine struct {
	vm    *cvm.VM
	name  string
	log   *zap.Logger
	trace *trace.TraceWriter

	traceErr error
}

// New wraps vm. The Machine does not own vm; tw may be nil.
func New(vm *cvm.VM, name string, log *zap.Logger, tw *trace.TraceWriter) *Machine {
	if vm == nil {
		panic("machine: nil VM handle")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		vm:    vm,
		name:  name,
		log:   log.With(zap.String("vm", name)),
		trace: tw,
	}
}

func (m *Machine) VM() *cvm.VM         { return m.vm }
func (m *Machine) Name() string        { return m.name }
func (m *Machine) Logger() *zap.Logger { return m.log }

// TraceErr returns the first error hit while recording the trace.
func (m *Machine) TraceErr() error { return m.traceErr }

func (m *Machine) record(op models.Op) {
	if m.trace == nil || m.traceErr != nil {
		return
	}
	if err := m.trace.Pack(op); err != nil {
		m.traceErr = errors.Wrap(err, "trace")
		m.log.Warn("boundary trace disabled", zap.Error(err))
	}
}

func (m *Machine) SetIRQ(line uint) {
	m.vm.SetIRQ(line)
	m.log.Debug("vm_set_irq", zap.Uint("irq", line))
	m.record(&trace.OpIRQ{Line: uint32(line), Set: true})
}

func (m *Machine) ClearIRQ(line uint) {
	m.vm.ClearIRQ(line)
	m.log.Debug("vm_clear_irq", zap.Uint("irq", line))
	m.record(&trace.OpIRQ{Line: uint32(line), Set: false})
}

// Log sends a line to the VM log.
func (m *Machine) Log(module, msg string) {
	m.vm.Log(module, msg)
	m.log.Debug("vm_log_msg", zap.String("module", module), zap.String("msg", msg))
	m.record(&trace.OpLog{Module: module, Msg: msg})
}

func (m *Machine) Logf(module, format string, args ...interface{}) {
	m.Log(module, fmt.Sprintf(format, args...))
}

// StrDup copies s into the runtime heap. The runtime owns the result.
func (m *Machine) StrDup(s string) (*cvm.CStr, error) {
	p := strdup(s)
	m.record(&trace.OpStrDup{Text: s, Failed: p == nil})
	if p == nil {
		err := &cvm.Error{Op: "strdup", Errno: unix.ENOMEM}
		m.fail(err)
		return nil, err
	}
	return p, nil
}

// fail logs and records an error coming back from the runtime.
func (m *Machine) fail(err error) {
	var cerr *cvm.Error
	if errors.As(err, &cerr) {
		m.log.Warn("runtime call failed",
			zap.String("op", cerr.Op),
			zap.String("errno", cerr.Name()),
			zap.Error(err))
		m.record(&trace.OpErrno{Code: uint32(cerr.Errno), Op: cerr.Op})
		return
	}
	m.log.Warn("runtime call failed", zap.Error(err))
}

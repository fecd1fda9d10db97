package machine

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dynamips/vmglue/go/cvm"
	"github.com/dynamips/vmglue/go/models/trace"
)

// Pool owns an fd pool of the runtime and closes it exactly once.
type Pool struct {
	m      *Machine
	pool   *cvm.FDPool
	closed bool
}

func (m *Machine) NewPool() *Pool {
	p := &Pool{m: m, pool: cvm.NewFDPool()}
	m.record(&trace.OpPool{Action: trace.POOL_INIT, FD: -1})
	return p
}

// Add hands fd over to the pool.
func (p *Pool) Add(fd int) error {
	if p.closed {
		return errors.New("fd pool is closed")
	}
	if err := p.pool.Add(fd); err != nil {
		p.m.fail(err)
		return err
	}
	p.m.log.Debug("fd_pool_get_free_fd", zap.Int("fd", fd))
	p.m.record(&trace.OpPool{Action: trace.POOL_ADD, FD: int32(fd)})
	return nil
}

// Close frees the pool, closing every descriptor in it, and releases its storage.
func (p *Pool) Close() error {
	if p.closed {
		return errors.New("fd pool already closed")
	}
	p.closed = true
	p.pool.Free()
	p.pool.Release()
	p.m.log.Debug("fd_pool_free")
	p.m.record(&trace.OpPool{Action: trace.POOL_FREE, FD: -1})
	return nil
}

package cvm

// #include <stdlib.h>
// #include "vm.h"
import "C"

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// FDPool is a pool of file descriptors managed by the runtime. The runtime
// defines the layout; Go code never reads it.
//
// NewFDPool is the only supported constructor. The runtime keeps pointers
// into the pool storage, so a FDPool declared or allocated in Go memory must
// not be passed to Init.
type FDPool C.fd_pool_t

// NewFDPool allocates pool storage in the C heap and initializes it.
func NewFDPool() *FDPool {
	p := (*FDPool)(C.malloc(C.sizeof_fd_pool_t))
	p.Init()
	return p
}

func (p *FDPool) c() *C.fd_pool_t {
	if p == nil {
		panic("cvm: nil fd pool")
	}
	return (*C.fd_pool_t)(p)
}

// Init sets up the pool bookkeeping in place.
func (p *FDPool) Init() {
	h := p.c()
	if debug {
		pools.init(p)
	}
	C.fd_pool_init(h)
}

// Free closes every descriptor in the pool. Call it at most once per Init.
func (p *FDPool) Free() {
	h := p.c()
	if debug {
		pools.free(p)
	}
	C.fd_pool_free(h)
}

// Add hands fd to the pool. The pool closes it on Free.
func (p *FDPool) Add(fd int) error {
	var slot *C.int
	r, err := C.fd_pool_get_free_fd(p.c(), &slot)
	if r != 0 {
		if err == nil {
			err = unix.ENOMEM
		}
		return errnoError("fd_pool_get_free_fd", err)
	}
	*slot = C.int(fd)
	return nil
}

// Release frees storage obtained from NewFDPool. Free must have been called.
func (p *FDPool) Release() {
	if debug {
		pools.release(p)
	}
	C.free(unsafe.Pointer(p.c()))
}

// poolStates tracks the pool lifecycle in cdebug builds.
type poolStates struct {
	sync.Mutex
	live map[*FDPool]bool
}

var pools = poolStates{live: make(map[*FDPool]bool)}

func (s *poolStates) init(p *FDPool) {
	s.Lock()
	defer s.Unlock()
	s.live[p] = true
}

func (s *poolStates) free(p *FDPool) {
	s.Lock()
	defer s.Unlock()
	if !s.live[p] {
		panic("cvm: fd pool freed twice or never initialized")
	}
	s.live[p] = false
}

func (s *poolStates) release(p *FDPool) {
	s.Lock()
	defer s.Unlock()
	if s.live[p] {
		panic("cvm: fd pool released while still initialized")
	}
	delete(s.live, p)
}

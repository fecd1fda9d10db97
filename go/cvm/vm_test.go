//go:build !dynamips

package cvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestVM(t *testing.T) *VM {
	vm, err := LoopbackVM("R1", -1)
	require.NoError(t, err)
	t.Cleanup(func() { LoopbackDestroyVM(vm) })
	return vm
}

func TestIRQ(t *testing.T) {
	vm := newTestVM(t)
	require.Equal(t, "R1", LoopbackName(vm))
	require.Zero(t, LoopbackIRQ(vm))

	vm.SetIRQ(3)
	vm.SetIRQ(12)
	require.Equal(t, uint64(1<<3|1<<12), LoopbackIRQ(vm))

	vm.ClearIRQ(3)
	require.Equal(t, uint64(1<<12), LoopbackIRQ(vm))

	// clearing an inactive line is a no-op
	vm.ClearIRQ(5)
	require.Equal(t, uint64(1<<12), LoopbackIRQ(vm))
}

func TestLog(t *testing.T) {
	vm := newTestVM(t)

	vm.Log("devA", "hello")
	calls, module, msg := LoopbackLogCalls(vm)
	require.Equal(t, uint(1), calls)
	require.Equal(t, []byte("devA\x00"), module)
	require.Equal(t, []byte("hello\x00"), msg)

	vm.Log("", "")
	calls, module, msg = LoopbackLogCalls(vm)
	require.Equal(t, uint(2), calls)
	require.Equal(t, []byte{0}, module)
	require.Equal(t, []byte{0}, msg)
}

func TestNilHandles(t *testing.T) {
	var vm *VM
	require.Panics(t, func() { vm.SetIRQ(1) })
	require.Panics(t, func() { vm.ClearIRQ(1) })
	require.Panics(t, func() { vm.Log("devA", "hello") })

	var tty *VTTY
	require.Panics(t, func() { tty.Flush() })
	require.Panics(t, func() { tty.GetChar() })
	require.Panics(t, func() { tty.IsCharAvail() })
	require.Panics(t, func() { tty.PutChar('x') })

	var pool *FDPool
	require.Panics(t, func() { pool.Init() })
	require.Panics(t, func() { pool.Free() })
}

func TestTerminate(t *testing.T) {
	b := terminate("abc")
	require.Equal(t, []byte("abc\x00"), b)
	require.Equal(t, []byte{0}, terminate(""))
}

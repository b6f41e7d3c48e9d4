package task

import (
	"fmt"

	"rvos/mm"
)

// Register numbers
const (
	REG_SP = 2
	REG_A0 = 10
	REG_A1 = 11
	REG_A2 = 12
	REG_A7 = 17
)

// TrapContext is the user register file saved on entry to the kernel
// and restored on return.
type TrapContext struct {
	X    [32]uint64
	Sepc uint64
}

// AppInitContext is the context a fresh image starts from.
func AppInitContext(entry, sp mm.VirtAddr) TrapContext {
	cx := TrapContext{Sepc: uint64(entry)}
	cx.X[REG_SP] = uint64(sp)
	return cx
}

func (cx TrapContext) String() string {
	return fmt.Sprintf("{sepc %#x sp %#x a0 %#x}", cx.Sepc, cx.X[REG_SP], cx.X[REG_A0])
}

// SetRet writes the syscall return register.
func (cx *TrapContext) SetRet(v int64) {
	cx.X[REG_A0] = uint64(v)
}

func (cx TrapContext) Ret() int64 {
	return int64(cx.X[REG_A0])
}

// Syscall returns the syscall number and its six arguments.
func (cx TrapContext) Syscall() (uint64, [6]uint64) {
	var args [6]uint64
	copy(args[:], cx.X[REG_A0:REG_A0+6])
	return cx.X[REG_A7], args
}

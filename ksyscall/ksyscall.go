// Package ksyscall is the boundary between user programs and the
// kernel core: it decodes raw syscall arguments, validates them, calls
// into the core, and maps the outcome onto the numeric return value
// (>= 0 success, -1 failure, -2 child not yet exited).
package ksyscall

import (
	db "rvos/debug"
	"rvos/fs"
	"rvos/kerr"
	"rvos/mm"
	"rvos/procmgr"
	"rvos/sched"
	"rvos/task"
	"rvos/timer"
)

type Syscall struct {
	mgr   *procmgr.ProcMgr
	mmu   *mm.Mmu
	fsys  fs.FileSystem
	sched sched.Scheduler
	clock timer.Clock
	wait  func()
}

func MakeSyscall(mgr *procmgr.ProcMgr, fsys fs.FileSystem, s sched.Scheduler, clock timer.Clock) *Syscall {
	return &Syscall{
		mgr:   mgr,
		mmu:   mgr.Mmu(),
		fsys:  fsys,
		sched: s,
		clock: clock,
	}
}

// SetPipeWait makes pipes created from now on call wait, instead of
// sleeping, while they cannot make progress. wait must let other tasks
// run and return once the caller is running again.
func (sys *Syscall) SetPipeWait(wait func()) {
	sys.wait = wait
}

// Trap handles the syscall saved in t's trap context: it steps past
// the ecall, dispatches, and stores the result in a0 unless t has
// exited.
func (sys *Syscall) Trap(t *task.Task) int64 {
	var id uint64
	var args [6]uint64
	t.SetTrapCx(func(cx *task.TrapContext) {
		cx.Sepc += 4
		id, args = cx.Syscall()
	})
	ret := sys.Dispatch(t, id, args)
	if id != SYS_EXIT {
		t.SetTrapCx(func(cx *task.TrapContext) {
			cx.SetRet(ret)
		})
	}
	return ret
}

func (sys *Syscall) Dispatch(t *task.Task, id uint64, args [6]uint64) int64 {
	db.DPrintf(db.SYSCALL, "%v %v %v", t.Pid(), Name(id), args[:3])
	var ret int64
	switch id {
	case SYS_DUP:
		ret = sys.Dup(t, int(args[0]))
	case SYS_UNLINKAT:
		ret = sys.Unlinkat(t, int64(args[0]), mm.VirtAddr(args[1]), args[2])
	case SYS_LINKAT:
		ret = sys.Linkat(t, int64(args[0]), mm.VirtAddr(args[1]), int64(args[2]), mm.VirtAddr(args[3]), args[4])
	case SYS_OPEN:
		ret = sys.Open(t, int64(args[0]), mm.VirtAddr(args[1]), uint32(args[2]), uint32(args[3]))
	case SYS_CLOSE:
		ret = sys.Close(t, int(args[0]))
	case SYS_PIPE:
		ret = sys.Pipe(t, mm.VirtAddr(args[0]))
	case SYS_READ:
		ret = sys.Read(t, int(args[0]), mm.VirtAddr(args[1]), args[2])
	case SYS_WRITE:
		ret = sys.Write(t, int(args[0]), mm.VirtAddr(args[1]), args[2])
	case SYS_FSTAT:
		ret = sys.Fstat(t, int(args[0]), mm.VirtAddr(args[1]))
	case SYS_EXIT:
		ret = sys.Exit(t, int32(args[0]))
	case SYS_YIELD:
		ret = sys.Yield(t)
	case SYS_SET_PRIORITY:
		ret = sys.SetPriority(t, int64(args[0]))
	case SYS_GET_TIME:
		ret = sys.GetTime(t)
	case SYS_GETPID:
		ret = sys.Getpid(t)
	case SYS_MUNMAP:
		ret = sys.Munmap(t, mm.VirtAddr(args[0]), args[1])
	case SYS_FORK:
		ret = sys.Fork(t)
	case SYS_EXEC:
		ret = sys.Exec(t, mm.VirtAddr(args[0]), mm.VirtAddr(args[1]))
	case SYS_MMAP:
		ret = sys.Mmap(t, mm.VirtAddr(args[0]), args[1], args[2])
	case SYS_WAITPID:
		ret = sys.Waitpid(t, int64(args[0]), mm.VirtAddr(args[1]))
	case SYS_SPAWN:
		ret = sys.Spawn(t, mm.VirtAddr(args[0]))
	case SYS_MAIL_READ:
		ret = sys.MailRead(t, mm.VirtAddr(args[0]), args[1])
	case SYS_MAIL_WRITE:
		ret = sys.MailWrite(t, int64(args[0]), mm.VirtAddr(args[1]), args[2])
	default:
		db.DPrintf(db.ERROR, "%v: unknown syscall %d", t.Pid(), id)
		return kerr.RET_ERR
	}
	if ret < 0 {
		db.DPrintf(db.SYSCALL_ERR, "%v %v %v -> %d", t.Pid(), Name(id), args[:3], ret)
	}
	return ret
}

// ret logs err and maps it onto the return register.
func ret(t *task.Task, what string, v int64, err error) int64 {
	if err != nil {
		db.DPrintf(db.SYSCALL_ERR, "%v %v: %v", t.Pid(), what, err)
	}
	return kerr.Ret(v, err)
}

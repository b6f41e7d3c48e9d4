package ksyscall

import (
	db "rvos/debug"
	"rvos/kerr"
	"rvos/mm"
	"rvos/task"
	"rvos/userbuf"
)

// Bound on the argument vector exec accepts.
const MAXARG = 32

func (sys *Syscall) Exit(t *task.Task, code int32) int64 {
	sys.mgr.Exit(t, code)
	return 0
}

// Yield gives up the processor if t is the one running.
func (sys *Syscall) Yield(t *task.Task) int64 {
	if sys.sched.Current() == t {
		sys.sched.Suspend(t)
	}
	return 0
}

func (sys *Syscall) GetTime(t *task.Task) int64 {
	return int64(sys.clock.NowMs())
}

func (sys *Syscall) Getpid(t *task.Task) int64 {
	return int64(t.Pid())
}

func (sys *Syscall) SetPriority(t *task.Task, p int64) int64 {
	return sys.sched.SetPriority(t, p)
}

func (sys *Syscall) Mmap(t *task.Task, start mm.VirtAddr, length uint64, prot uint64) int64 {
	var err error
	t.Locked(func(in *task.Inner) {
		err = in.Ms.Mmap(start, length, prot)
	})
	return ret(t, "mmap", 0, err)
}

func (sys *Syscall) Munmap(t *task.Task, start mm.VirtAddr, length uint64) int64 {
	var err error
	t.Locked(func(in *task.Inner) {
		err = in.Ms.Munmap(start, length)
	})
	return ret(t, "munmap", 0, err)
}

// Fork returns the child's pid to the parent; the child resumes from
// the same trap context with 0 in a0.
func (sys *Syscall) Fork(t *task.Task) int64 {
	child, err := sys.mgr.Fork(t)
	if err != nil {
		return ret(t, "fork", 0, err)
	}
	child.SetTrapCx(func(cx *task.TrapContext) {
		cx.SetRet(0)
	})
	pid := child.Pid()
	sys.sched.Add(child)
	return int64(pid)
}

// Exec returns argc, which the fresh image also finds in a0. argv is a
// NULL-terminated array of string pointers, or 0 for no arguments.
func (sys *Syscall) Exec(t *task.Task, path mm.VirtAddr, argv mm.VirtAddr) int64 {
	tok := t.Token()
	name, err := userbuf.ReadStr(sys.mmu, tok, path)
	if err != nil {
		return ret(t, "exec", 0, err)
	}
	args, err := readArgv(sys.mmu, tok, argv)
	if err != nil {
		return ret(t, "exec", 0, err)
	}
	if err := sys.mgr.Exec(t, name, args); err != nil {
		return ret(t, "exec", 0, err)
	}
	return int64(len(args))
}

func readArgv(tr userbuf.Translator, tok mm.Token, argv mm.VirtAddr) ([]string, error) {
	args := make([]string, 0)
	if argv == 0 {
		return args, nil
	}
	for i := 0; ; i++ {
		if i > MAXARG {
			return nil, kerr.MkErr(kerr.TErrInval, "too many arguments")
		}
		p, err := userbuf.ReadU64(tr, tok, argv+mm.VirtAddr(8*i))
		if err != nil {
			return nil, err
		}
		if p == 0 {
			return args, nil
		}
		s, err := userbuf.ReadStr(tr, tok, mm.VirtAddr(p))
		if err != nil {
			return nil, err
		}
		args = append(args, s)
	}
}

func (sys *Syscall) Spawn(t *task.Task, path mm.VirtAddr) int64 {
	name, err := userbuf.ReadStr(sys.mmu, t.Token(), path)
	if err != nil {
		return ret(t, "spawn", 0, err)
	}
	child, err := sys.mgr.Spawn(t, name)
	if err != nil {
		return ret(t, "spawn", 0, err)
	}
	pid := child.Pid()
	sys.sched.Add(child)
	return int64(pid)
}

// Waitpid returns the reaped child's pid, -1 if no child matches pid
// (-1 for any), and -2 if the matching children are all still running.
func (sys *Syscall) Waitpid(t *task.Task, pid int64, out mm.VirtAddr) int64 {
	cpid, err := sys.mgr.Waitpid(t, task.Tpid(pid), out)
	if err != nil && !kerr.IsErrCode(err, kerr.TErrNotReady) {
		db.DPrintf(db.SYSCALL_ERR, "%v waitpid %d: %v", t.Pid(), pid, err)
	}
	return kerr.Ret(int64(cpid), err)
}

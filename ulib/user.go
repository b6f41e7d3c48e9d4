package ulib

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	db "rvos/debug"
	"rvos/fdtable"
	"rvos/fs"
	"rvos/ksyscall"
	"rvos/mm"
	"rvos/procmgr"
	"rvos/task"
	"rvos/userbuf"
)

// Every program keeps a scratch area at HEAP for the buffers and
// strings it passes to the kernel. Programs must not mmap over it.
const (
	HEAP    mm.VirtAddr = 0x40000000
	HEAP_SZ             = 4 * mm.PAGE_SIZE
)

// User is a program's view of the kernel: the syscalls, taking and
// returning Go values.
type User struct {
	rt     *Runtime
	t      *task.Task
	args   []string
	forked bool
	heap   bool
	brk    int
}

func (u *User) String() string {
	return fmt.Sprintf("{%v %v}", u.t.Pid(), u.args)
}

func (u *User) Args() []string {
	return u.args
}

// run runs prog until it exits or execs, returning the program to run
// next; kill is set if the runtime shut down under it.
func (u *User) run(prog Program) (next Program, kill bool) {
	defer func() {
		switch r := recover().(type) {
		case nil, exited:
		case killed:
			kill = true
		case execed:
			next = r.prog
		default:
			panic(r)
		}
	}()
	if u.forked {
		u.forked = false
	} else {
		u.heap = false
		cx := u.t.TrapCx()
		args, err := procmgr.ReadArgs(u.rt.mgr.Mmu(), u.t.Token(), &cx)
		if err != nil {
			db.DPrintf(db.ERROR, "%v: args %v", u.t.Pid(), err)
		}
		u.args = args
	}
	u.Exit(prog(u))
	return nil, false
}

// image returns the program of the image u's task is running.
func (u *User) image() Program {
	prog, name := u.rt.program(u.t)
	if prog == nil {
		return func(u *User) int32 {
			db.DPrintf(db.ERROR, "%v: no program %q", u.t.Pid(), name)
			return -1
		}
	}
	return prog
}

func (u *User) syscall(id uint64, args ...uint64) int64 {
	u.t.SetTrapCx(func(cx *task.TrapContext) {
		cx.X[task.REG_A7] = id
		for i := 0; i < 6; i++ {
			cx.X[task.REG_A0+i] = 0
		}
		copy(cx.X[task.REG_A0:task.REG_A0+6], args)
	})
	return u.rt.sys.Trap(u.t)
}

// reset frees the scratch area, mapping it first if needed.
func (u *User) reset() {
	u.brk = 0
	if u.heap {
		return
	}
	if r := u.syscall(ksyscall.SYS_MMAP, uint64(HEAP), HEAP_SZ, unix.PROT_READ|unix.PROT_WRITE); r < 0 {
		db.DFatalf("%v: map scratch %d", u.t.Pid(), r)
	}
	u.heap = true
}

// reserve returns n bytes of scratch, 0 if they do not fit.
func (u *User) reserve(n int) uint64 {
	if u.brk+n > HEAP_SZ {
		return 0
	}
	va := HEAP + mm.VirtAddr(u.brk)
	u.brk += (n + 7) &^ 7
	return uint64(va)
}

// put copies b to scratch.
func (u *User) put(b []byte) uint64 {
	va := u.reserve(len(b))
	if va == 0 {
		return 0
	}
	if err := userbuf.CopyOut(u.rt.mgr.Mmu(), u.t.Token(), mm.VirtAddr(va), b); err != nil {
		db.DFatalf("%v: put %v", u.t.Pid(), err)
	}
	return va
}

func (u *User) str(s string) uint64 {
	return u.put(append([]byte(s), 0))
}

func (u *User) get(va uint64, b []byte) {
	c, err := userbuf.CopyIn(u.rt.mgr.Mmu(), u.t.Token(), mm.VirtAddr(va), len(b))
	if err != nil {
		db.DFatalf("%v: get %v", u.t.Pid(), err)
	}
	copy(b, c)
}

func (u *User) Read(fd int, b []byte) int64 {
	u.reset()
	n := min(len(b), HEAP_SZ)
	va := u.reserve(n)
	r := u.syscall(ksyscall.SYS_READ, uint64(fd), va, uint64(n))
	if r > 0 {
		u.get(va, b[:r])
	}
	return r
}

// Write writes all of b unless the kernel stops short.
func (u *User) Write(fd int, b []byte) int64 {
	var tot int64
	for len(b) > 0 {
		u.reset()
		n := min(len(b), HEAP_SZ)
		r := u.syscall(ksyscall.SYS_WRITE, uint64(fd), u.put(b[:n]), uint64(n))
		if r < 0 {
			if tot == 0 {
				return r
			}
			break
		}
		tot += r
		if r < int64(n) {
			break
		}
		b = b[n:]
	}
	return tot
}

func (u *User) Printf(format string, v ...interface{}) int64 {
	return u.Write(fdtable.STDOUT, []byte(fmt.Sprintf(format, v...)))
}

func (u *User) Open(path string, flags fs.OpenFlags) int64 {
	u.reset()
	return u.syscall(ksyscall.SYS_OPEN, uint64(atFdcwd), u.str(path), uint64(flags), 0)
}

var atFdcwd int64 = ksyscall.AT_FDCWD

func (u *User) Close(fd int) int64 {
	return u.syscall(ksyscall.SYS_CLOSE, uint64(fd))
}

func (u *User) Dup(fd int) int64 {
	return u.syscall(ksyscall.SYS_DUP, uint64(fd))
}

func (u *User) Pipe() (int, int, int64) {
	u.reset()
	va := u.reserve(16)
	if r := u.syscall(ksyscall.SYS_PIPE, va); r < 0 {
		return -1, -1, r
	}
	tr, tok := u.rt.mgr.Mmu(), u.t.Token()
	rfd, _ := userbuf.ReadU64(tr, tok, mm.VirtAddr(va))
	wfd, _ := userbuf.ReadU64(tr, tok, mm.VirtAddr(va+8))
	return int(rfd), int(wfd), 0
}

func (u *User) Fstat(fd int) (*fs.Stat, int64) {
	u.reset()
	va := u.reserve(fs.STAT_SIZE)
	if r := u.syscall(ksyscall.SYS_FSTAT, uint64(fd), va); r < 0 {
		return nil, r
	}
	b := make([]byte, fs.STAT_SIZE)
	u.get(va, b)
	return fs.UnmarshalStat(b), 0
}

func (u *User) Link(oldpath, newpath string) int64 {
	u.reset()
	return u.syscall(ksyscall.SYS_LINKAT, uint64(atFdcwd), u.str(oldpath), uint64(atFdcwd), u.str(newpath), 0)
}

func (u *User) Unlink(path string) int64 {
	u.reset()
	return u.syscall(ksyscall.SYS_UNLINKAT, uint64(atFdcwd), u.str(path), 0)
}

// Exit does not return.
func (u *User) Exit(code int32) {
	u.syscall(ksyscall.SYS_EXIT, uint64(int64(code)))
	panic(exited{})
}

func (u *User) Yield() int64 {
	r := u.syscall(ksyscall.SYS_YIELD)
	u.rt.park(u.t)
	return r
}

func (u *User) GetTime() int64 {
	return u.syscall(ksyscall.SYS_GET_TIME)
}

func (u *User) Getpid() int64 {
	return u.syscall(ksyscall.SYS_GETPID)
}

func (u *User) SetPriority(prio int64) int64 {
	return u.syscall(ksyscall.SYS_SET_PRIORITY, uint64(prio))
}

func (u *User) Mmap(start mm.VirtAddr, length uint64, prot uint64) int64 {
	return u.syscall(ksyscall.SYS_MMAP, uint64(start), length, prot)
}

func (u *User) Munmap(start mm.VirtAddr, length uint64) int64 {
	return u.syscall(ksyscall.SYS_MUNMAP, uint64(start), length)
}

// Fork returns the child's pid, and runs child in the child.
func (u *User) Fork(child Program) int64 {
	r := u.syscall(ksyscall.SYS_FORK)
	if r <= 0 {
		return r
	}
	c, ok := u.rt.mgr.Lookup(task.Tpid(r))
	if !ok {
		db.DFatalf("%v: forked %d missing", u.t.Pid(), r)
	}
	cu := &User{rt: u.rt, t: c, args: u.args, forked: true, heap: u.heap}
	u.rt.Lock()
	u.rt.forks[c.Pid()] = forked{cu, child}
	u.rt.Unlock()
	return r
}

// Exec returns only if it fails.
func (u *User) Exec(path string, args ...string) int64 {
	u.reset()
	p := u.str(path)
	ptrs := make([]byte, 8*(len(args)+1))
	for i, a := range args {
		binary.LittleEndian.PutUint64(ptrs[8*i:], u.str(a))
	}
	r := u.syscall(ksyscall.SYS_EXEC, p, u.put(ptrs))
	if r < 0 {
		return r
	}
	panic(execed{u.image()})
}

func (u *User) Spawn(path string) int64 {
	u.reset()
	return u.syscall(ksyscall.SYS_SPAWN, u.str(path))
}

// Waitpid waits for the child pid (-1 for any) to exit, yielding while
// it runs, and stores its exit code in code unless code is nil. It
// returns the child's pid, or -1 if there is no such child.
func (u *User) Waitpid(pid int64, code *int32) int64 {
	for {
		u.reset()
		va := u.reserve(4)
		r := u.syscall(ksyscall.SYS_WAITPID, uint64(pid), va)
		if r == -2 {
			u.Yield()
			continue
		}
		if r >= 0 && code != nil {
			c, _ := userbuf.ReadI32(u.rt.mgr.Mmu(), u.t.Token(), mm.VirtAddr(va))
			*code = c
		}
		return r
	}
}

func (u *User) Wait(code *int32) int64 {
	return u.Waitpid(int64(procmgr.ANY), code)
}

// Sleep yields until ms milliseconds have passed.
func (u *User) Sleep(ms int64) {
	end := u.GetTime() + ms
	for u.GetTime() < end {
		u.Yield()
	}
}

func (u *User) MailRead(b []byte) int64 {
	u.reset()
	n := min(len(b), task.MAILSZ)
	va := u.reserve(n)
	if n == 0 {
		va = uint64(HEAP)
	}
	r := u.syscall(ksyscall.SYS_MAIL_READ, va, uint64(n))
	if r > 0 {
		u.get(va, b[:r])
	}
	return r
}

func (u *User) MailWrite(pid int64, b []byte) int64 {
	u.reset()
	n := min(len(b), task.MAILSZ)
	va := uint64(HEAP)
	if n > 0 {
		va = u.put(b[:n])
	}
	return u.syscall(ksyscall.SYS_MAIL_WRITE, uint64(pid), va, uint64(n))
}

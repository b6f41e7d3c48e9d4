// Package ulib runs user programs on the kernel core. A program is a
// Go function; each task runs it on its own goroutine, but only the
// task the scheduler has put on the processor ever runs. Control moves
// between the run loop and a task only at syscalls that give up the
// processor (yield, exit, a blocked pipe), so the core sees the single
// hart it was written for.
package ulib

import (
	"fmt"
	"strings"
	"sync"

	db "rvos/debug"
	"rvos/kerr"
	"rvos/ksyscall"
	"rvos/mm"
	"rvos/procmgr"
	"rvos/sched"
	"rvos/task"
	"rvos/userbuf"
)

// Program is the body of a user program; its return value is the exit
// code.
type Program func(u *User) int32

// forked is a fork child waiting for its first turn.
type forked struct {
	u    *User
	prog Program
}

type thread struct {
	t   *task.Task
	run chan bool
}

type Runtime struct {
	sync.Mutex
	sys     *ksyscall.Syscall
	mgr     *procmgr.ProcMgr
	sched   sched.Scheduler
	progs   map[string]Program
	forks   map[task.Tpid]forked
	threads map[task.Tpid]*thread
	back    chan struct{}
}

func MakeRuntime(sys *ksyscall.Syscall, mgr *procmgr.ProcMgr, s sched.Scheduler) *Runtime {
	rt := &Runtime{
		sys:     sys,
		mgr:     mgr,
		sched:   s,
		progs:   make(map[string]Program),
		forks:   make(map[task.Tpid]forked),
		threads: make(map[task.Tpid]*thread),
		back:    make(chan struct{}),
	}
	sys.SetPipeWait(rt.yieldCurrent)
	return rt
}

// Register makes prog the program of image name.
func (rt *Runtime) Register(name string, prog Program) {
	rt.Lock()
	defer rt.Unlock()
	rt.progs[name] = prog
}

// Image returns the image a program is loaded from: its name.
func Image(name string) []byte {
	return []byte(name)
}

// Images returns an image for every registered program.
func (rt *Runtime) Images() map[string][]byte {
	rt.Lock()
	defer rt.Unlock()
	imgs := make(map[string][]byte, len(rt.progs))
	for n := range rt.progs {
		imgs[n] = Image(n)
	}
	return imgs
}

// Run puts ready tasks on the processor until initproc has exited.
func (rt *Runtime) Run() error {
	defer rt.shutdown()
	for !rt.mgr.Halted() {
		t := rt.sched.RunNext()
		if t == nil {
			return kerr.MkErr(kerr.TErrNoProc, "no runnable task")
		}
		th := rt.thread(t)
		th.run <- true
		<-rt.back
		if c := rt.sched.Current(); c != nil {
			db.DFatalf("%v returned control while running", c)
		}
	}
	db.DPrintf(db.KERNEL, "halted")
	return nil
}

// thread returns the thread of t, starting one if t has never run: the
// program it forked with, or else the program its image names.
func (rt *Runtime) thread(t *task.Task) *thread {
	rt.Lock()
	defer rt.Unlock()
	if th, ok := rt.threads[t.Pid()]; ok {
		return th
	}
	th := &thread{t: t, run: make(chan bool)}
	rt.threads[t.Pid()] = th
	u := &User{rt: rt, t: t}
	var prog Program
	if f, ok := rt.forks[t.Pid()]; ok {
		delete(rt.forks, t.Pid())
		u, prog = f.u, f.prog
	}
	go rt.start(th, u, prog)
	return th
}

// program returns the program of t's current image, whose text is the
// program's name.
func (rt *Runtime) program(t *task.Task) (Program, string) {
	name, err := userbuf.ReadStr(rt.mgr.Mmu(), t.Token(), mm.USER_BASE)
	if err != nil {
		return nil, ""
	}
	name = strings.TrimSpace(name)
	rt.Lock()
	defer rt.Unlock()
	return rt.progs[name], name
}

type exited struct{}
type killed struct{}
type execed struct {
	prog Program
}

func (rt *Runtime) start(th *thread, u *User, prog Program) {
	if !<-th.run {
		return
	}
	if prog == nil {
		prog = u.image()
	}
	for prog != nil {
		var k bool
		prog, k = u.run(prog)
		if k {
			return
		}
	}
	rt.Lock()
	delete(rt.threads, th.t.Pid())
	rt.Unlock()
	rt.back <- struct{}{}
}

// park hands the processor back to the run loop and returns once t is
// put on it again.
func (rt *Runtime) park(t *task.Task) {
	rt.Lock()
	th := rt.threads[t.Pid()]
	rt.Unlock()
	rt.back <- struct{}{}
	if !<-th.run {
		panic(killed{})
	}
}

// yieldCurrent suspends the running task and parks it.
func (rt *Runtime) yieldCurrent() {
	t := rt.sched.Current()
	if t == nil {
		db.DFatalf("yield with nothing running")
	}
	rt.sched.Suspend(t)
	rt.park(t)
}

// shutdown unwinds the threads of tasks that never exited.
func (rt *Runtime) shutdown() {
	rt.Lock()
	ths := make([]*thread, 0, len(rt.threads))
	for _, th := range rt.threads {
		ths = append(ths, th)
	}
	rt.threads = make(map[task.Tpid]*thread)
	rt.Unlock()
	for _, th := range ths {
		db.DPrintf(db.KERNEL, "kill %v", th.t.Pid())
		th.run <- false
	}
}

func (rt *Runtime) String() string {
	rt.Lock()
	defer rt.Unlock()
	return fmt.Sprintf("{progs %d threads %d}", len(rt.progs), len(rt.threads))
}

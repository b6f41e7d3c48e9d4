package procmgr

import (
	"fmt"
	"sort"
	"sync"

	db "rvos/debug"
	"rvos/fdtable"
	"rvos/fs"
	"rvos/kerr"
	"rvos/loader"
	"rvos/mm"
	"rvos/sched"
	"rvos/task"
)

// ProcMgr creates, transforms, terminates and reaps tasks. Its pid
// registry maps pids to live tasks for lookup only; it holds no task
// references except one to initproc.
type ProcMgr struct {
	sync.Mutex
	mmu      *mm.Mmu
	ld       loader.Loader
	sched    sched.Scheduler
	stdin    fs.File
	stdout   fs.File
	pids     *task.PidAllocator
	tasks    map[task.Tpid]*task.Task
	initproc *task.Task
	halted   bool
}

func MakeProcMgr(mmu *mm.Mmu, ld loader.Loader, s sched.Scheduler, stdin, stdout fs.File) *ProcMgr {
	return &ProcMgr{
		mmu:    mmu,
		ld:     ld,
		sched:  s,
		stdin:  stdin,
		stdout: stdout,
		pids:   task.NewPidAllocator(),
		tasks:  make(map[task.Tpid]*task.Task),
	}
}

func (mgr *ProcMgr) register(t *task.Task) {
	mgr.Lock()
	defer mgr.Unlock()
	mgr.tasks[t.Pid()] = t
}

func (mgr *ProcMgr) unregister(pid task.Tpid) {
	mgr.Lock()
	defer mgr.Unlock()
	delete(mgr.tasks, pid)
}

// Lookup returns the task with pid, if it has not been reaped. The
// caller gets no reference.
func (mgr *ProcMgr) Lookup(pid task.Tpid) (*task.Task, bool) {
	mgr.Lock()
	defer mgr.Unlock()
	t, ok := mgr.tasks[pid]
	return t, ok
}

func (mgr *ProcMgr) InitProc() *task.Task {
	mgr.Lock()
	defer mgr.Unlock()
	return mgr.initproc
}

// Halted reports whether initproc has exited.
func (mgr *ProcMgr) Halted() bool {
	mgr.Lock()
	defer mgr.Unlock()
	return mgr.halted
}

func (mgr *ProcMgr) Mmu() *mm.Mmu {
	return mgr.mmu
}

func (mgr *ProcMgr) Loader() loader.Loader {
	return mgr.ld
}

// newFromImage builds a task straight from the image name, with stdio
// installed. The caller holds the returned reference.
func (mgr *ProcMgr) newFromImage(name string, parent task.Tpid) (*task.Task, error) {
	img, ok := mgr.ld.Load(name)
	if !ok {
		return nil, kerr.MkErr(kerr.TErrNotfound, name)
	}
	ms, sp, entry, err := mgr.mmu.FromImage(img)
	if err != nil {
		return nil, err
	}
	mgr.stdin.Reopen()
	mgr.stdout.Reopen()
	fdt := fdtable.NewStdio(mgr.stdin, mgr.stdout)
	t := task.NewTask(mgr.pids.Alloc(), ms, task.AppInitContext(entry, sp), parent, fdt)
	mgr.register(t)
	return t, nil
}

// StartInitProc creates the first task from image name and makes it
// runnable. Orphans are handed to it.
func (mgr *ProcMgr) StartInitProc(name string) (*task.Task, error) {
	if mgr.InitProc() != nil {
		return nil, kerr.MkErr(kerr.TErrExists, "initproc")
	}
	t, err := mgr.newFromImage(name, task.NoPid)
	if err != nil {
		return nil, err
	}
	t.IncRef()
	mgr.Lock()
	mgr.initproc = t
	mgr.Unlock()
	mgr.sched.Add(t)
	db.DPrintf(db.PROCMGR, "initproc %v %q", t.Pid(), name)
	return t, nil
}

// Fork makes a child of parent with a copy of its address space, a
// table sharing its open files, and its trap context. The child is on
// parent's child list but not runnable; the caller holds the returned
// reference and must set the child's return value before handing it
// to the scheduler.
func (mgr *ProcMgr) Fork(parent *task.Task) (*task.Task, error) {
	var ms *mm.MemorySet
	var fdt *fdtable.FdTable
	var cx task.TrapContext
	var err error
	parent.Locked(func(in *task.Inner) {
		ms, err = in.Ms.Clone()
		if err != nil {
			return
		}
		fdt = in.Fds.Clone()
		cx = in.TrapCx
	})
	if err != nil {
		db.DPrintf(db.PROCMGR_ERR, "fork %v err %v", parent.Pid(), err)
		return nil, err
	}
	child := task.NewTask(mgr.pids.Alloc(), ms, cx, parent.Pid(), fdt)
	parent.Locked(func(in *task.Inner) {
		in.AddChildL(child)
	})
	mgr.register(child)
	db.DPrintf(db.PROCMGR, "fork %v -> %v", parent.Pid(), child.Pid())
	return child, nil
}

// Spawn makes a child of parent running image name, without copying
// anything from parent. Like Fork, the child is not yet runnable.
func (mgr *ProcMgr) Spawn(parent *task.Task, name string) (*task.Task, error) {
	child, err := mgr.newFromImage(name, parent.Pid())
	if err != nil {
		db.DPrintf(db.PROCMGR_ERR, "spawn %v %q err %v", parent.Pid(), name, err)
		return nil, err
	}
	parent.Locked(func(in *task.Inner) {
		in.AddChildL(child)
	})
	db.DPrintf(db.PROCMGR, "spawn %v -> %v %q", parent.Pid(), child.Pid(), name)
	return child, nil
}

// Exec replaces t's address space and trap context with a fresh image
// and argument vector. Nothing changes if the image is missing or the
// arguments do not fit.
func (mgr *ProcMgr) Exec(t *task.Task, name string, args []string) error {
	img, ok := mgr.ld.Load(name)
	if !ok {
		db.DPrintf(db.PROCMGR_ERR, "exec %v %q: no image", t.Pid(), name)
		return kerr.MkErr(kerr.TErrNotfound, name)
	}
	ms, sp, entry, err := mgr.mmu.FromImage(img)
	if err != nil {
		return err
	}
	cx := task.AppInitContext(entry, sp)
	if err := pushArgs(mgr.mmu, ms.Token(), &cx, args); err != nil {
		ms.Release()
		return err
	}
	var old *mm.MemorySet
	t.Locked(func(in *task.Inner) {
		old = in.Ms
		in.Ms = ms
		in.TrapCx = cx
	})
	old.Release()
	db.DPrintf(db.PROCMGR, "exec %v %q %v", t.Pid(), name, args)
	return nil
}

// Exit turns t into a zombie with exit code code. Its files and user
// pages are released now; the task itself stays on its parent's child
// list until reaped. Its children move to initproc.
func (mgr *ProcMgr) Exit(t *task.Task, code int32) {
	var ms *mm.MemorySet
	var children []*task.Task
	t.Locked(func(in *task.Inner) {
		in.Status = task.Zombie
		in.ExitCode = code
		children = in.TakeChildrenL()
		in.Fds.Clear()
		ms = in.Ms
	})
	ms.Release()

	initproc := mgr.InitProc()
	for _, c := range children {
		if initproc == nil || t == initproc {
			c.SetParent(task.NoPid)
			c.DecRef()
			continue
		}
		c.SetParent(initproc.Pid())
		initproc.Locked(func(in *task.Inner) {
			in.AdoptL(c)
		})
		db.DPrintf(db.PROCMGR, "reparent %v to %v", c.Pid(), initproc.Pid())
	}
	mgr.sched.Remove(t)
	db.DPrintf(db.PROCMGR, "exit %v code %d", t.Pid(), code)
	if t == initproc {
		mgr.Lock()
		mgr.halted = true
		mgr.initproc = nil
		mgr.Unlock()
		t.DecRef()
		db.DPrintf(db.PROCMGR, "initproc exited with %d", code)
	}
}

// Ps describes one task.
type Ps struct {
	Pid      task.Tpid
	Parent   task.Tpid
	Status   task.Tstatus
	Children []task.Tpid
}

func (ps Ps) String() string {
	return fmt.Sprintf("%v %v %v %v", ps.Pid, ps.Parent, ps.Status, ps.Children)
}

// Ps returns a snapshot of every unreaped task, ordered by pid.
func (mgr *ProcMgr) Ps() []Ps {
	mgr.Lock()
	ts := make([]*task.Task, 0, len(mgr.tasks))
	for _, t := range mgr.tasks {
		ts = append(ts, t)
	}
	mgr.Unlock()
	sort.Slice(ts, func(i, j int) bool { return ts[i].Pid() < ts[j].Pid() })
	pss := make([]Ps, 0, len(ts))
	for _, t := range ts {
		t.Locked(func(in *task.Inner) {
			pss = append(pss, Ps{t.Pid(), in.Parent, in.Status, in.ChildPids()})
		})
	}
	return pss
}

// NTask is the number of unreaped tasks.
func (mgr *ProcMgr) NTask() int {
	mgr.Lock()
	defer mgr.Unlock()
	return len(mgr.tasks)
}

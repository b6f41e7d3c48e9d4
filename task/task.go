// Package task is the process control block and the process tree.
//
// A Task's pid never changes and is read without locking. Everything
// else lives in Inner, guarded by the task's lock, and is reached only
// through Locked or the accessors built on it.
//
// Ownership: a parent's child list holds counted references to its
// children (the only owning edge of the tree); a child names its
// parent by pid only. Lock order is strictly top-down: a task holding
// its own lock may take a child's lock, never the reverse.
package task

import (
	"fmt"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/slices"

	db "rvos/debug"
	"rvos/fdtable"
	"rvos/mm"
)

type Tstatus int

const (
	Ready Tstatus = iota
	Running
	Zombie
)

func (s Tstatus) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Zombie:
		return "Zombie"
	default:
		return "Unknown"
	}
}

type Inner struct {
	pid      Tpid
	Status   Tstatus
	ExitCode int32
	Ms       *mm.MemorySet
	TrapCx   TrapContext
	Parent   Tpid
	children []*Task
	Fds      *fdtable.FdTable
	Mail     Mailbox
}

type Task struct {
	pid   Tpid
	refs  atomic.Int32
	mu    deadlock.Mutex
	inner Inner
}

// NewTask makes a Ready task; the caller holds the one reference.
func NewTask(pid Tpid, ms *mm.MemorySet, cx TrapContext, parent Tpid, fds *fdtable.FdTable) *Task {
	t := &Task{pid: pid}
	t.refs.Store(1)
	t.inner = Inner{
		pid:      pid,
		Status:   Ready,
		Ms:       ms,
		TrapCx:   cx,
		Parent:   parent,
		children: make([]*Task, 0),
		Fds:      fds,
	}
	db.DPrintf(db.TASK, "new %v parent %v %v", pid, parent, ms)
	return t
}

func (t *Task) String() string {
	return fmt.Sprintf("{task %v refs %d}", t.pid, t.RefCount())
}

func (t *Task) Pid() Tpid {
	return t.pid
}

// Reference counting of task handles

func (t *Task) IncRef() {
	t.refs.Add(1)
}

func (t *Task) DecRef() int32 {
	n := t.refs.Add(-1)
	if n < 0 {
		db.DFatalf("DecRef %v below zero", t.pid)
	}
	return n
}

func (t *Task) RefCount() int32 {
	return t.refs.Load()
}

// Locked runs f with the task's lock held.
func (t *Task) Locked(f func(in *Inner)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f(&t.inner)
}

func (t *Task) Token() mm.Token {
	var tok mm.Token
	t.Locked(func(in *Inner) {
		tok = in.Ms.Token()
	})
	return tok
}

func (t *Task) Status() Tstatus {
	var s Tstatus
	t.Locked(func(in *Inner) {
		s = in.Status
	})
	return s
}

func (t *Task) SetStatus(s Tstatus) {
	t.Locked(func(in *Inner) {
		if in.Status == Zombie {
			db.DFatalf("SetStatus %v on zombie %v", s, t.pid)
		}
		in.Status = s
	})
}

func (t *Task) IsZombie() bool {
	return t.Status() == Zombie
}

// ExitCode is only meaningful once the task is a zombie.
func (t *Task) ExitCode() int32 {
	var c int32
	t.Locked(func(in *Inner) {
		c = in.ExitCode
	})
	return c
}

func (t *Task) Parent() Tpid {
	var p Tpid
	t.Locked(func(in *Inner) {
		p = in.Parent
	})
	return p
}

func (t *Task) SetParent(p Tpid) {
	t.Locked(func(in *Inner) {
		in.Parent = p
	})
}

// Children returns the pids of t's children in list order.
func (t *Task) Children() []Tpid {
	var pids []Tpid
	t.Locked(func(in *Inner) {
		pids = in.ChildPids()
	})
	return pids
}

// Fds runs f on t's descriptor table with t's lock held. f must not
// read or write files.
func (t *Task) Fds(f func(fdt *fdtable.FdTable)) {
	t.Locked(func(in *Inner) {
		f(in.Fds)
	})
}

func (t *Task) TrapCx() TrapContext {
	var cx TrapContext
	t.Locked(func(in *Inner) {
		cx = in.TrapCx
	})
	return cx
}

func (t *Task) SetTrapCx(f func(cx *TrapContext)) {
	t.Locked(func(in *Inner) {
		f(&in.TrapCx)
	})
}

//
// Tree mutation. Caller holds the parent's lock.
//

// AddChildL takes a new reference to c, which must already name this
// task as its parent and must not be on the list yet.
func (in *Inner) AddChildL(c *Task) {
	in.checkChildL(c)
	c.IncRef()
	in.children = append(in.children, c)
}

// AdoptL is AddChildL for a reference the caller hands over, as when
// an exiting task's children move to a new parent.
func (in *Inner) AdoptL(c *Task) {
	in.checkChildL(c)
	in.children = append(in.children, c)
}

func (in *Inner) checkChildL(c *Task) {
	if slices.Contains(in.children, c) {
		db.DFatalf("AddChild %v twice to %v", c.pid, in.pid)
	}
	c.Locked(func(cin *Inner) {
		if cin.Parent != in.pid {
			db.DFatalf("AddChild %v to %v but parent is %v", c.pid, in.pid, cin.Parent)
		}
	})
}

// RemoveChildL unlinks the i-th child; the list's reference moves to
// the caller.
func (in *Inner) RemoveChildL(i int) *Task {
	c := in.children[i]
	in.children = slices.Delete(in.children, i, i+1)
	return c
}

// TakeChildrenL empties the list; its references move to the caller.
func (in *Inner) TakeChildrenL() []*Task {
	cs := in.children
	in.children = make([]*Task, 0)
	return cs
}

func (in *Inner) NChildren() int {
	return len(in.children)
}

func (in *Inner) Child(i int) *Task {
	return in.children[i]
}

func (in *Inner) ChildPids() []Tpid {
	pids := make([]Tpid, 0, len(in.children))
	for _, c := range in.children {
		pids = append(pids, c.pid)
	}
	return pids
}

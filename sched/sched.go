// Package sched is the single-hart stride scheduler: a ready queue
// and the processor's current-task slot.
//
// The scheduler holds one task reference for each queued task and one
// for the current task. Add hands the caller's reference to the
// scheduler; Remove drops it.
package sched

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	db "rvos/debug"
	"rvos/task"
)

const (
	BIG_STRIDE   = uint64(1) << 20
	DEFAULT_PRIO = 16
	MIN_PRIO     = 2
)

type entry struct {
	prio int64
	pass uint64
}

type Scheduler interface {
	Add(t *task.Task)
	Remove(t *task.Task) bool
	Suspend(t *task.Task)
	Current() *task.Task
	TakeCurrent() *task.Task
	RunNext() *task.Task
	SetPriority(t *task.Task, p int64) int64
}

type Manager struct {
	sync.Mutex
	ready   []*task.Task
	current *task.Task
	sched   map[task.Tpid]*entry
	nswitch uint64
}

func NewManager() *Manager {
	return &Manager{
		ready: make([]*task.Task, 0),
		sched: make(map[task.Tpid]*entry),
	}
}

func (m *Manager) String() string {
	m.Lock()
	defer m.Unlock()
	return fmt.Sprintf("{current %v ready %v}", m.current, m.ready)
}

func (m *Manager) entryL(t *task.Task) *entry {
	e, ok := m.sched[t.Pid()]
	if !ok {
		e = &entry{prio: DEFAULT_PRIO}
		m.sched[t.Pid()] = e
	}
	return e
}

// Add makes t runnable.
func (m *Manager) Add(t *task.Task) {
	m.Lock()
	defer m.Unlock()
	if m.current == t || slices.Contains(m.ready, t) {
		db.DFatalf("Add %v twice", t)
	}
	m.entryL(t)
	t.SetStatus(task.Ready)
	m.ready = append(m.ready, t)
	db.DPrintf(db.SCHED, "add %v", t.Pid())
}

// Remove takes t off the processor or the ready queue and drops the
// scheduler's reference. It reports whether t was there.
func (m *Manager) Remove(t *task.Task) bool {
	m.Lock()
	defer m.Unlock()
	found := false
	if m.current == t {
		m.current = nil
		found = true
	} else if i := slices.Index(m.ready, t); i >= 0 {
		m.ready = slices.Delete(m.ready, i, i+1)
		found = true
	}
	if found {
		delete(m.sched, t.Pid())
		t.DecRef()
		db.DPrintf(db.SCHED, "remove %v", t.Pid())
	}
	return found
}

// Suspend moves the current task t back to the ready queue.
func (m *Manager) Suspend(t *task.Task) {
	m.Lock()
	defer m.Unlock()
	if m.current != t {
		db.DFatalf("Suspend %v current %v", t, m.current)
	}
	m.current = nil
	t.SetStatus(task.Ready)
	m.ready = append(m.ready, t)
	db.DPrintf(db.SCHED, "suspend %v", t.Pid())
}

// Current returns the running task without taking a reference.
func (m *Manager) Current() *task.Task {
	m.Lock()
	defer m.Unlock()
	return m.current
}

// TakeCurrent empties the processor; the scheduler's reference moves
// to the caller.
func (m *Manager) TakeCurrent() *task.Task {
	m.Lock()
	defer m.Unlock()
	t := m.current
	m.current = nil
	return t
}

// RunNext puts the ready task with the smallest pass on the processor,
// which must be idle. It returns nil if nothing is ready.
func (m *Manager) RunNext() *task.Task {
	m.Lock()
	defer m.Unlock()
	if m.current != nil {
		db.DFatalf("RunNext while %v is running", m.current)
	}
	if len(m.ready) == 0 {
		return nil
	}
	best := 0
	for i, t := range m.ready {
		if less(m.entryL(t).pass, m.entryL(m.ready[best]).pass) {
			best = i
		}
	}
	t := m.ready[best]
	m.ready = slices.Delete(m.ready, best, best+1)
	e := m.entryL(t)
	e.pass += BIG_STRIDE / uint64(e.prio)
	m.current = t
	m.nswitch++
	t.SetStatus(task.Running)
	db.DPrintf(db.SCHED, "run %v pass %d", t.Pid(), e.pass)
	return t
}

// pass comparison that tolerates wraparound
func less(a, b uint64) bool {
	return int64(a-b) < 0
}

// SetPriority sets t's priority; -1 if p is below MIN_PRIO.
func (m *Manager) SetPriority(t *task.Task, p int64) int64 {
	if p < MIN_PRIO {
		return -1
	}
	m.Lock()
	defer m.Unlock()
	m.entryL(t).prio = p
	db.DPrintf(db.SCHED, "prio %v %d", t.Pid(), p)
	return p
}

func (m *Manager) Len() int {
	m.Lock()
	defer m.Unlock()
	return len(m.ready)
}

func (m *Manager) NSwitch() uint64 {
	m.Lock()
	defer m.Unlock()
	return m.nswitch
}

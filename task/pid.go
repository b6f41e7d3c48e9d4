package task

import (
	"fmt"
	"sync"

	db "rvos/debug"
)

type Tpid int

const NoPid Tpid = -1

func (pid Tpid) String() string {
	return fmt.Sprintf("%d", int(pid))
}

// PidAllocator hands out the lowest never-used pid unless a released
// one is available.
type PidAllocator struct {
	sync.Mutex
	next     Tpid
	recycled []Tpid
	used     map[Tpid]bool
}

func NewPidAllocator() *PidAllocator {
	return &PidAllocator{used: make(map[Tpid]bool)}
}

func (pa *PidAllocator) Alloc() Tpid {
	pa.Lock()
	defer pa.Unlock()
	var pid Tpid
	if n := len(pa.recycled); n > 0 {
		pid = pa.recycled[n-1]
		pa.recycled = pa.recycled[:n-1]
	} else {
		pid = pa.next
		pa.next++
	}
	pa.used[pid] = true
	db.DPrintf(db.PID, "alloc %v", pid)
	return pid
}

// Dealloc makes pid available again; its task must be gone.
func (pa *PidAllocator) Dealloc(pid Tpid) {
	pa.Lock()
	defer pa.Unlock()
	if !pa.used[pid] {
		panic(fmt.Sprintf("Dealloc: pid %v not allocated", pid))
	}
	delete(pa.used, pid)
	pa.recycled = append(pa.recycled, pid)
	db.DPrintf(db.PID, "dealloc %v", pid)
}

func (pa *PidAllocator) Len() int {
	pa.Lock()
	defer pa.Unlock()
	return len(pa.used)
}

package procmgr

import (
	"fmt"

	db "rvos/debug"
	"rvos/kerr"
	"rvos/mm"
	"rvos/task"
	"rvos/userbuf"
)

// ANY matches every child in Waitpid.
const ANY task.Tpid = -1

// Waitpid reaps the first zombie child of parent matching pid (ANY
// for any child), storing its exit code at out in parent's address
// space unless out is 0. It never blocks: TErrNoChild if no child
// matches, TErrNotReady if none of the matching children has exited.
func (mgr *ProcMgr) Waitpid(parent *task.Task, pid task.Tpid, out mm.VirtAddr) (task.Tpid, error) {
	tok := parent.Token()
	if out != 0 {
		if _, err := userbuf.Translate(mgr.mmu, tok, out, 4, userbuf.PERM_WRITE); err != nil {
			return task.NoPid, err
		}
	}
	var child *task.Task
	found := false
	parent.Locked(func(in *task.Inner) {
		for i := 0; i < in.NChildren(); i++ {
			c := in.Child(i)
			if pid != ANY && c.Pid() != pid {
				continue
			}
			found = true
			if c.IsZombie() {
				child = in.RemoveChildL(i)
				return
			}
		}
	})
	if !found {
		return task.NoPid, kerr.MkErr(kerr.TErrNoChild, pid)
	}
	if child == nil {
		return task.NoPid, kerr.MkErr(kerr.TErrNotReady, pid)
	}
	if n := child.RefCount(); n != 1 {
		panic(fmt.Sprintf("Waitpid: reaped %v has %d owners", child.Pid(), n))
	}
	code := child.ExitCode()
	if out != 0 {
		if err := userbuf.WriteI32(mgr.mmu, tok, out, code); err != nil {
			db.DPrintf(db.PROCMGR_ERR, "waitpid %v store %v err %v", parent.Pid(), out, err)
		}
	}
	mgr.release(child)
	db.DPrintf(db.PROCMGR, "waitpid %v reaped %v code %d", parent.Pid(), child.Pid(), code)
	return child.Pid(), nil
}

// release drops the last reference to a reaped task and recycles its
// pid.
func (mgr *ProcMgr) release(t *task.Task) {
	t.DecRef()
	mgr.unregister(t.Pid())
	mgr.pids.Dealloc(t.Pid())
}

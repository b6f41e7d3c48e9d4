package ksyscall

import (
	db "rvos/debug"
	"rvos/fdtable"
	"rvos/fs"
	"rvos/kerr"
	"rvos/mm"
	"rvos/task"
	"rvos/userbuf"
)

// file returns the object fd names with an extra reference, so that it
// stays open while the caller uses it outside t's lock. The caller must
// Close it.
func (sys *Syscall) file(t *task.Task, fd int) (*fdtable.Entry, error) {
	var e *fdtable.Entry
	var err error
	t.Fds(func(fdt *fdtable.FdTable) {
		e, err = fdt.Get(fd)
		if err != nil {
			return
		}
		err = e.File.Reopen()
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (sys *Syscall) Read(t *task.Task, fd int, buf mm.VirtAddr, n uint64) int64 {
	e, err := sys.file(t, fd)
	if err != nil {
		return ret(t, "read", 0, err)
	}
	defer e.File.Close()
	if !e.File.Readable() {
		return ret(t, "read", 0, kerr.MkErr(kerr.TErrBadFd, fd))
	}
	ub, err := userbuf.New(sys.mmu, t.Token(), buf, int(n), userbuf.PERM_WRITE)
	if err != nil {
		return ret(t, "read", 0, err)
	}
	cnt, err := e.File.Read(ub)
	return ret(t, "read", int64(cnt), err)
}

func (sys *Syscall) Write(t *task.Task, fd int, buf mm.VirtAddr, n uint64) int64 {
	e, err := sys.file(t, fd)
	if err != nil {
		return ret(t, "write", 0, err)
	}
	defer e.File.Close()
	if !e.File.Writable() {
		return ret(t, "write", 0, kerr.MkErr(kerr.TErrBadFd, fd))
	}
	ub, err := userbuf.New(sys.mmu, t.Token(), buf, int(n), userbuf.PERM_READ)
	if err != nil {
		return ret(t, "write", 0, err)
	}
	cnt, err := e.File.Write(ub)
	return ret(t, "write", int64(cnt), err)
}

// Open ignores dirfd: there is one flat namespace.
func (sys *Syscall) Open(t *task.Task, dirfd int64, path mm.VirtAddr, flags uint32, mode uint32) int64 {
	name, err := userbuf.ReadStr(sys.mmu, t.Token(), path)
	if err != nil {
		return ret(t, "open", 0, err)
	}
	fl := fs.OpenFlags(flags)
	if !fl.Valid() {
		return ret(t, "open", 0, kerr.MkErr(kerr.TErrFlags, fl))
	}
	f, ino, err := sys.fsys.Open(name, fl)
	if err != nil {
		return ret(t, "open", 0, err)
	}
	var fd int
	t.Fds(func(fdt *fdtable.FdTable) {
		fd = fdt.Insert(fdtable.NewEntry(f, ino))
	})
	db.DPrintf(db.FS, "%v open %q %v -> %d", t.Pid(), name, fl, fd)
	return int64(fd)
}

func (sys *Syscall) Close(t *task.Task, fd int) int64 {
	var err error
	t.Fds(func(fdt *fdtable.FdTable) {
		err = fdt.Close(fd)
	})
	return ret(t, "close", 0, err)
}

func (sys *Syscall) Dup(t *task.Task, fd int) int64 {
	var nfd int
	var err error
	t.Fds(func(fdt *fdtable.FdTable) {
		nfd, err = fdt.Dup(fd)
	})
	return ret(t, "dup", int64(nfd), err)
}

// Pipe stores [read fd, write fd] as two u64 at out. out is checked
// before any descriptor is allocated.
func (sys *Syscall) Pipe(t *task.Task, out mm.VirtAddr) int64 {
	tok := t.Token()
	if _, err := userbuf.Translate(sys.mmu, tok, out, 16, userbuf.PERM_WRITE); err != nil {
		return ret(t, "pipe", 0, err)
	}
	r, w := fs.MakePipeWait(sys.wait)
	var rfd, wfd int
	t.Fds(func(fdt *fdtable.FdTable) {
		rfd = fdt.Insert(fdtable.NewEntry(r, fs.NoInum))
		wfd = fdt.Insert(fdtable.NewEntry(w, fs.NoInum))
	})
	if err := userbuf.WriteU64(sys.mmu, tok, out, uint64(rfd)); err != nil {
		return ret(t, "pipe", 0, err)
	}
	if err := userbuf.WriteU64(sys.mmu, tok, out+8, uint64(wfd)); err != nil {
		return ret(t, "pipe", 0, err)
	}
	return 0
}

func (sys *Syscall) Fstat(t *task.Task, fd int, out mm.VirtAddr) int64 {
	var ino fs.Tinum
	var err error
	t.Fds(func(fdt *fdtable.FdTable) {
		var e *fdtable.Entry
		e, err = fdt.Get(fd)
		if err == nil {
			ino = e.Ino
		}
	})
	if err != nil {
		return ret(t, "fstat", 0, err)
	}
	st := &fs.Stat{Ino: uint64(ino), Mode: fs.S_IFREG, Nlink: 1}
	if ino != fs.NoInum {
		st.Nlink = sys.fsys.CountLink(ino)
	}
	if err := userbuf.CopyOut(sys.mmu, t.Token(), out, st.Marshal()); err != nil {
		return ret(t, "fstat", 0, err)
	}
	return 0
}

func (sys *Syscall) Linkat(t *task.Task, olddirfd int64, oldpath mm.VirtAddr, newdirfd int64, newpath mm.VirtAddr, flags uint64) int64 {
	tok := t.Token()
	o, err := userbuf.ReadStr(sys.mmu, tok, oldpath)
	if err != nil {
		return ret(t, "linkat", 0, err)
	}
	n, err := userbuf.ReadStr(sys.mmu, tok, newpath)
	if err != nil {
		return ret(t, "linkat", 0, err)
	}
	if o == n {
		return ret(t, "linkat", 0, kerr.MkErr(kerr.TErrExists, n))
	}
	return ret(t, "linkat", 0, sys.fsys.Link(o, n))
}

func (sys *Syscall) Unlinkat(t *task.Task, dirfd int64, path mm.VirtAddr, flags uint64) int64 {
	name, err := userbuf.ReadStr(sys.mmu, t.Token(), path)
	if err != nil {
		return ret(t, "unlinkat", 0, err)
	}
	return ret(t, "unlinkat", 0, sys.fsys.Unlink(name))
}

// Package fdtable is a process's descriptor table. A table belongs to
// exactly one task and is guarded by that task's lock; callers hold it
// across every method.
package fdtable

import (
	"fmt"

	db "rvos/debug"
	"rvos/fs"
	"rvos/kerr"
)

const (
	STDIN  = 0
	STDOUT = 1
	STDERR = 2
)

type Entry struct {
	File fs.File
	Ino  fs.Tinum
}

func NewEntry(f fs.File, ino fs.Tinum) *Entry {
	return &Entry{File: f, Ino: ino}
}

func (e *Entry) String() string {
	return fmt.Sprintf("{%v ino %d}", e.File, e.Ino)
}

// FdTable maps descriptors to entries; nil is an empty slot.
type FdTable struct {
	fds []*Entry
}

func New() *FdTable {
	return &FdTable{fds: make([]*Entry, 0, 8)}
}

// NewStdio returns a table with stdin at 0 and stdout at 1 and 2.
func NewStdio(stdin, stdout fs.File) *FdTable {
	fdt := New()
	fdt.Insert(NewEntry(stdin, fs.NoInum))
	fdt.Insert(NewEntry(stdout, fs.NoInum))
	stdout.Reopen()
	fdt.Insert(NewEntry(stdout, fs.NoInum))
	return fdt
}

func (fdt *FdTable) String() string {
	return fmt.Sprintf("%v", fdt.fds)
}

func (fdt *FdTable) Len() int {
	return len(fdt.fds)
}

// Alloc returns the lowest empty slot, growing the table by one if
// there is none. The slot stays empty until Install.
func (fdt *FdTable) Alloc() int {
	for i, e := range fdt.fds {
		if e == nil {
			return i
		}
	}
	fdt.fds = append(fdt.fds, nil)
	return len(fdt.fds) - 1
}

func (fdt *FdTable) Install(fd int, e *Entry) {
	if fd < 0 || fd >= len(fdt.fds) || fdt.fds[fd] != nil {
		db.DFatalf("Install fd %d in %v", fd, fdt)
	}
	fdt.fds[fd] = e
}

// Insert installs e in a newly allocated slot; the table takes over
// the caller's reference to e.File.
func (fdt *FdTable) Insert(e *Entry) int {
	fd := fdt.Alloc()
	fdt.Install(fd, e)
	db.DPrintf(db.FDTABLE, "insert %d %v", fd, e)
	return fd
}

func (fdt *FdTable) Get(fd int) (*Entry, error) {
	if fd < 0 || fd >= len(fdt.fds) || fdt.fds[fd] == nil {
		return nil, kerr.MkErr(kerr.TErrBadFd, fd)
	}
	return fdt.fds[fd], nil
}

// Close empties the slot and drops its reference to the file.
func (fdt *FdTable) Close(fd int) error {
	e, err := fdt.Get(fd)
	if err != nil {
		return err
	}
	fdt.fds[fd] = nil
	db.DPrintf(db.FDTABLE, "close %d %v", fd, e)
	if err := e.File.Close(); err != nil {
		db.DPrintf(db.FS_ERR, "close %d %v err %v", fd, e, err)
	}
	return nil
}

// Dup installs the object of fd in a new slot.
func (fdt *FdTable) Dup(fd int) (int, error) {
	e, err := fdt.Get(fd)
	if err != nil {
		return -1, err
	}
	if err := e.File.Reopen(); err != nil {
		return -1, err
	}
	return fdt.Insert(NewEntry(e.File, e.Ino)), nil
}

// Clone returns a table with the same slots naming the same objects.
func (fdt *FdTable) Clone() *FdTable {
	nfdt := &FdTable{fds: make([]*Entry, len(fdt.fds), cap(fdt.fds))}
	for i, e := range fdt.fds {
		if e == nil {
			continue
		}
		if err := e.File.Reopen(); err != nil {
			db.DFatalf("Clone reopen %d %v err %v", i, e, err)
		}
		nfdt.fds[i] = NewEntry(e.File, e.Ino)
	}
	return nfdt
}

// Clear closes every descriptor.
func (fdt *FdTable) Clear() {
	for fd, e := range fdt.fds {
		if e != nil {
			fdt.Close(fd)
		}
	}
	fdt.fds = fdt.fds[:0]
}

// Open returns the descriptors in use.
func (fdt *FdTable) Open() []int {
	fds := make([]int, 0, len(fdt.fds))
	for fd, e := range fdt.fds {
		if e != nil {
			fds = append(fds, fd)
		}
	}
	return fds
}

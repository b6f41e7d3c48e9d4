package fs

import (
	"fmt"
	"io"
	"sync"

	db "rvos/debug"
	"rvos/kerr"
	"rvos/userbuf"
)

// OSInode is an open regular file: an inode, the access mode it was
// opened with, and an offset shared by every descriptor naming it.
type OSInode struct {
	mu       sync.Mutex
	mfs      *MemFs
	inode    *Inode
	readable bool
	writable bool
	off      int
	nref     int
}

func makeOSInode(mfs *MemFs, inode *Inode, r, w bool) *OSInode {
	return &OSInode{mfs: mfs, inode: inode, readable: r, writable: w, nref: 1}
}

func (f *OSInode) String() string {
	return fmt.Sprintf("{osinode %d r %v w %v}", f.inode.Inum(), f.readable, f.writable)
}

func (f *OSInode) Inum() Tinum {
	return f.inode.Inum()
}

func (f *OSInode) Readable() bool {
	return f.readable
}

func (f *OSInode) Writable() bool {
	return f.writable
}

func (f *OSInode) Read(ub *userbuf.UserBuffer) (int, error) {
	if !f.readable {
		return 0, kerr.MkErr(kerr.TErrFlags, f.Inum())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b := make([]byte, ub.Remain())
	n := f.inode.readAt(b, f.off)
	ub.Write(b[:n])
	f.off += n
	return n, nil
}

func (f *OSInode) Write(ub *userbuf.UserBuffer) (int, error) {
	if !f.writable {
		return 0, kerr.MkErr(kerr.TErrFlags, f.Inum())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := io.ReadAll(ub)
	if err != nil {
		return 0, err
	}
	n := f.inode.writeAt(b, f.off)
	f.off += n
	return n, nil
}

func (f *OSInode) Reopen() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nref <= 0 {
		return kerr.MkErr(kerr.TErrBadFd, f.Inum())
	}
	f.nref++
	return nil
}

func (f *OSInode) Close() error {
	f.mu.Lock()
	f.nref--
	n := f.nref
	f.mu.Unlock()
	if n < 0 {
		return kerr.MkErr(kerr.TErrBadFd, f.Inum())
	}
	if n == 0 {
		db.DPrintf(db.FS, "close last %v", f)
		f.mfs.release(f.inode)
	}
	return nil
}

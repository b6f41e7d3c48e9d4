package fs

import (
	"strings"
	"sync"

	db "rvos/debug"
	"rvos/kerr"
	"rvos/util/refmap"
)

// MemFs is an in-memory, single-directory filesystem. Names map to
// inode numbers; several names may share an inode (hard links). An
// inode lives while it has a name or an open file.
type MemFs struct {
	sync.Mutex
	names  map[string]Tinum
	inodes map[Tinum]*Inode
	open   *refmap.RefTable[Tinum, *Inode]
	next   Tinum
}

func MakeMemFs() *MemFs {
	return &MemFs{
		names:  make(map[string]Tinum),
		inodes: make(map[Tinum]*Inode),
		open:   refmap.NewRefTable[Tinum, *Inode](db.FS),
		next:   1,
	}
}

func clean(path string) string {
	return strings.TrimLeft(path, "/")
}

// Open resolves path. O_CREATE makes the file if it is missing and
// truncates it otherwise; O_TRUNC truncates an existing file.
func (mfs *MemFs) Open(path string, flags OpenFlags) (File, Tinum, error) {
	if !flags.Valid() {
		return nil, NoInum, kerr.MkErr(kerr.TErrFlags, flags)
	}
	name := clean(path)
	if name == "" {
		return nil, NoInum, kerr.MkErr(kerr.TErrNotfound, path)
	}
	mfs.Lock()
	defer mfs.Unlock()

	ino, ok := mfs.names[name]
	var inode *Inode
	if ok {
		inode = mfs.inodes[ino]
		if flags&(O_CREATE|O_TRUNC) != 0 {
			inode.truncate()
		}
	} else {
		if flags&O_CREATE == 0 {
			db.DPrintf(db.FS_ERR, "open %q %v: not found", path, flags)
			return nil, NoInum, kerr.MkErr(kerr.TErrNotfound, path)
		}
		ino = mfs.next
		mfs.next++
		inode = makeInode(ino)
		mfs.names[name] = ino
		mfs.inodes[ino] = inode
		db.DPrintf(db.FS, "create %q ino %d", name, ino)
	}
	r, w := flags.ReadWrite()
	return mfs.openL(inode, r, w), ino, nil
}

func (mfs *MemFs) openL(inode *Inode, r, w bool) *OSInode {
	mfs.open.Insert(inode.Inum(), func() *Inode { return inode })
	return makeOSInode(mfs, inode, r, w)
}

// Called when the last descriptor of an OSInode is closed
func (mfs *MemFs) release(inode *Inode) {
	mfs.Lock()
	defer mfs.Unlock()
	del, err := mfs.open.Delete(inode.Inum())
	if err != nil {
		db.DFatalf("release %v err %v", inode, err)
	}
	if del && inode.Nlink() == 0 {
		mfs.freeL(inode)
	}
}

func (mfs *MemFs) freeL(inode *Inode) {
	db.DPrintf(db.FS, "free %v", inode)
	delete(mfs.inodes, inode.Inum())
}

// CountLink returns the number of names of ino; 0 if there is no such
// inode.
func (mfs *MemFs) CountLink(ino Tinum) uint32 {
	mfs.Lock()
	defer mfs.Unlock()
	if inode, ok := mfs.inodes[ino]; ok {
		return inode.Nlink()
	}
	return 0
}

// Link gives the file oldpath the additional name newpath.
func (mfs *MemFs) Link(oldpath, newpath string) error {
	o, n := clean(oldpath), clean(newpath)
	mfs.Lock()
	defer mfs.Unlock()
	ino, ok := mfs.names[o]
	if !ok {
		return kerr.MkErr(kerr.TErrNotfound, oldpath)
	}
	if _, ok := mfs.names[n]; ok || n == "" {
		return kerr.MkErr(kerr.TErrExists, newpath)
	}
	mfs.names[n] = ino
	mfs.inodes[ino].incNlink()
	db.DPrintf(db.FS, "link %q -> %q ino %d", n, o, ino)
	return nil
}

// Unlink removes the name path. The inode is freed once it has no
// names and no open files.
func (mfs *MemFs) Unlink(path string) error {
	name := clean(path)
	mfs.Lock()
	defer mfs.Unlock()
	ino, ok := mfs.names[name]
	if !ok {
		return kerr.MkErr(kerr.TErrNotfound, path)
	}
	delete(mfs.names, name)
	inode := mfs.inodes[ino]
	if inode.decNlink() == 0 && mfs.open.Refs(ino) == 0 {
		mfs.freeL(inode)
	}
	db.DPrintf(db.FS, "unlink %q ino %d", name, ino)
	return nil
}

// Len returns the number of names and of live inodes.
func (mfs *MemFs) Len() (int, int) {
	mfs.Lock()
	defer mfs.Unlock()
	return len(mfs.names), len(mfs.inodes)
}

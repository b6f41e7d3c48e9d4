package fs

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"rvos/userbuf"
)

type Tinum uint32

// Backing id of objects that are not in the filesystem (pipe ends,
// stdio).
const NoInum Tinum = 0xFFFFFFFF

// File is an object a descriptor can name. Reopen and Close count the
// descriptors sharing the object; the last Close releases it.
type File interface {
	Readable() bool
	Writable() bool
	Read(ub *userbuf.UserBuffer) (int, error)
	Write(ub *userbuf.UserBuffer) (int, error)
	Reopen() error
	Close() error
}

// FileSystem is the flat, directory-less namespace the syscalls
// resolve paths in.
type FileSystem interface {
	Open(path string, flags OpenFlags) (File, Tinum, error)
	CountLink(ino Tinum) uint32
	Link(oldpath, newpath string) error
	Unlink(path string) error
}

type OpenFlags uint32

const (
	O_RDONLY OpenFlags = 0
	O_WRONLY OpenFlags = 1 << 0
	O_RDWR   OpenFlags = 1 << 1
	O_CREATE OpenFlags = 1 << 9
	O_TRUNC  OpenFlags = 1 << 10

	o_ALL = O_WRONLY | O_RDWR | O_CREATE | O_TRUNC
)

func (f OpenFlags) Valid() bool {
	return f&^o_ALL == 0 && f&(O_WRONLY|O_RDWR) != O_WRONLY|O_RDWR
}

// ReadWrite returns the access the flags ask for.
func (f OpenFlags) ReadWrite() (bool, bool) {
	switch {
	case f&O_WRONLY != 0:
		return false, true
	case f&O_RDWR != 0:
		return true, true
	default:
		return true, false
	}
}

func (f OpenFlags) String() string {
	return fmt.Sprintf("%#x", uint32(f))
}

type Tmode uint32

const (
	S_IFDIR Tmode = unix.S_IFDIR
	S_IFREG Tmode = unix.S_IFREG
)

const STAT_SIZE = 80

// Stat is what fstat reports: dev u64, ino u64, mode u32, nlink u32,
// then 56 reserved bytes, little endian.
type Stat struct {
	Dev   uint64
	Ino   uint64
	Mode  Tmode
	Nlink uint32
}

func (st *Stat) String() string {
	return fmt.Sprintf("{dev %d ino %d mode %#o nlink %d}", st.Dev, st.Ino, st.Mode, st.Nlink)
}

func (st *Stat) Marshal() []byte {
	b := make([]byte, STAT_SIZE)
	binary.LittleEndian.PutUint64(b[0:], st.Dev)
	binary.LittleEndian.PutUint64(b[8:], st.Ino)
	binary.LittleEndian.PutUint32(b[16:], uint32(st.Mode))
	binary.LittleEndian.PutUint32(b[20:], st.Nlink)
	return b
}

func UnmarshalStat(b []byte) *Stat {
	return &Stat{
		Dev:   binary.LittleEndian.Uint64(b[0:]),
		Ino:   binary.LittleEndian.Uint64(b[8:]),
		Mode:  Tmode(binary.LittleEndian.Uint32(b[16:])),
		Nlink: binary.LittleEndian.Uint32(b[20:]),
	}
}

package fs

import (
	"fmt"
	"sync"
)

type Inode struct {
	mu    sync.Mutex
	inum  Tinum
	nlink uint32
	data  []byte
}

func makeInode(inum Tinum) *Inode {
	return &Inode{inum: inum, nlink: 1}
}

func (inode *Inode) String() string {
	inode.mu.Lock()
	defer inode.mu.Unlock()
	return fmt.Sprintf("{inode %d nlink %d len %d}", inode.inum, inode.nlink, len(inode.data))
}

func (inode *Inode) Inum() Tinum {
	return inode.inum
}

func (inode *Inode) Nlink() uint32 {
	inode.mu.Lock()
	defer inode.mu.Unlock()
	return inode.nlink
}

func (inode *Inode) incNlink() {
	inode.mu.Lock()
	defer inode.mu.Unlock()
	inode.nlink++
}

// Returns the new link count
func (inode *Inode) decNlink() uint32 {
	inode.mu.Lock()
	defer inode.mu.Unlock()
	if inode.nlink == 0 {
		panic(fmt.Sprintf("decNlink %d", inode.inum))
	}
	inode.nlink--
	return inode.nlink
}

func (inode *Inode) Size() int {
	inode.mu.Lock()
	defer inode.mu.Unlock()
	return len(inode.data)
}

func (inode *Inode) truncate() {
	inode.mu.Lock()
	defer inode.mu.Unlock()
	inode.data = inode.data[:0]
}

func (inode *Inode) readAt(b []byte, off int) int {
	inode.mu.Lock()
	defer inode.mu.Unlock()
	if off >= len(inode.data) {
		return 0
	}
	return copy(b, inode.data[off:])
}

func (inode *Inode) writeAt(b []byte, off int) int {
	inode.mu.Lock()
	defer inode.mu.Unlock()
	if end := off + len(b); end > len(inode.data) {
		n := len(inode.data)
		if end > cap(inode.data) {
			d := make([]byte, end, 2*end)
			copy(d, inode.data)
			inode.data = d
		} else {
			inode.data = inode.data[:end]
			// a hole left by an earlier truncate reads as zeros
			clear(inode.data[n:])
		}
	}
	return copy(inode.data[off:], b)
}

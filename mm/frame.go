package mm

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"

	db "rvos/debug"
)

// FrameAllocator hands out zeroed physical frames. Frames below
// current that have been freed sit on the recycled stack and are
// preferred over fresh ones.
type FrameAllocator struct {
	sync.Mutex
	current  PPN
	end      PPN
	recycled []PPN
	frames   map[PPN][]byte
}

func NewFrameAllocator(nframes int) *FrameAllocator {
	fa := &FrameAllocator{
		current: 1,
		end:     PPN(nframes + 1),
		frames:  make(map[PPN][]byte),
	}
	db.DPrintf(db.MM, "frame allocator %d frames (%v)", nframes, humanize.IBytes(uint64(nframes)*PAGE_SIZE))
	return fa
}

func (fa *FrameAllocator) Alloc() (PPN, bool) {
	fa.Lock()
	defer fa.Unlock()

	var ppn PPN
	if n := len(fa.recycled); n > 0 {
		ppn = fa.recycled[n-1]
		fa.recycled = fa.recycled[:n-1]
	} else if fa.current < fa.end {
		ppn = fa.current
		fa.current++
	} else {
		return 0, false
	}
	fa.frames[ppn] = make([]byte, PAGE_SIZE)
	return ppn, true
}

func (fa *FrameAllocator) Dealloc(ppn PPN) {
	fa.Lock()
	defer fa.Unlock()

	if _, ok := fa.frames[ppn]; !ok || ppn >= fa.current {
		panic(fmt.Sprintf("frame %#x has not been allocated", uint64(ppn)))
	}
	delete(fa.frames, ppn)
	fa.recycled = append(fa.recycled, ppn)
}

// Frame returns the bytes backing ppn; nil if ppn is not allocated.
func (fa *FrameAllocator) Frame(ppn PPN) []byte {
	fa.Lock()
	defer fa.Unlock()
	return fa.frames[ppn]
}

func (fa *FrameAllocator) NFree() int {
	fa.Lock()
	defer fa.Unlock()
	return int(fa.end-fa.current) + len(fa.recycled)
}

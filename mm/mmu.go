package mm

import (
	"sync"

	"github.com/dustin/go-humanize"

	db "rvos/debug"
	"rvos/kerr"
)

// Mmu owns the frame allocator and the registry from tokens to live
// address spaces. It is the translation collaborator the user-memory
// bridge consults.
type Mmu struct {
	mu     sync.RWMutex
	fa     *FrameAllocator
	spaces map[Token]*MemorySet
}

func NewMmu(nframes int) *Mmu {
	return &Mmu{
		fa:     NewFrameAllocator(nframes),
		spaces: make(map[Token]*MemorySet),
	}
}

func (mmu *Mmu) NFreeFrames() int {
	return mmu.fa.NFree()
}

// NewMemorySet allocates an empty address space and registers its
// token.
func (mmu *Mmu) NewMemorySet() (*MemorySet, error) {
	root, ok := mmu.fa.Alloc()
	if !ok {
		return nil, kerr.MkErr(kerr.TErrNoMem, "root")
	}
	ms := newMemorySet(mmu, root)
	mmu.mu.Lock()
	defer mmu.mu.Unlock()
	mmu.spaces[ms.Token()] = ms
	return ms, nil
}

func (mmu *Mmu) unregister(ms *MemorySet) {
	mmu.mu.Lock()
	defer mmu.mu.Unlock()
	delete(mmu.spaces, ms.Token())
}

func (mmu *Mmu) lookupSpace(tok Token) (*MemorySet, bool) {
	mmu.mu.RLock()
	defer mmu.mu.RUnlock()
	ms, ok := mmu.spaces[tok]
	return ms, ok
}

// Translate returns the entry for vpn in the address space named by
// tok, and the frame it maps.
func (mmu *Mmu) Translate(tok Token, vpn VPN) (PTE, []byte, bool) {
	ms, ok := mmu.lookupSpace(tok)
	if !ok {
		return 0, nil, false
	}
	pte, ok := ms.Lookup(vpn)
	if !ok {
		return 0, nil, false
	}
	frame := mmu.fa.Frame(pte.PPN())
	if frame == nil {
		return 0, nil, false
	}
	return pte, frame, true
}

// FromImage builds a fresh address space for a program image: the
// image bytes at USER_BASE (read/exec), one unmapped guard page, then
// a read/write user stack. It returns the address space, the initial
// user stack pointer and the entry point.
func (mmu *Mmu) FromImage(img []byte) (*MemorySet, VirtAddr, VirtAddr, error) {
	ms, err := mmu.NewMemorySet()
	if err != nil {
		return nil, 0, 0, err
	}
	textEnd := USER_BASE + VirtAddr(len(img))
	if len(img) == 0 {
		textEnd = USER_BASE + 1
	}
	if err := ms.MapRange(USER_BASE, textEnd, PTE_R|PTE_X|PTE_U); err != nil {
		ms.Release()
		return nil, 0, 0, err
	}
	for off := 0; off < len(img); off += PAGE_SIZE {
		va := USER_BASE + VirtAddr(off)
		_, frame, _ := mmu.Translate(ms.Token(), va.Floor())
		copy(frame, img[off:])
	}
	stackBottom := textEnd.Ceil().Addr() + PAGE_SIZE
	stackTop := stackBottom + USER_STACK_SIZE
	if err := ms.MapRange(stackBottom, stackTop, PTE_R|PTE_W|PTE_U); err != nil {
		ms.Release()
		return nil, 0, 0, err
	}
	db.DPrintf(db.MM, "image %v (%v) entry %v sp %v", ms.Token(), humanize.Bytes(uint64(len(img))), USER_BASE, stackTop)
	return ms, stackTop, USER_BASE, nil
}

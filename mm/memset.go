package mm

import (
	"fmt"
	"sort"
	"sync"

	db "rvos/debug"
	"rvos/kerr"
)

// MemorySet is one user address space: a root frame that names it
// (see Token) and the leaf mappings from virtual pages to frames.
type MemorySet struct {
	sync.Mutex
	mmu      *Mmu
	root     PPN
	ptes     map[VPN]PTE
	released bool
}

func newMemorySet(mmu *Mmu, root PPN) *MemorySet {
	return &MemorySet{
		mmu:  mmu,
		root: root,
		ptes: make(map[VPN]PTE),
	}
}

func (ms *MemorySet) String() string {
	ms.Lock()
	defer ms.Unlock()
	return fmt.Sprintf("{ms %v %d pages}", MkToken(ms.root), len(ms.ptes))
}

func (ms *MemorySet) Token() Token {
	return MkToken(ms.root)
}

func (ms *MemorySet) NPages() int {
	ms.Lock()
	defer ms.Unlock()
	return len(ms.ptes)
}

func (ms *MemorySet) Lookup(vpn VPN) (PTE, bool) {
	ms.Lock()
	defer ms.Unlock()
	pte, ok := ms.ptes[vpn]
	if !ok || !pte.IsValid() {
		return 0, false
	}
	return pte, true
}

// Caller holds lock
func (ms *MemorySet) mapL(vpn VPN, flags PTEFlags) error {
	if _, ok := ms.ptes[vpn]; ok {
		return kerr.MkErr(kerr.TErrExists, vpn.Addr())
	}
	ppn, ok := ms.mmu.fa.Alloc()
	if !ok {
		return kerr.MkErr(kerr.TErrNoMem, vpn.Addr())
	}
	ms.ptes[vpn] = NewPTE(ppn, flags|PTE_V)
	return nil
}

// Caller holds lock
func (ms *MemorySet) unmapL(vpn VPN) error {
	pte, ok := ms.ptes[vpn]
	if !ok {
		return kerr.MkErr(kerr.TErrNotfound, vpn.Addr())
	}
	delete(ms.ptes, vpn)
	ms.mmu.fa.Dealloc(pte.PPN())
	return nil
}

// MapRange maps every page touching [start, end) with flags. On
// failure the pages mapped by this call are unmapped again.
func (ms *MemorySet) MapRange(start, end VirtAddr, flags PTEFlags) error {
	ms.Lock()
	defer ms.Unlock()
	return ms.mapRangeL(start.Floor(), end.Ceil(), flags)
}

func (ms *MemorySet) mapRangeL(lo, hi VPN, flags PTEFlags) error {
	for vpn := lo; vpn < hi; vpn++ {
		if err := ms.mapL(vpn, flags); err != nil {
			for v := lo; v < vpn; v++ {
				ms.unmapL(v)
			}
			return err
		}
	}
	return nil
}

// userRange returns the pages of [start, start+length), which must lie
// in [USER_BASE, USER_TOP) with start page aligned.
func userRange(start VirtAddr, length uint64) (VPN, VPN, error) {
	if !start.Aligned() || start < USER_BASE || start >= USER_TOP || length > uint64(USER_TOP-start) {
		return 0, 0, kerr.MkErr(kerr.TErrInval, start)
	}
	return start.Floor(), (start + VirtAddr(length)).Ceil(), nil
}

// Mmap maps [start, start+length) with the protection bits prot. start
// must be page aligned, prot must be a non-empty subset of
// read/write/exec, and no page of the range may already be mapped.
func (ms *MemorySet) Mmap(start VirtAddr, length uint64, prot uint64) error {
	lo, hi, err := userRange(start, length)
	if err != nil {
		return err
	}
	flags, ok := ProtToFlags(prot)
	if !ok {
		return kerr.MkErr(kerr.TErrInval, prot)
	}
	if int(hi-lo) > ms.mmu.NFreeFrames() {
		return kerr.MkErr(kerr.TErrNoMem, length)
	}
	ms.Lock()
	defer ms.Unlock()
	for vpn := lo; vpn < hi; vpn++ {
		if _, ok := ms.ptes[vpn]; ok {
			return kerr.MkErr(kerr.TErrExists, vpn.Addr())
		}
	}
	if err := ms.mapRangeL(lo, hi, flags); err != nil {
		return err
	}
	db.DPrintf(db.MM, "mmap %v [%v, %v) %v", ms.Token(), lo.Addr(), hi.Addr(), flags)
	return nil
}

// Munmap unmaps [start, start+length); every page must be mapped.
func (ms *MemorySet) Munmap(start VirtAddr, length uint64) error {
	lo, hi, err := userRange(start, length)
	if err != nil {
		return err
	}
	ms.Lock()
	defer ms.Unlock()
	if int(hi-lo) > len(ms.ptes) {
		return kerr.MkErr(kerr.TErrNotfound, start)
	}
	for vpn := lo; vpn < hi; vpn++ {
		if _, ok := ms.ptes[vpn]; !ok {
			return kerr.MkErr(kerr.TErrNotfound, vpn.Addr())
		}
	}
	for vpn := lo; vpn < hi; vpn++ {
		ms.unmapL(vpn)
	}
	db.DPrintf(db.MM, "munmap %v [%v, %v)", ms.Token(), lo.Addr(), hi.Addr())
	return nil
}

// Clone returns an independent copy of ms: every mapped page gets a
// fresh frame with the same contents and flags.
func (ms *MemorySet) Clone() (*MemorySet, error) {
	nms, err := ms.mmu.NewMemorySet()
	if err != nil {
		return nil, err
	}
	ms.Lock()
	defer ms.Unlock()
	nms.Lock()
	defer nms.Unlock()
	for vpn, pte := range ms.ptes {
		ppn, ok := ms.mmu.fa.Alloc()
		if !ok {
			nms.releaseL()
			return nil, kerr.MkErr(kerr.TErrNoMem, vpn.Addr())
		}
		copy(ms.mmu.fa.Frame(ppn), ms.mmu.fa.Frame(pte.PPN()))
		nms.ptes[vpn] = NewPTE(ppn, pte.Flags())
	}
	return nms, nil
}

// Release frees every user frame and the root, and removes the
// address space from the translation registry. Idempotent.
func (ms *MemorySet) Release() {
	ms.Lock()
	defer ms.Unlock()
	ms.releaseL()
}

func (ms *MemorySet) releaseL() {
	if ms.released {
		return
	}
	ms.released = true
	for vpn, pte := range ms.ptes {
		ms.mmu.fa.Dealloc(pte.PPN())
		delete(ms.ptes, vpn)
	}
	ms.mmu.fa.Dealloc(ms.root)
	ms.mmu.unregister(ms)
}

// Mappings returns the mapped pages in address order.
func (ms *MemorySet) Mappings() []VPN {
	ms.Lock()
	defer ms.Unlock()
	vpns := make([]VPN, 0, len(ms.ptes))
	for vpn := range ms.ptes {
		vpns = append(vpns, vpn)
	}
	sort.Slice(vpns, func(i, j int) bool { return vpns[i] < vpns[j] })
	return vpns
}

package userbuf

import (
	db "rvos/debug"
	"rvos/kerr"
	"rvos/mm"
)

// Translator resolves one user page of the address space named by tok
// to its entry and backing frame.
type Translator interface {
	Translate(tok mm.Token, vpn mm.VPN) (mm.PTE, []byte, bool)
}

// Permission masks the syscall boundary asks for.
const (
	// kernel reads user memory (write(2) source, paths, arguments)
	PERM_READ = mm.PTE_R | mm.PTE_U | mm.PTE_V
	// kernel writes user memory (read(2) destination, out structs)
	PERM_WRITE = mm.PTE_W | mm.PTE_U | mm.PTE_V
)

// Translate returns kernel-visible slices covering exactly [ptr,
// ptr+n) of the address space tok, split at page boundaries. Every
// page must be mapped with all bits of perm (V is always required);
// otherwise nothing is returned and the whole request is invalid.
func Translate(tr Translator, tok mm.Token, ptr mm.VirtAddr, n int, perm mm.PTEFlags) ([][]byte, error) {
	if n < 0 {
		return nil, kerr.MkErr(kerr.TErrInval, n)
	}
	perm |= mm.PTE_V
	end := ptr + mm.VirtAddr(n)
	if end < ptr {
		return nil, kerr.MkErr(kerr.TErrFault, ptr)
	}
	bufs := [][]byte{}
	for start := ptr; start < end; {
		vpn := start.Floor()
		pte, frame, ok := tr.Translate(tok, vpn)
		if !ok || !pte.Flags().Contains(perm) {
			db.DPrintf(db.USERBUF_ERR, "translate %v [%v, %v) fault at %v pte %v perm %v", tok, ptr, end, start, pte, perm)
			return nil, kerr.MkErr(kerr.TErrFault, start)
		}
		pgend := (vpn + 1).Addr()
		if end < pgend {
			pgend = end
		}
		off := start.PageOffset()
		bufs = append(bufs, frame[off:off+uint64(pgend-start)])
		start = pgend
	}
	return bufs, nil
}

// New translates [ptr, ptr+n) and wraps the result in a UserBuffer.
func New(tr Translator, tok mm.Token, ptr mm.VirtAddr, n int, perm mm.PTEFlags) (*UserBuffer, error) {
	bufs, err := Translate(tr, tok, ptr, n, perm)
	if err != nil {
		return nil, err
	}
	return NewUserBuffer(bufs), nil
}

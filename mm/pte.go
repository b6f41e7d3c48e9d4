package mm

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// PTEFlags are the low 8 bits of an Sv39 page-table entry.
type PTEFlags uint8

const (
	PTE_V PTEFlags = 1 << iota
	PTE_R
	PTE_W
	PTE_X
	PTE_U
	PTE_G
	PTE_A
	PTE_D
)

// Contains reports whether every bit of perm is set in f.
func (f PTEFlags) Contains(perm PTEFlags) bool {
	return f&perm == perm
}

func (f PTEFlags) String() string {
	var sb strings.Builder
	for i, c := range "VRWXUGAD" {
		if f&(1<<i) != 0 {
			sb.WriteRune(c)
		} else {
			sb.WriteRune('-')
		}
	}
	return sb.String()
}

// ProtToFlags converts mmap protection bits into user PTE flags.
func ProtToFlags(prot uint64) (PTEFlags, bool) {
	const mask = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
	if prot&^mask != 0 || prot&mask == 0 {
		return 0, false
	}
	f := PTE_U | PTE_V
	if prot&unix.PROT_READ != 0 {
		f |= PTE_R
	}
	if prot&unix.PROT_WRITE != 0 {
		f |= PTE_W
	}
	if prot&unix.PROT_EXEC != 0 {
		f |= PTE_X
	}
	return f, true
}

// PTE is a packed Sv39 entry: PPN in bits 10..53, flags in bits 0..7.
type PTE uint64

func NewPTE(ppn PPN, flags PTEFlags) PTE {
	return PTE(uint64(ppn)<<10 | uint64(flags))
}

func (pte PTE) PPN() PPN {
	return PPN((uint64(pte) >> 10) & ((1 << 44) - 1))
}

func (pte PTE) Flags() PTEFlags {
	return PTEFlags(pte & 0xff)
}

func (pte PTE) IsValid() bool {
	return pte.Flags()&PTE_V != 0
}

func (pte PTE) String() string {
	return fmt.Sprintf("{ppn %#x %v}", uint64(pte.PPN()), pte.Flags())
}

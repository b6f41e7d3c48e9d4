package mm

import (
	"fmt"
)

const (
	PAGE_SIZE      = 4096
	PAGE_SIZE_BITS = 12

	// Lowest user virtual address; nothing maps below it so a nil
	// user pointer always faults.
	USER_BASE       VirtAddr = 0x10000
	// End of the Sv39 user half
	USER_TOP        VirtAddr = 1 << 38
	USER_STACK_SIZE          = 2 * PAGE_SIZE

	// Sv39 satp mode field
	SATP_SV39 = uint64(8) << 60
)

type VirtAddr uint64
type VPN uint64
type PPN uint64

// Token identifies an address space to the translation path, like
// the satp value of the process.
type Token uint64

func (va VirtAddr) Floor() VPN {
	return VPN(va >> PAGE_SIZE_BITS)
}

func (va VirtAddr) Ceil() VPN {
	return VPN((va + PAGE_SIZE - 1) >> PAGE_SIZE_BITS)
}

func (va VirtAddr) PageOffset() uint64 {
	return uint64(va) & (PAGE_SIZE - 1)
}

func (va VirtAddr) Aligned() bool {
	return va.PageOffset() == 0
}

func (va VirtAddr) String() string {
	return fmt.Sprintf("%#x", uint64(va))
}

func (vpn VPN) Addr() VirtAddr {
	return VirtAddr(vpn << PAGE_SIZE_BITS)
}

func MkToken(root PPN) Token {
	return Token(SATP_SV39 | uint64(root))
}

func (tok Token) String() string {
	return fmt.Sprintf("%#x", uint64(tok))
}

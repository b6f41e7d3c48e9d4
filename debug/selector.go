package debug

type Tselector string

// ALWAYS
const (
	ALWAYS Tselector = "ALWAYS"
	ERROR            = "ERROR"
	NEVER            = "NEVER"
)

// ERR
const (
	ERR Tselector = "_ERR"
)

const (
	REFMAP_SUFFIX = "_REFMAP"
)

// Tests
const (
	TEST  Tselector = "TEST"
	TEST1           = "TEST1"
)

// Kernel
const (
	KERNEL     Tselector = "KERNEL"
	KERNEL_ERR           = KERNEL + ERR
	BOOT                 = "BOOT"
)

// Process management
const (
	PROCMGR     Tselector = "PROCMGR"
	PROCMGR_ERR           = PROCMGR + ERR
	TASK                  = "TASK"
	PID                   = "PID"
	MAIL                  = "MAIL"
)

// Scheduling
const (
	SCHED Tselector = "SCHED"
)

// Memory
const (
	MM          Tselector = "MM"
	MM_ERR                = MM + ERR
	USERBUF               = "USERBUF"
	USERBUF_ERR           = USERBUF + ERR
)

// Files
const (
	FS      Tselector = "FS"
	FS_ERR            = FS + ERR
	PIPE              = "PIPE"
	FDTABLE           = "FDTABLE"
	LOADER            = "LOADER"
)

// Syscalls
const (
	SYSCALL     Tselector = "SYSCALL"
	SYSCALL_ERR           = SYSCALL + ERR
)

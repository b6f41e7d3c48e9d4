package ksyscall

// RISC-V syscall numbers
const (
	SYS_DUP          = 24
	SYS_UNLINKAT     = 35
	SYS_LINKAT       = 37
	SYS_OPEN         = 56
	SYS_CLOSE        = 57
	SYS_PIPE         = 59
	SYS_READ         = 63
	SYS_WRITE        = 64
	SYS_FSTAT        = 80
	SYS_EXIT         = 93
	SYS_YIELD        = 124
	SYS_SET_PRIORITY = 140
	SYS_GET_TIME     = 169
	SYS_GETPID       = 172
	SYS_MUNMAP       = 215
	SYS_FORK         = 220
	SYS_EXEC         = 221
	SYS_MMAP         = 222
	SYS_WAITPID      = 260
	SYS_SPAWN        = 400
	SYS_MAIL_READ    = 401
	SYS_MAIL_WRITE   = 402
)

// Directory fd meaning "relative to the current directory"; all paths
// resolve in the one flat namespace.
const AT_FDCWD = -100

var names = map[uint64]string{
	SYS_DUP:          "dup",
	SYS_UNLINKAT:     "unlinkat",
	SYS_LINKAT:       "linkat",
	SYS_OPEN:         "open",
	SYS_CLOSE:        "close",
	SYS_PIPE:         "pipe",
	SYS_READ:         "read",
	SYS_WRITE:        "write",
	SYS_FSTAT:        "fstat",
	SYS_EXIT:         "exit",
	SYS_YIELD:        "yield",
	SYS_SET_PRIORITY: "set_priority",
	SYS_GET_TIME:     "get_time",
	SYS_GETPID:       "getpid",
	SYS_MUNMAP:       "munmap",
	SYS_FORK:         "fork",
	SYS_EXEC:         "exec",
	SYS_MMAP:         "mmap",
	SYS_WAITPID:      "waitpid",
	SYS_SPAWN:        "spawn",
	SYS_MAIL_READ:    "mail_read",
	SYS_MAIL_WRITE:   "mail_write",
}

func Name(id uint64) string {
	if n, ok := names[id]; ok {
		return n
	}
	return "unknown"
}

package ksyscall

import (
	db "rvos/debug"
	"rvos/kerr"
	"rvos/mm"
	"rvos/task"
	"rvos/userbuf"
)

// MailRead moves the oldest message of t's mailbox into buf, truncated
// to n bytes. With n == 0 it only reports whether a message is waiting
// (0) or not (-1).
func (sys *Syscall) MailRead(t *task.Task, buf mm.VirtAddr, n uint64) int64 {
	if n > task.MAILSZ {
		n = task.MAILSZ
	}
	tok := t.Token()
	if n == 0 {
		empty := false
		t.Locked(func(in *task.Inner) {
			empty = in.Mail.Len() == 0
		})
		if empty {
			return kerr.RET_ERR
		}
		return 0
	}
	if _, err := userbuf.Translate(sys.mmu, tok, buf, int(n), userbuf.PERM_WRITE); err != nil {
		return ret(t, "mail_read", 0, err)
	}
	var m []byte
	ok := false
	t.Locked(func(in *task.Inner) {
		m, ok = in.Mail.Pop()
	})
	if !ok {
		return ret(t, "mail_read", 0, kerr.MkErr(kerr.TErrEmpty, t.Pid()))
	}
	if uint64(len(m)) > n {
		m = m[:n]
	}
	if err := userbuf.CopyOut(sys.mmu, tok, buf, m); err != nil {
		return ret(t, "mail_read", 0, err)
	}
	db.DPrintf(db.MAIL, "%v read %d bytes", t.Pid(), len(m))
	return int64(len(m))
}

// MailWrite appends the n bytes at buf, truncated to one message, to
// the mailbox of pid. With n == 0 it only reports whether the mailbox
// has room (0) or not (-1).
func (sys *Syscall) MailWrite(t *task.Task, pid int64, buf mm.VirtAddr, n uint64) int64 {
	dst, ok := sys.mgr.Lookup(task.Tpid(pid))
	if !ok || dst.IsZombie() {
		return ret(t, "mail_write", 0, kerr.MkErr(kerr.TErrNoProc, pid))
	}
	if n > task.MAILSZ {
		n = task.MAILSZ
	}
	if n == 0 {
		full := false
		dst.Locked(func(in *task.Inner) {
			full = in.Mail.Full()
		})
		if full {
			return kerr.RET_ERR
		}
		return 0
	}
	m, err := userbuf.CopyIn(sys.mmu, t.Token(), buf, int(n))
	if err != nil {
		return ret(t, "mail_write", 0, err)
	}
	dst.Locked(func(in *task.Inner) {
		ok = in.Mail.Push(m)
	})
	if !ok {
		return ret(t, "mail_write", 0, kerr.MkErr(kerr.TErrFull, pid))
	}
	db.DPrintf(db.MAIL, "%v -> %v %d bytes", t.Pid(), dst.Pid(), len(m))
	return int64(len(m))
}

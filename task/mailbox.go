package task

const (
	MAXMAIL = 16
	MAILSZ  = 256
)

// Mailbox is a bounded FIFO of short messages. It is part of Inner and
// guarded by the task's lock.
type Mailbox struct {
	msgs [][]byte
}

func (mb *Mailbox) Len() int {
	return len(mb.msgs)
}

func (mb *Mailbox) Full() bool {
	return len(mb.msgs) >= MAXMAIL
}

// Push appends a copy of m truncated to MAILSZ bytes.
func (mb *Mailbox) Push(m []byte) bool {
	if mb.Full() {
		return false
	}
	if len(m) > MAILSZ {
		m = m[:MAILSZ]
	}
	mb.msgs = append(mb.msgs, append([]byte(nil), m...))
	return true
}

func (mb *Mailbox) Pop() ([]byte, bool) {
	if len(mb.msgs) == 0 {
		return nil, false
	}
	m := mb.msgs[0]
	mb.msgs[0] = nil
	mb.msgs = mb.msgs[1:]
	return m, true
}

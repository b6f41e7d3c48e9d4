package fs

import (
	"fmt"
	"sync"

	db "rvos/debug"
	"rvos/kerr"
	"rvos/userbuf"
)

const PIPESZ = 8192

// pipe is the buffer shared by the two ends. nreader/nwriter count the
// descriptors open on each end.
type pipe struct {
	mu      sync.Mutex
	condr   *sync.Cond
	condw   *sync.Cond
	nreader int
	nwriter int
	buf     []byte
	wait    func()
}

// sleep waits on c, or around p.wait if the pipe has one. Caller holds
// p.mu.
func (p *pipe) sleep(c *sync.Cond) {
	if p.wait == nil {
		c.Wait()
		return
	}
	p.mu.Unlock()
	defer p.mu.Lock()
	p.wait()
}

// PipeEnd is one direction of a pipe.
type PipeEnd struct {
	p     *pipe
	write bool
}

// MakePipe returns the read and the write end of a new pipe. Blocked
// ends sleep on a condition variable.
func MakePipe() (*PipeEnd, *PipeEnd) {
	return MakePipeWait(nil)
}

// MakePipeWait is MakePipe for a caller that cannot sleep: a blocked
// end releases the pipe, calls wait, and checks again.
func MakePipeWait(wait func()) (*PipeEnd, *PipeEnd) {
	p := &pipe{nreader: 1, nwriter: 1, wait: wait}
	p.condr = sync.NewCond(&p.mu)
	p.condw = sync.NewCond(&p.mu)
	p.buf = make([]byte, 0, PIPESZ)
	return &PipeEnd{p, false}, &PipeEnd{p, true}
}

func (pe *PipeEnd) String() string {
	pe.p.mu.Lock()
	defer pe.p.mu.Unlock()
	return fmt.Sprintf("{pipe w %v r %d w %d len %d}", pe.write, pe.p.nreader, pe.p.nwriter, len(pe.p.buf))
}

func (pe *PipeEnd) Readable() bool {
	return !pe.write
}

func (pe *PipeEnd) Writable() bool {
	return pe.write
}

// Read blocks until there is data or no writer is left; it returns
// whatever is buffered, up to the size of ub. 0 means end of file.
func (pe *PipeEnd) Read(ub *userbuf.UserBuffer) (int, error) {
	if pe.write {
		return 0, kerr.MkErr(kerr.TErrFlags, "pipe write end")
	}
	p := pe.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if ub.Remain() == 0 {
		return 0, nil
	}
	for len(p.buf) == 0 {
		if p.nwriter <= 0 {
			return 0, nil
		}
		db.DPrintf(db.PIPE, "read wait for writer")
		p.sleep(p.condr)
	}
	max := ub.Remain()
	if max > len(p.buf) {
		max = len(p.buf)
	}
	n, _ := ub.Write(p.buf[0:max])
	p.buf = p.buf[n:]
	p.condw.Broadcast()
	return n, nil
}

// Write blocks while the pipe is full and a reader is left.
func (pe *PipeEnd) Write(ub *userbuf.UserBuffer) (int, error) {
	if !pe.write {
		return 0, kerr.MkErr(kerr.TErrFlags, "pipe read end")
	}
	p := pe.p
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for ub.Remain() > 0 {
		for len(p.buf) >= PIPESZ {
			if p.nreader <= 0 {
				break
			}
			db.DPrintf(db.PIPE, "write wait for reader")
			p.sleep(p.condw)
		}
		if p.nreader <= 0 {
			if n > 0 {
				return n, nil
			}
			return 0, kerr.MkErr(kerr.TErrBadFd, "pipe closed for reading")
		}
		max := PIPESZ - len(p.buf)
		if max > ub.Remain() {
			max = ub.Remain()
		}
		d := make([]byte, max)
		ub.Read(d)
		p.buf = append(p.buf, d...)
		n += max
		p.condr.Broadcast()
	}
	return n, nil
}

func (pe *PipeEnd) Reopen() error {
	p := pe.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if pe.write {
		p.nwriter++
	} else {
		p.nreader++
	}
	return nil
}

func (pe *PipeEnd) Close() error {
	p := pe.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if pe.write {
		p.nwriter--
		if p.nwriter < 0 {
			return kerr.MkErr(kerr.TErrBadFd, "pipe already closed for writing")
		}
		p.condr.Broadcast()
	} else {
		p.nreader--
		if p.nreader < 0 {
			return kerr.MkErr(kerr.TErrBadFd, "pipe already closed for reading")
		}
		p.condw.Broadcast()
	}
	return nil
}

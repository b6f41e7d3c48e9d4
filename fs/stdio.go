package fs

import (
	"io"
	"sync"

	db "rvos/debug"
	"rvos/kerr"
	"rvos/userbuf"
)

// Console is the terminal behind descriptors 0, 1 and 2. Every process
// shares the same Stdin and Stdout objects.
type Console struct {
	mu  sync.Mutex
	in  io.Reader
	out io.Writer
}

func MakeConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out}
}

func (c *Console) Stdin() File {
	return &Stdin{c}
}

func (c *Console) Stdout() File {
	return &Stdout{c}
}

type Stdin struct {
	c *Console
}

func (s *Stdin) Readable() bool { return true }
func (s *Stdin) Writable() bool { return false }
func (s *Stdin) Reopen() error  { return nil }
func (s *Stdin) Close() error   { return nil }

// Read returns at most one byte, like a console getchar; 0 once the
// input is exhausted.
func (s *Stdin) Read(ub *userbuf.UserBuffer) (int, error) {
	if ub.Remain() == 0 {
		return 0, nil
	}
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	var b [1]byte
	n, err := s.c.in.Read(b[:])
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, err
		}
		return 0, nil
	}
	return ub.Write(b[:n])
}

func (s *Stdin) Write(ub *userbuf.UserBuffer) (int, error) {
	return 0, kerr.MkErr(kerr.TErrFlags, "stdin")
}

type Stdout struct {
	c *Console
}

func (s *Stdout) Readable() bool { return false }
func (s *Stdout) Writable() bool { return true }
func (s *Stdout) Reopen() error  { return nil }
func (s *Stdout) Close() error   { return nil }

func (s *Stdout) Read(ub *userbuf.UserBuffer) (int, error) {
	return 0, kerr.MkErr(kerr.TErrFlags, "stdout")
}

func (s *Stdout) Write(ub *userbuf.UserBuffer) (int, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	n, err := io.Copy(s.c.out, ub)
	if err != nil {
		db.DPrintf(db.FS_ERR, "stdout err %v", err)
	}
	return int(n), err
}

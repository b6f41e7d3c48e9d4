package userbuf

import (
	"encoding/binary"
	"io"

	"rvos/kerr"
	"rvos/mm"
)

// Longest NUL-terminated string the kernel copies in from user space.
const MAXSTR = 4096

// UserBuffer is a translated user range: an ordered list of
// page-bounded slices and a cursor. Write copies kernel bytes into user
// memory, Read copies user bytes out; both advance the cursor, so a
// UserBuffer is consumed like a stream by file objects.
type UserBuffer struct {
	bufs [][]byte
	len  int
	// 0 <= off <= len
	off int
}

func NewUserBuffer(bufs [][]byte) *UserBuffer {
	ub := &UserBuffer{bufs: bufs}
	for _, b := range bufs {
		ub.len += len(b)
	}
	return ub
}

func (ub *UserBuffer) Len() int {
	return ub.len
}

func (ub *UserBuffer) Remain() int {
	return ub.len - ub.off
}

func (ub *UserBuffer) Reset() {
	ub.off = 0
}

// copies between buf and the untransferred part of ub; returns the
// number of bytes copied.
func (ub *UserBuffer) tx(buf []byte, touser bool) int {
	did := 0
	pos := 0
	for _, b := range ub.bufs {
		if len(buf) == 0 {
			break
		}
		if pos+len(b) <= ub.off {
			pos += len(b)
			continue
		}
		seg := b[ub.off-pos:]
		var c int
		if touser {
			c = copy(seg, buf)
		} else {
			c = copy(buf, seg)
		}
		buf = buf[c:]
		ub.off += c
		did += c
		pos += len(b)
	}
	return did
}

// Write copies src into user memory.
func (ub *UserBuffer) Write(src []byte) (int, error) {
	n := ub.tx(src, true)
	if n < len(src) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Read copies user memory into dst.
func (ub *UserBuffer) Read(dst []byte) (int, error) {
	if len(dst) > 0 && ub.Remain() == 0 {
		return 0, io.EOF
	}
	return ub.tx(dst, false), nil
}

// Bytes returns a copy of the whole user range.
func (ub *UserBuffer) Bytes() []byte {
	b := make([]byte, 0, ub.len)
	for _, s := range ub.bufs {
		b = append(b, s...)
	}
	return b
}

// CopyIn reads n bytes at ptr from user memory.
func CopyIn(tr Translator, tok mm.Token, ptr mm.VirtAddr, n int) ([]byte, error) {
	ub, err := New(tr, tok, ptr, n, PERM_READ)
	if err != nil {
		return nil, err
	}
	return ub.Bytes(), nil
}

// CopyOut writes b at ptr in user memory; nothing is written unless
// the whole range is writable.
func CopyOut(tr Translator, tok mm.Token, ptr mm.VirtAddr, b []byte) error {
	ub, err := New(tr, tok, ptr, len(b), PERM_WRITE)
	if err != nil {
		return err
	}
	ub.Write(b)
	return nil
}

func WriteU64(tr Translator, tok mm.Token, ptr mm.VirtAddr, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return CopyOut(tr, tok, ptr, b[:])
}

func WriteI32(tr Translator, tok mm.Token, ptr mm.VirtAddr, v int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return CopyOut(tr, tok, ptr, b[:])
}

func ReadU64(tr Translator, tok mm.Token, ptr mm.VirtAddr) (uint64, error) {
	b, err := CopyIn(tr, tok, ptr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func ReadI32(tr Translator, tok mm.Token, ptr mm.VirtAddr) (int32, error) {
	b, err := CopyIn(tr, tok, ptr, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// ReadStr copies a NUL-terminated string from user memory, one page
// at a time so that a string ending just before an unmapped page is
// still readable.
func ReadStr(tr Translator, tok mm.Token, ptr mm.VirtAddr) (string, error) {
	s := make([]byte, 0, 64)
	for va := ptr; len(s) < MAXSTR; {
		n := int(mm.PAGE_SIZE - va.PageOffset())
		bufs, err := Translate(tr, tok, va, n, PERM_READ)
		if err != nil {
			return "", err
		}
		for _, c := range bufs[0] {
			if c == 0 {
				return string(s), nil
			}
			s = append(s, c)
			if len(s) >= MAXSTR {
				break
			}
		}
		va += mm.VirtAddr(n)
	}
	return "", kerr.MkErr(kerr.TErrInval, "string too long")
}

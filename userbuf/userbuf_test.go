package userbuf

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"

	"rvos/kerr"
	"rvos/mm"
)

const BASE = mm.VirtAddr(0x40000000)

type Tstate struct {
	t   *testing.T
	mmu *mm.Mmu
	ms  *mm.MemorySet
}

func newTstate(t *testing.T) *Tstate {
	ts := &Tstate{t: t}
	ts.mmu = mm.NewMmu(32)
	ms, err := ts.mmu.NewMemorySet()
	assert.Nil(t, err)
	ts.ms = ms
	return ts
}

func (ts *Tstate) tok() mm.Token {
	return ts.ms.Token()
}

func TestSplitAtPages(t *testing.T) {
	ts := newTstate(t)
	assert.Nil(t, ts.ms.Mmap(BASE, 3*mm.PAGE_SIZE, unix.PROT_READ|unix.PROT_WRITE))

	bufs, err := Translate(ts.mmu, ts.tok(), BASE+mm.PAGE_SIZE-10, mm.PAGE_SIZE+20, PERM_WRITE)
	assert.Nil(t, err)
	assert.Equal(t, 3, len(bufs))
	assert.Equal(t, 10, len(bufs[0]))
	assert.Equal(t, mm.PAGE_SIZE, len(bufs[1]))
	assert.Equal(t, 10, len(bufs[2]))

	bufs, err = Translate(ts.mmu, ts.tok(), BASE+5, 0, PERM_READ)
	assert.Nil(t, err)
	assert.NotNil(t, bufs)
	assert.Equal(t, 0, len(bufs))
}

func TestUnmappedPageFails(t *testing.T) {
	ts := newTstate(t)
	assert.Nil(t, ts.ms.Mmap(BASE, mm.PAGE_SIZE, unix.PROT_READ|unix.PROT_WRITE))
	assert.Nil(t, ts.ms.Mmap(BASE+2*mm.PAGE_SIZE, mm.PAGE_SIZE, unix.PROT_READ|unix.PROT_WRITE))

	_, err := Translate(ts.mmu, ts.tok(), BASE+mm.PAGE_SIZE-4, mm.PAGE_SIZE+8, PERM_WRITE)
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFault))

	// nothing is written when any page of the range is bad
	err = CopyOut(ts.mmu, ts.tok(), BASE+mm.PAGE_SIZE-4, make([]byte, 8+mm.PAGE_SIZE))
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFault))
	b, err := CopyIn(ts.mmu, ts.tok(), BASE+mm.PAGE_SIZE-4, 4)
	assert.Nil(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}

func TestPermissions(t *testing.T) {
	ts := newTstate(t)
	assert.Nil(t, ts.ms.Mmap(BASE, mm.PAGE_SIZE, unix.PROT_READ))

	_, err := New(ts.mmu, ts.tok(), BASE, 16, PERM_READ)
	assert.Nil(t, err)
	_, err = New(ts.mmu, ts.tok(), BASE, 16, PERM_WRITE)
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFault), "read-only page")

	// pages without U are not reachable from a syscall
	assert.Nil(t, ts.ms.MapRange(BASE+mm.PAGE_SIZE, BASE+2*mm.PAGE_SIZE, mm.PTE_R|mm.PTE_W))
	_, err = New(ts.mmu, ts.tok(), BASE+mm.PAGE_SIZE, 16, PERM_READ)
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFault), "kernel page")

	_, err = New(ts.mmu, ts.tok(), 0, 1, PERM_READ)
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFault), "nil")
	_, err = New(ts.mmu, ts.tok(), BASE, -1, PERM_READ)
	assert.True(t, kerr.IsErrCode(err, kerr.TErrInval))
	_, err = New(ts.mmu, ts.tok(), ^mm.VirtAddr(0)-2, 8, PERM_READ)
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFault), "wrap")
}

func TestHugeRange(t *testing.T) {
	ts := newTstate(t)
	assert.Nil(t, ts.ms.Mmap(BASE, mm.PAGE_SIZE, unix.PROT_READ|unix.PROT_WRITE))
	assert.NotPanics(t, func() {
		_, err := Translate(ts.mmu, ts.tok(), ^mm.VirtAddr(0)&^(mm.PAGE_SIZE-1), mm.PAGE_SIZE-1, PERM_WRITE)
		assert.True(t, kerr.IsErrCode(err, kerr.TErrFault), "top page")
		_, err = Translate(ts.mmu, ts.tok(), BASE, 1<<62, PERM_READ)
		assert.True(t, kerr.IsErrCode(err, kerr.TErrFault), "runs off the mapping")
		_, err = CopyIn(ts.mmu, ts.tok(), BASE, 1<<62)
		assert.True(t, kerr.IsErrCode(err, kerr.TErrFault))
	})
}

func TestUserBufferStream(t *testing.T) {
	ts := newTstate(t)
	assert.Nil(t, ts.ms.Mmap(BASE, 2*mm.PAGE_SIZE, unix.PROT_READ|unix.PROT_WRITE))

	msg := []byte("hello, world")
	ptr := BASE + mm.PAGE_SIZE - 5
	ub, err := New(ts.mmu, ts.tok(), ptr, len(msg), PERM_WRITE)
	assert.Nil(t, err)
	assert.Equal(t, len(msg), ub.Len())

	n, err := ub.Write(msg[:3])
	assert.Nil(t, err)
	assert.Equal(t, 3, n)
	n, err = ub.Write(msg[3:])
	assert.Nil(t, err)
	assert.Equal(t, len(msg)-3, n)
	assert.Equal(t, 0, ub.Remain())
	n, err = ub.Write([]byte("x"))
	assert.Equal(t, io.ErrShortWrite, err)
	assert.Equal(t, 0, n)

	ub, err = New(ts.mmu, ts.tok(), ptr, len(msg), PERM_READ)
	assert.Nil(t, err)
	b, err := io.ReadAll(ub)
	assert.Nil(t, err)
	assert.Equal(t, msg, b)
}

func TestScalarsAndStrings(t *testing.T) {
	ts := newTstate(t)
	assert.Nil(t, ts.ms.Mmap(BASE, mm.PAGE_SIZE, unix.PROT_READ|unix.PROT_WRITE))

	assert.Nil(t, WriteU64(ts.mmu, ts.tok(), BASE, 0xdeadbeef00))
	v, err := ReadU64(ts.mmu, ts.tok(), BASE)
	assert.Nil(t, err)
	assert.Equal(t, uint64(0xdeadbeef00), v)

	assert.Nil(t, WriteI32(ts.mmu, ts.tok(), BASE+8, -7))
	i, err := ReadI32(ts.mmu, ts.tok(), BASE+8)
	assert.Nil(t, err)
	assert.Equal(t, int32(-7), i)

	// a string that ends at the last byte before an unmapped page
	s := "echo"
	ptr := BASE + mm.PAGE_SIZE - mm.VirtAddr(len(s)+1)
	assert.Nil(t, CopyOut(ts.mmu, ts.tok(), ptr, append([]byte(s), 0)))
	r, err := ReadStr(ts.mmu, ts.tok(), ptr)
	assert.Nil(t, err)
	assert.Equal(t, s, r)

	// missing terminator runs into the unmapped page
	assert.Nil(t, CopyOut(ts.mmu, ts.tok(), ptr, []byte(s+"!")))
	_, err = ReadStr(ts.mmu, ts.tok(), ptr)
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFault))
}

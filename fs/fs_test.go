package fs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thanhpk/randstr"

	"rvos/kerr"
	"rvos/userbuf"
)

func ubuf(b []byte) *userbuf.UserBuffer {
	return userbuf.NewUserBuffer([][]byte{b})
}

func write(t *testing.T, f File, s string) {
	n, err := f.Write(ubuf([]byte(s)))
	assert.Nil(t, err)
	assert.Equal(t, len(s), n)
}

func read(t *testing.T, f File, n int) string {
	b := make([]byte, n)
	m, err := f.Read(ubuf(b))
	assert.Nil(t, err)
	return string(b[:m])
}

func TestOpenCreate(t *testing.T) {
	mfs := MakeMemFs()
	fn := "/" + randstr.Hex(8)

	_, _, err := mfs.Open(fn, O_RDONLY)
	assert.True(t, kerr.IsErrCode(err, kerr.TErrNotfound))

	f, ino, err := mfs.Open(fn, O_CREATE|O_WRONLY)
	assert.Nil(t, err)
	assert.NotEqual(t, NoInum, ino)
	assert.False(t, f.Readable())
	assert.Equal(t, uint32(1), mfs.CountLink(ino))
	write(t, f, "hello ")
	write(t, f, "world")
	_, err = f.Read(ubuf(make([]byte, 4)))
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFlags))
	assert.Nil(t, f.Close())

	f, ino1, err := mfs.Open(fn[1:], O_RDONLY)
	assert.Nil(t, err)
	assert.Equal(t, ino, ino1, "leading / is ignored")
	assert.Equal(t, "hello", read(t, f, 5))
	assert.Equal(t, " world", read(t, f, 100))
	assert.Equal(t, "", read(t, f, 100))
	assert.Nil(t, f.Close())
}

func TestFlags(t *testing.T) {
	mfs := MakeMemFs()
	_, _, err := mfs.Open("f", O_WRONLY|O_RDWR|O_CREATE)
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFlags))
	_, _, err = mfs.Open("f", O_CREATE|0x4)
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFlags))
	r, w := (O_RDWR | O_CREATE).ReadWrite()
	assert.True(t, r && w)
}

func TestTruncate(t *testing.T) {
	mfs := MakeMemFs()
	f, _, err := mfs.Open("f", O_CREATE|O_RDWR)
	assert.Nil(t, err)
	write(t, f, "0123456789")

	g, _, err := mfs.Open("f", O_WRONLY|O_TRUNC)
	assert.Nil(t, err)
	write(t, g, "ab")

	h, _, err := mfs.Open("f", O_RDONLY)
	assert.Nil(t, err)
	assert.Equal(t, "ab", read(t, h, 100))

	// CREATE on an existing file truncates too
	_, _, err = mfs.Open("f", O_CREATE|O_WRONLY)
	assert.Nil(t, err)
	h1, _, err := mfs.Open("f", O_RDONLY)
	assert.Nil(t, err)
	assert.Equal(t, "", read(t, h1, 100))
}

func TestLinkUnlink(t *testing.T) {
	mfs := MakeMemFs()
	f, ino, err := mfs.Open("a", O_CREATE|O_RDWR)
	assert.Nil(t, err)
	write(t, f, "data")

	assert.True(t, kerr.IsErrCode(mfs.Link("missing", "b"), kerr.TErrNotfound))
	assert.Nil(t, mfs.Link("a", "b"))
	assert.Equal(t, uint32(2), mfs.CountLink(ino))
	assert.True(t, kerr.IsErrCode(mfs.Link("a", "b"), kerr.TErrExists))

	g, ino1, err := mfs.Open("/b", O_RDONLY)
	assert.Nil(t, err)
	assert.Equal(t, ino, ino1)
	assert.Equal(t, "data", read(t, g, 10))
	assert.Nil(t, g.Close())

	assert.Nil(t, mfs.Unlink("a"))
	assert.Equal(t, uint32(1), mfs.CountLink(ino))
	assert.True(t, kerr.IsErrCode(mfs.Unlink("a"), kerr.TErrNotfound))
	assert.Nil(t, mfs.Unlink("b"))
	assert.Equal(t, uint32(0), mfs.CountLink(ino))

	// still open through f
	_, ninode := mfs.Len()
	assert.Equal(t, 1, ninode)
	write(t, f, "more")
	assert.Nil(t, f.Close())
	nname, ninode := mfs.Len()
	assert.Equal(t, 0, nname)
	assert.Equal(t, 0, ninode)
}

func TestReopenShare(t *testing.T) {
	mfs := MakeMemFs()
	f, _, err := mfs.Open("a", O_CREATE|O_RDWR)
	assert.Nil(t, err)
	assert.Nil(t, f.Reopen())
	write(t, f, "xy")
	assert.Nil(t, f.Close())
	// one descriptor is left; the object is still usable
	write(t, f, "z")
	assert.Nil(t, f.Close())
	assert.NotNil(t, f.Close())
	assert.NotNil(t, f.Reopen())
}

func TestStat(t *testing.T) {
	st := &Stat{Ino: 3, Mode: S_IFREG, Nlink: 2}
	b := st.Marshal()
	assert.Equal(t, STAT_SIZE, len(b))
	assert.Equal(t, []byte{0x00, 0x80, 0x00, 0x00}, b[16:20])
	assert.Equal(t, bytes.Repeat([]byte{0}, 56), b[24:])
	assert.Equal(t, st, UnmarshalStat(b))
	assert.Equal(t, Tmode(0o100000), S_IFREG)
	assert.Equal(t, Tmode(0o040000), S_IFDIR)
}

func TestConsole(t *testing.T) {
	out := new(bytes.Buffer)
	c := MakeConsole(strings.NewReader("ab"), out)
	stdin, stdout := c.Stdin(), c.Stdout()

	write(t, stdout, "hi\n")
	assert.Equal(t, "hi\n", out.String())
	assert.Equal(t, "a", read(t, stdin, 8))
	assert.Equal(t, "b", read(t, stdin, 8))
	assert.Equal(t, "", read(t, stdin, 8))

	_, err := stdin.Write(ubuf([]byte("x")))
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFlags))
	_, err = stdout.Read(ubuf(make([]byte, 1)))
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFlags))
}

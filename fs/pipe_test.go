package fs

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"rvos/kerr"
)

func TestPipeBasic(t *testing.T) {
	r, w := MakePipe()
	assert.True(t, r.Readable())
	assert.False(t, r.Writable())
	assert.True(t, w.Writable())

	write(t, w, "hello")
	assert.Equal(t, "hel", read(t, r, 3))
	assert.Equal(t, "lo", read(t, r, 10))

	_, err := r.Write(ubuf([]byte("x")))
	assert.True(t, kerr.IsErrCode(err, kerr.TErrFlags))
}

func TestPipeEOF(t *testing.T) {
	r, w := MakePipe()
	assert.Nil(t, w.Reopen())
	write(t, w, "x")
	assert.Nil(t, w.Close())
	assert.Nil(t, w.Close())
	assert.Equal(t, "x", read(t, r, 10))
	assert.Equal(t, "", read(t, r, 10), "no writer left")
}

func TestPipeNoReader(t *testing.T) {
	r, w := MakePipe()
	assert.Nil(t, r.Close())
	_, err := w.Write(ubuf([]byte("x")))
	assert.True(t, kerr.IsErrCode(err, kerr.TErrBadFd))
	assert.NotNil(t, r.Close())
}

func TestPipeBlocking(t *testing.T) {
	r, w := MakePipe()
	data := bytes.Repeat([]byte("abcdefgh"), PIPESZ/2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err := w.Write(ubuf(data))
		assert.Nil(t, err)
		assert.Equal(t, len(data), n)
		assert.Nil(t, w.Close())
	}()

	got := make([]byte, 0, len(data))
	for {
		b := make([]byte, 1000)
		n, err := r.Read(ubuf(b))
		assert.Nil(t, err)
		if n == 0 {
			break
		}
		got = append(got, b[:n]...)
	}
	wg.Wait()
	assert.Equal(t, data, got)
}

func TestPipeWait(t *testing.T) {
	var w *PipeEnd
	n := 0
	r, w := MakePipeWait(func() {
		n++
		switch n {
		case 1:
			write(t, w, "late")
		case 2:
			assert.Nil(t, w.Close())
		}
	})
	assert.Equal(t, "late", read(t, r, 10))
	assert.Equal(t, 1, n)
	assert.Equal(t, "", read(t, r, 10))
	assert.Equal(t, 2, n)
}

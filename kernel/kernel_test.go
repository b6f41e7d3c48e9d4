package kernel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thanhpk/randstr"

	"rvos/fs"
	"rvos/ulib"
)

func boot(t *testing.T, p *Param, progs map[string]ulib.Program) (*Kernel, string) {
	out := new(bytes.Buffer)
	k, err := NewKernel(p, strings.NewReader(""), out, progs)
	assert.Nil(t, err)
	assert.Nil(t, k.Run())
	return k, out.String()
}

func TestParseParam(t *testing.T) {
	p, err := ParseParam([]byte("apps: [hello, forktest]\nframes: 512\n"))
	assert.Nil(t, err)
	assert.Equal(t, []string{"hello", "forktest"}, p.Apps)
	assert.Equal(t, 512, p.Frames)
	assert.Equal(t, INITPROC, p.InitProc)
	assert.Equal(t, NCACHE, p.Cache)

	_, err = ParseParam([]byte("frames: [1"))
	assert.NotNil(t, err)
}

func TestReadParam(t *testing.T) {
	pn := filepath.Join(t.TempDir(), "boot.yml")
	assert.Nil(t, os.WriteFile(pn, []byte("initproc: init\nimages: /tmp\ndebug: KERNEL\ncache: 2\n"), 0644))
	p, err := ReadParam(pn)
	assert.Nil(t, err)
	assert.Equal(t, "init", p.InitProc)
	assert.Equal(t, "/tmp", p.Images)
	assert.Equal(t, "KERNEL", p.Debug)
	assert.Equal(t, 2, p.Cache)
	assert.Equal(t, NFRAME, p.Frames)

	_, err = ReadParam(filepath.Join(t.TempDir(), "nope.yml"))
	assert.NotNil(t, err)
}

func TestBoot(t *testing.T) {
	p := DefaultParam()
	p.Apps = []string{"hello", "forktest", "pipetest", "filetest"}
	k, out := boot(t, p, nil)
	assert.Contains(t, out, "Hello, world!\n")
	assert.Contains(t, out, "forktest pass\n")
	assert.Contains(t, out, "pipetest pass\n")
	assert.Contains(t, out, "filetest pass\n")
	assert.Equal(t, 4, strings.Count(out, "exited with 0\n"))
	st := k.Stats()
	assert.Equal(t, 1, st.NTask)
	assert.Equal(t, 0, st.Files)
	assert.True(t, st.NSwitch > 0)
	// every address space has been released
	assert.Equal(t, p.Frames, k.mmu.NFreeFrames())
	assert.NotNil(t, k.Run())
}

func TestBadParam(t *testing.T) {
	p := DefaultParam()
	p.Frames = 0
	_, err := NewKernel(p, strings.NewReader(""), new(bytes.Buffer), nil)
	assert.NotNil(t, err)

	p = DefaultParam()
	p.Images = filepath.Join(t.TempDir(), "nope")
	_, err = NewKernel(p, strings.NewReader(""), new(bytes.Buffer), nil)
	assert.NotNil(t, err)
}

func TestDirImages(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, os.WriteFile(filepath.Join(dir, "hi"), []byte("hello\n"), 0644))
	p := DefaultParam()
	p.Images = dir
	p.Apps = []string{"hi"}
	k, out := boot(t, p, nil)
	assert.Contains(t, k.Images(), "hi")
	assert.Contains(t, k.Images(), "hello")
	assert.Contains(t, out, "Hello, world!\n")
}

func TestCustomInitProc(t *testing.T) {
	p := DefaultParam()
	names := make([]string, 4)
	for i := range names {
		names[i] = randstr.Hex(8)
	}
	progs := map[string]ulib.Program{
		INITPROC: func(u *ulib.User) int32 {
			for _, n := range names {
				fd := u.Open(n, fs.O_CREATE|fs.O_WRONLY)
				if fd < 0 || u.Write(int(fd), []byte(n)) != int64(len(n)) {
					return 1
				}
				u.Close(int(fd))
			}
			for _, n := range names {
				st, r := u.Fstat(int(u.Open(n, fs.O_RDONLY)))
				if r < 0 || st.Nlink != 1 {
					return 2
				}
			}
			u.Printf("created %d\n", len(names))
			return 0
		},
	}
	k, out := boot(t, p, progs)
	assert.Equal(t, "created 4\n", out)
	assert.Equal(t, len(names), k.Stats().Files)
	assert.Len(t, k.Ps(), 1)
}

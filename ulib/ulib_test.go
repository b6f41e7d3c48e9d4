package ulib

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"rvos/fs"
	"rvos/ksyscall"
	"rvos/loader"
	"rvos/mm"
	"rvos/procmgr"
	"rvos/sched"
	"rvos/timer"
)

type Tstate struct {
	t     *testing.T
	mmu   *mm.Mmu
	sched *sched.Manager
	mgr   *procmgr.ProcMgr
	rt    *Runtime
	out   *bytes.Buffer
}

func newTstate(t *testing.T, apps ...string) *Tstate {
	ts := &Tstate{t: t}
	ts.mmu = mm.NewMmu(1024)
	ts.sched = sched.NewManager()
	ts.out = new(bytes.Buffer)
	c := fs.MakeConsole(strings.NewReader(""), ts.out)
	progs := Std()
	progs["initproc"] = InitProc(apps)
	progs["seven"] = func(u *User) int32 { return 7 }
	progs["spin"] = func(u *User) int32 {
		for {
			u.Yield()
		}
	}
	imgs := make(map[string][]byte)
	for n := range progs {
		imgs[n] = Image(n)
	}
	ts.mgr = procmgr.MakeProcMgr(ts.mmu, loader.NewStaticLoader(imgs), ts.sched, c.Stdin(), c.Stdout())
	sys := ksyscall.MakeSyscall(ts.mgr, fs.MakeMemFs(), ts.sched, timer.NewMonotonic())
	ts.rt = MakeRuntime(sys, ts.mgr, ts.sched)
	for n, p := range progs {
		ts.rt.Register(n, p)
	}
	return ts
}

func (ts *Tstate) run() string {
	_, err := ts.mgr.StartInitProc("initproc")
	assert.Nil(ts.t, err)
	assert.Nil(ts.t, ts.rt.Run())
	assert.True(ts.t, ts.mgr.Halted())
	return ts.out.String()
}

func TestHello(t *testing.T) {
	ts := newTstate(t, "hello")
	out := ts.run()
	assert.Equal(t, "Hello, world!\n[initproc] 1 exited with 0\n", out)
	// only initproc is left, unreaped
	assert.Equal(t, 1, ts.mgr.NTask())
}

func TestExitCode(t *testing.T) {
	ts := newTstate(t, "seven", "exit")
	out := ts.run()
	assert.Contains(t, out, "[initproc] 1 exited with 7\n")
	assert.Contains(t, out, "[initproc] 2 exited with 0\n")
}

func TestMissing(t *testing.T) {
	ts := newTstate(t, "nope", "hello")
	out := ts.run()
	assert.True(t, strings.HasPrefix(out, "[initproc] cannot spawn nope\n"), out)
	assert.Contains(t, out, "Hello, world!\n")
}

func TestForkTest(t *testing.T) {
	ts := newTstate(t, "forktest")
	out := ts.run()
	assert.Contains(t, out, "forktest pass\n")
	assert.Contains(t, out, "[initproc] 1 exited with 0\n")
	assert.Equal(t, 1, ts.mgr.NTask())
}

func TestPipeTest(t *testing.T) {
	ts := newTstate(t, "pipetest")
	out := ts.run()
	assert.Contains(t, out, "pipetest pass\n")
	assert.Contains(t, out, "[initproc] 1 exited with 0\n")
}

func TestMailTest(t *testing.T) {
	ts := newTstate(t, "mailtest")
	assert.Contains(t, ts.run(), "mailtest pass\n")
}

func TestFileTest(t *testing.T) {
	ts := newTstate(t, "filetest")
	assert.Contains(t, ts.run(), "filetest pass\n")
}

func TestExecTest(t *testing.T) {
	ts := newTstate(t, "exectest")
	assert.Equal(t, "exec ok\n[initproc] 1 exited with 0\n", ts.run())
}

func TestSleep(t *testing.T) {
	ts := newTstate(t, "sleep")
	assert.Contains(t, ts.run(), "sleep 10 pass\n")
}

func TestYieldInterleaves(t *testing.T) {
	ts := newTstate(t, "yieldtest", "yieldtest")
	out := ts.run()
	assert.Contains(t, out, "1:0\n2:0\n1:1\n2:1\n1:2\n2:2\n")
}

func TestPriority(t *testing.T) {
	ts := newTstate(t, "priotest")
	assert.Contains(t, ts.run(), "[initproc] 1 exited with 0\n")
}

func TestShutdown(t *testing.T) {
	ts := newTstate(t)
	ts.rt.Register("initproc", func(u *User) int32 {
		u.Spawn("spin")
		u.Yield()
		return 3
	})
	ts.run()
	assert.Len(t, ts.rt.threads, 0)
	_, ok := ts.mgr.Lookup(1)
	assert.True(t, ok)
}

// Package kernel boots rvos: it wires the memory manager, the file
// system, the loaders, the scheduler, the process manager and the
// syscall layer together and runs initproc to completion.
package kernel

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	db "rvos/debug"
	"rvos/fs"
	"rvos/ksyscall"
	"rvos/loader"
	"rvos/mm"
	"rvos/procmgr"
	"rvos/sched"
	"rvos/timer"
	"rvos/ulib"
)

type Kernel struct {
	sync.Mutex
	Param  *Param
	mmu    *mm.Mmu
	fsys   *fs.MemFs
	sched  *sched.Manager
	mgr    *procmgr.ProcMgr
	sys    *ksyscall.Syscall
	rt     *ulib.Runtime
	ld     loader.Loader
	clock  timer.Clock
	booted bool
}

// NewKernel builds a kernel running the stock programs plus progs, with
// the console on in and out.
func NewKernel(p *Param, in io.Reader, out io.Writer, progs map[string]ulib.Program) (*Kernel, error) {
	if p.Debug != "" {
		db.SetDebug(p.Debug)
	}
	if p.Frames <= 0 || p.InitProc == "" {
		return nil, fmt.Errorf("bad param %+v", p)
	}
	k := &Kernel{Param: p}
	all := ulib.Std()
	for n, prog := range progs {
		all[n] = prog
	}
	if _, ok := all[p.InitProc]; !ok {
		all[p.InitProc] = ulib.InitProc(p.Apps)
	}
	imgs := make(map[string][]byte, len(all))
	for n := range all {
		imgs[n] = ulib.Image(n)
	}
	lds := loader.Chain{loader.NewStaticLoader(imgs)}
	if p.Images != "" {
		dl, err := loader.NewDirLoader(p.Images, p.Cache)
		if err != nil {
			return nil, err
		}
		lds = append(lds, dl)
	}
	k.ld = lds
	k.mmu = mm.NewMmu(p.Frames)
	k.fsys = fs.MakeMemFs()
	k.sched = sched.NewManager()
	k.clock = timer.NewMonotonic()
	c := fs.MakeConsole(in, out)
	k.mgr = procmgr.MakeProcMgr(k.mmu, k.ld, k.sched, c.Stdin(), c.Stdout())
	k.sys = ksyscall.MakeSyscall(k.mgr, k.fsys, k.sched, k.clock)
	k.rt = ulib.MakeRuntime(k.sys, k.mgr, k.sched)
	for n, prog := range all {
		k.rt.Register(n, prog)
	}
	db.DPrintf(db.BOOT, "kernel %v frames (%s) images %v", p.Frames, humanize.IBytes(uint64(p.Frames*mm.PAGE_SIZE)), k.ld.Names())
	return k, nil
}

// Run starts initproc and runs until it exits.
func (k *Kernel) Run() error {
	k.Lock()
	if k.booted {
		k.Unlock()
		return fmt.Errorf("kernel already booted")
	}
	k.booted = true
	k.Unlock()

	if _, err := k.mgr.StartInitProc(k.Param.InitProc); err != nil {
		db.DPrintf(db.KERNEL_ERR, "start %v err %v", k.Param.InitProc, err)
		return err
	}
	if err := k.rt.Run(); err != nil {
		db.DPrintf(db.KERNEL_ERR, "run err %v", err)
		return err
	}
	db.DPrintf(db.KERNEL, "%v", k.Stats())
	return nil
}

func (k *Kernel) Ps() []procmgr.Ps {
	return k.mgr.Ps()
}

func (k *Kernel) Images() []string {
	return k.ld.Names()
}

type Stats struct {
	NTask      int
	NSwitch    uint64
	FreeFrames int
	Files      int
	Inodes     int
}

func (st Stats) String() string {
	return fmt.Sprintf("tasks %d switches %d free %s files %d inodes %d", st.NTask, st.NSwitch, humanize.IBytes(uint64(st.FreeFrames*mm.PAGE_SIZE)), st.Files, st.Inodes)
}

func (k *Kernel) Stats() Stats {
	nf, ni := k.fsys.Len()
	return Stats{
		NTask:      k.mgr.NTask(),
		NSwitch:    k.sched.NSwitch(),
		FreeFrames: k.mmu.NFreeFrames(),
		Files:      nf,
		Inodes:     ni,
	}
}

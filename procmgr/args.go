package procmgr

import (
	"rvos/kerr"
	"rvos/mm"
	"rvos/task"
	"rvos/userbuf"
)

// pushArgs lays out args on the user stack of cx: a NULL-terminated
// array of string pointers on top, the strings below it. argc goes in
// a0 and the array in a1.
func pushArgs(tr userbuf.Translator, tok mm.Token, cx *task.TrapContext, args []string) error {
	sp := mm.VirtAddr(cx.X[task.REG_SP])
	argv := sp - mm.VirtAddr((len(args)+1)*8)
	sp = argv
	for i, a := range args {
		sp -= mm.VirtAddr(len(a) + 1)
		if err := userbuf.CopyOut(tr, tok, sp, append([]byte(a), 0)); err != nil {
			return kerr.MkErr(kerr.TErrInval, "arguments too long")
		}
		if err := userbuf.WriteU64(tr, tok, argv+mm.VirtAddr(8*i), uint64(sp)); err != nil {
			return kerr.MkErr(kerr.TErrInval, "arguments too long")
		}
	}
	if err := userbuf.WriteU64(tr, tok, argv+mm.VirtAddr(8*len(args)), 0); err != nil {
		return kerr.MkErr(kerr.TErrInval, "arguments too long")
	}
	sp -= sp % 8
	cx.X[task.REG_SP] = uint64(sp)
	cx.X[task.REG_A0] = uint64(len(args))
	cx.X[task.REG_A1] = uint64(argv)
	return nil
}

// ReadArgs reads back the argument vector of a task that has just
// started from an image.
func ReadArgs(tr userbuf.Translator, tok mm.Token, cx *task.TrapContext) ([]string, error) {
	argc := int(cx.X[task.REG_A0])
	argv := mm.VirtAddr(cx.X[task.REG_A1])
	// the vector lives on the user stack
	if argc < 0 || argc > mm.USER_STACK_SIZE/8 {
		return nil, kerr.MkErr(kerr.TErrInval, argc)
	}
	args := make([]string, 0, argc)
	for i := 0; i < argc; i++ {
		p, err := userbuf.ReadU64(tr, tok, argv+mm.VirtAddr(8*i))
		if err != nil {
			return nil, err
		}
		s, err := userbuf.ReadStr(tr, tok, mm.VirtAddr(p))
		if err != nil {
			return nil, err
		}
		args = append(args, s)
	}
	return args, nil
}

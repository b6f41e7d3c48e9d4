package main

import (
	"os"
	"path/filepath"

	db "rvos/debug"
	"rvos/kernel"
)

// Usage: rvos [boot.yml] [app ...]
// Apps on the command line replace the ones in the parameter file.
func main() {
	p := kernel.DefaultParam()
	args := os.Args[1:]
	if len(args) > 0 && (filepath.Ext(args[0]) == ".yml" || filepath.Ext(args[0]) == ".yaml") {
		var err error
		p, err = kernel.ReadParam(args[0])
		if err != nil {
			db.DFatalf("Usage: %v [boot.yml] [app ...]: %v", os.Args[0], err)
		}
		args = args[1:]
	}
	if len(args) > 0 {
		p.Apps = args
	}
	k, err := kernel.NewKernel(p, os.Stdin, os.Stdout, nil)
	if err != nil {
		db.DFatalf("NewKernel err %v", err)
	}
	if err := k.Run(); err != nil {
		db.DFatalf("Run err %v", err)
	}
	db.DPrintf(db.ALWAYS, "halted: %v", k.Stats())
}

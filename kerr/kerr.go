// Package kerr is the kernel's error taxonomy. Every failure the core
// reports through a syscall return value carries a Tcode; Ret maps an
// error onto the numeric contract user programs see (-1 for invalid
// handles, missing resources and faults, -2 for "child not ready yet").
package kerr

import (
	"errors"
	"fmt"
)

type Tcode int

const (
	TErrBadFd Tcode = iota + 1
	TErrNoChild
	TErrNotReady
	TErrNotfound
	TErrFlags
	TErrFault
	TErrExists
	TErrInval
	TErrNoMem
	TErrFull
	TErrEmpty
	TErrNoProc
	TErrNoSys
)

func (c Tcode) String() string {
	switch c {
	case TErrBadFd:
		return "bad file descriptor"
	case TErrNoChild:
		return "no matching child"
	case TErrNotReady:
		return "child not exited"
	case TErrNotfound:
		return "not found"
	case TErrFlags:
		return "cannot satisfy flags"
	case TErrFault:
		return "bad address"
	case TErrExists:
		return "exists"
	case TErrInval:
		return "invalid argument"
	case TErrNoMem:
		return "out of memory"
	case TErrFull:
		return "full"
	case TErrEmpty:
		return "empty"
	case TErrNoProc:
		return "no such process"
	case TErrNoSys:
		return "unknown syscall"
	default:
		return "unknown error"
	}
}

type Err struct {
	Code Tcode
	Obj  interface{}
}

func MkErr(c Tcode, obj interface{}) *Err {
	return &Err{c, obj}
}

func (err *Err) Error() string {
	return fmt.Sprintf("%v %v", err.Code, err.Obj)
}

func (err *Err) Is(target error) bool {
	var e *Err
	if errors.As(target, &e) {
		return e.Code == err.Code
	}
	return false
}

func IsErrCode(err error, c Tcode) bool {
	var e *Err
	if errors.As(err, &e) {
		return e.Code == c
	}
	return false
}

// Numeric syscall returns for failures.
const (
	RET_ERR      = -1
	RET_NOTREADY = -2
)

// Ret maps the outcome of a core operation onto the syscall return
// register: v on success, -2 for a live-but-unexited child, -1 for
// everything else.
func Ret(v int64, err error) int64 {
	if err == nil {
		return v
	}
	if IsErrCode(err, TErrNotReady) {
		return RET_NOTREADY
	}
	return RET_ERR
}

package ulib

import (
	"bytes"
	"strconv"
	"strings"

	"rvos/fs"
)

const NFORK = 8

// InitProc returns the first program: it spawns apps, then reaps
// children until none is left.
func InitProc(apps []string) Program {
	return func(u *User) int32 {
		for _, a := range apps {
			if u.Spawn(a) < 0 {
				u.Printf("[initproc] cannot spawn %s\n", a)
			}
		}
		for {
			var code int32
			pid := u.Wait(&code)
			if pid < 0 {
				return 0
			}
			u.Printf("[initproc] %d exited with %d\n", pid, code)
		}
	}
}

// Std returns the stock user programs by image name.
func Std() map[string]Program {
	return map[string]Program{
		"hello":     hello,
		"echo":      echo,
		"exit":      exit,
		"forktest":  forktest,
		"pipetest":  pipetest,
		"mailtest":  mailtest,
		"filetest":  filetest,
		"sleep":     sleep,
		"exectest":  exectest,
		"priotest":  priotest,
		"yieldtest": yieldtest,
	}
}

func hello(u *User) int32 {
	u.Printf("Hello, world!\n")
	return 0
}

func echo(u *User) int32 {
	u.Printf("%s\n", strings.Join(u.Args(), " "))
	return 0
}

// exit exits with its first argument.
func exit(u *User) int32 {
	if len(u.Args()) == 0 {
		return 0
	}
	c, err := strconv.Atoi(u.Args()[0])
	if err != nil {
		return -1
	}
	return int32(c)
}

func forktest(u *User) int32 {
	for i := 0; i < NFORK; i++ {
		i := i
		if u.Fork(func(u *User) int32 { return int32(i) }) < 0 {
			u.Printf("forktest: fork failed\n")
			return -1
		}
	}
	sum := int32(0)
	for i := 0; i < NFORK; i++ {
		var code int32
		if u.Wait(&code) < 0 {
			u.Printf("forktest: wait failed\n")
			return -1
		}
		sum += code
	}
	if u.Wait(nil) != -1 || sum != NFORK*(NFORK-1)/2 {
		u.Printf("forktest: bad sum %d\n", sum)
		return -1
	}
	u.Printf("forktest pass\n")
	return 0
}

func pipetest(u *User) int32 {
	msg := []byte(strings.Repeat("pipe", 1024))
	rfd, wfd, r := u.Pipe()
	if r < 0 {
		return -1
	}
	pid := u.Fork(func(u *User) int32 {
		u.Close(rfd)
		if u.Write(wfd, msg) != int64(len(msg)) {
			return -1
		}
		u.Close(wfd)
		return 0
	})
	if pid < 0 {
		return -1
	}
	u.Close(wfd)
	got := make([]byte, 0, len(msg))
	b := make([]byte, 1000)
	for {
		n := u.Read(rfd, b)
		if n <= 0 {
			break
		}
		got = append(got, b[:n]...)
	}
	var code int32
	u.Waitpid(pid, &code)
	if code != 0 || !bytes.Equal(got, msg) {
		u.Printf("pipetest: got %d bytes code %d\n", len(got), code)
		return -1
	}
	u.Printf("pipetest pass\n")
	return 0
}

func mailtest(u *User) int32 {
	parent := u.Getpid()
	pid := u.Fork(func(u *User) int32 {
		if u.MailWrite(parent, []byte("ping")) != 4 {
			return -1
		}
		return 0
	})
	var code int32
	u.Waitpid(pid, &code)
	b := make([]byte, 16)
	n := u.MailRead(b)
	if code != 0 || n != 4 || string(b[:n]) != "ping" {
		u.Printf("mailtest: %d %q\n", n, b[:max(n, 0)])
		return -1
	}
	u.Printf("mailtest pass\n")
	return 0
}

func filetest(u *User) int32 {
	fd := u.Open("filea", fs.O_CREATE|fs.O_WRONLY)
	if fd < 0 || u.Write(int(fd), []byte("Hello, file!")) != 12 {
		return -1
	}
	u.Close(int(fd))
	if u.Link("filea", "fileb") != 0 {
		return -1
	}
	fd = u.Open("fileb", fs.O_RDONLY)
	st, r := u.Fstat(int(fd))
	if r < 0 || st.Nlink != 2 {
		u.Printf("filetest: fstat %v\n", st)
		return -1
	}
	b := make([]byte, 32)
	n := u.Read(int(fd), b)
	u.Close(int(fd))
	if string(b[:max(n, 0)]) != "Hello, file!" {
		return -1
	}
	if u.Unlink("filea") != 0 || u.Unlink("fileb") != 0 || u.Open("filea", fs.O_RDONLY) != -1 {
		return -1
	}
	u.Printf("filetest pass\n")
	return 0
}

// sleep sleeps for its first argument, in ms.
func sleep(u *User) int32 {
	ms := int64(10)
	if len(u.Args()) > 0 {
		if v, err := strconv.ParseInt(u.Args()[0], 10, 64); err == nil {
			ms = v
		}
	}
	start := u.GetTime()
	u.Sleep(ms)
	if u.GetTime()-start < ms {
		return -1
	}
	u.Printf("sleep %d pass\n", ms)
	return 0
}

func exectest(u *User) int32 {
	u.Exec("echo", "exec", "ok")
	return -1
}

// priotest sets its priority from its first argument and yields a
// few times.
func priotest(u *User) int32 {
	if len(u.Args()) > 0 {
		p, _ := strconv.ParseInt(u.Args()[0], 10, 64)
		if u.SetPriority(p) != p {
			return -1
		}
	}
	for i := 0; i < 4; i++ {
		u.Yield()
	}
	return 0
}

// yieldtest prints its pid and yields between lines.
func yieldtest(u *User) int32 {
	pid := u.Getpid()
	for i := 0; i < 3; i++ {
		u.Printf("%d:%d\n", pid, i)
		u.Yield()
	}
	return 0
}

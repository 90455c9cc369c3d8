//go:build !windows

package process

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/subproc-io/subproc/properties"
)

// sysProcess is the POSIX process identity.
type sysProcess struct {
	pid int
}

func newProcess(args, env []string, flags Flags) (*Process, error) {
	stdinPipe, stdoutPipe, stderrPipe, err := makePipes(flags)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Process, error) {
		stdinPipe.closeBoth()
		stdoutPipe.closeBoth()
		stderrPipe.closeBoth()
		return nil, err
	}

	// Descriptor table for the child: slots 0/1/2 inherit the parent's
	// standard descriptors unless the matching stream is redirected. With
	// stderr merged, slot 2 aliases whatever slot 1 points at.
	files := []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd()}
	if stdinPipe != nil {
		files[0] = stdinPipe.r.Fd()
	}
	if stdoutPipe != nil {
		files[1] = stdoutPipe.w.Fd()
	}
	if flags&FlagStderr != 0 {
		if flags.stderrMerged() {
			files[2] = files[1]
		} else {
			files[2] = stderrPipe.w.Fd()
		}
	}

	// The fork/exec primitive requires owned copies of the argument and
	// environment lists; a nil environment inherits the parent's.
	argv := copyStrings(args)
	envv := copyStrings(env)
	if envv == nil {
		envv = os.Environ()
	}

	pid, err := syscall.ForkExec(args[0], argv, &syscall.ProcAttr{
		Env:   envv,
		Files: files,
	})
	if err != nil {
		err = errors.Wrapf(err, "could not fork/exec %s", args[0])
		if flags&FlagErrorsToStderr != 0 {
			// Launch failures surface in the parent rather than in a child
			// exiting non-zero, so the diagnostic the child would have
			// printed goes to the parent's stderr, which is the child's
			// stderr destination when the stream is not redirected.
			fmt.Fprintf(os.Stderr, "subproc: %s\n", err)
		}
		return fail(err)
	}
	debug("started %s as pid %d", args[0], pid)

	// The child inherited its ends; close them on the parent side.
	if stdinPipe != nil {
		stdinPipe.r.Close()
		stdinPipe.r = nil
	}
	if stdoutPipe != nil {
		stdoutPipe.w.Close()
		stdoutPipe.w = nil
	}
	if stderrPipe != nil {
		stderrPipe.w.Close()
		stderrPipe.w = nil
	}

	p := &Process{
		flags: flags,
		props: properties.New(),
		sys:   sysProcess{pid: pid},
	}
	var stdinEnd, stdoutEnd, stderrEnd io.ReadWriteCloser
	if stdinPipe != nil {
		stdinEnd = stdinPipe.w
	}
	if stdoutPipe != nil {
		stdoutEnd = stdoutPipe.r
	}
	if stderrPipe != nil {
		stderrEnd = stderrPipe.r
	}
	p.bindStreams(stdinEnd, stdoutEnd, stderrEnd)
	return p, nil
}

// sysWait polls or blocks on waitpid. It returns the terminal status and
// whether one was reached; reaping is one-shot, the caller caches.
func (p *Process) sysWait(block bool) (Status, bool, error) {
	options := unix.WNOHANG
	if block {
		options = 0
	}
	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(p.sys.pid, &ws, options, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return Status{}, false, errors.Wrap(err, "could not waitpid()")
		}
		if pid == 0 {
			return Status{}, false, nil
		}
		break
	}
	switch {
	case ws.Exited():
		return Status{State: StateExited, Code: ws.ExitStatus()}, true, nil
	case ws.Signaled():
		return Status{State: StateSignaled, Code: int(ws.Signal())}, true, nil
	}
	// Stop/continue events are not requested, but don't treat one as fatal.
	return Status{State: StateExited}, true, nil
}

func (p *Process) sysKill(force bool) error {
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	if err := unix.Kill(p.sys.pid, sig); err != nil {
		return errors.Wrapf(err, "could not kill(%d, %s)", p.sys.pid, sig)
	}
	return nil
}

// sysRelease is a no-op on POSIX; the only kernel resource tied to the pid
// is the process-table slot, released by reaping in Wait.
func (p *Process) sysRelease() {}

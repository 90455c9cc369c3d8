//go:build windows

package process

import (
	"io"
	"unicode/utf16"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/subproc-io/subproc/properties"
)

// sysProcess is the Windows process identity: the process and primary
// thread handles returned by process creation, plus the numeric pid.
type sysProcess struct {
	pid     int
	process windows.Handle
	thread  windows.Handle
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

	app, err := windows.UTF16PtrFromString(args[0])
	if err != nil {
		return fail(errors.Wrapf(err, "invalid executable path %q", args[0]))
	}
	cmdline, err := windows.UTF16PtrFromString(commandLine(args))
	if err != nil {
		return fail(errors.Wrap(err, "invalid command line"))
	}

	// A nil environment block inherits the parent's environment. The block
	// contains embedded terminators, so it is encoded manually rather than
	// through UTF16PtrFromString.
	var envBlock *uint16
	var creationFlags uint32
	if env != nil {
		block := utf16.Encode([]rune(environmentBlock(env)))
		envBlock = &block[0]
		creationFlags |= windows.CREATE_UNICODE_ENVIRONMENT
	}

	si := &windows.StartupInfo{}
	si.Cb = uint32(unsafe.Sizeof(*si))
	if flags&(FlagStdin|FlagStdout|FlagStderr) != 0 {
		si.Flags |= windows.STARTF_USESTDHANDLES
		si.StdInput, _ = windows.GetStdHandle(windows.STD_INPUT_HANDLE)
		si.StdOutput, _ = windows.GetStdHandle(windows.STD_OUTPUT_HANDLE)
		si.StdErr, _ = windows.GetStdHandle(windows.STD_ERROR_HANDLE)
		if stdinPipe != nil {
			si.StdInput = stdinPipe.r
		}
		if stdoutPipe != nil {
			si.StdOutput = stdoutPipe.w
		}
		if flags&FlagStderr != 0 {
			if flags.stderrMerged() {
				si.StdErr = si.StdOutput
			} else {
				si.StdErr = stderrPipe.w
			}
		}
	}

	pi := &windows.ProcessInformation{}
	err = windows.CreateProcess(app, cmdline, nil, nil, true, creationFlags, envBlock, nil, si, pi)
	if err != nil {
		return fail(errors.Wrapf(err, "could not CreateProcess(%s)", args[0]))
	}
	debug("started %s as pid %d", args[0], pi.ProcessId)

	// The child holds duplicates of its ends; close them on the parent side.
	if stdinPipe != nil {
		windows.CloseHandle(stdinPipe.r)
		stdinPipe.r = 0
	}
	if stdoutPipe != nil {
		windows.CloseHandle(stdoutPipe.w)
		stdoutPipe.w = 0
	}
	if stderrPipe != nil {
		windows.CloseHandle(stderrPipe.w)
		stderrPipe.w = 0
	}

	p := &Process{
		flags: flags,
		props: properties.New(),
		sys: sysProcess{
			pid:     int(pi.ProcessId),
			process: pi.Process,
			thread:  pi.Thread,
		},
	}
	var stdinEnd, stdoutEnd, stderrEnd io.ReadWriteCloser
	if stdinPipe != nil {
		stdinEnd = &handleEnd{h: stdinPipe.w}
	}
	if stdoutPipe != nil {
		stdoutEnd = &handleEnd{h: stdoutPipe.r}
	}
	if stderrPipe != nil {
		stderrEnd = &handleEnd{h: stderrPipe.r}
	}
	p.bindStreams(stdinEnd, stdoutEnd, stderrEnd)
	return p, nil
}

// sysWait polls or blocks on the process handle. The handle stays valid
// until Destroy, but results are still cached by the caller so both
// platforms behave identically.
func (p *Process) sysWait(block bool) (Status, bool, error) {
	timeout := uint32(0)
	if block {
		timeout = windows.INFINITE
	}
	ev, err := windows.WaitForSingleObject(p.sys.process, timeout)
	switch ev {
	case windows.WAIT_OBJECT_0:
		var code uint32
		if err := windows.GetExitCodeProcess(p.sys.process, &code); err != nil {
			return Status{}, false, errors.Wrap(err, "could not GetExitCodeProcess()")
		}
		// Windows has no signal-death notion; a forced termination shows
		// up as the exit code passed to TerminateProcess.
		return Status{State: StateExited, Code: int(code)}, true, nil
	case uint32(windows.WAIT_TIMEOUT):
		return Status{}, false, nil
	default:
		if err == nil {
			err = errors.Errorf("unexpected wait event %#x", ev)
		}
		return Status{}, false, errors.Wrap(err, "could not WaitForSingleObject()")
	}
}

// sysKill stops the child. There is no cooperative termination path for a
// detached piped child here, so graceful and forceful both terminate the
// process outright with exit code 1.
func (p *Process) sysKill(force bool) error {
	if err := windows.TerminateProcess(p.sys.process, 1); err != nil {
		return errors.Wrap(err, "could not TerminateProcess()")
	}
	return nil
}

func (p *Process) sysRelease() {
	windows.CloseHandle(p.sys.thread)
	windows.CloseHandle(p.sys.process)
}

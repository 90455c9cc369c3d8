//go:build windows

package process

import (
	"io"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// pipePair is one OS pipe; r is the read end, w the write end. A handle is
// zeroed once ownership has been handed off or the end has been closed.
//
// Pipes are created inheritable so the child-side end survives process
// creation; the parent-side end has inheritance stripped explicitly.
type pipePair struct {
	r, w windows.Handle
}

func newPipePair() (*pipePair, error) {
	sa := &windows.SecurityAttributes{InheritHandle: 1}
	sa.Length = uint32(unsafe.Sizeof(*sa))
	pp := &pipePair{}
	if err := windows.CreatePipe(&pp.r, &pp.w, sa, 0); err != nil {
		return nil, errors.Wrap(err, "could not CreatePipe()")
	}
	return pp, nil
}

func disableInheritance(h windows.Handle) error {
	if err := windows.SetHandleInformation(h, windows.HANDLE_FLAG_INHERIT, 0); err != nil {
		return errors.Wrap(err, "could not SetHandleInformation()")
	}
	return nil
}

// closeBoth closes whatever ends are still open. Safe on nil.
func (pp *pipePair) closeBoth() {
	if pp == nil {
		return
	}
	if pp.r != 0 {
		windows.CloseHandle(pp.r)
		pp.r = 0
	}
	if pp.w != 0 {
		windows.CloseHandle(pp.w)
		pp.w = 0
	}
}

// makePipes allocates one pipe per stream requested in flags and strips
// inheritance from each parent-side end. When stderr is merged into stdout
// no separate stderr pipe is allocated. If anything fails, all pipes
// allocated so far are closed before the error is returned.
func makePipes(flags Flags) (stdin, stdout, stderr *pipePair, err error) {
	fail := func(err error) (*pipePair, *pipePair, *pipePair, error) {
		stdin.closeBoth()
		stdout.closeBoth()
		stderr.closeBoth()
		return nil, nil, nil, err
	}
	if flags&FlagStdin != 0 {
		if stdin, err = newPipePair(); err != nil {
			return fail(err)
		}
		if err = disableInheritance(stdin.w); err != nil {
			return fail(err)
		}
	}
	if flags&FlagStdout != 0 {
		if stdout, err = newPipePair(); err != nil {
			return fail(err)
		}
		if err = disableInheritance(stdout.r); err != nil {
			return fail(err)
		}
	}
	if flags&FlagStderr != 0 && !flags.stderrMerged() {
		if stderr, err = newPipePair(); err != nil {
			return fail(err)
		}
		if err = disableInheritance(stderr.r); err != nil {
			return fail(err)
		}
	}
	return stdin, stdout, stderr, nil
}

// handleEnd adapts a raw pipe handle to the io interfaces the stream layer
// expects.
type handleEnd struct {
	h windows.Handle
}

var _ io.ReadWriteCloser = (*handleEnd)(nil)

func (e *handleEnd) Read(b []byte) (int, error) {
	var done uint32
	err := windows.ReadFile(e.h, b, &done, nil)
	if err == windows.ERROR_BROKEN_PIPE {
		// The write side is gone; that is end-of-stream for a pipe.
		return int(done), io.EOF
	}
	if err != nil {
		return int(done), errors.Wrap(err, "could not ReadFile()")
	}
	if done == 0 && len(b) > 0 {
		return 0, io.EOF
	}
	return int(done), nil
}

func (e *handleEnd) Write(b []byte) (int, error) {
	var done uint32
	if err := windows.WriteFile(e.h, b, &done, nil); err != nil {
		return int(done), errors.Wrap(err, "could not WriteFile()")
	}
	return int(done), nil
}

func (e *handleEnd) Close() error {
	if err := windows.CloseHandle(e.h); err != nil {
		return errors.Wrap(err, "could not CloseHandle()")
	}
	return nil
}

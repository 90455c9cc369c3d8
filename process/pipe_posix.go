//go:build !windows

package process

import (
	"os"

	"github.com/pkg/errors"
)

// pipePair is one OS pipe; r is the read end, w the write end. An end is
// set to nil once ownership has been handed off or it has been closed.
//
// os.Pipe returns close-on-exec descriptors, so the parent-side ends never
// leak into the child; the child-side ends are passed explicitly through
// the launcher's descriptor table.
type pipePair struct {
	r, w *os.File
}

func newPipePair() (*pipePair, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "could not pipe()")
	}
	return &pipePair{r: r, w: w}, nil
}

// closeBoth closes whatever ends are still open. Safe on nil.
func (pp *pipePair) closeBoth() {
	if pp == nil {
		return
	}
	if pp.r != nil {
		pp.r.Close()
		pp.r = nil
	}
	if pp.w != nil {
		pp.w.Close()
		pp.w = nil
	}
}

// makePipes allocates one pipe per stream requested in flags. When stderr
// is merged into stdout no separate stderr pipe is allocated. If any
// allocation fails, all pipes allocated so far are closed before the error
// is returned.
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
	}
	if flags&FlagStdout != 0 {
		if stdout, err = newPipePair(); err != nil {
			return fail(err)
		}
	}
	if flags&FlagStderr != 0 && !flags.stderrMerged() {
		if stderr, err = newPipePair(); err != nil {
			return fail(err)
		}
	}
	return stdin, stdout, stderr, nil
}

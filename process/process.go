package process

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	gopsutil "github.com/shirou/gopsutil/v3/process"

	"github.com/subproc-io/subproc/properties"
	"github.com/subproc-io/subproc/runtime/atomics"
)

// Flags is a bit set selecting the capabilities a child process is created
// with.
type Flags uint32

const (
	// FlagStdin pipes the child's stdin; the parent-side write end is
	// published as a Stream.
	FlagStdin Flags = 1 << iota
	// FlagStdout pipes the child's stdout. Without it the child writes to
	// the parent's stdout.
	FlagStdout
	// FlagStderr pipes the child's stderr. Without it the child writes to
	// the parent's stderr.
	FlagStderr
	// FlagStderrToStdout, together with FlagStderr, sends the child's
	// stderr to its stdout target instead of allocating a separate pipe.
	FlagStderrToStdout
	// FlagErrorsToStderr echoes a launch-failure diagnostic to the
	// process' stderr destination in addition to returning the error.
	FlagErrorsToStderr
)

// stderrMerged reports whether stderr shares the stdout target, in which
// case no independent stderr pipe exists.
func (f Flags) stderrMerged() bool {
	return f&FlagStderr != 0 && f&FlagStderrToStdout != 0
}

// Property keys under which the parent-side streams are published.
const (
	StdinStreamKey  = "process.stdin"
	StdoutStreamKey = "process.stdout"
	StderrStreamKey = "process.stderr"
)

// State describes where a process is in its lifecycle.
type State int

const (
	// StateRunning is the initial state; the child has not terminated.
	StateRunning State = iota
	// StateExited is terminal; the child exited on its own and Code holds
	// its exit code.
	StateExited
	// StateSignaled is terminal; the child was terminated by a signal and
	// Code holds the signal number. Never reported on Windows, where a
	// forced termination surfaces as an exit code.
	StateSignaled
)

// Status is the result of Wait.
type Status struct {
	State State
	Code  int
}

// Process is one spawned child. It exclusively owns its pipe ends, its
// property store and the streams bound to it; none of these may be shared
// or duplicated by callers. Distinct streams of the same process may be
// used from different goroutines, but concurrent use of the same stream or
// concurrent Wait calls must be serialized by the caller.
type Process struct {
	flags Flags
	props *properties.Store

	stdin  *stream
	stdout *stream
	stderr *stream

	m         sync.Mutex
	status    *Status
	destroyed atomics.Once

	sys sysProcess
}

// New creates a child process executing args[0], which must be a full path
// to an executable, with args[1:] as its arguments. A nil env inherits the
// parent's environment; otherwise env is an ordered list of "KEY=VALUE"
// strings that entirely replaces it. On failure no process is created and
// no pipe ends are leaked.
func New(args []string, env []string, flags Flags) (*Process, error) {
	if len(args) == 0 {
		return nil, ErrNoArguments
	}
	return newProcess(args, env, flags)
}

// bindStreams wraps the parent-side pipe ends given in one stream per
// redirected direction and publishes them in the property store.
func (p *Process) bindStreams(stdinEnd, stdoutEnd, stderrEnd io.ReadWriteCloser) {
	if stdinEnd != nil {
		p.stdin = &stream{proc: p, name: "stdin", key: StdinStreamKey, dir: writeOnly, end: stdinEnd}
		p.props.Set(StdinStreamKey, Stream(p.stdin))
	}
	if stdoutEnd != nil {
		p.stdout = &stream{proc: p, name: "stdout", key: StdoutStreamKey, dir: readOnly, end: stdoutEnd}
		p.props.Set(StdoutStreamKey, Stream(p.stdout))
	}
	if stderrEnd != nil {
		p.stderr = &stream{proc: p, name: "stderr", key: StderrStreamKey, dir: readOnly, end: stderrEnd}
		p.props.Set(StderrStreamKey, Stream(p.stderr))
	}
}

// Properties returns the property store holding the process' streams.
func (p *Process) Properties() (*properties.Store, error) {
	if p == nil {
		return nil, ErrNilProcess
	}
	return p.props, nil
}

// Pid returns the OS process identifier of the child.
func (p *Process) Pid() int {
	return p.sys.pid
}

// Wait reports whether the child has terminated. With block set it suspends
// the calling goroutine until the child exits; otherwise it returns
// immediately with StateRunning if the child is still alive. Once a
// terminal status has been observed it is cached, so repeated waits keep
// returning the same result even though the underlying OS wait primitive
// is one-shot.
func (p *Process) Wait(block bool) (Status, error) {
	if p == nil {
		return Status{}, ErrNilProcess
	}
	p.m.Lock()
	if p.status != nil {
		st := *p.status
		p.m.Unlock()
		return st, nil
	}
	p.m.Unlock()

	// Not holding the lock here, so Kill can be called from another
	// goroutine while a blocking wait is in flight.
	st, terminal, err := p.sysWait(block)
	if err != nil {
		return Status{}, err
	}
	if !terminal {
		return Status{State: StateRunning}, nil
	}
	debug("pid %d reached terminal state %d with code %d", p.sys.pid, st.State, st.Code)

	p.m.Lock()
	p.status = &st
	p.m.Unlock()
	return st, nil
}

// Kill terminates the child. With force set the termination is
// unconditional; otherwise it is a best-effort cooperative request and the
// child may ignore it. Either way a subsequent Wait is still required to
// reap the process.
func (p *Process) Kill(force bool) error {
	if p == nil {
		return ErrNilProcess
	}
	return p.sysKill(force)
}

// Destroy closes every still-open stream, releases the property store and
// the OS process resources. Destroy does not wait for the child; callers
// must have reaped it with Wait first or accept a lingering zombie.
// Destroying twice is a no-op.
func (p *Process) Destroy() {
	if p == nil {
		return
	}
	p.destroyed.Do(func() {
		for _, s := range []*stream{p.stdin, p.stderr, p.stdout} {
			if s != nil && !s.closed.Get() {
				s.Close()
			}
		}
		p.props.Destroy()
		p.sysRelease()
		debug("destroyed process pid %d", p.sys.pid)
	})
}

// Stat is a point-in-time resource snapshot of a running child.
type Stat struct {
	CPUUser   float64 // seconds spent in user mode
	CPUSystem float64 // seconds spent in kernel mode
	RSS       uint64  // resident set size in bytes
	VMS       uint64  // virtual memory size in bytes
}

// Stat samples the child's CPU and memory usage. It fails once the child
// has been reaped.
func (p *Process) Stat() (*Stat, error) {
	if p == nil {
		return nil, ErrNilProcess
	}
	proc, err := gopsutil.NewProcess(int32(p.sys.pid))
	if err != nil {
		return nil, errors.Wrapf(err, "could not inspect pid %d", p.sys.pid)
	}
	times, err := proc.Times()
	if err != nil {
		return nil, errors.Wrapf(err, "could not read CPU times of pid %d", p.sys.pid)
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return nil, errors.Wrapf(err, "could not read memory info of pid %d", p.sys.pid)
	}
	return &Stat{
		CPUUser:   times.User,
		CPUSystem: times.System,
		RSS:       mem.RSS,
		VMS:       mem.VMS,
	}, nil
}

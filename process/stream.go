package process

import (
	"io"

	"github.com/pkg/errors"

	"github.com/subproc-io/subproc/runtime/atomics"
)

// Stream is one redirected standard stream of a child process. A stdin
// stream supports Write and Close; stdout/stderr streams support Read and
// Close. All other combinations, as well as Seek and Size, fail with a
// descriptive error. Reads and writes are blocking calls that may transfer
// fewer bytes than requested; that is not an error, callers loop.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
	Seek(offset int64, whence int) (int64, error)
	Size() (int64, error)
}

type direction int

const (
	readOnly direction = iota
	writeOnly
)

// stream binds one parent-side pipe end to its owning process. Closing it
// releases the pipe end and removes the stream's key from the process'
// property store.
type stream struct {
	proc   *Process
	name   string
	key    string
	dir    direction
	end    io.ReadWriteCloser
	closed atomics.Bool
}

var _ Stream = (*stream)(nil)

func (s *stream) Read(b []byte) (int, error) {
	if s.dir != readOnly {
		return 0, errors.Wrap(ErrNotReadable, s.name)
	}
	if s.closed.Get() {
		return 0, errors.Wrap(ErrStreamClosed, s.name)
	}
	n, err := s.end.Read(b)
	if err != nil && err != io.EOF {
		return n, errors.Wrapf(err, "could not read from %s", s.name)
	}
	return n, err
}

func (s *stream) Write(b []byte) (int, error) {
	if s.dir != writeOnly {
		return 0, errors.Wrap(ErrNotWritable, s.name)
	}
	if s.closed.Get() {
		return 0, errors.Wrap(ErrStreamClosed, s.name)
	}
	n, err := s.end.Write(b)
	if err != nil {
		return n, errors.Wrapf(err, "could not write to %s", s.name)
	}
	return n, nil
}

// Close releases this direction's pipe end and clears the stream's property
// key. Closing stdin is the documented way to signal end-of-input to a
// cooperating child. A second close fails with ErrStreamClosed.
func (s *stream) Close() error {
	if s.closed.Swap(true) {
		return errors.Wrap(ErrStreamClosed, s.name)
	}
	s.proc.props.Clear(s.key)
	if err := s.end.Close(); err != nil {
		return errors.Wrapf(err, "could not close %s", s.name)
	}
	debug("closed %s of pid %d", s.name, s.proc.sys.pid)
	return nil
}

func (s *stream) Seek(offset int64, whence int) (int64, error) {
	return 0, errors.Wrap(ErrNotSeekable, s.name)
}

func (s *stream) Size() (int64, error) {
	return 0, errors.Wrap(ErrNoSize, s.name)
}

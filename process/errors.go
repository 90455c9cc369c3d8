package process

import "errors"

var (
	// ErrNilProcess indicates an operation on a nil process reference.
	ErrNilProcess = errors.New("process is nil")
	// ErrNoArguments indicates New was called without an argument list.
	ErrNoArguments = errors.New("process requires a non-empty argument list")
	// ErrNotReadable indicates a read on a stream whose direction doesn't
	// support it, or on a process created without the matching flag.
	ErrNotReadable = errors.New("stream is not readable")
	// ErrNotWritable is the write-side counterpart of ErrNotReadable.
	ErrNotWritable = errors.New("stream is not writable")
	// ErrNotSeekable indicates a seek; process streams are never seekable.
	ErrNotSeekable = errors.New("stream is not seekable")
	// ErrNoSize indicates a size query; process streams have no
	// pre-determined size.
	ErrNoSize = errors.New("stream has no pre-determined size")
	// ErrStreamClosed indicates an operation on a stream end that has
	// already been closed.
	ErrStreamClosed = errors.New("stream already closed")
)

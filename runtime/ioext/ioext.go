// Package ioext provides small extensions to the standard io package.
package ioext

import "io"

// WriteNopCloser wraps an io.Writer with a no-op Close method.
func WriteNopCloser(w io.Writer) io.WriteCloser {
	return writeNopCloser{w}
}

type writeNopCloser struct {
	io.Writer
}

func (writeNopCloser) Close() error {
	return nil
}

// CopyAndClose will copy from r to w and close w, returning the number of
// bytes copied and the first error, if any. This always closes w,
// regardless of errors.
func CopyAndClose(w io.WriteCloser, r io.Reader) (int64, error) {
	n, err1 := io.Copy(w, r)
	err2 := w.Close()
	if err1 != nil {
		return n, err1
	}
	return n, err2
}

// Package process implements cross-platform creation and supervision of
// child processes with redirected standard streams.
//
// A Process is created with New, handing it an argument list, an optional
// environment and a set of Flags selecting which standard streams should be
// piped. The parent-side end of each requested pipe is exposed as a Stream
// through the process' property store under the keys StdinStreamKey,
// StdoutStreamKey and StderrStreamKey. Callers poll or block on Wait,
// terminate with Kill, and release everything with Destroy.
//
// Wait must have been called (directly or indirectly) before Destroy;
// destroying an unreaped child leaves an OS-level zombie behind.
package process

import "github.com/subproc-io/subproc/runtime"

var debug = runtime.Debug("process")

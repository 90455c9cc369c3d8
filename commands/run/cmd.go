// Package run implements the "subproc run" command, spawning a child
// process with piped standard streams and supervising it to completion.
package run

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/subproc-io/subproc/commands"
	"github.com/subproc-io/subproc/process"
	"github.com/subproc-io/subproc/runtime/ioext"
)

func init() {
	commands.Register("run", cmd{})
}

type cmd struct{}

func (cmd) Summary() string {
	return "Run a child process with redirected standard streams"
}

func (cmd) Usage() string {
	return `
subproc run spawns an executable with stdout and stderr piped back to this
process, forwards the streams, waits for the child to exit and exits with
the same code.

usage: subproc run [-i] [-m] [-s] [-V] [--env=<KV>]... [--] <executable> [<argument>...]

options:
  -i --stdin         Pipe this process' stdin to the child.
  -E --env=<KV>      Environment entry KEY=VALUE, repeatable; when given,
                     replaces the inherited environment entirely.
  -m --merge-stderr  Merge the child's stderr into its stdout pipe.
  -s --stat          Log a resource usage snapshot of the running child.
  -V --verbose       Log lifecycle events.
  -h --help          Show this screen.
`
}

func (cmd) Execute(arguments map[string]interface{}) bool {
	executable := arguments["<executable>"].(string)
	childArgs := arguments["<argument>"].([]string)
	env, _ := arguments["--env"].([]string)
	pipeStdin := arguments["--stdin"].(bool)
	mergeStderr := arguments["--merge-stderr"].(bool)
	logStat := arguments["--stat"].(bool)
	verbose := arguments["--verbose"].(bool)

	log := logrus.WithField("command", "run")
	if !verbose {
		logrus.SetLevel(logrus.WarnLevel)
	}

	// The process package wants a full path to the executable.
	path, err := exec.LookPath(executable)
	if err == nil {
		path, err = filepath.Abs(path)
	}
	if err != nil {
		log.WithError(err).Error("could not resolve executable")
		return false
	}

	flags := process.FlagStdout | process.FlagStderr | process.FlagErrorsToStderr
	if pipeStdin {
		flags |= process.FlagStdin
	}
	if mergeStderr {
		flags |= process.FlagStderrToStdout
	}

	var envList []string // nil inherits the parent's environment
	if len(env) > 0 {
		envList = env
	}

	p, err := process.New(append([]string{path}, childArgs...), envList, flags)
	if err != nil {
		log.WithError(err).Error("could not create process")
		return false
	}
	log.WithFields(logrus.Fields{"pid": p.Pid(), "executable": path}).Info("child started")

	props, err := p.Properties()
	if err != nil {
		log.WithError(err).Error("could not get process properties")
		return false
	}

	if value, ok := props.Get(process.StdinStreamKey); ok {
		go ioext.CopyAndClose(value.(process.Stream), os.Stdin)
	}
	var pumps sync.WaitGroup
	if value, ok := props.Get(process.StdoutStreamKey); ok {
		pumps.Add(1)
		go func(s process.Stream) {
			defer pumps.Done()
			io.Copy(os.Stdout, s)
		}(value.(process.Stream))
	}
	if value, ok := props.Get(process.StderrStreamKey); ok {
		pumps.Add(1)
		go func(s process.Stream) {
			defer pumps.Done()
			io.Copy(os.Stderr, s)
		}(value.(process.Stream))
	}

	if logStat {
		if stat, err := p.Stat(); err != nil {
			log.WithError(err).Warn("could not sample child resource usage")
		} else {
			log.WithFields(logrus.Fields{
				"cpu_user":   stat.CPUUser,
				"cpu_system": stat.CPUSystem,
				"rss":        stat.RSS,
				"vms":        stat.VMS,
			}).Info("child resource usage")
		}
	}

	status, err := p.Wait(true)
	pumps.Wait()
	p.Destroy()
	if err != nil {
		log.WithError(err).Error("could not wait for process")
		return false
	}

	if status.State == process.StateSignaled {
		log.WithField("signal", status.Code).Warn("child terminated by signal")
		os.Exit(128 + status.Code)
	}
	log.WithField("code", status.Code).Info("child exited")
	if status.Code != 0 {
		os.Exit(status.Code)
	}
	return true
}

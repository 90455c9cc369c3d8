//go:build linux || darwin

package process

import (
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskcluster/slugid-go/slugid"
	"golang.org/x/sys/unix"
)

const (
	testShell = "/bin/sh"
	testCat   = "/bin/cat"
	testSleep = "/bin/sleep"
)

func shellCommand(script string) []string {
	return []string{testShell, "-c", script}
}

func getStream(t *testing.T, p *Process, key string) Stream {
	props, err := p.Properties()
	require.NoError(t, err)
	value, ok := props.Get(key)
	require.True(t, ok, "expected %s to be present", key)
	return value.(Stream)
}

// readAll drains a stream with a deliberately tiny buffer, so partial reads
// are accumulated the way callers are expected to.
func readAll(t *testing.T, s Stream) string {
	var sb strings.Builder
	buf := make([]byte, 4)
	for {
		n, err := s.Read(buf)
		sb.Write(buf[:n])
		if err == io.EOF {
			return sb.String()
		}
		require.NoError(t, err)
	}
}

func TestCreateWithoutArguments(t *testing.T) {
	_, err := New(nil, nil, 0)
	require.ErrorIs(t, err, ErrNoArguments)

	_, err = New([]string{}, nil, FlagStdout)
	require.ErrorIs(t, err, ErrNoArguments)
}

func TestCreateLaunchFailure(t *testing.T) {
	path := "/no/such/binary-" + slugid.Nice()
	_, err := New([]string{path}, nil, FlagStdout|FlagErrorsToStderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestPropertyKeysMatchFlags(t *testing.T) {
	cases := []struct {
		name  string
		flags Flags
		keys  []string
	}{
		{"None", 0, []string{}},
		{"Stdin", FlagStdin, []string{StdinStreamKey}},
		{"StdinStdout", FlagStdin | FlagStdout, []string{StdinStreamKey, StdoutStreamKey}},
		{"StdoutStderr", FlagStdout | FlagStderr, []string{StdoutStreamKey, StderrStreamKey}},
		{"StderrMerged", FlagStdout | FlagStderr | FlagStderrToStdout, []string{StdoutStreamKey}},
		{"StderrOnly", FlagStderr, []string{StderrStreamKey}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := New(shellCommand("exit 0"), nil, c.flags)
			require.NoError(t, err)
			defer p.Destroy()

			props, err := p.Properties()
			require.NoError(t, err)
			keys := props.Keys()
			sort.Strings(keys)
			expected := append([]string{}, c.keys...)
			sort.Strings(expected)
			assert.Equal(t, expected, keys)

			_, err = p.Wait(true)
			require.NoError(t, err)
		})
	}
}

func TestStdinToStdoutFilter(t *testing.T) {
	p, err := New([]string{testCat}, nil, FlagStdin|FlagStdout)
	require.NoError(t, err)
	defer p.Destroy()

	stdin := getStream(t, p, StdinStreamKey)
	stdout := getStream(t, p, StdoutStreamKey)

	n, err := stdin.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.NoError(t, stdin.Close())

	assert.Equal(t, "hello\n", readAll(t, stdout))

	status, err := p.Wait(true)
	require.NoError(t, err)
	assert.Equal(t, Status{State: StateExited, Code: 0}, status)
}

func TestCloseStdinTriggersExit(t *testing.T) {
	p, err := New([]string{testCat}, nil, FlagStdin)
	require.NoError(t, err)
	defer p.Destroy()

	stdin := getStream(t, p, StdinStreamKey)
	require.NoError(t, stdin.Close())

	status, err := p.Wait(true)
	require.NoError(t, err)
	assert.Equal(t, StateExited, status.State)
	assert.Equal(t, 0, status.Code)
}

func TestWaitIdempotent(t *testing.T) {
	p, err := New(shellCommand("exit 7"), nil, 0)
	require.NoError(t, err)
	defer p.Destroy()

	status, err := p.Wait(true)
	require.NoError(t, err)
	require.Equal(t, Status{State: StateExited, Code: 7}, status)

	// The OS wait primitive is one-shot; the terminal state must remain
	// queryable through both wait forms.
	for i := 0; i < 3; i++ {
		status, err = p.Wait(true)
		require.NoError(t, err)
		require.Equal(t, Status{State: StateExited, Code: 7}, status)

		status, err = p.Wait(false)
		require.NoError(t, err)
		require.Equal(t, Status{State: StateExited, Code: 7}, status)
	}
}

func TestNonBlockingWaitWhileRunning(t *testing.T) {
	p, err := New([]string{testSleep, "10"}, nil, 0)
	require.NoError(t, err)
	defer p.Destroy()

	start := time.Now()
	status, err := p.Wait(false)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, status.State)
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, p.Kill(true))
	status, err = p.Wait(true)
	require.NoError(t, err)
	assert.Equal(t, Status{State: StateSignaled, Code: int(unix.SIGKILL)}, status)
}

func TestGracefulKill(t *testing.T) {
	p, err := New([]string{testSleep, "10"}, nil, 0)
	require.NoError(t, err)
	defer p.Destroy()

	require.NoError(t, p.Kill(false))
	status, err := p.Wait(true)
	require.NoError(t, err)
	assert.Equal(t, Status{State: StateSignaled, Code: int(unix.SIGTERM)}, status)
}

func TestStreamDirectionRestrictions(t *testing.T) {
	p, err := New([]string{testCat}, nil, FlagStdin|FlagStdout)
	require.NoError(t, err)
	defer p.Destroy()

	stdin := getStream(t, p, StdinStreamKey)
	stdout := getStream(t, p, StdoutStreamKey)

	_, err = stdin.Read(make([]byte, 8))
	require.ErrorIs(t, err, ErrNotReadable)
	_, err = stdout.Write([]byte("nope"))
	require.ErrorIs(t, err, ErrNotWritable)
	_, err = stdin.Seek(0, io.SeekStart)
	require.ErrorIs(t, err, ErrNotSeekable)
	_, err = stdout.Size()
	require.ErrorIs(t, err, ErrNoSize)

	// The failed calls must leave the process usable.
	_, err = stdin.Write([]byte("still alive\n"))
	require.NoError(t, err)
	require.NoError(t, stdin.Close())
	assert.Equal(t, "still alive\n", readAll(t, stdout))

	_, err = p.Wait(true)
	require.NoError(t, err)
}

func TestDoubleCloseStream(t *testing.T) {
	p, err := New([]string{testCat}, nil, FlagStdin)
	require.NoError(t, err)
	defer p.Destroy()

	stdin := getStream(t, p, StdinStreamKey)
	require.NoError(t, stdin.Close())

	props, err := p.Properties()
	require.NoError(t, err)
	_, ok := props.Get(StdinStreamKey)
	assert.False(t, ok, "closed stream should be cleared from properties")

	err = stdin.Close()
	require.ErrorIs(t, err, ErrStreamClosed)

	_, err = p.Wait(true)
	require.NoError(t, err)
}

func TestEnvironmentReplaced(t *testing.T) {
	value := slugid.Nice()
	p, err := New(
		shellCommand("echo $SUBPROC_TEST_VALUE"),
		[]string{"SUBPROC_TEST_VALUE=" + value},
		FlagStdout,
	)
	require.NoError(t, err)
	defer p.Destroy()

	assert.Equal(t, value+"\n", readAll(t, getStream(t, p, StdoutStreamKey)))
	_, err = p.Wait(true)
	require.NoError(t, err)
}

func TestEnvironmentInherited(t *testing.T) {
	value := slugid.Nice()
	t.Setenv("SUBPROC_INHERIT_VALUE", value)

	p, err := New(shellCommand("echo $SUBPROC_INHERIT_VALUE"), nil, FlagStdout)
	require.NoError(t, err)
	defer p.Destroy()

	assert.Equal(t, value+"\n", readAll(t, getStream(t, p, StdoutStreamKey)))
	_, err = p.Wait(true)
	require.NoError(t, err)
}

func TestStderrSeparate(t *testing.T) {
	p, err := New(shellCommand("echo out; echo err 1>&2"), nil, FlagStdout|FlagStderr)
	require.NoError(t, err)
	defer p.Destroy()

	assert.Equal(t, "out\n", readAll(t, getStream(t, p, StdoutStreamKey)))
	assert.Equal(t, "err\n", readAll(t, getStream(t, p, StderrStreamKey)))

	_, err = p.Wait(true)
	require.NoError(t, err)
}

func TestStderrMergedIntoStdout(t *testing.T) {
	p, err := New(
		shellCommand("echo out; echo err 1>&2"),
		nil,
		FlagStdout|FlagStderr|FlagStderrToStdout,
	)
	require.NoError(t, err)
	defer p.Destroy()

	output := readAll(t, getStream(t, p, StdoutStreamKey))
	assert.Contains(t, output, "out\n")
	assert.Contains(t, output, "err\n")

	_, err = p.Wait(true)
	require.NoError(t, err)
}

func TestStatWhileRunning(t *testing.T) {
	p, err := New([]string{testSleep, "10"}, nil, 0)
	require.NoError(t, err)
	defer p.Destroy()

	stat, err := p.Stat()
	require.NoError(t, err)
	require.NotNil(t, stat)

	require.NoError(t, p.Kill(true))
	_, err = p.Wait(true)
	require.NoError(t, err)
}

func TestDestroyClosesStreams(t *testing.T) {
	p, err := New([]string{testCat}, nil, FlagStdin|FlagStdout)
	require.NoError(t, err)

	require.NoError(t, p.Kill(true))
	_, err = p.Wait(true)
	require.NoError(t, err)

	stdin := getStream(t, p, StdinStreamKey)
	p.Destroy()

	_, err = stdin.Write([]byte("too late"))
	require.ErrorIs(t, err, ErrStreamClosed)

	// Destroy is idempotent.
	p.Destroy()
}

func TestNilProcess(t *testing.T) {
	var p *Process

	_, err := p.Properties()
	require.ErrorIs(t, err, ErrNilProcess)
	_, err = p.Wait(true)
	require.ErrorIs(t, err, ErrNilProcess)
	require.ErrorIs(t, p.Kill(true), ErrNilProcess)
	_, err = p.Stat()
	require.ErrorIs(t, err, ErrNilProcess)
	p.Destroy()
}

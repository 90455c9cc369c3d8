// Package runtime holds ambient utilities shared by all packages in this
// repository.
package runtime

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

var (
	debugLock    sync.Mutex
	prevMessage  = time.Now()
	debugPattern = func() *regexp.Regexp {
		debug := os.Getenv("DEBUG")
		if debug == "" {
			return nil
		}
		debug = regexp.QuoteMeta(debug)
		debug = strings.Replace(debug, "\\*", ".*?", -1)
		debug = strings.Replace(debug, ",", "|", -1)
		return regexp.MustCompile("^(" + debug + ")$")
	}()
)

func debugDisabled(string, ...interface{}) {}

// Debug returns a debug(format, args...) function whose messages are
// printed to stderr if the DEBUG environment variable matches name.
// Patterns are comma-separated and may contain '*' wildcards, e.g.
// DEBUG='process,commands:*'.
//
// This is for development debugging only; these messages carry no value in
// production.
func Debug(name string) func(string, ...interface{}) {
	if debugPattern == nil || !debugPattern.MatchString(name) {
		return debugDisabled
	}

	return func(format string, args ...interface{}) {
		debugLock.Lock()
		now := time.Now()
		delay := now.Sub(prevMessage)
		prevMessage = now
		debugLock.Unlock()

		s := fmt.Sprintf("%8s %s | ", humanizeDuration(delay), name)
		s += fmt.Sprintf(format, args...)
		fmt.Fprintln(os.Stderr, s)
	}
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d > time.Second:
		return fmt.Sprintf("+%ds", d/time.Second)
	case d > time.Millisecond:
		return fmt.Sprintf("+%dms", d/time.Millisecond)
	case d > time.Microsecond:
		return fmt.Sprintf("+%dus", d/time.Microsecond)
	}
	return fmt.Sprintf("+%dns", d.Nanoseconds())
}

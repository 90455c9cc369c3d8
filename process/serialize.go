package process

import "strings"

// commandLine flattens an argument list into the single command-line string
// the Windows process-creation primitive expects. Arguments are joined with
// single spaces; any '"', '\', space or tab inside an argument is escaped
// with a preceding backslash.
//
// This is a deliberately simplified quoting scheme. Arguments whose
// round-tripping depends on the full CommandLineToArgvW backslash rules
// (e.g. trailing backslashes before a closing quote) are not supported.
func commandLine(args []string) string {
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte(' ')
		}
		for j := 0; j < len(arg); j++ {
			switch c := arg[j]; c {
			case '"', '\\', ' ', '\t':
				b.WriteByte('\\')
				b.WriteByte(c)
			default:
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// environmentBlock packs "KEY=VALUE" strings into the block form the
// Windows process-creation primitive expects: each entry followed by a
// null terminator, with one extra null marking the end of the block.
func environmentBlock(env []string) string {
	var b strings.Builder
	for _, kv := range env {
		b.WriteString(kv)
		b.WriteByte(0)
	}
	b.WriteByte(0)
	return b.String()
}

// copyStrings duplicates a string list so the launcher owns its argument
// and environment buffers independently of the caller's slices. A nil list
// stays nil, which callers interpret as environment inheritance.
func copyStrings(list []string) []string {
	if list == nil {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

package main

import (
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

var (
	stdinIsTerminal  int32 = -1 // -1 = unchecked, 0 = no, 1 = yes
	stdoutIsTerminal int32 = -1
	stderrIsTerminal int32 = -1
)

func isTerminal(fd int, cached *int32) bool {
	if v := atomic.LoadInt32(cached); v >= 0 {
		return v == 1
	}
	result := term.IsTerminal(fd)
	if result {
		atomic.StoreInt32(cached, 1)
	} else {
		atomic.StoreInt32(cached, 0)
	}
	return result
}

// interactiveTerminal reports whether both stdin and stdout are terminals,
// which the stepping TUI needs.
func interactiveTerminal() bool {
	return isTerminal(int(os.Stdin.Fd()), &stdinIsTerminal) &&
		isTerminal(int(os.Stdout.Fd()), &stdoutIsTerminal)
}

// stderrTerminal decides the default log encoding.
func stderrTerminal() bool {
	return isTerminal(int(os.Stderr.Fd()), &stderrIsTerminal)
}

// terminalWidth returns the stdout width, or fallback when unknown.
func terminalWidth(fallback int) int {
	if !isTerminal(int(os.Stdout.Fd()), &stdoutIsTerminal) {
		return fallback
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

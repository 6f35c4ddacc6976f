// Package monitoring holds the diagnostic logging hook shared by the
// flaggrid packages.
package monitoring

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger so tests or embedding programs can redirect
// or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Component returns a logf that prefixes every line with "[name] ", the
// convention used across the repo (e.g. "[Flusher] flushed grid").
// It resolves Logf at call time, so a later SetLogger still applies.
func Component(name string) func(format string, v ...interface{}) {
	prefix := "[" + name + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}

// Capture collects formatted log lines in memory.
type Capture struct {
	mu    sync.Mutex
	lines []string
}

// Logf records one formatted line. It has the same signature as Logf so it
// can be passed to SetLogger.
func (c *Capture) Logf(format string, v ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, fmt.Sprintf(format, v...))
}

// Lines returns a copy of the captured lines.
func (c *Capture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.lines...)
}

// Contains reports whether any captured line contains substr.
func (c *Capture) Contains(substr string) bool {
	for _, l := range c.Lines() {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

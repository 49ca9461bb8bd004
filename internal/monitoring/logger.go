// Package monitoring holds the process-wide diagnostic logger used by the
// tuning harness. Output goes through the standard log package so the CLI
// controls destination and flags in one place.
package monitoring

import (
	"log"
	"sync"
)

var (
	mu   sync.RWMutex
	logf func(format string, v ...interface{}) = log.Printf
)

// Logf writes a diagnostic line through the current logger.
func Logf(format string, v ...interface{}) {
	mu.RLock()
	f := logf
	mu.RUnlock()
	f(format, v...)
}

// SetLogger replaces the package logger. Passing nil installs a no-op logger,
// which the worker uses so nothing but protocol lines reaches its peer.
func SetLogger(f func(format string, v ...interface{})) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		logf = func(string, ...interface{}) {}
		return
	}
	logf = f
}

// Tagged returns a logger that prefixes every line with "[tag] ".
// The current package logger is resolved on each call, so a later
// SetLogger also redirects loggers handed out earlier.
func Tagged(tag string) func(format string, v ...interface{}) {
	prefix := "[" + tag + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}

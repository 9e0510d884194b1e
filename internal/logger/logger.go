// Package logger provides leveled logging for docmodel.
// Debug, Info and Warn print only in verbose mode (the --verbose flag) and
// trace model lifecycle, recovery and save activity. Error always prints.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

var (
	mu        sync.RWMutex
	threshold Level     = LevelError
	out       io.Writer = os.Stderr
)

// SetVerbose switches between printing every level and errors only.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
		return
	}
	SetLevel(LevelError)
}

// IsVerbose reports whether levels below Error are printed.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return threshold < LevelError
}

// SetLevel sets the lowest level that is printed. Error always prints.
func SetLevel(l Level) {
	if l > LevelError {
		l = LevelError
	}
	mu.Lock()
	defer mu.Unlock()
	threshold = l
}

// SetOutput redirects log output, which defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

// Error prints regardless of the configured level.
func Error(format string, args ...any) { logf(LevelError, format, args...) }

func logf(l Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if l < threshold {
		return
	}
	fmt.Fprintf(out, "[%s] %s\n", l, fmt.Sprintf(format, args...))
}

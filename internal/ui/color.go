// Package ui provides colored console output.
//
// Messages go to stderr so that rendered documents written to stdout can
// be piped.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	// Colors
	Red    = color.New(color.FgRed)
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
	Faint  = color.New(color.Faint)
)

var (
	mu  sync.Mutex
	out io.Writer = color.Error

	// Verbose enables Debug output.
	Verbose bool
)

// SetOutput redirects messages to w and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

func emit(c *color.Color, prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	c.Fprintf(out, prefix+format+"\n", args...)
}

// Success prints a green success message with checkmark.
func Success(format string, args ...any) {
	emit(Green, "✓ ", format, args...)
}

// Error prints a red error message with X.
func Error(format string, args ...any) {
	emit(Red, "✗ ", format, args...)
}

// Warning prints a yellow warning message.
func Warning(format string, args ...any) {
	emit(Yellow, "⚠ ", format, args...)
}

// Info prints a blue info message.
func Info(format string, args ...any) {
	emit(Blue, "", format, args...)
}

// Debug prints a faint message when Verbose is set.
func Debug(format string, args ...any) {
	if Verbose {
		emit(Faint, "", format, args...)
	}
}

// Step prints a numbered step in cyan.
func Step(n int, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	Cyan.Fprintf(out, "[%d] ", n)
	fmt.Fprintf(out, format+"\n", args...)
}

// Header prints a bold header.
func Header(format string, args ...any) {
	emit(Bold, "", format, args...)
}

// Fatal prints an error to stderr and exits.
func Fatal(format string, args ...any) {
	Red.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
	os.Exit(1)
}

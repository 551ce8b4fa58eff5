package pty

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"pkt.systems/pslog"
)

var (
	// ErrClosed is returned by operations on a process whose pty has been
	// torn down or whose child has gone away.
	ErrClosed = errors.New("pty closed")
	// ErrReaderRunning is returned when ReadLoop is called more than once.
	ErrReaderRunning = errors.New("pty reader already started")
	// ErrInvalidSize is returned for window sizes the kernel cannot hold.
	ErrInvalidSize = errors.New("invalid pty size")
)

// ValidateSize reports whether cols x rows fits a pty window size: both must
// be positive and at most 65535.
func ValidateSize(cols, rows int) error {
	if cols <= 0 || rows <= 0 || cols > math.MaxUint16 || rows > math.MaxUint16 {
		return fmt.Errorf("%w %dx%d", ErrInvalidSize, cols, rows)
	}
	return nil
}

// Options configures Spawn.
type Options struct {
	// Path is the program to execute, typically the user's shell.
	Path string
	// Args are passed after argv[0].
	Args []string
	// Env replaces the parent environment when non-nil.
	Env []string
	// Dir is the working directory; empty inherits the parent's.
	Dir string
	// Term sets TERM in the child environment when non-empty.
	Term string

	Cols int
	Rows int

	Logger pslog.Logger
}

func discardLogger() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, DisableTimestamp: true, NoColor: true})
}

func withTerm(env []string, term string) []string {
	if term == "" {
		return env
	}
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, "TERM=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, "TERM="+term)
}

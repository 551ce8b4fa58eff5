package emu

import (
	"io"

	"pkt.systems/pslog"

	"pkt.systems/mterm/internal/terminal"
)

// DefaultScrollback is the number of evicted rows retained when no
// WithScrollback option is given.
const DefaultScrollback = 1000

// Option configures a Screen or an Emulator.
type Option func(*options)

type options struct {
	scrollback int
	onEvict    func(terminal.DirtyRow)
	logger     pslog.Logger
}

// WithScrollback sets how many evicted rows are retained. Zero disables
// retention; the evict hook still fires.
func WithScrollback(lines int) Option {
	return func(o *options) {
		if lines < 0 {
			lines = 0
		}
		o.scrollback = lines
	}
}

// WithEvictHook registers fn to receive every row scrolled off the top of the
// grid. Index carries the running eviction count. fn runs on the writer's
// goroutine and must not block.
func WithEvictHook(fn func(terminal.DirtyRow)) Option {
	return func(o *options) {
		o.onEvict = fn
	}
}

// WithLogger sets the logger used for unsupported sequences.
func WithLogger(logger pslog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{scrollback: DefaultScrollback}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = discardLogger()
	}
	return o
}

func discardLogger() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, DisableTimestamp: true, NoColor: true})
}

package mterm

import (
	"context"

	"pkt.systems/mterm/internal/session"
	"pkt.systems/mterm/internal/terminal"
)

// Session is a running shell attached to an emulated screen.
type Session = session.Session

// SessionOptions configures Open.
type SessionOptions = session.Options

// Renderer is notified after shell output has been applied to the screen.
type Renderer = session.Renderer

// RendererFunc adapts a function to Renderer.
type RendererFunc = session.RendererFunc

// Snapshot is a copy of the screen grid and cursor.
type Snapshot = terminal.Snapshot

// Key names an input key that SendSpecialKey understands.
type Key = terminal.Key

// ErrTerminated is returned by writes to a session whose shell has exited.
var ErrTerminated = session.ErrTerminated

// Open spawns a shell behind a pty and starts emulating its output. The
// caller owns the session and must Close it.
func Open(ctx context.Context, opts SessionOptions) (*Session, error) {
	return session.Start(ctx, opts)
}

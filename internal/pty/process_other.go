//go:build !unix

package pty

import (
	"context"
	"errors"

	"pkt.systems/mterm/internal/terminal"
)

var errUnsupported = errors.New("pty: unsupported platform")

// Process is unavailable on this platform.
type Process struct{}

// Spawn always fails on this platform.
func Spawn(Options) (*Process, error) { return nil, errUnsupported }

func (p *Process) PID() int                                     { return 0 }
func (p *Process) Exited() <-chan struct{}                      { return nil }
func (p *Process) ExitErr() error                               { return nil }
func (p *Process) Size() (int, int)                             { return 0, 0 }
func (p *Process) Resize(int, int) error                        { return ErrClosed }
func (p *Process) ReadLoop(context.Context, func([]byte)) error { return ErrClosed }
func (p *Process) StopReader()                                  {}
func (p *Process) SendInput([]byte) error                       { return ErrClosed }
func (p *Process) SendSpecialKey(terminal.Key) error            { return ErrClosed }
func (p *Process) Close() error                                 { return nil }

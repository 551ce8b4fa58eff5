package mterm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"pkt.systems/mterm/internal/render"
	"pkt.systems/mterm/internal/terminal"
	"pkt.systems/mterm/internal/terminal/emu"
	"pkt.systems/pslog"
)

const replayChunk = 32 << 10

// ReplayOptions configures Replay.
type ReplayOptions struct {
	Cols int
	Rows int
	// Text prints plain text, scrollback first, instead of an ANSI repaint.
	Text bool
	// Scrollback is the number of evicted rows kept for Text output.
	Scrollback int
	Logger     pslog.Logger
}

// Replay feeds a recorded pty stream through a fresh emulator and writes the
// final screen to w.
func Replay(r io.Reader, w io.Writer, opts ReplayOptions) (terminal.Snapshot, error) {
	if opts.Cols <= 0 {
		opts.Cols = DefaultTerminalCols
	}
	if opts.Rows <= 0 {
		opts.Rows = DefaultTerminalRows
	}
	emuOpts := []emu.Option{emu.WithScrollback(opts.Scrollback)}
	if opts.Logger != nil {
		emuOpts = append(emuOpts, emu.WithLogger(opts.Logger.With("component", "emu")))
	}
	e := emu.New(opts.Cols, opts.Rows, emuOpts...)

	buf := make([]byte, replayChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := e.Write(buf[:n]); werr != nil {
				return terminal.Snapshot{}, werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return terminal.Snapshot{}, fmt.Errorf("read recording: %w", err)
		}
	}

	snap, err := e.Snapshot()
	if err != nil {
		return terminal.Snapshot{}, err
	}
	if !opts.Text {
		return snap, render.Snapshot(w, snap)
	}

	bw := bufio.NewWriter(w)
	for _, row := range e.Scrollback() {
		bw.WriteString(strings.TrimRight(terminal.RowText(row), " "))
		bw.WriteByte('\n')
	}
	bw.WriteString(strings.TrimRight(snap.Text(), "\n"))
	bw.WriteByte('\n')
	return snap, bw.Flush()
}

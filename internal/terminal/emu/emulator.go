package emu

import "pkt.systems/mterm/internal/terminal"

// Emulator couples a Parser with the Screen it drives. It is not safe for
// concurrent use.
type Emulator struct {
	screen *Screen
	parser *Parser
}

// New constructs an emulator with a blank cols x rows screen.
func New(cols, rows int, opts ...Option) *Emulator {
	screen := NewScreen(cols, rows, opts...)
	return &Emulator{
		screen: screen,
		parser: NewParser(screen, opts...),
	}
}

// Write feeds terminal output into the emulator.
func (e *Emulator) Write(p []byte) error {
	_, err := e.parser.Write(p)
	return err
}

// Resize changes the emulator size.
func (e *Emulator) Resize(cols, rows int) {
	e.screen.Resize(cols, rows)
}

// Snapshot captures the emulator state.
func (e *Emulator) Snapshot() (terminal.Snapshot, error) {
	return e.screen.Snapshot(), nil
}

// DrainDirtyRows returns and clears the rows changed since the last call.
func (e *Emulator) DrainDirtyRows() []terminal.DirtyRow {
	return e.screen.DrainDirtyRows()
}

// Scrollback returns the retained evicted rows, oldest first.
func (e *Emulator) Scrollback() [][]terminal.Cell {
	return e.screen.Scrollback()
}

// Screen exposes the underlying grid.
func (e *Emulator) Screen() *Screen {
	return e.screen
}

var _ terminal.Emulator = (*Emulator)(nil)

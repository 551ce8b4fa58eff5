package render

import (
	"bytes"
	"strings"
	"testing"

	"pkt.systems/mterm/internal/terminal"
	"pkt.systems/mterm/internal/terminal/emu"
)

func TestSgrKeepsIndexedColor(t *testing.T) {
	got := sgr(terminal.Attrs{FG: terminal.ANSIColor(terminal.White)})
	if !strings.Contains(got, "37") {
		t.Fatalf("expected indexed color 7, got %q", got)
	}
}

func TestSgrBoldUnderline(t *testing.T) {
	got := sgr(terminal.Attrs{Mode: terminal.ModeBold | terminal.ModeUnderline, BG: terminal.ANSIColor(terminal.Green)})
	if got != "\x1b[0;1;4;39;42m" {
		t.Fatalf("sgr = %q", got)
	}
}

func TestColorCodeIndexedUsesAnsiPalette(t *testing.T) {
	if got := strings.Join(colorCode(true, terminal.ColorIndexed|2), ";"); got != "32" {
		t.Fatalf("expected ansi fg 32 for index 2, got %q", got)
	}
	if got := strings.Join(colorCode(false, terminal.ColorIndexed|2), ";"); got != "42" {
		t.Fatalf("expected ansi bg 42 for index 2, got %q", got)
	}
	if got := strings.Join(colorCode(true, terminal.ColorIndexed|12), ";"); got != "94" {
		t.Fatalf("expected ansi fg 94 for index 12, got %q", got)
	}
	if got := strings.Join(colorCode(false, terminal.ColorIndexed|200), ";"); got != "48;5;200" {
		t.Fatalf("expected 256 bg for index 200, got %q", got)
	}
	if got := strings.Join(colorCode(true, terminal.ColorDefault), ";"); got != "39" {
		t.Fatalf("expected default fg, got %q", got)
	}
}

func TestSnapshotRoundTripsThroughEmulator(t *testing.T) {
	src := emu.New(6, 3)
	if err := src.Write([]byte("\x1b[1mab\x1b[0;42mcd\x1b[0m\r\nplain\r\n\x1b[4;31mu")); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, _ := src.Snapshot()

	var buf bytes.Buffer
	if err := Snapshot(&buf, snap); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	dst := emu.New(6, 3)
	if err := dst.Write(buf.Bytes()); err != nil {
		t.Fatalf("emu write: %v", err)
	}
	round, _ := dst.Snapshot()
	if round.Text() != snap.Text() {
		t.Fatalf("text = %q, want %q", round.Text(), snap.Text())
	}
	for i := range snap.Cells {
		if round.Cells[i] != snap.Cells[i] {
			t.Fatalf("cell %d = %+v, want %+v", i, round.Cells[i], snap.Cells[i])
		}
	}
	if round.Cursor != snap.Cursor {
		t.Fatalf("cursor = %+v, want %+v", round.Cursor, snap.Cursor)
	}
}

func TestSnapshotResetsRowAttributes(t *testing.T) {
	green := terminal.Attrs{BG: terminal.ANSIColor(terminal.Green)}
	snap := terminal.Snapshot{
		Cols: 3,
		Rows: 2,
		Cells: []terminal.Cell{
			{Rune: 'A', Attrs: green}, {Rune: 'B', Attrs: green}, {Rune: 'C', Attrs: green},
			{Rune: 'D'}, {Rune: 'E'}, {Rune: 'F'},
		},
	}

	var buf bytes.Buffer
	if err := Snapshot(&buf, snap); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	e := emu.New(3, 2)
	if err := e.Write(buf.Bytes()); err != nil {
		t.Fatalf("emu write: %v", err)
	}
	round, _ := e.Snapshot()
	cell, err := round.CellAt(0, 1)
	if err != nil {
		t.Fatalf("cell: %v", err)
	}
	if cell.BG != terminal.ColorDefault {
		t.Fatalf("expected row1 bg default, got %d", cell.BG)
	}
}

func TestRowsRepaintsOnlyDirtyRows(t *testing.T) {
	src := emu.New(5, 3)
	_ = src.Write([]byte("one\r\ntwo\r\nsix"))
	src.DrainDirtyRows()
	_ = src.Write([]byte("\x1b[2;1Hnew"))
	dirty := src.DrainDirtyRows()
	if len(dirty) != 1 || dirty[0].Index != 1 {
		t.Fatalf("dirty = %+v", dirty)
	}

	var buf bytes.Buffer
	if err := Rows(&buf, dirty, src.Screen().Cursor()); err != nil {
		t.Fatalf("Rows: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "one") || strings.Contains(out, "six") {
		t.Fatalf("clean rows repainted: %q", out)
	}
	if !strings.Contains(out, "\x1b[2;1H") || !strings.HasSuffix(out, "\x1b[2;4H") {
		t.Fatalf("unexpected cursor movement: %q", out)
	}
}

func TestViewportFollowsCursor(t *testing.T) {
	x0, y0 := viewportOrigin(80, 24, 40, 10, 70, 20)
	if x0 != 40 || y0 != 14 {
		t.Fatalf("origin = %d,%d", x0, y0)
	}
	x0, y0 = viewportOrigin(80, 24, 100, 30, 70, 20)
	if x0 != 0 || y0 != 0 {
		t.Fatalf("origin = %d,%d", x0, y0)
	}
}

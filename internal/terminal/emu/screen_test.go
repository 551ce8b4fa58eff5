package emu

import (
	"strings"
	"testing"

	"pkt.systems/mterm/internal/terminal"
)

func writeString(s *Screen, text string) {
	for _, r := range text {
		s.WriteRune(r)
	}
}

func screenRow(s *Screen, y int) string {
	snap := s.Snapshot()
	return terminal.RowText(snap.Row(y))
}

func TestScreenWrapAndScroll(t *testing.T) {
	s := NewScreen(3, 2)
	writeString(s, "abcdefg")
	if row := screenRow(s, 0); row != "def" {
		t.Fatalf("row0 = %q", row)
	}
	if row := screenRow(s, 1); row != "g  " {
		t.Fatalf("row1 = %q", row)
	}
	sb := s.Scrollback()
	if len(sb) != 1 || terminal.RowText(sb[0]) != "abc" {
		t.Fatalf("scrollback = %v", sb)
	}
}

func TestScreenFillThenOneMoreEvictsTopRow(t *testing.T) {
	const cols, rows = 4, 3
	s := NewScreen(cols, rows)
	writeString(s, "aaaabbbbcccc")
	if n := len(s.Scrollback()); n != 0 {
		t.Fatalf("scrollback after exact fill = %d rows", n)
	}
	if c := s.Cursor(); c.X != cols-1 || c.Y != rows-1 {
		t.Fatalf("cursor after fill = %+v", c)
	}
	s.DrainDirtyRows()

	s.WriteRune('d')
	sb := s.Scrollback()
	if len(sb) != 1 || terminal.RowText(sb[0]) != "aaaa" {
		t.Fatalf("scrollback = %v", sb)
	}
	if got := screenRow(s, 0); got != "bbbb" {
		t.Fatalf("row0 = %q", got)
	}
	if got := screenRow(s, 2); got != "d   " {
		t.Fatalf("bottom row = %q", got)
	}
	if c := s.Cursor(); c.Y != rows-1 || c.X != 1 {
		t.Fatalf("cursor = %+v", c)
	}
	if dirty := s.DrainDirtyRows(); len(dirty) != rows {
		t.Fatalf("scroll should dirty every row, got %d", len(dirty))
	}
}

func TestScreenLastColumnWrapIsDeferred(t *testing.T) {
	s := NewScreen(3, 2)
	writeString(s, "abc")
	if c := s.Cursor(); c.X != 2 || c.Y != 0 {
		t.Fatalf("cursor after last column = %+v", c)
	}
	s.CarriageReturn()
	s.WriteRune('x')
	if got := screenRow(s, 0); got != "xbc" {
		t.Fatalf("row0 = %q", got)
	}
	if got := screenRow(s, 1); got != "   " {
		t.Fatalf("CR should cancel the pending wrap, row1 = %q", got)
	}

	writeString(s, "yz")
	s.WriteRune('w')
	if c := s.Cursor(); c.X != 1 || c.Y != 1 {
		t.Fatalf("cursor after wrapped write = %+v", c)
	}
	if got := screenRow(s, 1); got != "w  " {
		t.Fatalf("row1 = %q", got)
	}
}

func TestScreenCursorClamping(t *testing.T) {
	s := NewScreen(10, 5)
	s.MoveCursor(-3, -3)
	if c := s.Cursor(); c.X != 0 || c.Y != 0 {
		t.Fatalf("cursor = %+v", c)
	}
	s.MoveCursor(100, 100)
	if c := s.Cursor(); c.X != 9 || c.Y != 4 {
		t.Fatalf("cursor = %+v", c)
	}
	s.SetCursorPosition(-1, 2)
	if c := s.Cursor(); c.X != 0 || c.Y != 2 {
		t.Fatalf("cursor = %+v", c)
	}
}

func TestScreenEraseInDisplay(t *testing.T) {
	cases := []struct {
		mode int
		want []string
		cur  terminal.Cursor
	}{
		{0, []string{"abc", "d  ", "   "}, terminal.Cursor{X: 1, Y: 1}},
		{1, []string{"   ", "  f", "ghi"}, terminal.Cursor{X: 1, Y: 1}},
		{2, []string{"   ", "   ", "   "}, terminal.Cursor{}},
		{7, []string{"abc", "def", "ghi"}, terminal.Cursor{X: 1, Y: 1}},
	}
	for _, tc := range cases {
		s := NewScreen(3, 3)
		writeString(s, "abcdefghi")
		s.SetCursorPosition(1, 1)
		s.EraseInDisplay(tc.mode)
		for y, want := range tc.want {
			if got := screenRow(s, y); got != want {
				t.Fatalf("mode %d row %d = %q, want %q", tc.mode, y, got, want)
			}
		}
		if c := s.Cursor(); c != tc.cur {
			t.Fatalf("mode %d cursor = %+v", tc.mode, c)
		}
	}
}

func TestScreenEraseInLine(t *testing.T) {
	cases := map[int]string{0: "he   ", 1: "   lo", 2: "     ", 9: "hello"}
	for mode, want := range cases {
		s := NewScreen(5, 1)
		writeString(s, "hello")
		s.SetCursorPosition(2, 0)
		s.EraseInLine(mode)
		if got := screenRow(s, 0); got != want {
			t.Fatalf("mode %d = %q, want %q", mode, got, want)
		}
	}
}

func TestScreenGraphicRendition(t *testing.T) {
	s := NewScreen(4, 1)
	s.ApplyGraphicRendition([]int{1})
	s.ApplyGraphicRendition([]int{31})
	s.WriteRune('A')
	cell := s.CellAt(0, 0)
	if !cell.Bold() || cell.FG != terminal.ANSIColor(terminal.Red) {
		t.Fatalf("cell = %+v", cell)
	}
	s.ApplyGraphicRendition([]int{4, 44, 58, 2, 38})
	s.WriteRune('B')
	cell = s.CellAt(1, 0)
	if !cell.Underline() || cell.BG != terminal.ANSIColor(terminal.Blue) || cell.FG != terminal.ANSIColor(terminal.Red) {
		t.Fatalf("cell = %+v", cell)
	}
	s.ApplyGraphicRendition([]int{0})
	if s.Attrs() != (terminal.Attrs{}) {
		t.Fatalf("attrs after reset = %+v", s.Attrs())
	}
	s.ApplyGraphicRendition([]int{1})
	s.ApplyGraphicRendition(nil)
	if s.Attrs() != (terminal.Attrs{}) {
		t.Fatalf("empty SGR should reset, got %+v", s.Attrs())
	}
}

func TestScreenBackspaceMovesOnly(t *testing.T) {
	s := NewScreen(3, 2)
	writeString(s, "abcd")
	s.Backspace()
	if c := s.Cursor(); c.X != 0 || c.Y != 1 {
		t.Fatalf("cursor = %+v", c)
	}
	s.Backspace()
	if c := s.Cursor(); c.X != 2 || c.Y != 0 {
		t.Fatalf("cursor after wrap back = %+v", c)
	}
	if got := screenRow(s, 1); got != "d  " {
		t.Fatalf("backspace erased: %q", got)
	}
	s.SetCursorPosition(0, 0)
	s.Backspace()
	if c := s.Cursor(); c.X != 0 || c.Y != 0 {
		t.Fatalf("cursor at origin = %+v", c)
	}
}

func TestScreenTab(t *testing.T) {
	s := NewScreen(20, 1)
	s.Tab()
	if x := s.Cursor().X; x != 8 {
		t.Fatalf("tab = %d", x)
	}
	s.MoveCursor(3, 0)
	s.Tab()
	if x := s.Cursor().X; x != 16 {
		t.Fatalf("tab = %d", x)
	}
	s.Tab()
	if x := s.Cursor().X; x != 19 {
		t.Fatalf("tab clamp = %d", x)
	}
}

func TestScreenLineFeedKeepsColumn(t *testing.T) {
	s := NewScreen(5, 2)
	writeString(s, "ab")
	s.LineFeed()
	if c := s.Cursor(); c.X != 2 || c.Y != 1 {
		t.Fatalf("cursor = %+v", c)
	}
	s.NewLine()
	if c := s.Cursor(); c.X != 0 || c.Y != 1 {
		t.Fatalf("cursor after newline = %+v", c)
	}
	if got := screenRow(s, 0); got != "     " {
		t.Fatalf("row0 after scroll = %q", got)
	}
}

func TestScreenResizeRoundTrip(t *testing.T) {
	s := NewScreen(80, 24)
	for y := 0; y < 24; y++ {
		s.SetCursorPosition(0, y)
		writeString(s, strings.Repeat(string(rune('a'+y%26)), 79))
	}
	s.SetCursorPosition(70, 20)
	before := s.Snapshot()

	s.Resize(40, 10)
	if c := s.Cursor(); c.X != 39 || c.Y != 9 {
		t.Fatalf("cursor after shrink = %+v", c)
	}
	s.Resize(80, 24)
	if c := s.Cursor(); c.X != 39 || c.Y != 9 {
		t.Fatalf("cursor after grow = %+v", c)
	}
	after := s.Snapshot()
	for y := 0; y < 24; y++ {
		for x := 0; x < 80; x++ {
			got, _ := after.CellAt(x, y)
			if x < 40 && y < 10 {
				want, _ := before.CellAt(x, y)
				if got != want {
					t.Fatalf("cell(%d,%d) = %+v, want %+v", x, y, got, want)
				}
				continue
			}
			if got != terminal.BlankCell {
				t.Fatalf("cell(%d,%d) = %+v, want blank", x, y, got)
			}
		}
	}
	if dirty := s.DrainDirtyRows(); len(dirty) != 24 {
		t.Fatalf("resize should dirty all rows, got %d", len(dirty))
	}
}

func TestScreenDrainDirtyRowsIdempotent(t *testing.T) {
	s := NewScreen(4, 4)
	s.DrainDirtyRows()
	s.SetCursorPosition(0, 2)
	s.WriteRune('x')
	s.SetCursorPosition(0, 0)
	s.WriteRune('y')
	rows := s.DrainDirtyRows()
	if len(rows) != 2 || rows[0].Index != 0 || rows[1].Index != 2 {
		t.Fatalf("dirty rows = %+v", rows)
	}
	if rows[1].String() != "x   " {
		t.Fatalf("row content = %q", rows[1].String())
	}
	if again := s.DrainDirtyRows(); len(again) != 0 {
		t.Fatalf("second drain = %+v", again)
	}
}

func TestScreenScrollbackCapacity(t *testing.T) {
	var evicted []string
	s := NewScreen(2, 1, WithScrollback(2), WithEvictHook(func(row terminal.DirtyRow) {
		evicted = append(evicted, row.String())
	}))
	for _, line := range []string{"a", "b", "c", "d"} {
		s.CarriageReturn()
		writeString(s, line)
		s.LineFeed()
	}
	sb := s.Scrollback()
	if len(sb) != 2 || terminal.RowText(sb[0]) != "c " || terminal.RowText(sb[1]) != "d " {
		t.Fatalf("scrollback = %v", sb)
	}
	if strings.Join(evicted, ",") != "a ,b ,c ,d " {
		t.Fatalf("evicted = %q", evicted)
	}
}

func TestScreenScrollbackDisabled(t *testing.T) {
	s := NewScreen(2, 1, WithScrollback(0))
	writeString(s, "abc")
	if n := len(s.Scrollback()); n != 0 {
		t.Fatalf("scrollback = %d rows", n)
	}
}

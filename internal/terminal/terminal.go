package terminal

import (
	"fmt"
	"strings"
)

// Emulator provides access to an authoritative terminal emulator.
type Emulator interface {
	Write(p []byte) error
	Resize(cols, rows int)
	Snapshot() (Snapshot, error)
	DrainDirtyRows() []DirtyRow
}

// Cursor represents a cursor position.
type Cursor struct {
	X int
	Y int
}

// Attrs is the rendition applied to newly written cells.
type Attrs struct {
	Mode int16
	FG   uint32
	BG   uint32
}

// Bold reports whether the bold flag is set.
func (a Attrs) Bold() bool { return a.Mode&ModeBold != 0 }

// Underline reports whether the underline flag is set.
func (a Attrs) Underline() bool { return a.Mode&ModeUnderline != 0 }

// Cell represents a terminal cell's content and attributes.
type Cell struct {
	Rune rune
	Attrs
}

// BlankCell is the default cell: a space with default colors and no attributes.
var BlankCell = Cell{Rune: ' '}

// DirtyRow is a copy of one grid row that changed since the last drain.
type DirtyRow struct {
	Index int
	Cells []Cell
}

// String returns the row text without attributes.
func (r DirtyRow) String() string {
	return RowText(r.Cells)
}

// Snapshot captures terminal state for late consumers.
type Snapshot struct {
	Cols   int
	Rows   int
	Cursor Cursor
	Cells  []Cell
}

// Cell mode flags.
const (
	ModeBold      int16 = 1 << 0
	ModeUnderline int16 = 1 << 3
)

// Color encoding flags for cells.
const (
	ColorDefault   uint32 = 0
	ColorIndexed   uint32 = 1 << 24
	ColorFlagMask  uint32 = 0xff000000
	ColorValueMask uint32 = 0x00ffffff
)

// ANSI color indexes.
const (
	Black = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

// ANSIColor encodes one of the eight ANSI palette colors.
func ANSIColor(n int) uint32 {
	return ColorIndexed | uint32(n&0x7)
}

// ColorIndex returns the palette index of c, or -1 for the default color.
func ColorIndex(c uint32) int {
	if c&ColorFlagMask != ColorIndexed {
		return -1
	}
	return int(c & ColorValueMask)
}

// CellAt returns the cell at (x, y).
func (s Snapshot) CellAt(x, y int) (Cell, error) {
	if x < 0 || y < 0 || x >= s.Cols || y >= s.Rows {
		return Cell{}, fmt.Errorf("cell out of range")
	}
	idx := y*s.Cols + x
	return s.Cells[idx], nil
}

// Row returns the cells of row y, or nil if y is out of range.
func (s Snapshot) Row(y int) []Cell {
	if y < 0 || y >= s.Rows {
		return nil
	}
	return s.Cells[y*s.Cols : (y+1)*s.Cols]
}

// Text returns the grid as newline separated rows with trailing blanks trimmed.
func (s Snapshot) Text() string {
	var b strings.Builder
	for y := 0; y < s.Rows; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRight(RowText(s.Row(y)), " "))
	}
	return b.String()
}

// RowText concatenates the runes of a row.
func RowText(cells []Cell) string {
	var b strings.Builder
	b.Grow(len(cells))
	for _, c := range cells {
		r := c.Rune
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}

package emu

import "pkt.systems/mterm/internal/terminal"

const tabWidth = 8

// Screen is the character grid: cells, cursor, current rendition, dirty rows
// and scrollback. It performs no I/O and no locking; callers serialize access.
type Screen struct {
	cols int
	rows int

	cells  []terminal.Cell
	cursor terminal.Cursor
	attrs  terminal.Attrs

	// wrapPending is set after a write into the last column. The wrap (and a
	// scroll, if needed) happens when the next rune is written.
	wrapPending bool

	dirty      []bool
	dirtyCount int

	scrollback    [][]terminal.Cell
	maxScrollback int
	evicted       int
	onEvict       func(terminal.DirtyRow)
}

// NewScreen constructs a blank cols x rows screen. Non-positive dimensions
// fall back to 80x24.
func NewScreen(cols, rows int, opts ...Option) *Screen {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	o := buildOptions(opts)
	s := &Screen{
		cols:          cols,
		rows:          rows,
		cells:         make([]terminal.Cell, cols*rows),
		dirty:         make([]bool, rows),
		maxScrollback: o.scrollback,
		onEvict:       o.onEvict,
	}
	s.fill(0, len(s.cells))
	s.markAll()
	return s
}

// Size returns the grid dimensions.
func (s *Screen) Size() (cols, rows int) {
	return s.cols, s.rows
}

// Cursor returns the cursor position.
func (s *Screen) Cursor() terminal.Cursor {
	return s.cursor
}

// Attrs returns the rendition applied to newly written cells.
func (s *Screen) Attrs() terminal.Attrs {
	return s.attrs
}

// CellAt returns the cell at (x, y), or a blank cell when out of range.
func (s *Screen) CellAt(x, y int) terminal.Cell {
	if !s.inBounds(x, y) {
		return terminal.BlankCell
	}
	return s.cells[s.index(x, y)]
}

// MoveCursor moves the cursor relative to its position, clamped to the grid.
func (s *Screen) MoveCursor(dx, dy int) {
	s.SetCursorPosition(s.cursor.X+dx, s.cursor.Y+dy)
}

// SetCursorPosition moves the cursor to the 0-based (x, y), clamped to the
// grid.
func (s *Screen) SetCursorPosition(x, y int) {
	s.cursor.X = clamp(x, 0, s.cols-1)
	s.cursor.Y = clamp(y, 0, s.rows-1)
	s.wrapPending = false
}

// WriteRune writes r with the current attributes at the cursor and advances.
func (s *Screen) WriteRune(r rune) {
	if s.wrapPending {
		s.wrapPending = false
		s.cursor.X = 0
		s.LineFeed()
	}
	s.cells[s.index(s.cursor.X, s.cursor.Y)] = terminal.Cell{Rune: r, Attrs: s.attrs}
	s.markDirty(s.cursor.Y)
	if s.cursor.X == s.cols-1 {
		s.wrapPending = true
		return
	}
	s.cursor.X++
}

// ScrollUp evicts row 0, shifts the remaining rows up and blanks the bottom
// row. Every visible row becomes dirty.
func (s *Screen) ScrollUp() {
	s.evict(s.cells[:s.cols])
	copy(s.cells, s.cells[s.cols:])
	s.fill((s.rows-1)*s.cols, len(s.cells))
	s.markAll()
	if s.cursor.Y >= s.rows {
		s.cursor.Y = s.rows - 1
	}
}

// EraseInDisplay clears part of the grid: 0 cursor to end, 1 start to cursor,
// 2 everything (and homes the cursor). Other modes are ignored.
func (s *Screen) EraseInDisplay(mode int) {
	pos := s.index(s.cursor.X, s.cursor.Y)
	switch mode {
	case 0:
		s.fill(pos, len(s.cells))
		s.markRange(s.cursor.Y, s.rows-1)
	case 1:
		s.fill(0, pos+1)
		s.markRange(0, s.cursor.Y)
	case 2:
		s.fill(0, len(s.cells))
		s.markAll()
		s.cursor = terminal.Cursor{}
	default:
		return
	}
	s.wrapPending = false
}

// EraseInLine clears part of the cursor row: 0 cursor to end, 1 start to
// cursor, 2 the whole row. Other modes are ignored.
func (s *Screen) EraseInLine(mode int) {
	start := s.index(0, s.cursor.Y)
	pos := start + s.cursor.X
	switch mode {
	case 0:
		s.fill(pos, start+s.cols)
	case 1:
		s.fill(start, pos+1)
	case 2:
		s.fill(start, start+s.cols)
	default:
		return
	}
	s.markDirty(s.cursor.Y)
	s.wrapPending = false
}

// ApplyGraphicRendition updates the current attributes from SGR parameters.
// An empty list resets. Unknown codes are ignored.
func (s *Screen) ApplyGraphicRendition(params []int) {
	if len(params) == 0 {
		s.attrs = terminal.Attrs{}
		return
	}
	for _, p := range params {
		switch {
		case p == 0:
			s.attrs = terminal.Attrs{}
		case p == 1:
			s.attrs.Mode |= terminal.ModeBold
		case p == 4:
			s.attrs.Mode |= terminal.ModeUnderline
		case p >= 30 && p <= 37:
			s.attrs.FG = terminal.ANSIColor(p - 30)
		case p >= 40 && p <= 47:
			s.attrs.BG = terminal.ANSIColor(p - 40)
		}
	}
}

// Backspace moves the cursor one column left, or to the last column of the
// previous row when already at column 0. The vacated cell is not erased.
func (s *Screen) Backspace() {
	s.wrapPending = false
	switch {
	case s.cursor.X > 0:
		s.cursor.X--
	case s.cursor.Y > 0:
		s.cursor.Y--
		s.cursor.X = s.cols - 1
	}
}

// CarriageReturn moves the cursor to column 0.
func (s *Screen) CarriageReturn() {
	s.cursor.X = 0
	s.wrapPending = false
}

// LineFeed moves the cursor down one row, scrolling at the bottom.
func (s *Screen) LineFeed() {
	s.wrapPending = false
	if s.cursor.Y == s.rows-1 {
		s.ScrollUp()
		return
	}
	s.cursor.Y++
}

// NewLine is a carriage return followed by a line feed.
func (s *Screen) NewLine() {
	s.CarriageReturn()
	s.LineFeed()
}

// Tab advances to the next multiple-of-8 column, clamped to the last column.
func (s *Screen) Tab() {
	next := (s.cursor.X/tabWidth + 1) * tabWidth
	s.cursor.X = clamp(next, 0, s.cols-1)
	s.wrapPending = false
}

// Resize rebuilds the grid, keeping the overlapping top-left region. The
// whole grid becomes dirty.
func (s *Screen) Resize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	next := make([]terminal.Cell, cols*rows)
	for i := range next {
		next[i] = terminal.BlankCell
	}
	minCols := min(cols, s.cols)
	minRows := min(rows, s.rows)
	for y := 0; y < minRows; y++ {
		copy(next[y*cols:y*cols+minCols], s.cells[y*s.cols:y*s.cols+minCols])
	}
	s.cols = cols
	s.rows = rows
	s.cells = next
	s.dirty = make([]bool, rows)
	s.dirtyCount = 0
	s.cursor.X = clamp(s.cursor.X, 0, cols-1)
	s.cursor.Y = clamp(s.cursor.Y, 0, rows-1)
	s.wrapPending = false
	s.markAll()
}

// DrainDirtyRows returns copies of the rows changed since the previous drain,
// in ascending order, and clears the dirty set.
func (s *Screen) DrainDirtyRows() []terminal.DirtyRow {
	if s.dirtyCount == 0 {
		return nil
	}
	out := make([]terminal.DirtyRow, 0, s.dirtyCount)
	for y, d := range s.dirty {
		if !d {
			continue
		}
		s.dirty[y] = false
		out = append(out, terminal.DirtyRow{Index: y, Cells: s.rowCopy(y)})
	}
	s.dirtyCount = 0
	return out
}

// Scrollback returns copies of the retained evicted rows, oldest first.
func (s *Screen) Scrollback() [][]terminal.Cell {
	out := make([][]terminal.Cell, len(s.scrollback))
	for i, row := range s.scrollback {
		out[i] = append([]terminal.Cell(nil), row...)
	}
	return out
}

// Snapshot copies the grid and cursor.
func (s *Screen) Snapshot() terminal.Snapshot {
	cells := make([]terminal.Cell, len(s.cells))
	copy(cells, s.cells)
	return terminal.Snapshot{
		Cols:   s.cols,
		Rows:   s.rows,
		Cursor: s.cursor,
		Cells:  cells,
	}
}

func (s *Screen) evict(row []terminal.Cell) {
	if s.maxScrollback == 0 && s.onEvict == nil {
		return
	}
	kept := append([]terminal.Cell(nil), row...)
	if s.onEvict != nil {
		s.onEvict(terminal.DirtyRow{Index: s.evicted, Cells: kept})
	}
	s.evicted++
	if s.maxScrollback == 0 {
		return
	}
	if len(s.scrollback) < s.maxScrollback {
		s.scrollback = append(s.scrollback, kept)
		return
	}
	copy(s.scrollback, s.scrollback[1:])
	s.scrollback[len(s.scrollback)-1] = kept
}

func (s *Screen) rowCopy(y int) []terminal.Cell {
	row := make([]terminal.Cell, s.cols)
	copy(row, s.cells[y*s.cols:(y+1)*s.cols])
	return row
}

func (s *Screen) fill(from, to int) {
	for i := from; i < to; i++ {
		s.cells[i] = terminal.BlankCell
	}
}

func (s *Screen) markDirty(y int) {
	if !s.dirty[y] {
		s.dirty[y] = true
		s.dirtyCount++
	}
}

func (s *Screen) markRange(from, to int) {
	for y := from; y <= to; y++ {
		s.markDirty(y)
	}
}

func (s *Screen) markAll() {
	s.markRange(0, s.rows-1)
}

func (s *Screen) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.cols && y < s.rows
}

func (s *Screen) index(x, y int) int {
	return y*s.cols + x
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

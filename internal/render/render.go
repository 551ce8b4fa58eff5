package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"pkt.systems/mterm/internal/terminal"
)

const (
	ansiClearScreen = "\x1b[2J"
	ansiHome        = "\x1b[H"
	ansiShowCursor  = "\x1b[?25h"
	ansiReset       = "\x1b[0m"
)

// Snapshot repaints the whole screen from snap using ANSI escapes.
func Snapshot(w io.Writer, snap terminal.Snapshot) error {
	return SnapshotViewport(w, snap, snap.Cols, snap.Rows)
}

// SnapshotViewport repaints snap cropped or padded to a viewCols x viewRows
// window. When the window is smaller than the grid it follows the cursor.
func SnapshotViewport(w io.Writer, snap terminal.Snapshot, viewCols, viewRows int) error {
	if snap.Cols <= 0 || snap.Rows <= 0 {
		return nil
	}
	if viewCols <= 0 {
		viewCols = snap.Cols
	}
	if viewRows <= 0 {
		viewRows = snap.Rows
	}
	cursorX := clamp(snap.Cursor.X, 0, snap.Cols-1)
	cursorY := clamp(snap.Cursor.Y, 0, snap.Rows-1)
	x0, y0 := viewportOrigin(snap.Cols, snap.Rows, viewCols, viewRows, cursorX, cursorY)

	var b strings.Builder
	b.WriteString(ansiReset + ansiClearScreen + ansiHome + ansiShowCursor)
	for y := 0; y < viewRows; y++ {
		row := snap.Row(y0 + y)
		line := make([]terminal.Cell, viewCols)
		for x := range line {
			line[x] = terminal.BlankCell
			if cx := x0 + x; row != nil && cx < len(row) {
				line[x] = row[cx]
			}
		}
		writeRow(&b, y, line)
	}
	b.WriteString(ansiReset)
	if cursorX >= x0 && cursorX < x0+viewCols && cursorY >= y0 && cursorY < y0+viewRows {
		moveTo(&b, cursorX-x0, cursorY-y0)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Rows repaints only the given rows, then parks the terminal cursor at
// cursor. Rows past the host terminal are the caller's problem.
func Rows(w io.Writer, rows []terminal.DirtyRow, cursor terminal.Cursor) error {
	var b strings.Builder
	for _, row := range rows {
		writeRow(&b, row.Index, row.Cells)
	}
	b.WriteString(ansiReset)
	moveTo(&b, cursor.X, cursor.Y)
	_, err := io.WriteString(w, b.String())
	return err
}

// writeRow positions at column one of row y and emits the cells, switching
// rendition only when it changes. Each row starts from a reset so that
// attributes never bleed across rows.
func writeRow(b *strings.Builder, y int, cells []terminal.Cell) {
	moveTo(b, 0, y)
	current := terminal.Attrs{}
	b.WriteString(ansiReset)
	for _, cell := range cells {
		if cell.Attrs != current {
			b.WriteString(sgr(cell.Attrs))
			current = cell.Attrs
		}
		r := cell.Rune
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
}

func moveTo(b *strings.Builder, x, y int) {
	fmt.Fprintf(b, "\x1b[%d;%dH", y+1, x+1)
}

func sgr(attr terminal.Attrs) string {
	codes := []string{"0"}
	if attr.Bold() {
		codes = append(codes, "1")
	}
	if attr.Underline() {
		codes = append(codes, "4")
	}
	codes = append(codes, colorCode(true, attr.FG)...)
	codes = append(codes, colorCode(false, attr.BG)...)
	return "\x1b[" + strings.Join(codes, ";") + "m"
}

func colorCode(fg bool, val uint32) []string {
	idx := terminal.ColorIndex(val)
	switch {
	case idx < 0:
		if fg {
			return []string{"39"}
		}
		return []string{"49"}
	case idx < 8:
		if fg {
			return []string{strconv.Itoa(30 + idx)}
		}
		return []string{strconv.Itoa(40 + idx)}
	case idx < 16:
		if fg {
			return []string{strconv.Itoa(90 + idx - 8)}
		}
		return []string{strconv.Itoa(100 + idx - 8)}
	default:
		if fg {
			return []string{"38", "5", strconv.Itoa(idx)}
		}
		return []string{"48", "5", strconv.Itoa(idx)}
	}
}

func viewportOrigin(cw, ch, vw, vh, cursorX, cursorY int) (int, int) {
	x0 := 0
	y0 := 0

	if vw < cw {
		if cursorX >= vw {
			x0 = cursorX - vw + 1
		}
		if x0 > cw-vw {
			x0 = cw - vw
		}
	}

	if vh < ch {
		if cursorY >= vh {
			y0 = cursorY - vh + 1
		}
		if y0 > ch-vh {
			y0 = ch - vh
		}
	}

	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	return x0, y0
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

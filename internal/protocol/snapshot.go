package protocol

import (
	"strings"

	"pkt.systems/mterm/internal/terminal"
)

// RowFromCells encodes one grid row as runs of equal rendition.
func RowFromCells(index int, cells []terminal.Cell) Row {
	row := Row{Index: index}
	var (
		b   strings.Builder
		cur terminal.Attrs
	)
	flush := func() {
		if b.Len() == 0 {
			return
		}
		row.Runs = append(row.Runs, Run{
			Text:      b.String(),
			Bold:      cur.Bold(),
			Underline: cur.Underline(),
			FG:        terminal.ColorIndex(cur.FG),
			BG:        terminal.ColorIndex(cur.BG),
		})
		b.Reset()
	}
	for i, cell := range cells {
		if i == 0 || cell.Attrs != cur {
			flush()
			cur = cell.Attrs
		}
		r := cell.Rune
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
	flush()
	return row
}

// SnapshotFrom encodes a full screen snapshot.
func SnapshotFrom(s terminal.Snapshot) SnapshotPayload {
	p := SnapshotPayload{
		Cols:   s.Cols,
		Rows:   s.Rows,
		Cursor: Cursor{X: s.Cursor.X, Y: s.Cursor.Y},
		Lines:  make([]Row, 0, s.Rows),
	}
	for y := 0; y < s.Rows; y++ {
		p.Lines = append(p.Lines, RowFromCells(y, s.Row(y)))
	}
	return p
}

// Snapshot decodes the payload back into a grid.
func (p SnapshotPayload) Snapshot() terminal.Snapshot {
	s := terminal.Snapshot{
		Cols:   p.Cols,
		Rows:   p.Rows,
		Cursor: terminal.Cursor{X: p.Cursor.X, Y: p.Cursor.Y},
		Cells:  make([]terminal.Cell, p.Cols*p.Rows),
	}
	for i := range s.Cells {
		s.Cells[i] = terminal.BlankCell
	}
	ApplyRows(&s, RowsPayload{Cursor: p.Cursor, Lines: p.Lines})
	return s
}

// ApplyRows patches s with changed rows. Rows outside the grid are ignored.
func ApplyRows(s *terminal.Snapshot, p RowsPayload) {
	s.Cursor = terminal.Cursor{X: p.Cursor.X, Y: p.Cursor.Y}
	for _, row := range p.Lines {
		dst := s.Row(row.Index)
		if dst == nil {
			continue
		}
		x := 0
		for _, run := range row.Runs {
			attrs := terminal.Attrs{FG: colorValue(run.FG), BG: colorValue(run.BG)}
			if run.Bold {
				attrs.Mode |= terminal.ModeBold
			}
			if run.Underline {
				attrs.Mode |= terminal.ModeUnderline
			}
			for _, r := range run.Text {
				if x >= len(dst) {
					break
				}
				dst[x] = terminal.Cell{Rune: r, Attrs: attrs}
				x++
			}
		}
		for ; x < len(dst); x++ {
			dst[x] = terminal.BlankCell
		}
	}
}

func colorValue(idx int) uint32 {
	if idx < 0 {
		return terminal.ColorDefault
	}
	return terminal.ColorIndexed | uint32(idx)
}

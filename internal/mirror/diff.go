package mirror

import (
	"pkt.systems/mterm/internal/protocol"
	"pkt.systems/mterm/internal/terminal"
)

// diffRows returns the rows of next that differ from prev. resized is true
// when the grids cannot be compared and a full snapshot must be sent.
func diffRows(prev, next terminal.Snapshot) (rows []protocol.Row, resized bool) {
	if prev.Cols != next.Cols || prev.Rows != next.Rows || len(prev.Cells) != len(next.Cells) {
		return nil, true
	}
	for y := 0; y < next.Rows; y++ {
		if rowEqual(prev.Row(y), next.Row(y)) {
			continue
		}
		rows = append(rows, protocol.RowFromCells(y, next.Row(y)))
	}
	return rows, false
}

func rowEqual(a, b []terminal.Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cursorPayload(c terminal.Cursor) protocol.Cursor {
	return protocol.Cursor{X: c.X, Y: c.Y}
}

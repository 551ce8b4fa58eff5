package terminal

import "testing"

func TestSnapshotText(t *testing.T) {
	snap := Snapshot{Cols: 3, Rows: 2, Cells: []Cell{
		{Rune: 'a'}, {Rune: 'b'}, BlankCell,
		{Rune: 'c'}, BlankCell, {Rune: 0},
	}}
	if got := snap.Text(); got != "ab\nc" {
		t.Fatalf("Text = %q", got)
	}
	if _, err := snap.CellAt(3, 0); err == nil {
		t.Fatalf("expected out of range error")
	}
	if row := snap.Row(5); row != nil {
		t.Fatalf("Row(5) = %v", row)
	}
}

func TestColorIndex(t *testing.T) {
	if got := ColorIndex(ANSIColor(Red)); got != Red {
		t.Fatalf("ColorIndex = %d", got)
	}
	if got := ColorIndex(ColorDefault); got != -1 {
		t.Fatalf("default index = %d", got)
	}
	a := Attrs{Mode: ModeBold | ModeUnderline}
	if !a.Bold() || !a.Underline() {
		t.Fatalf("attrs flags: %+v", a)
	}
}

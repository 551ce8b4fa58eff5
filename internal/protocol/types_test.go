package protocol

import (
	"encoding/json"
	"testing"

	"pkt.systems/mterm/internal/terminal"
	"pkt.systems/mterm/internal/terminal/emu"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	payload := ResizePayload{Cols: 80, Rows: 24}
	env, err := NewEnvelope(MessageResize, 42, payload)
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Envelope
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Type != MessageResize || back.Seq != 42 {
		t.Fatalf("envelope = %+v", back)
	}
	var decoded ResizePayload
	if err := back.DecodePayload(&decoded); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if decoded != payload {
		t.Fatalf("decoded payload mismatch: %+v", decoded)
	}
}

func TestRowFromCellsGroupsRuns(t *testing.T) {
	bold := terminal.Attrs{Mode: terminal.ModeBold, FG: terminal.ANSIColor(terminal.Red)}
	cells := []terminal.Cell{
		{Rune: 'a'}, {Rune: 'b'},
		{Rune: 'C', Attrs: bold}, {Rune: 'D', Attrs: bold},
		{Rune: 0},
	}
	row := RowFromCells(3, cells)
	if row.Index != 3 || len(row.Runs) != 3 {
		t.Fatalf("row = %+v", row)
	}
	if row.Runs[0].Text != "ab" || row.Runs[0].FG != -1 || row.Runs[0].BG != -1 {
		t.Fatalf("run0 = %+v", row.Runs[0])
	}
	if row.Runs[1].Text != "CD" || !row.Runs[1].Bold || row.Runs[1].FG != terminal.Red {
		t.Fatalf("run1 = %+v", row.Runs[1])
	}
	if row.Runs[2].Text != " " {
		t.Fatalf("zero rune not blanked: %+v", row.Runs[2])
	}
}

func TestSnapshotPayloadRoundTrip(t *testing.T) {
	e := emu.New(8, 3)
	_ = e.Write([]byte("\x1b[1;4;33;44mhey\x1b[0m you\r\nnext\x1b[2;2H"))
	src, _ := e.Snapshot()

	back := SnapshotFrom(src).Snapshot()
	if back.Cols != src.Cols || back.Rows != src.Rows || back.Cursor != src.Cursor {
		t.Fatalf("geometry = %dx%d %+v", back.Cols, back.Rows, back.Cursor)
	}
	for i := range src.Cells {
		if back.Cells[i] != src.Cells[i] {
			t.Fatalf("cell %d = %+v, want %+v", i, back.Cells[i], src.Cells[i])
		}
	}
}

func TestApplyRowsPatchesAndPads(t *testing.T) {
	e := emu.New(6, 2)
	_ = e.Write([]byte("aaaaaa\r\nbbbbbb"))
	s, _ := e.Snapshot()
	ApplyRows(&s, RowsPayload{
		Cursor: Cursor{X: 2, Y: 0},
		Lines: []Row{
			{Index: 0, Runs: []Run{{Text: "xy", FG: -1, BG: -1}}},
			{Index: 9, Runs: []Run{{Text: "ignored", FG: -1, BG: -1}}},
		},
	})
	if got := terminal.RowText(s.Row(0)); got != "xy    " {
		t.Fatalf("row0 = %q", got)
	}
	if got := terminal.RowText(s.Row(1)); got != "bbbbbb" {
		t.Fatalf("row1 = %q", got)
	}
	if s.Cursor != (terminal.Cursor{X: 2, Y: 0}) {
		t.Fatalf("cursor = %+v", s.Cursor)
	}
}

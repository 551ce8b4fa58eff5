package view

import (
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"pkt.systems/mterm/internal/terminal"
)

// specialKeys maps tcell keys onto the keys a session knows by name.
var specialKeys = map[tcell.Key]terminal.Key{
	tcell.KeyEnter:      terminal.KeyEnter,
	tcell.KeyCtrlC:      terminal.KeyCtrlC,
	tcell.KeyCtrlD:      terminal.KeyCtrlD,
	tcell.KeyCtrlZ:      terminal.KeyCtrlZ,
	tcell.KeyBackspace:  terminal.KeyBackspace,
	tcell.KeyBackspace2: terminal.KeyBackspace,
	tcell.KeyUp:         terminal.KeyArrowUp,
	tcell.KeyDown:       terminal.KeyArrowDown,
	tcell.KeyLeft:       terminal.KeyArrowLeft,
	tcell.KeyRight:      terminal.KeyArrowRight,
}

var sequences = map[tcell.Key]string{
	tcell.KeyTab:    "\t",
	tcell.KeyEsc:    "\x1b",
	tcell.KeyHome:   "\x1b[H",
	tcell.KeyEnd:    "\x1b[F",
	tcell.KeyPgUp:   "\x1b[5~",
	tcell.KeyPgDn:   "\x1b[6~",
	tcell.KeyDelete: "\x1b[3~",
	tcell.KeyInsert: "\x1b[2~",
	tcell.KeyF1:     "\x1bOP",
	tcell.KeyF2:     "\x1bOQ",
	tcell.KeyF3:     "\x1bOR",
	tcell.KeyF4:     "\x1bOS",
	tcell.KeyF5:     "\x1b[15~",
	tcell.KeyF6:     "\x1b[17~",
	tcell.KeyF7:     "\x1b[18~",
	tcell.KeyF8:     "\x1b[19~",
	tcell.KeyF9:     "\x1b[20~",
	tcell.KeyF10:    "\x1b[21~",
	tcell.KeyF11:    "\x1b[23~",
	tcell.KeyF12:    "\x1b[24~",
}

// translateKey returns either a named key or the raw bytes for ev. ok is
// false for keys that produce no input.
func translateKey(ev *tcell.EventKey) (key terminal.Key, data []byte, ok bool) {
	k := ev.Key()
	if named, found := specialKeys[k]; found {
		return named, nil, true
	}
	if seq, found := sequences[k]; found {
		return 0, []byte(seq), true
	}
	if k == tcell.KeyRune {
		r := ev.Rune()
		mod := ev.Modifiers()
		if mod&tcell.ModCtrl != 0 && r >= '@' && r <= '~' {
			return 0, []byte{byte(r) & 0x1f}, true
		}
		buf := make([]byte, 0, utf8.UTFMax+1)
		if mod&tcell.ModAlt != 0 {
			buf = append(buf, 0x1b)
		}
		return 0, utf8.AppendRune(buf, r), true
	}
	if k >= tcell.KeyCtrlSpace && k <= tcell.KeyCtrlUnderscore {
		return 0, []byte{byte(k)}, true
	}
	return 0, nil, false
}

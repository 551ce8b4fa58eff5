package terminal

import "fmt"

// Key is a logical key translated to a fixed control sequence before it is
// written to the shell.
type Key int

// Special keys.
const (
	KeyEnter Key = iota + 1
	KeyCtrlC
	KeyCtrlD
	KeyCtrlZ
	KeyBackspace
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
)

var keySequences = map[Key][]byte{
	KeyEnter:      {0x0a},
	KeyCtrlC:      {0x03},
	KeyCtrlD:      {0x04},
	KeyCtrlZ:      {0x1a},
	KeyBackspace:  {0x08},
	KeyArrowUp:    {0x1b, '[', 'A'},
	KeyArrowDown:  {0x1b, '[', 'B'},
	KeyArrowRight: {0x1b, '[', 'C'},
	KeyArrowLeft:  {0x1b, '[', 'D'},
}

var keyNames = map[Key]string{
	KeyEnter:      "enter",
	KeyCtrlC:      "ctrl-c",
	KeyCtrlD:      "ctrl-d",
	KeyCtrlZ:      "ctrl-z",
	KeyBackspace:  "backspace",
	KeyArrowUp:    "up",
	KeyArrowDown:  "down",
	KeyArrowLeft:  "left",
	KeyArrowRight: "right",
}

// Bytes returns the byte sequence for k.
func (k Key) Bytes() ([]byte, error) {
	seq, ok := keySequences[k]
	if !ok {
		return nil, fmt.Errorf("unknown key %d", int(k))
	}
	out := make([]byte, len(seq))
	copy(out, seq)
	return out, nil
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("key(%d)", int(k))
}

// ParseKey resolves a key name as printed by Key.String.
func ParseKey(name string) (Key, bool) {
	for k, n := range keyNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

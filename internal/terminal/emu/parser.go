package emu

import (
	"unicode/utf8"

	"pkt.systems/pslog"
)

const (
	stateGround = iota
	stateEscape
	stateCSI
	stateOSC
	stateString
)

const (
	maxParams     = 32
	maxParamValue = 65535
	maxStringLen  = 4096
)

// Handler receives the screen operations recognized by a Parser. *Screen
// implements it.
type Handler interface {
	WriteRune(r rune)
	Backspace()
	Tab()
	LineFeed()
	CarriageReturn()
	MoveCursor(dx, dy int)
	SetCursorPosition(x, y int)
	EraseInDisplay(mode int)
	EraseInLine(mode int)
	ApplyGraphicRendition(params []int)
}

// Parser is a byte-at-a-time VT/ANSI state machine. It never fails: input
// that does not fit the current state drops the partial sequence and returns
// to ground.
type Parser struct {
	h      Handler
	logger pslog.Logger

	state int

	params   []int
	current  int
	hasParam bool
	private  bool
	inter    []byte

	str    []byte
	strEsc bool

	utf8Buf []byte
}

// NewParser constructs a parser dispatching into h.
func NewParser(h Handler, opts ...Option) *Parser {
	o := buildOptions(opts)
	return &Parser{
		h:       h,
		logger:  o.logger,
		params:  make([]int, 0, 8),
		utf8Buf: make([]byte, 0, utf8.UTFMax),
	}
}

// Write feeds p into the state machine. It always consumes all of p.
func (p *Parser) Write(b []byte) (int, error) {
	for _, c := range b {
		p.Feed(c)
	}
	return len(b), nil
}

// Feed advances the state machine by one byte.
func (p *Parser) Feed(b byte) {
	switch p.state {
	case stateGround:
		p.handleGround(b)
	case stateEscape:
		p.handleEscape(b)
	case stateCSI:
		p.handleCSIByte(b)
	case stateOSC, stateString:
		p.handleStringByte(b)
	default:
		p.state = stateGround
	}
}

// InGround reports whether the parser is between sequences.
func (p *Parser) InGround() bool {
	return p.state == stateGround && len(p.utf8Buf) == 0
}

func (p *Parser) handleGround(b byte) {
	if b >= utf8.RuneSelf {
		p.handleUTF8Byte(b)
		return
	}
	p.flushUTF8()
	switch b {
	case 0x1b: // ESC
		p.state = stateEscape
	case 0x08: // BS
		p.h.Backspace()
	case 0x09: // TAB
		p.h.Tab()
	case 0x0a: // LF
		p.h.LineFeed()
	case 0x0d: // CR
		p.h.CarriageReturn()
	default:
		if b < 0x20 || b == 0x7f {
			return
		}
		p.h.WriteRune(rune(b))
	}
}

func (p *Parser) handleUTF8Byte(b byte) {
	if len(p.utf8Buf) > 0 && utf8.RuneStart(b) {
		p.flushUTF8()
	}
	p.utf8Buf = append(p.utf8Buf, b)
	if !utf8.FullRune(p.utf8Buf) {
		return
	}
	r, _ := utf8.DecodeRune(p.utf8Buf)
	p.utf8Buf = p.utf8Buf[:0]
	p.h.WriteRune(r)
}

// flushUTF8 emits a replacement rune for an incomplete sequence.
func (p *Parser) flushUTF8() {
	if len(p.utf8Buf) == 0 {
		return
	}
	p.utf8Buf = p.utf8Buf[:0]
	p.h.WriteRune(utf8.RuneError)
}

func (p *Parser) handleEscape(b byte) {
	p.state = stateGround
	switch b {
	case '[':
		p.resetCSI()
		p.state = stateCSI
	case ']':
		p.resetString()
		p.state = stateOSC
	case 'P', '_', '^', 'X':
		p.resetString()
		p.state = stateString
	case 0x1b:
		p.state = stateEscape
	default:
		p.logger.Debug("emu.esc.unsupported", "byte", int(b))
	}
}

func (p *Parser) handleCSIByte(b byte) {
	switch {
	case b >= '0' && b <= '9':
		p.addDigit(int(b - '0'))
	case b == ';':
		p.nextParam()
	case b == ':' || (b >= 0x3c && b <= 0x3f):
		p.private = true
	case b >= 0x20 && b <= 0x2f:
		if len(p.inter) < maxParams {
			p.inter = append(p.inter, b)
		}
	case b >= 0x40 && b <= 0x7e:
		params := p.finalizeParams()
		private := p.private || len(p.inter) > 0
		p.state = stateGround
		if private {
			p.logger.Debug("emu.csi.private", "final", string(rune(b)), "params", params)
			return
		}
		p.dispatchCSI(b, params)
	case b == 0x1b:
		p.state = stateEscape
	case b == 0x7f:
	case b < 0x20:
		p.state = stateGround
		p.handleGround(b)
	default:
		p.state = stateGround
	}
}

func (p *Parser) handleStringByte(b byte) {
	if p.strEsc {
		p.strEsc = false
		p.state = stateGround
		if b == '\\' {
			p.resetString()
			return
		}
		p.resetString()
		p.handleEscape(b)
		return
	}
	switch b {
	case 0x07:
		p.state = stateGround
		p.resetString()
	case 0x1b:
		p.strEsc = true
	default:
		if len(p.str) < maxStringLen {
			p.str = append(p.str, b)
		}
	}
}

func (p *Parser) dispatchCSI(final byte, params []int) {
	switch final {
	case 'A':
		p.h.MoveCursor(0, -param(params, 0, 1))
	case 'B':
		p.h.MoveCursor(0, param(params, 0, 1))
	case 'C':
		p.h.MoveCursor(param(params, 0, 1), 0)
	case 'D':
		p.h.MoveCursor(-param(params, 0, 1), 0)
	case 'H', 'f':
		row := param(params, 0, 1) - 1
		col := param(params, 1, 1) - 1
		p.h.SetCursorPosition(col, row)
	case 'J':
		p.h.EraseInDisplay(param(params, 0, 0))
	case 'K':
		p.h.EraseInLine(param(params, 0, 0))
	case 'm':
		p.h.ApplyGraphicRendition(params)
	default:
		p.logger.Debug("emu.csi.unsupported", "final", string(rune(final)), "params", params)
	}
}

func (p *Parser) resetCSI() {
	p.params = p.params[:0]
	p.current = 0
	p.hasParam = false
	p.private = false
	p.inter = p.inter[:0]
}

func (p *Parser) addDigit(d int) {
	p.hasParam = true
	p.current = p.current*10 + d
	if p.current > maxParamValue {
		p.current = maxParamValue
	}
}

func (p *Parser) nextParam() {
	if len(p.params) < maxParams {
		p.params = append(p.params, p.current)
	}
	p.current = 0
	p.hasParam = false
}

func (p *Parser) finalizeParams() []int {
	if p.hasParam && len(p.params) < maxParams {
		p.params = append(p.params, p.current)
	}
	out := make([]int, len(p.params))
	copy(out, p.params)
	p.current = 0
	p.hasParam = false
	return out
}

func (p *Parser) resetString() {
	p.str = p.str[:0]
	p.strEsc = false
}

// param returns params[idx], or def when it is absent or zero.
func param(params []int, idx, def int) int {
	if idx >= len(params) || params[idx] == 0 {
		return def
	}
	return params[idx]
}

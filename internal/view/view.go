// Package view is the interactive full-screen frontend: it draws a session
// into a tcell screen and forwards keyboard input to the shell.
package view

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"pkt.systems/mterm/internal/session"
	"pkt.systems/mterm/internal/terminal"
	"pkt.systems/pslog"
)

// PrefixKey starts a command sequence: p pastes the clipboard, y copies the
// screen, q quits, and a second PrefixKey sends it through.
const PrefixKey = tcell.KeyCtrlRightSq

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Options configures a View.
type Options struct {
	// Screen defaults to the process terminal.
	Screen    tcell.Screen
	Session   session.Options
	Clipboard Clipboard
	// Ready is called once the session has started.
	Ready func(*session.Session)
	// NoStatus hides the status line.
	NoStatus bool
}

type refreshEvent struct{ tcell.EventTime }
type doneEvent struct{ tcell.EventTime }
type quitEvent struct{ tcell.EventTime }

// View owns the screen for the lifetime of one session.
type View struct {
	opts   Options
	screen tcell.Screen
	sess   *session.Session
	logger pslog.Logger
	shell  string

	pending atomic.Bool
	prefix  bool
	message string
	full    bool
	quit    bool
}

// Run starts a session sized to the screen and runs the event loop until the
// shell exits, the user quits or ctx is done. The screen is finalized on
// return.
func Run(ctx context.Context, opts Options) error {
	if opts.Session.Logger == nil {
		opts.Session.Logger = pslog.Ctx(ctx)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = systemClipboard{}
	}
	screen := opts.Screen
	if screen == nil {
		var err error
		if screen, err = tcell.NewScreen(); err != nil {
			return fmt.Errorf("open screen: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	v := &View{
		opts:   opts,
		screen: screen,
		logger: opts.Session.Logger.With("component", "view"),
		shell:  filepath.Base(session.ResolveShell(opts.Session.Shell)),
		full:   true,
	}
	cols, rows := v.gridSize()
	sopts := opts.Session
	sopts.Cols, sopts.Rows = cols, rows
	sopts.Renderer = session.RendererFunc(v.requestRefresh)
	sess, err := session.Start(ctx, sopts)
	if err != nil {
		return err
	}
	v.sess = sess
	defer func() {
		_ = sess.Close()
	}()
	if opts.Ready != nil {
		opts.Ready(sess)
	}

	go func() {
		select {
		case <-sess.Done():
			v.post(&doneEvent{})
		case <-ctx.Done():
			v.post(&quitEvent{})
		}
	}()

	v.draw()
	for !v.quit {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			screen.Sync()
			v.resize()
		case *tcell.EventKey:
			v.handleKey(ev)
		case *refreshEvent:
			v.pending.Store(false)
		case *doneEvent:
			v.quit = true
		case *quitEvent:
			v.quit = true
		}
		v.draw()
	}
	if err := sess.Err(); err != nil && !errors.Is(err, context.Canceled) {
		v.logger.Debug("session ended", "err", err)
	}
	return nil
}

func (v *View) post(ev tcell.Event) bool {
	if t, ok := ev.(interface{ SetEventNow() }); ok {
		t.SetEventNow()
	}
	if err := v.screen.PostEvent(ev); err != nil {
		v.logger.Debug("event queue full", "err", err)
		return false
	}
	return true
}

// requestRefresh runs on the session reader goroutine. At most one refresh
// event is queued at a time.
func (v *View) requestRefresh() {
	if v.pending.CompareAndSwap(false, true) && !v.post(&refreshEvent{}) {
		v.pending.Store(false)
	}
}

func (v *View) statusRows() int {
	if v.opts.NoStatus {
		return 0
	}
	return 1
}

func (v *View) gridSize() (int, int) {
	w, h := v.screen.Size()
	h -= v.statusRows()
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func (v *View) resize() {
	cols, rows := v.gridSize()
	if c, r := v.sess.Size(); c == cols && r == rows {
		v.full = true
		return
	}
	if err := v.sess.Resize(cols, rows); err != nil && !errors.Is(err, session.ErrTerminated) {
		v.logger.Warn("resize failed", "cols", cols, "rows", rows, "err", err)
	}
	v.full = true
}

func (v *View) handleKey(ev *tcell.EventKey) {
	if v.prefix {
		v.prefix = false
		v.message = ""
		v.handlePrefixed(ev)
		return
	}
	if ev.Key() == PrefixKey {
		v.prefix = true
		v.message = "^] p paste  y copy  q quit"
		return
	}
	key, data, ok := translateKey(ev)
	if !ok {
		return
	}
	var err error
	if data == nil {
		err = v.sess.SendSpecialKey(key)
	} else {
		err = v.sess.SendInput(data)
	}
	if err != nil && !errors.Is(err, session.ErrTerminated) {
		v.logger.Warn("send input failed", "err", err)
	}
}

func (v *View) handlePrefixed(ev *tcell.EventKey) {
	if ev.Key() == PrefixKey {
		_ = v.sess.SendInput([]byte{byte(PrefixKey)})
		return
	}
	if ev.Key() != tcell.KeyRune {
		return
	}
	switch ev.Rune() {
	case 'p':
		text, err := v.opts.Clipboard.ReadAll()
		if err != nil {
			v.message = "clipboard unavailable"
			v.logger.Debug("clipboard read failed", "err", err)
			return
		}
		if err := v.sess.SendText(text); err != nil && !errors.Is(err, session.ErrTerminated) {
			v.logger.Warn("paste failed", "err", err)
		}
	case 'y':
		if err := v.opts.Clipboard.WriteAll(v.sess.Snapshot().Text()); err != nil {
			v.message = "clipboard unavailable"
			v.logger.Debug("clipboard write failed", "err", err)
			return
		}
		v.message = "screen copied"
	case 'q':
		v.quit = true
	}
}

// draw paints changed rows, or everything after a resize, then the status
// line and cursor.
func (v *View) draw() {
	if v.full {
		v.full = false
		v.sess.DrainDirtyRows()
		v.screen.Clear()
		snap := v.sess.Snapshot()
		for y := 0; y < snap.Rows; y++ {
			v.drawRow(y, snap.Row(y))
		}
	} else {
		for _, row := range v.sess.DrainDirtyRows() {
			v.drawRow(row.Index, row.Cells)
		}
	}
	v.drawStatus()
	c := v.sess.Cursor()
	v.screen.ShowCursor(c.X, c.Y)
	v.screen.Show()
}

func (v *View) drawRow(y int, cells []terminal.Cell) {
	for x, cell := range cells {
		r := cell.Rune
		if r == 0 {
			r = ' '
		}
		v.screen.SetContent(x, y, r, nil, cellStyle(cell.Attrs))
	}
}

func (v *View) drawStatus() {
	if v.opts.NoStatus {
		return
	}
	w, h := v.screen.Size()
	y := h - 1
	cols, rows := v.sess.Size()
	text := fmt.Sprintf(" %s  %dx%d", v.shell, cols, rows)
	if v.sess.Terminated() {
		text += "  [exited]"
	}
	if v.message != "" {
		text += "  " + v.message
	}
	text = runewidth.Truncate(text, w, "…")
	style := tcell.StyleDefault.Reverse(true)
	x := 0
	for _, r := range text {
		v.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
	for ; x < w; x++ {
		v.screen.SetContent(x, y, ' ', nil, style)
	}
}

func cellStyle(a terminal.Attrs) tcell.Style {
	style := tcell.StyleDefault.Bold(a.Bold()).Underline(a.Underline())
	if idx := terminal.ColorIndex(a.FG); idx >= 0 {
		style = style.Foreground(tcell.PaletteColor(idx))
	}
	if idx := terminal.ColorIndex(a.BG); idx >= 0 {
		style = style.Background(tcell.PaletteColor(idx))
	}
	return style
}

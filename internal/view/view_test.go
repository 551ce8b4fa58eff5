package view

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"pkt.systems/mterm/internal/session"
	"pkt.systems/mterm/internal/terminal"
	"pkt.systems/pslog"
)

type fakeClipboard struct {
	mu   sync.Mutex
	text string
}

func (c *fakeClipboard) ReadAll() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, nil
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

func (c *fakeClipboard) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

type harness struct {
	screen tcell.SimulationScreen
	clip   *fakeClipboard
	sess   chan *session.Session
	result chan error
}

func startView(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		screen: tcell.NewSimulationScreen("UTF-8"),
		clip:   &fakeClipboard{},
		sess:   make(chan *session.Session, 1),
		result: make(chan error, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, DisableTimestamp: true, NoColor: true})
	go func() {
		h.result <- Run(ctx, Options{
			Screen:    h.screen,
			Clipboard: h.clip,
			Session:   session.Options{Shell: "/bin/sh", Term: "vt100", Logger: logger},
			Ready:     func(s *session.Session) { h.sess <- s },
		})
	}()
	select {
	case <-h.sess:
	case err := <-h.result:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("session never started")
	}
	return h
}

func (h *harness) key(k tcell.Key, r rune) {
	_ = h.screen.PostEvent(tcell.NewEventKey(k, r, tcell.ModNone))
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.key(tcell.KeyRune, r)
	}
}

func (h *harness) lines() []string {
	cells, w, rows := h.screen.GetContents()
	out := make([]string, rows)
	for y := 0; y < rows; y++ {
		var b strings.Builder
		for x := 0; x < w; x++ {
			c := cells[y*w+x]
			if len(c.Runes) == 0 {
				b.WriteByte(' ')
				continue
			}
			b.WriteRune(c.Runes[0])
		}
		out[y] = strings.TrimRight(b.String(), " ")
	}
	return out
}

func (h *harness) waitFor(t *testing.T, cond func([]string) bool) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var lines []string
	for time.Now().Before(deadline) {
		lines = h.lines()
		if cond(lines) {
			return lines
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("screen never matched:\n%s", strings.Join(lines, "\n"))
	return nil
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.result:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return")
		return nil
	}
}

func bodyContains(want string) func([]string) bool {
	return func(lines []string) bool {
		return strings.Contains(strings.Join(lines[:len(lines)-1], "\n"), want)
	}
}

func TestViewShowsShellOutputAndStatus(t *testing.T) {
	h := startView(t)
	h.typeText(`printf 'v%s\n' iew`)
	h.key(tcell.KeyEnter, 0)
	lines := h.waitFor(t, func(lines []string) bool {
		for _, l := range lines[:len(lines)-1] {
			if l == "view" {
				return true
			}
		}
		return false
	})
	status := lines[len(lines)-1]
	if !strings.Contains(status, "sh") || !strings.Contains(status, "80x24") {
		t.Fatalf("status line = %q", status)
	}

	h.key(PrefixKey, 0)
	h.key(tcell.KeyRune, 'q')
	if err := h.wait(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestViewClipboardCommands(t *testing.T) {
	h := startView(t)
	_ = h.clip.WriteAll("echo pasted-$((40+2))\n")
	h.key(PrefixKey, 0)
	h.key(tcell.KeyRune, 'p')
	h.waitFor(t, bodyContains("pasted-42"))

	h.key(PrefixKey, 0)
	h.key(tcell.KeyRune, 'y')
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(h.clip.get(), "pasted-42") {
		if time.Now().After(deadline) {
			t.Fatalf("clipboard = %q", h.clip.get())
		}
		time.Sleep(20 * time.Millisecond)
	}
	h.waitFor(t, func(lines []string) bool {
		return strings.Contains(lines[len(lines)-1], "screen copied")
	})

	h.key(PrefixKey, 0)
	h.key(tcell.KeyRune, 'q')
	if err := h.wait(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestViewReturnsWhenShellExits(t *testing.T) {
	h := startView(t)
	h.typeText("exit")
	h.key(tcell.KeyEnter, 0)
	if err := h.wait(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestViewResizeFollowsScreen(t *testing.T) {
	h := startView(t)
	h.screen.SetSize(40, 11)
	_ = h.screen.PostEvent(tcell.NewEventResize(40, 11))
	h.waitFor(t, func(lines []string) bool {
		return len(lines) == 11 && strings.Contains(lines[10], "40x10")
	})
	h.key(PrefixKey, 0)
	h.key(tcell.KeyRune, 'q')
	if err := h.wait(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestTranslateKey(t *testing.T) {
	cases := []struct {
		name  string
		ev    *tcell.EventKey
		key   terminal.Key
		data  string
		named bool
	}{
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), terminal.KeyEnter, "", true},
		{"arrow", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), terminal.KeyArrowUp, "", true},
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'é', tcell.ModNone), 0, "é", false},
		{"ctrl rune", tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModCtrl), 0, "\x01", false},
		{"alt rune", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), 0, "\x1bx", false},
		{"ctrl range", tcell.NewEventKey(tcell.KeyCtrlL, 0, tcell.ModCtrl), 0, "\x0c", false},
		{"function", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone), 0, "\x1b[15~", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, data, ok := translateKey(tc.ev)
			if !ok {
				t.Fatalf("translateKey reported no input")
			}
			if tc.named {
				if data != nil || key != tc.key {
					t.Fatalf("got key=%v data=%q, want key %v", key, data, tc.key)
				}
				return
			}
			if string(data) != tc.data {
				t.Fatalf("data = %q, want %q", data, tc.data)
			}
		})
	}

	if _, _, ok := translateKey(tcell.NewEventKey(tcell.KeyPrint, 0, tcell.ModNone)); ok {
		t.Fatalf("KeyPrint should produce no input")
	}
}

package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/creack/pty"
)

func sizedPTY(t *testing.T, cols, rows uint16) *os.File {
	t.Helper()
	master, slave, err := pty.Open()
	if err != nil {
		t.Fatalf("pty.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = master.Close()
		_ = slave.Close()
	})
	if err := pty.Setsize(master, &pty.Winsize{Cols: cols, Rows: rows}); err != nil {
		t.Fatalf("Setsize: %v", err)
	}
	return slave
}

func TestTermSizeAnyPrefersFirstTerminal(t *testing.T) {
	plain, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	t.Cleanup(func() { _ = plain.Close() })
	wide := sizedPTY(t, 132, 43)
	narrow := sizedPTY(t, 40, 10)

	if cols, rows := termSizeAny(nil, plain, wide, narrow); cols != 132 || rows != 43 {
		t.Fatalf("termSizeAny = %dx%d, want 132x43", cols, rows)
	}
	if cols, rows := termSizeAny(narrow, wide); cols != 40 || rows != 10 {
		t.Fatalf("termSizeAny = %dx%d, want 40x10", cols, rows)
	}
}

type flakyWriter struct {
	bytes.Buffer
	fails int
	chunk int
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.fails > 0 {
		w.fails--
		return 0, syscall.EAGAIN
	}
	if len(p) > w.chunk {
		p = p[:w.chunk]
	}
	return w.Buffer.Write(p)
}

func TestWriteAllRetriesShortAndEAGAINWrites(t *testing.T) {
	w := &flakyWriter{fails: 2, chunk: 3}
	if err := writeAll(context.Background(), w, []byte("repaint")); err != nil {
		t.Fatalf("writeAll: %v", err)
	}
	if w.String() != "repaint" {
		t.Fatalf("written = %q", w.String())
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, syscall.EPIPE }

func TestWriteAllStopsOnHardErrorAndCancel(t *testing.T) {
	if err := writeAll(context.Background(), brokenWriter{}, []byte("x")); !errors.Is(err, syscall.EPIPE) {
		t.Fatalf("writeAll = %v, want EPIPE", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := writeAll(ctx, &flakyWriter{fails: 1 << 20, chunk: 1}, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("writeAll = %v, want context.Canceled", err)
	}
}

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"pkt.systems/mterm/internal/render"
	"pkt.systems/pslog"
)

// RunnerOptions configures a plain stdio frontend.
type RunnerOptions struct {
	Session    Options
	Stdin      *os.File
	Stdout     *os.File
	DisableRaw bool
	// Ready is called once the session has started.
	Ready func(*Session)
}

// Runner drives a Session from the process's own terminal: stdin goes to the
// shell, changed rows are repainted on stdout and SIGWINCH resizes the pty.
type Runner struct {
	opts    RunnerOptions
	logger  pslog.Logger
	sess    *Session
	refresh chan struct{}
	repaint atomic.Bool
}

// NewRunner constructs a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{opts: opts, refresh: make(chan struct{}, 1)}
}

// Run starts the session and blocks until the shell exits or ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if r.opts.Session.Logger == nil {
		r.opts.Session.Logger = pslog.Ctx(ctx)
	}
	r.logger = r.opts.Session.Logger.With("component", "runner")
	stdin := r.stdin()
	stdout := r.stdout()

	sopts := r.opts.Session
	if sopts.Cols <= 0 || sopts.Rows <= 0 {
		if cols, rows := termSizeAny(stdout, stdin); cols > 0 && rows > 0 {
			sopts.Cols, sopts.Rows = cols, rows
		}
	}
	sopts.Renderer = RendererFunc(r.signal)

	sess, err := Start(ctx, sopts)
	if err != nil {
		return err
	}
	r.sess = sess
	defer func() {
		_ = sess.Close()
	}()
	if r.opts.Ready != nil {
		r.opts.Ready(sess)
	}

	if !r.opts.DisableRaw {
		if err := makeRaw(stdin); err != nil {
			return err
		}
		defer restoreTerminal(stdin)
	}
	_ = setNonblock(stdin, true)
	defer func() {
		_ = setNonblock(stdin, false)
	}()

	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	sigwinch := make(chan os.Signal, 1)
	signal.Notify(sigwinch, syscall.SIGWINCH)
	defer signal.Stop(sigwinch)

	r.repaint.Store(true)
	r.signal()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return r.inputLoop(gctx, stdin)
	})
	g.Go(func() error {
		defer cancel()
		return r.renderLoop(gctx, stdout, stdin)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-sigwinch:
				cols, rows := termSizeAny(stdout, stdin)
				if cols <= 0 || rows <= 0 {
					continue
				}
				if err := sess.Resize(cols, rows); err != nil {
					if errors.Is(err, ErrTerminated) {
						return nil
					}
					r.logger.Warn("resize failed", "cols", cols, "rows", rows, "err", err)
					continue
				}
				r.repaint.Store(true)
				r.signal()
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return err
	}
	if exitErr := sess.Err(); exitErr != nil {
		r.logger.Debug("shell exit", "err", exitErr)
	}
	return nil
}

func (r *Runner) signal() {
	select {
	case r.refresh <- struct{}{}:
	default:
	}
}

func (r *Runner) inputLoop(ctx context.Context, stdin *os.File) error {
	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := stdin.Read(buf)
		if n > 0 {
			if werr := r.sess.SendInput(buf[:n]); werr != nil {
				if errors.Is(werr, ErrTerminated) {
					return nil
				}
				return fmt.Errorf("send input: %w", werr)
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}
		if !errors.Is(err, io.EOF) {
			r.logger.Debug("stdin read error", "err", err)
		}
		return nil
	}
}

// renderLoop repaints on every refresh. Only dirty rows are sent while the
// host terminal matches the session size; otherwise the screen is repainted
// through a cursor-following viewport.
func (r *Runner) renderLoop(ctx context.Context, stdout, stdin *os.File) error {
	var buf bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.refresh:
		}
		buf.Reset()
		hostCols, hostRows := termSizeAny(stdout, stdin)
		cols, rows := r.sess.Size()
		viewport := hostCols > 0 && hostRows > 0 && (hostCols != cols || hostRows != rows)
		var err error
		if viewport || r.repaint.Swap(false) {
			r.sess.DrainDirtyRows()
			err = render.SnapshotViewport(&buf, r.sess.Snapshot(), hostCols, hostRows)
		} else {
			err = render.Rows(&buf, r.sess.DrainDirtyRows(), r.sess.Cursor())
		}
		if err != nil {
			r.logger.Debug("render error", "err", err)
		}
		if err := writeAll(ctx, stdout, buf.Bytes()); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Debug("stdout write error", "err", err)
		}
		if r.sess.Terminated() {
			return nil
		}
	}
}

func (r *Runner) stdin() *os.File {
	if r.opts.Stdin != nil {
		return r.opts.Stdin
	}
	return os.Stdin
}

func (r *Runner) stdout() *os.File {
	if r.opts.Stdout != nil {
		return r.opts.Stdout
	}
	return os.Stdout
}

func makeRaw(file *os.File) error {
	if file == nil {
		return fmt.Errorf("stdin is nil")
	}
	state, err := term.MakeRaw(int(file.Fd()))
	if err != nil {
		return fmt.Errorf("stdin is not a terminal")
	}
	storeTerminalState(state)
	return nil
}

func restoreTerminal(file *os.File) {
	state := loadTerminalState()
	if state != nil {
		_ = term.Restore(int(file.Fd()), state)
	}
}

func termSize(file *os.File) (int, int) {
	if file == nil {
		return 0, 0
	}
	cols, rows, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0, 0
	}
	return cols, rows
}

// termSizeAny returns the first usable size among files, falling back to
// the controlling terminal.
func termSizeAny(files ...*os.File) (int, int) {
	for _, file := range files {
		if file == nil {
			continue
		}
		cols, rows := termSize(file)
		if cols > 0 && rows > 0 {
			return cols, rows
		}
	}
	if tty, err := os.Open("/dev/tty"); err == nil {
		defer func() {
			_ = tty.Close()
		}()
		if cols, rows := termSize(tty); cols > 0 && rows > 0 {
			return cols, rows
		}
	}
	return 0, 0
}

func setNonblock(file *os.File, on bool) error {
	if file == nil {
		return nil
	}
	return syscall.SetNonblock(int(file.Fd()), on)
}

// writeAll retries short and EAGAIN writes; stdout shares its file
// description with a non-blocking stdin when both are the same tty.
func writeAll(ctx context.Context, w io.Writer, data []byte) error {
	for len(data) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := w.Write(data)
		if n > 0 {
			data = data[n:]
		}
		if err != nil && !errors.Is(err, syscall.EAGAIN) && !errors.Is(err, syscall.EWOULDBLOCK) {
			return err
		}
		if err != nil || n == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Millisecond):
			}
		}
	}
	return nil
}

var terminalStateMu sync.Mutex
var terminalState *term.State

func storeTerminalState(state *term.State) {
	terminalStateMu.Lock()
	terminalState = state
	terminalStateMu.Unlock()
}

func loadTerminalState() *term.State {
	terminalStateMu.Lock()
	defer terminalStateMu.Unlock()
	return terminalState
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pkt.systems/mterm/internal/config"
	"pkt.systems/mterm/internal/pty"
	"pkt.systems/mterm/internal/terminal"
	"pkt.systems/mterm/internal/terminal/emu"
	"pkt.systems/pslog"
)

// ErrTerminated is returned by input and resize calls once the child has
// exited or the session was closed.
var ErrTerminated = errors.New("session terminated")

const defaultExitGrace = 200 * time.Millisecond

// Renderer is notified after each chunk of shell output has been applied to
// the screen and after every Resize. Refresh runs on the reader goroutine or
// on the goroutine calling Resize, but never concurrently with itself, and
// with no screen lock held. Implementations pull state with DrainDirtyRows or
// Snapshot, typically after handing off to their own goroutine, and must not
// call Resize from Refresh.
type Renderer interface {
	Refresh()
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func()

// Refresh calls f.
func (f RendererFunc) Refresh() { f() }

// Options configures a Session.
type Options struct {
	Shell string
	Args  []string
	Term  string
	Dir   string
	Env   []string

	Cols int
	Rows int

	// ScrollbackLines is the number of evicted rows kept in memory; zero
	// keeps none.
	ScrollbackLines int

	Logger   pslog.Logger
	Renderer Renderer

	// OnEvict receives every row scrolled off the top of the screen. It runs
	// with the screen lock held and must not block or call back into the
	// session.
	OnEvict func(terminal.DirtyRow)
	// OnPTYRead receives a copy of every chunk read from the pty.
	OnPTYRead func([]byte)

	// ExitGrace bounds how long output is still drained after the child
	// exits while something else holds the pty open.
	ExitGrace time.Duration
}

// Session ties one pty process, one parser and one screen together for the
// lifetime of a terminal.
type Session struct {
	opts   Options
	logger pslog.Logger
	proc   *pty.Process

	emuMu    sync.Mutex
	emulator *emu.Emulator

	obsMu     sync.Mutex
	observers map[int]Renderer
	nextObs   int
	// notifyMu keeps Refresh calls from overlapping.
	notifyMu sync.Mutex

	terminated atomic.Bool
	done       chan struct{}
	readerDone chan struct{}
	errMu      sync.Mutex
	err        error

	closeOnce sync.Once
	closeErr  error
}

// Start spawns the shell and begins reading its output. Failure to start the
// shell is returned and no session exists. Cancelling ctx stops the reader;
// Close must still be called to release the pty and the child.
func Start(ctx context.Context, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = pslog.Ctx(ctx)
	}
	if opts.Cols <= 0 {
		opts.Cols = config.DefaultTerminalCols
	}
	if opts.Rows <= 0 {
		opts.Rows = config.DefaultTerminalRows
	}
	if err := pty.ValidateSize(opts.Cols, opts.Rows); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if opts.ScrollbackLines < 0 {
		opts.ScrollbackLines = 0
	}
	if opts.ExitGrace <= 0 {
		opts.ExitGrace = defaultExitGrace
	}
	shell := ResolveShell(opts.Shell)
	logger := opts.Logger.With("component", "session")

	s := &Session{
		opts:       opts,
		logger:     logger,
		observers:  make(map[int]Renderer),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	s.emulator = emu.New(opts.Cols, opts.Rows,
		emu.WithScrollback(opts.ScrollbackLines),
		emu.WithEvictHook(opts.OnEvict),
		emu.WithLogger(opts.Logger.With("component", "emu")),
	)
	if opts.Renderer != nil {
		s.observers[s.nextObs] = opts.Renderer
		s.nextObs++
	}

	proc, err := pty.Spawn(pty.Options{
		Path:   shell,
		Args:   opts.Args,
		Env:    opts.Env,
		Dir:    opts.Dir,
		Term:   opts.Term,
		Cols:   opts.Cols,
		Rows:   opts.Rows,
		Logger: opts.Logger.With("component", "pty"),
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	s.proc = proc
	logger.Info("session started", "shell", shell, "pid", proc.PID(), "cols", opts.Cols, "rows", opts.Rows)

	go s.read(ctx)
	go s.watchExit()
	return s, nil
}

func (s *Session) read(ctx context.Context) {
	defer close(s.readerDone)
	err := s.proc.ReadLoop(ctx, s.consume)
	s.finish(err)
}

// watchExit stops the reader shortly after the child exits, for the case
// where a background job keeps the slave side open and no EOF arrives.
func (s *Session) watchExit() {
	select {
	case <-s.proc.Exited():
	case <-s.readerDone:
		return
	}
	select {
	case <-s.readerDone:
		return
	case <-time.After(s.opts.ExitGrace):
	}
	s.logger.Debug("child exited with pty still open, stopping reader")
	s.proc.StopReader()
}

func (s *Session) consume(data []byte) {
	if s.opts.OnPTYRead != nil {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.opts.OnPTYRead(cp)
	}
	s.emuMu.Lock()
	if err := s.emulator.Write(data); err != nil {
		s.logger.Debug("emulator write error", "err", err)
	}
	s.emuMu.Unlock()
	s.notify()
}

func (s *Session) finish(err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("pty reader stopped", "err", err)
	}
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
	s.terminated.Store(true)
	close(s.done)
	s.logger.Info("session ended", "pid", s.proc.PID())
	s.notify()
}

func (s *Session) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.obsMu.Lock()
	observers := make([]Renderer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.obsMu.Unlock()
	for _, obs := range observers {
		obs.Refresh()
	}
}

// Subscribe registers an additional observer. The returned function removes
// it.
func (s *Session) Subscribe(r Renderer) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = r
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// SetRenderer replaces every observer with r.
func (s *Session) SetRenderer(r Renderer) {
	s.obsMu.Lock()
	s.observers = make(map[int]Renderer)
	if r != nil {
		s.observers[s.nextObs] = r
		s.nextObs++
	}
	s.obsMu.Unlock()
}

// SendInput writes raw bytes (typed text, pasted content) to the shell.
func (s *Session) SendInput(data []byte) error {
	if s.terminated.Load() {
		return ErrTerminated
	}
	if err := s.proc.SendInput(data); err != nil {
		return s.writeErr(err)
	}
	return nil
}

// SendText writes text to the shell.
func (s *Session) SendText(text string) error {
	return s.SendInput([]byte(text))
}

// SendSpecialKey writes the control sequence for key.
func (s *Session) SendSpecialKey(key terminal.Key) error {
	if s.terminated.Load() {
		return ErrTerminated
	}
	if err := s.proc.SendSpecialKey(key); err != nil {
		return s.writeErr(err)
	}
	return nil
}

func (s *Session) writeErr(err error) error {
	if errors.Is(err, pty.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrTerminated, err)
	}
	return err
}

// Resize changes the pty window size and the screen together. The screen is
// left untouched when the pty cannot be resized.
func (s *Session) Resize(cols, rows int) error {
	if s.terminated.Load() {
		return ErrTerminated
	}
	if err := s.proc.Resize(cols, rows); err != nil {
		return s.writeErr(err)
	}
	s.emuMu.Lock()
	s.emulator.Resize(cols, rows)
	s.emuMu.Unlock()
	s.logger.Debug("session resized", "cols", cols, "rows", rows)
	s.notify()
	return nil
}

// Size returns the current grid dimensions.
func (s *Session) Size() (cols, rows int) {
	s.emuMu.Lock()
	defer s.emuMu.Unlock()
	return s.emulator.Screen().Size()
}

// DrainDirtyRows returns and clears the rows changed since the last drain.
func (s *Session) DrainDirtyRows() []terminal.DirtyRow {
	s.emuMu.Lock()
	defer s.emuMu.Unlock()
	return s.emulator.DrainDirtyRows()
}

// Snapshot copies the whole grid and cursor.
func (s *Session) Snapshot() terminal.Snapshot {
	s.emuMu.Lock()
	defer s.emuMu.Unlock()
	snap, _ := s.emulator.Snapshot()
	return snap
}

// Cursor returns the cursor position.
func (s *Session) Cursor() terminal.Cursor {
	s.emuMu.Lock()
	defer s.emuMu.Unlock()
	return s.emulator.Screen().Cursor()
}

// Scrollback returns the retained evicted rows, oldest first.
func (s *Session) Scrollback() [][]terminal.Cell {
	s.emuMu.Lock()
	defer s.emuMu.Unlock()
	return s.emulator.Scrollback()
}

// PID returns the shell's process id.
func (s *Session) PID() int {
	return s.proc.PID()
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Terminated reports whether the session has ended.
func (s *Session) Terminated() bool {
	return s.terminated.Load()
}

// Err returns why the session ended: a reader failure, the child's exit
// status, or nil for a clean exit.
func (s *Session) Err() error {
	s.errMu.Lock()
	err := s.err
	s.errMu.Unlock()
	if err != nil {
		return err
	}
	return s.proc.ExitErr()
}

// Wait blocks until the session ends or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the reader, closes the pty and terminates the child if it is
// still running. No observer is called after Close returns.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.proc.Close()
		<-s.readerDone
		s.SetRenderer(nil)
	})
	return s.closeErr
}

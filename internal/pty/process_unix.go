//go:build unix

package pty

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"pkt.systems/mterm/internal/terminal"
	"pkt.systems/pslog"
)

const (
	readBufferSize   = 32 * 1024
	writePollTimeout = 50 // milliseconds
	hangupGrace      = 500 * time.Millisecond
)

// Process is a child program attached to a pseudo-terminal. The master side
// is non-blocking and read by exactly one ReadLoop.
type Process struct {
	master *os.File
	fd     int
	cmd    *exec.Cmd
	logger pslog.Logger

	sizeMu sync.Mutex
	cols   int
	rows   int

	writeMu sync.Mutex
	closed  atomic.Bool

	wakeR *os.File
	wakeW *os.File

	readerStarted atomic.Bool
	readerDone    chan struct{}

	exited  chan struct{}
	waitErr error

	closeOnce sync.Once
	closeErr  error
}

// Spawn starts opts.Path with the slave side of a new pty as its controlling
// terminal and stdio. Failure to allocate the pty or start the program is
// returned; no process is left behind.
func Spawn(opts Options) (*Process, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("pty: program path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	if err := ValidateSize(cols, rows); err != nil {
		return nil, err
	}

	cmd := exec.Command(opts.Path, opts.Args...)
	env := opts.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = withTerm(env, opts.Term)
	cmd.Dir = opts.Dir

	// StartWithSize makes the child a session leader with the slave as its
	// controlling tty and closes the parent's copy of the slave.
	master, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", opts.Path, err)
	}
	p, err := newProcess(master, cmd, logger)
	if err != nil {
		_ = master.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	p.cols, p.rows = cols, rows
	go p.wait()
	logger.Info("pty started", "path", opts.Path, "pid", cmd.Process.Pid, "cols", cols, "rows", rows)
	return p, nil
}

func newProcess(master *os.File, cmd *exec.Cmd, logger pslog.Logger) (*Process, error) {
	if logger == nil {
		logger = discardLogger()
	}
	fd := int(master.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("set pty nonblocking: %w", err)
	}
	wakeR, wakeW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	if err := unix.SetNonblock(int(wakeW.Fd()), true); err != nil {
		_ = wakeR.Close()
		_ = wakeW.Close()
		return nil, fmt.Errorf("set wake pipe nonblocking: %w", err)
	}
	return &Process{
		master:     master,
		fd:         fd,
		cmd:        cmd,
		logger:     logger,
		wakeR:      wakeR,
		wakeW:      wakeW,
		readerDone: make(chan struct{}),
		exited:     make(chan struct{}),
	}, nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.waitErr = err
	close(p.exited)
	p.logger.Debug("pty child exited", "pid", p.cmd.Process.Pid, "err", err)
}

// PID returns the child's process id, or 0 when there is no child.
func (p *Process) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Exited is closed once the child has been reaped.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// ExitErr returns the child's wait error. Only meaningful after Exited.
func (p *Process) ExitErr() error {
	select {
	case <-p.exited:
		return p.waitErr
	default:
		return nil
	}
}

// Size returns the last window size applied to the pty.
func (p *Process) Size() (cols, rows int) {
	p.sizeMu.Lock()
	defer p.sizeMu.Unlock()
	return p.cols, p.rows
}

// Resize sets the kernel window size of the pty. Callers resize their screen
// model with the same dimensions.
func (p *Process) Resize(cols, rows int) error {
	if err := ValidateSize(cols, rows); err != nil {
		return err
	}
	if p.closed.Load() {
		return ErrClosed
	}
	if err := pty.Setsize(p.master, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}); err != nil {
		return fmt.Errorf("set pty size: %w", err)
	}
	p.sizeMu.Lock()
	p.cols, p.rows = cols, rows
	p.sizeMu.Unlock()
	return nil
}

// ReadLoop reads the master until the child hangs up, ctx is cancelled or
// StopReader is called. consume runs on the calling goroutine for every
// chunk and must not retain the slice. End of session (EOF or EIO) and
// StopReader return nil; cancellation returns ctx.Err().
func (p *Process) ReadLoop(ctx context.Context, consume func([]byte)) error {
	if !p.readerStarted.CompareAndSwap(false, true) {
		return ErrReaderRunning
	}
	defer close(p.readerDone)
	if p.closed.Load() {
		return ErrClosed
	}
	stop := context.AfterFunc(ctx, p.wake)
	defer stop()

	fds := []unix.PollFd{
		{Fd: int32(p.fd), Events: unix.POLLIN},
		{Fd: int32(p.wakeR.Fd()), Events: unix.POLLIN},
	}
	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fds[0].Revents, fds[1].Revents = 0, 0
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll pty: %w", err)
		}
		if fds[1].Revents != 0 {
			return ctx.Err()
		}
		ev := fds[0].Revents
		if ev&unix.POLLNVAL != 0 {
			return ErrClosed
		}
		if ev&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			continue
		}
		n, err := unix.Read(p.fd, buf)
		if n > 0 {
			consume(buf[:n])
			continue
		}
		switch {
		case err == nil:
			p.logger.Debug("pty eof")
			return nil
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EIO):
			p.logger.Debug("pty hangup")
			return nil
		default:
			return fmt.Errorf("read pty: %w", err)
		}
	}
}

// StopReader wakes ReadLoop and waits for it to return. It must not be called
// from inside the consume callback.
func (p *Process) StopReader() {
	p.wake()
	if p.readerStarted.Load() {
		<-p.readerDone
	}
}

func (p *Process) wake() {
	_, _ = p.wakeW.Write([]byte{0})
}

// SendInput writes data to the child verbatim.
func (p *Process) SendInput(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}
	for len(data) > 0 {
		n, err := unix.Write(p.fd, data)
		if n > 0 {
			data = data[n:]
		}
		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, unix.EAGAIN):
			if err := p.waitWritable(); err != nil {
				return err
			}
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EIO), errors.Is(err, unix.EBADF):
			return fmt.Errorf("%w: %v", ErrClosed, err)
		default:
			return fmt.Errorf("write pty: %w", err)
		}
	}
	return nil
}

// SendSpecialKey writes the control sequence for key.
func (p *Process) SendSpecialKey(key terminal.Key) error {
	seq, err := key.Bytes()
	if err != nil {
		return err
	}
	return p.SendInput(seq)
}

func (p *Process) waitWritable() error {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLOUT}}
	for {
		if p.closed.Load() {
			return ErrClosed
		}
		fds[0].Revents = 0
		n, err := unix.Poll(fds, writePollTimeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll pty: %w", err)
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&unix.POLLOUT != 0 {
			return nil
		}
		return ErrClosed
	}
}

// Close stops the reader, closes the master and, if the child is still
// running, hangs up its process group, escalating to SIGKILL after a grace
// period. It waits for the child to be reaped.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.StopReader()
		p.writeMu.Lock()
		p.closeErr = p.master.Close()
		p.writeMu.Unlock()
		p.terminate()
		_ = p.wakeR.Close()
		_ = p.wakeW.Close()
	})
	return p.closeErr
}

func (p *Process) terminate() {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	select {
	case <-p.exited:
		return
	default:
	}
	pid := p.cmd.Process.Pid
	_ = unix.Kill(-pid, unix.SIGHUP)
	select {
	case <-p.exited:
		return
	case <-time.After(hangupGrace):
	}
	p.logger.Warn("pty child ignored hangup", "pid", pid)
	_ = unix.Kill(-pid, unix.SIGKILL)
	<-p.exited
}

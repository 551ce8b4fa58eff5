// Package mirror streams a live session screen to read-only websocket
// viewers.
package mirror

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"pkt.systems/mterm/internal/protocol"
	"pkt.systems/mterm/internal/session"
	"pkt.systems/mterm/internal/terminal"
	"pkt.systems/pslog"
)

const (
	defaultQueueSize    = 64
	defaultWriteTimeout = 5 * time.Second
)

// Source is the session being mirrored.
type Source interface {
	Snapshot() terminal.Snapshot
	Subscribe(session.Renderer) (cancel func())
	Done() <-chan struct{}
	Err() error
}

// Options configures a Mirror.
type Options struct {
	Logger pslog.Logger
	// QueueSize bounds the frames buffered per viewer; a viewer that falls
	// further behind is disconnected.
	QueueSize    int
	WriteTimeout time.Duration
	// OriginPatterns are extra browser origins allowed to connect.
	OriginPatterns []string
}

type frame struct {
	typ     protocol.MessageType
	payload any
}

type viewer struct {
	send chan frame
	gone bool
	// slow is set before send is closed when the viewer fell behind.
	slow bool
}

// closeReason is the websocket close status sent once send is closed.
func (v *viewer) closeReason() (websocket.StatusCode, string) {
	if v.slow {
		return websocket.StatusPolicyViolation, "viewer too slow"
	}
	return websocket.StatusNormalClosure, "session ended"
}

// Mirror fans screen updates out to viewers. Every viewer gets a full
// snapshot on connect followed by changed rows only.
type Mirror struct {
	src    Source
	opts   Options
	logger pslog.Logger

	mu      sync.Mutex
	viewers map[*viewer]struct{}
	last    terminal.Snapshot
	ended   bool
	exit    protocol.ExitPayload

	wake        chan struct{}
	stop        chan struct{}
	done        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
}

// New starts mirroring src.
func New(src Source, opts Options) *Mirror {
	if opts.Logger == nil {
		opts.Logger = pslog.LoggerFromEnv()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	m := &Mirror{
		src:     src,
		opts:    opts,
		logger:  opts.Logger.With("component", "mirror"),
		viewers: make(map[*viewer]struct{}),
		last:    src.Snapshot(),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	m.unsubscribe = src.Subscribe(session.RendererFunc(m.signal))
	go m.run()
	return m
}

func (m *Mirror) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Mirror) run() {
	defer close(m.done)
	for {
		select {
		case <-m.wake:
			m.publish()
		case <-m.src.Done():
			m.publish()
			var exit protocol.ExitPayload
			if err := m.src.Err(); err != nil {
				exit.Error = err.Error()
			}
			m.end(exit)
			return
		case <-m.stop:
			m.end(protocol.ExitPayload{})
			return
		}
	}
}

// publish diffs the current screen against the last one sent.
func (m *Mirror) publish() {
	next := m.src.Snapshot()
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, resized := diffRows(m.last, next)
	switch {
	case resized:
		m.broadcastLocked(frame{protocol.MessageResize, protocol.ResizePayload{Cols: next.Cols, Rows: next.Rows}})
		m.broadcastLocked(frame{protocol.MessageSnapshot, protocol.SnapshotFrom(next)})
	case len(rows) > 0 || next.Cursor != m.last.Cursor:
		m.broadcastLocked(frame{protocol.MessageRows, protocol.RowsPayload{Cursor: cursorPayload(next.Cursor), Lines: rows}})
	}
	m.last = next
}

func (m *Mirror) broadcastLocked(f frame) {
	for v := range m.viewers {
		select {
		case v.send <- f:
		default:
			m.logger.Warn("mirror viewer too slow, disconnecting")
			v.slow = true
			m.dropLocked(v)
		}
	}
}

func (m *Mirror) dropLocked(v *viewer) {
	if v.gone {
		return
	}
	v.gone = true
	delete(m.viewers, v)
	close(v.send)
}

func (m *Mirror) end(exit protocol.ExitPayload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = true
	m.exit = exit
	m.broadcastLocked(frame{protocol.MessageExit, exit})
	for v := range m.viewers {
		m.dropLocked(v)
	}
}

func (m *Mirror) register() *viewer {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := &viewer{send: make(chan frame, m.opts.QueueSize+2)}
	v.send <- frame{protocol.MessageSnapshot, protocol.SnapshotFrom(m.last)}
	if m.ended {
		v.send <- frame{protocol.MessageExit, m.exit}
		v.gone = true
		close(v.send)
		return v
	}
	m.viewers[v] = struct{}{}
	return v
}

func (m *Mirror) unregister(v *viewer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked(v)
}

// Viewers returns the number of connected viewers.
func (m *Mirror) Viewers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.viewers)
}

// Handler serves the websocket endpoint at /ws.
func (m *Mirror) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", m.serveWS)
	return mux
}

func (m *Mirror) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: m.opts.OriginPatterns,
	})
	if err != nil {
		m.logger.Debug("websocket accept failed", "err", err)
		return
	}
	// Viewers are read-only; any data message closes the connection.
	ctx := conn.CloseRead(r.Context())
	v := m.register()
	defer m.unregister(v)
	m.logger.Info("mirror viewer connected", "remote", r.RemoteAddr)

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("mirror viewer left", "remote", r.RemoteAddr)
			return
		case f, ok := <-v.send:
			if !ok {
				_ = conn.Close(v.closeReason())
				return
			}
			seq++
			env, err := protocol.NewEnvelope(f.typ, seq, f.payload)
			if err != nil {
				m.logger.Error("encode mirror frame", "type", f.typ, "err", err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, m.opts.WriteTimeout)
			err = wsjson.Write(wctx, conn, env)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					m.logger.Debug("mirror write failed", "err", err)
				}
				_ = conn.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		}
	}
}

// Close stops publishing and disconnects every viewer.
func (m *Mirror) Close() error {
	m.closeOnce.Do(func() {
		m.unsubscribe()
		close(m.stop)
		<-m.done
	})
	return nil
}

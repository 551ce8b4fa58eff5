package mterm

import (
	"context"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"pkt.systems/mterm/internal/history"
	"pkt.systems/mterm/internal/mirror"
	"pkt.systems/mterm/internal/server"
	"pkt.systems/mterm/internal/session"
	"pkt.systems/mterm/internal/view"
	"pkt.systems/pslog"
)

const mirrorShutdownTimeout = 3 * time.Second

// InteractiveOptions configures a local interactive mterm session.
type InteractiveOptions struct {
	Config Config
	// Plain uses the raw stdio frontend instead of the full-screen view.
	Plain bool
	// Record appends raw pty output to this file when set.
	Record    string
	NoHistory bool
	NoStatus  bool
	Logger    pslog.Logger
}

// Interactive runs a shell in the current terminal until it exits or ctx is
// done. Evicted rows are archived, output is optionally recorded and the
// screen is optionally mirrored over websocket.
func Interactive(ctx context.Context, opts InteractiveOptions) error {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}

	sopts := session.Options{
		Shell:           cfg.Terminal.Shell,
		Args:            cfg.Terminal.Args,
		Term:            cfg.Terminal.Term,
		ScrollbackLines: cfg.Terminal.ScrollbackLines,
		Logger:          logger,
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		sopts.Cols, sopts.Rows = cfg.Terminal.Cols, cfg.Terminal.Rows
	}

	if cfg.History.Enabled && !opts.NoHistory {
		store, err := openHistory(ctx, cfg, session.ResolveShell(sopts.Shell), logger)
		if err != nil {
			logger.Warn("history disabled", "path", cfg.History.Path, "err", err)
		} else {
			defer func() {
				_ = store.store.Close()
			}()
			sopts.OnEvict = store.store.EvictHook(store.id)
		}
	}

	if opts.Record != "" {
		rec, err := os.OpenFile(opts.Record, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		defer func() {
			_ = rec.Close()
		}()
		var once sync.Once
		sopts.OnPTYRead = func(data []byte) {
			if _, err := rec.Write(data); err != nil {
				once.Do(func() {
					logger.Warn("recording failed", "path", opts.Record, "err", err)
				})
			}
		}
	}

	mirrors := &mirrorSet{cfg: cfg.Mirror, logger: logger}
	defer mirrors.close()

	if opts.Plain {
		return session.NewRunner(session.RunnerOptions{
			Session: sopts,
			Ready:   mirrors.start,
		}).Run(ctx)
	}
	return view.Run(ctx, view.Options{
		Session:  sopts,
		Ready:    mirrors.start,
		NoStatus: opts.NoStatus,
	})
}

type historySession struct {
	store *history.Store
	id    int64
}

func openHistory(ctx context.Context, cfg Config, shell string, logger pslog.Logger) (historySession, error) {
	path := cfg.History.Path
	if path == "" {
		path = DefaultHistoryPath()
	}
	store, err := history.Open(history.Config{
		Path:      path,
		BatchSize: cfg.History.BatchSize,
		Logger:    logger,
	})
	if err != nil {
		return historySession{}, err
	}
	id, err := store.BeginSession(ctx, shell)
	if err != nil {
		_ = store.Close()
		return historySession{}, err
	}
	return historySession{store: store, id: id}, nil
}

// mirrorSet starts the websocket mirror once the session exists and tears it
// down when the frontend returns.
type mirrorSet struct {
	cfg    MirrorConfig
	logger pslog.Logger
	mirror *mirror.Mirror
	server *server.Server
}

func (m *mirrorSet) start(sess *session.Session) {
	if m.cfg.Listen == "" {
		return
	}
	mir := mirror.New(sess, mirror.Options{Logger: m.logger})
	srv, err := server.New(server.Config{
		ListenAddr: m.cfg.Listen,
		BasePath:   m.cfg.BasePath,
		Logger:     m.logger,
	}, mir.Handler())
	if err == nil {
		err = srv.Start()
	}
	if err != nil {
		_ = mir.Close()
		m.logger.Warn("mirror disabled", "listen", m.cfg.Listen, "err", err)
		return
	}
	m.mirror, m.server = mir, srv
	m.logger.Info("mirror listening", "addr", srv.Addr(), "base", srv.BasePath())
}

func (m *mirrorSet) close() {
	if m.mirror != nil {
		_ = m.mirror.Close()
	}
	if m.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorShutdownTimeout)
		defer cancel()
		if err := m.server.Shutdown(ctx); err != nil {
			m.logger.Debug("mirror shutdown", "err", err)
		}
	}
}

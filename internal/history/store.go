// Package history persists rows that scroll off the screen into a sqlite
// database and searches them later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"pkt.systems/mterm/internal/terminal"
	"pkt.systems/pslog"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("history store closed")

const (
	defaultBatchSize     = 64
	defaultBatchTimeout  = 2 * time.Second
	defaultChannelBuffer = 1024
	defaultSearchLimit   = 50
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started INTEGER NOT NULL,
    shell TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES sessions(id),
    seq INTEGER NOT NULL,
    timestamp INTEGER NOT NULL,
    content TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lines_session ON lines(session_id, seq);
`

// Config configures a Store.
type Config struct {
	Path string
	// BatchSize is the number of queued lines written per transaction.
	BatchSize int
	// BatchTimeout flushes a partial batch.
	BatchTimeout time.Duration
	// ChannelBuffer bounds the queue; lines are dropped when it is full.
	ChannelBuffer int
	Logger        pslog.Logger
}

// Entry is one stored line.
type Entry struct {
	ID        int64
	SessionID int64
	Seq       int64
	Time      time.Time
	Text      string
}

type entry struct {
	sessionID int64
	seq       int64
	at        time.Time
	text      string
}

// Store is a sqlite-backed scrollback archive with an asynchronous batch
// writer. Append never blocks.
type Store struct {
	cfg    Config
	db     *sql.DB
	logger pslog.Logger

	batchChan chan entry
	stopCh    chan struct{}
	doneCh    chan struct{}
	flushCh   chan chan struct{}

	closed    atomic.Bool
	dropped   atomic.Int64
	closeOnce sync.Once
	closeErr  error
}

// Open creates or opens the database at cfg.Path and starts the writer.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	if cfg.ChannelBuffer <= 0 {
		cfg.ChannelBuffer = defaultChannelBuffer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	dsn := cfg.Path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	s := &Store{
		cfg:       cfg,
		db:        db,
		logger:    logger.With("component", "history"),
		batchChan: make(chan entry, cfg.ChannelBuffer),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		flushCh:   make(chan chan struct{}),
	}
	go s.batchWriter()
	return s, nil
}

// BeginSession records a new terminal session and returns its id.
func (s *Store) BeginSession(ctx context.Context, shell string) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO sessions (started, shell) VALUES (?, ?)", time.Now().UnixNano(), shell)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	return res.LastInsertId()
}

// Append queues one line. Blank lines are skipped. When the queue is full the
// line is dropped and false is returned.
func (s *Store) Append(sessionID, seq int64, text string) bool {
	text = strings.TrimRight(text, " ")
	if text == "" || s.closed.Load() {
		return false
	}
	select {
	case s.batchChan <- entry{sessionID: sessionID, seq: seq, at: time.Now(), text: text}:
		return true
	default:
		if n := s.dropped.Add(1); n == 1 || n%1000 == 0 {
			s.logger.Warn("history queue full, dropping lines", "dropped", n)
		}
		return false
	}
}

// EvictHook returns a screen eviction hook that archives rows under
// sessionID. It never blocks.
func (s *Store) EvictHook(sessionID int64) func(terminal.DirtyRow) {
	return func(row terminal.DirtyRow) {
		s.Append(sessionID, int64(row.Index), row.String())
	}
}

// Flush blocks until every line queued before the call is written.
func (s *Store) Flush() error {
	if s.closed.Load() {
		return ErrClosed
	}
	done := make(chan struct{})
	select {
	case s.flushCh <- done:
	case <-s.doneCh:
		return ErrClosed
	}
	<-done
	return nil
}

// Search returns lines containing query, newest first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, timestamp, content FROM lines
		 WHERE content LIKE ? ESCAPE '\'
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		"%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &ts, &e.Text); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Time = time.Unix(0, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close writes queued lines and closes the database.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopCh)
		<-s.doneCh
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *Store) batchWriter() {
	defer close(s.doneCh)

	batch := make([]entry, 0, s.cfg.BatchSize)
	timer := time.NewTimer(s.cfg.BatchTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.writeBatch(batch)
		batch = batch[:0]
	}
	drain := func() {
		for {
			select {
			case e := <-s.batchChan:
				batch = append(batch, e)
			default:
				return
			}
		}
	}

	for {
		select {
		case e := <-s.batchChan:
			batch = append(batch, e)
			if len(batch) >= s.cfg.BatchSize {
				flush()
				timer.Reset(s.cfg.BatchTimeout)
			}
		case <-timer.C:
			flush()
			timer.Reset(s.cfg.BatchTimeout)
		case done := <-s.flushCh:
			drain()
			flush()
			close(done)
		case <-s.stopCh:
			drain()
			flush()
			return
		}
	}
}

func (s *Store) writeBatch(batch []entry) {
	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error("history begin failed", "err", err)
		return
	}
	stmt, err := tx.Prepare("INSERT INTO lines (session_id, seq, timestamp, content) VALUES (?, ?, ?, ?)")
	if err != nil {
		s.logger.Error("history prepare failed", "err", err)
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()
	for _, e := range batch {
		if _, err := stmt.Exec(e.sessionID, e.seq, e.at.UnixNano(), e.text); err != nil {
			s.logger.Error("history insert failed", "seq", e.seq, "err", err)
			_ = tx.Rollback()
			return
		}
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("history commit failed", "err", err)
		return
	}
	s.logger.Debug("history batch written", "lines", len(batch))
}

func escapeLike(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(q)
}

// Package server runs the HTTP listener that mirror viewers connect to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"pkt.systems/pslog"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 2 * time.Minute
)

// Config configures the HTTP server.
type Config struct {
	ListenAddr string
	BasePath   string
	Logger     pslog.Logger

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
}

// Server serves one handler under a base path with access logging.
type Server struct {
	srv    *http.Server
	base   string
	logger pslog.Logger

	mu   sync.Mutex
	ln   net.Listener
	done chan struct{}
	err  error
}

// New validates cfg and wraps handler. Nothing is bound until Start.
func New(cfg Config, handler http.Handler) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	base, err := NormalizeBasePath(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	logger = logger.With("component", "http")
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	return &Server{
		base:   base,
		logger: logger,
		srv: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           AccessLog(logger, Mount(base, handler)),
			ErrorLog:          pslog.LogLogger(logger),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		done: make(chan struct{}),
	}, nil
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.logger.Info("http listening", "addr", ln.Addr().String(), "base", s.base)
	go func() {
		defer close(s.done)
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.logger.Error("http serve failed", "err", err)
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// BasePath returns the normalized base path; "" means root.
func (s *Server) BasePath() string {
	return s.base
}

// Shutdown stops accepting connections and waits for handlers that are not
// hijacked to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	started := s.ln != nil
	s.mu.Unlock()
	if !started {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

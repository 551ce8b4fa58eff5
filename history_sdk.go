package mterm

import (
	"context"

	"pkt.systems/mterm/internal/history"
	"pkt.systems/pslog"
)

// HistoryEntry is one archived scrollback line.
type HistoryEntry = history.Entry

// SearchHistoryOptions configures SearchHistory.
type SearchHistoryOptions struct {
	// Path defaults to DefaultHistoryPath.
	Path   string
	Query  string
	Limit  int
	Logger pslog.Logger
}

// SearchHistory returns archived lines containing Query, newest first.
func SearchHistory(ctx context.Context, opts SearchHistoryOptions) ([]HistoryEntry, error) {
	path := opts.Path
	if path == "" {
		path = DefaultHistoryPath()
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	store, err := history.Open(history.Config{Path: path, Logger: logger})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = store.Close()
	}()
	return store.Search(ctx, opts.Query, opts.Limit)
}

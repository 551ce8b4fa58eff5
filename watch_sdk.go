package mterm

import (
	"context"
	"io"
	"slices"

	"pkt.systems/mterm/internal/mirror"
	"pkt.systems/mterm/internal/render"
	"pkt.systems/mterm/internal/terminal"
	"pkt.systems/pslog"
)

// ErrRemoteExit wraps the exit reason of a watched session.
var ErrRemoteExit = mirror.ErrRemoteExit

// WatchOptions configures Watch.
type WatchOptions struct {
	// URL is the mirror address, e.g. http://127.0.0.1:7681 or a full
	// ws:// endpoint.
	URL string
	Out io.Writer
	// Cols and Rows crop the repaint to the local terminal; zero shows the
	// remote grid as is.
	Cols   int
	Rows   int
	Logger pslog.Logger
}

// Watch follows a mirrored session and repaints it on Out until the session
// ends or ctx is done.
func Watch(ctx context.Context, opts WatchOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	url, err := mirror.WatchURL(opts.URL)
	if err != nil {
		return err
	}
	logger = logger.With("component", "watch", "url", url)

	var prev terminal.Snapshot
	full := true
	err = mirror.Watch(ctx, url, func(snap terminal.Snapshot) {
		var werr error
		cropped := (opts.Cols > 0 && snap.Cols > opts.Cols) || (opts.Rows > 0 && snap.Rows > opts.Rows)
		if full || cropped || snap.Cols != prev.Cols || snap.Rows != prev.Rows {
			werr = render.SnapshotViewport(opts.Out, snap, opts.Cols, opts.Rows)
			full = false
		} else {
			werr = render.Rows(opts.Out, changedRows(prev, snap), snap.Cursor)
		}
		if werr != nil {
			logger.Warn("repaint failed", "err", werr)
			full = true
		}
		prev = snap
	})
	if err != nil {
		logger.Debug("watch ended", "err", err)
	}
	return err
}

func changedRows(prev, next terminal.Snapshot) []terminal.DirtyRow {
	var out []terminal.DirtyRow
	for y := 0; y < next.Rows; y++ {
		row := next.Row(y)
		if !slices.Equal(prev.Row(y), row) {
			out = append(out, terminal.DirtyRow{Index: y, Cells: row})
		}
	}
	return out
}

package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"pkt.systems/mterm/internal/protocol"
	"pkt.systems/mterm/internal/terminal"
)

// ErrRemoteExit wraps the exit reason reported by a mirrored session.
var ErrRemoteExit = errors.New("mirrored session ended")

const viewerReadLimit = 4 << 20

// Watch connects to a mirror websocket URL and calls update with a copy of
// the reconstructed screen after every frame. It returns nil when the session
// ends cleanly, an error wrapping ErrRemoteExit when it ends with an error,
// or ctx.Err().
func Watch(ctx context.Context, url string, update func(terminal.Snapshot)) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial mirror: %w", err)
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "closing")
	}()
	conn.SetReadLimit(viewerReadLimit)

	var (
		screen  terminal.Snapshot
		haveAny bool
		lastSeq uint64
	)
	for {
		var env protocol.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read mirror: %w", err)
		}
		if env.Seq != lastSeq+1 {
			return fmt.Errorf("mirror frame %d out of order after %d", env.Seq, lastSeq)
		}
		lastSeq = env.Seq

		switch env.Type {
		case protocol.MessageSnapshot:
			var p protocol.SnapshotPayload
			if err := env.DecodePayload(&p); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			screen = p.Snapshot()
			haveAny = true
		case protocol.MessageRows:
			if !haveAny {
				return fmt.Errorf("rows frame before snapshot")
			}
			var p protocol.RowsPayload
			if err := env.DecodePayload(&p); err != nil {
				return fmt.Errorf("decode rows: %w", err)
			}
			protocol.ApplyRows(&screen, p)
		case protocol.MessageResize:
			// A snapshot with the new geometry follows.
			continue
		case protocol.MessageExit:
			var p protocol.ExitPayload
			if err := env.DecodePayload(&p); err != nil {
				return fmt.Errorf("decode exit: %w", err)
			}
			if p.Error != "" {
				return fmt.Errorf("%w: %s", ErrRemoteExit, p.Error)
			}
			return nil
		default:
			continue
		}
		if update != nil {
			cp := screen
			cp.Cells = append([]terminal.Cell(nil), screen.Cells...)
			update(cp)
		}
	}
}

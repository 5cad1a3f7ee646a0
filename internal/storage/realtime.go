package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// realtimeDebounce coalesces bursts of change notifications into a single
// background re-read.
const realtimeDebounce = 500 * time.Millisecond

// realtimeListener consumes change-notification frames from the remote
// service over a websocket. Frames carry JSON with at least a "table"
// field naming the changed table; anything touching a snapshot table
// schedules a debounced invocation of the host's change callback.
type realtimeListener struct {
	adapter *RemoteAdapter
	conn    *websocket.Conn
	cancel  context.CancelFunc
	done    chan struct{}

	timerMu sync.Mutex
	timer   *time.Timer
}

func newRealtimeListener(ctx context.Context, a *RemoteAdapter, url string) (*realtimeListener, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial realtime %s: %w", url, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	l := &realtimeListener{
		adapter: a,
		conn:    conn,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go l.run(runCtx)
	return l, nil
}

func (l *realtimeListener) run(ctx context.Context) {
	defer close(l.done)
	for {
		_, msg, err := l.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				l.adapter.logger.Warn("realtime connection closed", "error", err)
			}
			return
		}
		table := gjson.GetBytes(msg, "table").String()
		if !isSnapshotTable(table) {
			continue
		}
		l.schedule(ctx)
	}
}

// schedule (re)arms the debounce timer. When it fires, the host's change
// callback runs unless the adapter's own write is still settling. The
// callback, not the listener, owns the actual re-read, so snapshot
// replacement happens under the host's lock rather than racing its readers.
func (l *realtimeListener) schedule(ctx context.Context) {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()

	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(realtimeDebounce, func() {
		if ctx.Err() != nil {
			return
		}
		if l.adapter.settling() {
			l.adapter.logger.Debug("realtime change ignored during write settle")
			return
		}
		if err := l.adapter.onChange(ctx); err != nil {
			l.adapter.logger.Warn("realtime refresh failed", "error", err)
		}
	})
}

func (l *realtimeListener) stop() {
	l.cancel()
	l.timerMu.Lock()
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timerMu.Unlock()
	_ = l.conn.Close()
	<-l.done
}

func isSnapshotTable(table string) bool {
	for _, t := range allTables {
		if t == table {
			return true
		}
	}
	return false
}

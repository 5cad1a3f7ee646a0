package storage

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealtimeListener_DebouncesIntoOneRefresh(t *testing.T) {
	a := newStubRemote(&stubWire{})
	var refreshes atomic.Int32
	a.onChange = func(context.Context) error {
		refreshes.Add(1)
		return nil
	}
	l := &realtimeListener{adapter: a}

	// A burst of notifications collapses into a single callback.
	ctx := context.Background()
	l.schedule(ctx)
	l.schedule(ctx)
	l.schedule(ctx)

	time.Sleep(realtimeDebounce + 200*time.Millisecond)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestRealtimeListener_SuppressedWhileSettling(t *testing.T) {
	a := newStubRemote(&stubWire{})
	var refreshes atomic.Int32
	a.onChange = func(context.Context) error {
		refreshes.Add(1)
		return nil
	}
	l := &realtimeListener{adapter: a}

	a.markSettling()
	l.schedule(context.Background())

	time.Sleep(realtimeDebounce + 200*time.Millisecond)
	assert.Zero(t, refreshes.Load(), "own writes must not trigger a refresh")
}

func TestIsSnapshotTable(t *testing.T) {
	assert.True(t, isSnapshotTable("tasks"))
	assert.True(t, isSnapshotTable("cli_auth_requests"))
	assert.False(t, isSnapshotTable("heartbeats"))
	assert.False(t, isSnapshotTable(""))
}

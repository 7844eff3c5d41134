package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_RunsImmediateRefresh(t *testing.T) {
	refreshed := make(chan struct{}, 8)
	p := New(func(ctx context.Context) error {
		refreshed <- struct{}{}
		return nil
	}, time.Hour, nil)

	require.NoError(t, p.Start())
	defer p.Stop()

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an immediate refresh on start")
	}
}

func TestResume_TriggersRefresh(t *testing.T) {
	refreshed := make(chan struct{}, 8)
	p := New(func(ctx context.Context) error {
		refreshed <- struct{}{}
		return nil
	}, time.Hour, nil)

	require.NoError(t, p.Start())
	defer p.Stop()
	<-refreshed // initial refresh

	p.Resume()
	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Resume to trigger a refresh")
	}
}

func TestStop_WaitsForTriggeredRefreshes(t *testing.T) {
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	var completed atomic.Int32
	p := New(func(ctx context.Context) error {
		entered <- struct{}{}
		<-release
		completed.Add(1)
		return nil
	}, time.Hour, nil)

	require.NoError(t, p.Start())
	<-entered // initial refresh is running
	p.Resume()
	<-entered // resume refresh is running

	close(release)
	p.Stop()
	assert.Equal(t, int32(2), completed.Load(), "Stop must wait for triggered refreshes, none may land after it returns")
}

func TestNew_DefaultInterval(t *testing.T) {
	p := New(func(ctx context.Context) error { return nil }, 0, nil)
	assert.Equal(t, 30*time.Second, p.interval)
}

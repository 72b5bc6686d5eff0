package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubJoinLeave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	server, _ := socketPair(t)
	c := newTestClient(t, server, &stubFetcher{})

	require.NoError(t, hub.Join(ctx, c))
	assert.Equal(t, 1, hub.Active())
	assert.Same(t, hub, c.Hub)

	hub.Leave(c)
	assert.Eventually(t, func() bool { return hub.Active() == 0 }, time.Second, 10*time.Millisecond)

	// Leaving twice is harmless.
	hub.Leave(c)
	assert.Equal(t, 0, hub.Active())
}

func TestHubShutdownUnmountsPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	hub := NewHub(nil)
	go hub.Run(ctx)

	server, browser := socketPair(t)
	c := newTestClient(t, server, &stubFetcher{})
	require.NoError(t, hub.Join(context.Background(), c))

	cancel()

	readCtx, readCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer readCancel()
	_, _, err := browser.Read(readCtx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))

	select {
	case <-hub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}

	// The page was unmounted, so its updates are closed.
	_, open := <-c.page.Updates()
	assert.False(t, open)
	assert.Equal(t, 0, hub.Active())

	other, _ := socketPair(t)
	late := newTestClient(t, other, &stubFetcher{})
	assert.ErrorIs(t, hub.Join(context.Background(), late), ErrHubStopped)

	// Leave after shutdown must not block.
	hub.Leave(late)
}

func TestHubJoinRespectsContext(t *testing.T) {
	hub := NewHub(nil)

	server, _ := socketPair(t)
	c := newTestClient(t, server, &stubFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, hub.Join(ctx, c), context.Canceled)
}

func TestHubShutdownClosesPagesInParallel(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out close handshakes")
	}

	ctx, cancel := context.WithCancel(context.Background())

	hub := NewHub(nil)
	go hub.Run(ctx)

	// The browsers never read, so every close handshake runs to its timeout.
	const pages = 3
	for range pages {
		server, _ := socketPair(t)
		require.NoError(t, hub.Join(context.Background(), newTestClient(t, server, &stubFetcher{})))
	}
	require.Equal(t, pages, hub.Active())

	start := time.Now()
	cancel()

	select {
	case <-hub.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("hub did not stop")
	}

	// One handshake timeout, not one per page.
	assert.Less(t, time.Since(start), 8*time.Second)
	assert.Equal(t, 0, hub.Active())
}

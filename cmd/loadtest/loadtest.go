// Command loadtest mounts many chat pages against a running server and
// scrolls each of them until the history ends.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/johndosdos/tripchat/internal/observability"
)

// A one-pixel viewport always reads as scrolled to the bottom.
const scrollFrame = `{"type":"scroll","scroll_top":0,"client_height":1,"scroll_height":1}`

type stats struct {
	sessions  atomic.Int64
	failed    atomic.Int64
	frames    atomic.Int64
	exhausted atomic.Int64
}

func main() {
	endpoint := flag.String("url", "ws://localhost:8080/ws", "page socket endpoint")
	sessions := flag.Int("sessions", 50, "concurrent page sessions")
	scrolls := flag.Int("scrolls", 20, "scroll events per session")
	interval := flag.Duration("interval", 200*time.Millisecond, "delay between scroll events")
	timeout := flag.Duration("timeout", time.Minute, "overall run timeout")
	flag.Parse()

	observability.InitLogger("info", "text")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var st stats
	var wg sync.WaitGroup
	start := time.Now()

	for i := range *sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runSession(ctx, *endpoint, *scrolls, *interval, &st); err != nil {
				st.failed.Add(1)
				slog.Warn("session failed", slog.Int("session", i), slog.String("error", err.Error()))
			}
		}()
	}

	wg.Wait()

	slog.Info("load test finished",
		slog.Int64("sessions", st.sessions.Load()),
		slog.Int64("failed", st.failed.Load()),
		slog.Int64("frames", st.frames.Load()),
		slog.Int64("exhausted", st.exhausted.Load()),
		slog.Duration("elapsed", time.Since(start)))

	if st.failed.Load() > 0 {
		os.Exit(1)
	}
}

func runSession(ctx context.Context, endpoint string, scrolls int, interval time.Duration, st *stats) error {
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	st.sessions.Add(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, p, err := conn.Read(ctx)
			if err != nil {
				return
			}
			st.frames.Add(1)
			if strings.Contains(string(p), "No more messages") {
				st.exhausted.Add(1)
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range scrolls {
		select {
		case <-done:
			return conn.Close(websocket.StatusNormalClosure, "history exhausted")
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := conn.Write(ctx, websocket.MessageText, []byte(scrollFrame)); err != nil {
			return err
		}
	}

	return conn.Close(websocket.StatusNormalClosure, "done")
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	components "github.com/johndosdos/tripchat/components/chat"
	"github.com/johndosdos/tripchat/internal/chat"
	"github.com/johndosdos/tripchat/internal/history"
	"github.com/johndosdos/tripchat/internal/markup"
	"github.com/johndosdos/tripchat/internal/testutil"
	ws "github.com/johndosdos/tripchat/internal/websocket"
)

func newRenderer(t *testing.T) *markup.Renderer {
	t.Helper()
	text, err := markup.NewRenderer(markup.ModeSanitize)
	require.NoError(t, err)
	return text
}

func newHistoryClient(t *testing.T, hs *testutil.HistoryServer) *history.Client {
	t.Helper()
	c, err := history.NewClient(hs.URL, 2*time.Second, nil)
	require.NoError(t, err)
	return c
}

func TestServeChat(t *testing.T) {
	props := components.PageProps{
		Trip:    components.Trip{Name: "Trip 1", From: "IGI Airport, T3", To: "Sector 28"},
		ReplyTo: "Rohit Yadav",
		WsPath:  "/ws",
	}

	rec := httptest.NewRecorder()
	ServeChat(props).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `ws-connect="/ws"`)
	assert.Contains(t, body, "IGI Airport, T3")
	assert.Contains(t, body, "Reply to @Rohit Yadav")
	assert.Contains(t, body, `id="chat-history"`)
}

func TestServeHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	ServeHealth().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServeMessages(t *testing.T) {
	hs := testutil.NewHistoryServer(t,
		[]testutil.Chat{
			testutil.NewChat("a", "boarding now", "2024-03-02 09:00:00"),
			testutil.NewSelfChat("b", "on my way", "2024-03-01 18:30:00"),
		},
	)
	h := ServeMessages(newHistoryClient(t, hs), newRenderer(t))

	t.Run("renders the page grouped by date", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/messages?page=0", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `id="chat-history"`)
		assert.NotContains(t, body, "hx-swap-oob")

		first := strings.Index(body, `data-date="2024-03-02"`)
		second := strings.Index(body, `data-date="2024-03-01"`)
		require.NotEqual(t, -1, first)
		require.NotEqual(t, -1, second)
		assert.Less(t, first, second, "groups keep the order dates first appear in")
		assert.Contains(t, body, "boarding now")
		assert.Contains(t, body, "on my way")
	})

	t.Run("defaults to page zero", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "boarding now")
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/messages?page=3", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "date-group")
	})

	for _, raw := range []string{"abc", "-1"} {
		t.Run("rejects page "+raw, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/messages?page="+raw, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestServeMessagesUpstreamFailure(t *testing.T) {
	hs := testutil.NewHistoryServer(t)
	hs.SetStatus(http.StatusInternalServerError)
	h := ServeMessages(newHistoryClient(t, hs), newRenderer(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/messages?page=0", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Retry")
}

func readFrameContaining(t *testing.T, conn *websocket.Conn, substr string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		_, p, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %q", substr)
		if strings.Contains(string(p), substr) {
			return string(p)
		}
	}
}

func TestServeWs(t *testing.T) {
	hs := testutil.NewHistoryServer(t,
		[]testutil.Chat{testutil.NewChat("a", "first page", "2024-03-02 09:00:00")},
		[]testutil.Chat{testutil.NewChat("b", "second page", "2024-03-01 09:00:00")},
	)
	client := newHistoryClient(t, hs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(nil)
	go hub.Run(ctx)

	newPage := func(log *slog.Logger) *chat.Page {
		loader := chat.NewLoader(client, chat.LoaderOptions{Timeout: 2 * time.Second, StopOnEmpty: true, Logger: log})
		return chat.NewPage(loader, log)
	}

	srv := httptest.NewServer(ServeWs(hub, newPage, newRenderer(t), WsOptions{
		EventRequests: 100,
		EventWindow:   time.Second,
	}))
	t.Cleanup(srv.Close)

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	conn, _, err := websocket.Dial(dialCtx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	readFrameContaining(t, conn, "first page")
	assert.Equal(t, 1, hub.Active())

	scroll := `{"type":"scroll","scroll_top":"0","client_height":"800","scroll_height":"800"}`
	require.NoError(t, conn.Write(dialCtx, websocket.MessageText, []byte(scroll)))
	frame := readFrameContaining(t, conn, "second page")
	assert.Contains(t, frame, "first page")

	// Page 2 is empty, which ends the history.
	require.NoError(t, conn.Write(dialCtx, websocket.MessageText, []byte(scroll)))
	readFrameContaining(t, conn, "No more messages")

	assert.Equal(t, []int{0, 1, 2}, hs.Requests())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "navigated away"))
	assert.Eventually(t, func() bool { return hub.Active() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestServeWsAfterShutdown(t *testing.T) {
	hs := testutil.NewHistoryServer(t)
	client := newHistoryClient(t, hs)

	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub(nil)
	go hub.Run(ctx)
	cancel()
	<-hub.Done()

	newPage := func(log *slog.Logger) *chat.Page {
		return chat.NewPage(chat.NewLoader(client, chat.LoaderOptions{}), log)
	}
	srv := httptest.NewServer(ServeWs(hub, newPage, newRenderer(t), WsOptions{}))
	t.Cleanup(srv.Close)

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	conn, _, err := websocket.Dial(dialCtx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	_, _, err = conn.Read(dialCtx)
	assert.Equal(t, websocket.StatusTryAgainLater, websocket.CloseStatus(err))
	assert.Empty(t, hs.Requests())
}

package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/tripchat/internal/chat"
	"github.com/johndosdos/tripchat/internal/markup"
	"github.com/johndosdos/tripchat/internal/model"
)

func renderHTML(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func sanitizer(t *testing.T) *markup.Renderer {
	t.Helper()
	r, err := markup.NewRenderer(markup.ModeSanitize)
	require.NoError(t, err)
	return r
}

func message(id, text string, self, verified bool) model.ChatMessage {
	return model.ChatMessage{
		ID:   id,
		Text: text,
		Sender: model.Sender{
			UserID:     "user-" + id,
			ImageURL:   "https://example.com/" + id + ".png",
			IsVerified: verified,
			IsSelf:     self,
		},
		Timestamp: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		DateKey:   "2024-01-01",
	}
}

func TestReceiverBubbleComponent(t *testing.T) {
	html := renderHTML(t, Bubble(message("a", "hello", false, true), sanitizer(t)))

	assert.Contains(t, html, "message--other")
	assert.Contains(t, html, "hello")
	assert.Contains(t, html, `src="https://example.com/a.png"`)
	assert.Contains(t, html, `alt="user-a"`)
	assert.Contains(t, html, VerifiedBadgeURL)
}

func TestReceiverBubbleWithoutVerification(t *testing.T) {
	html := renderHTML(t, Bubble(message("a", "hello", false, false), sanitizer(t)))

	assert.NotContains(t, html, VerifiedBadgeURL)
}

func TestSenderBubbleComponent(t *testing.T) {
	html := renderHTML(t, Bubble(message("b", "mine", true, true), sanitizer(t)))

	assert.Contains(t, html, "message--self")
	assert.Contains(t, html, "mine")
	assert.NotContains(t, html, "avatar")
	assert.NotContains(t, html, VerifiedBadgeURL)
}

func TestBubbleSanitizesMarkup(t *testing.T) {
	html := renderHTML(t, Bubble(message("x", `<b>hey</b><script>alert(1)</script>`, false, false), sanitizer(t)))

	assert.Contains(t, html, "<b>hey</b>")
	assert.NotContains(t, html, "<script")
}

func TestBubbleEscapesAttributes(t *testing.T) {
	m := message(`"><script>`, "x", false, false)
	m.Sender.ImageURL = "javascript:alert(1)"

	html := renderHTML(t, Bubble(m, sanitizer(t)))

	assert.NotContains(t, html, `"><script>`)
	assert.NotContains(t, html, "javascript:")
}

func TestHistoryComponent(t *testing.T) {
	groups := chat.GroupByDate([]model.ChatMessage{
		message("a", "first", false, true),
		func() model.ChatMessage {
			m := message("b", "second", true, false)
			m.DateKey = "2024-01-02"
			return m
		}(),
	})

	html := renderHTML(t, History(groups, sanitizer(t), true))

	assert.Contains(t, html, `id="chat-history"`)
	assert.Contains(t, html, `hx-swap-oob="true"`)
	assert.Contains(t, html, `data-date="2024-01-01"`)
	assert.Contains(t, html, `data-date="2024-01-02"`)
	assert.Less(t, strings.Index(html, "first"), strings.Index(html, "second"))
}

func TestHistoryWithoutOOB(t *testing.T) {
	html := renderHTML(t, History(nil, nil, false))

	assert.Equal(t, `<div id="chat-history" class="history"></div>`, html)
}

func TestStatusComponent(t *testing.T) {
	tests := []struct {
		name   string
		status HistoryStatus
		want   string
	}{
		{"loading", HistoryStatus{Loading: true}, "Loading"},
		{"exhausted", HistoryStatus{Exhausted: true}, "No more messages"},
		{"failed", HistoryStatus{Failed: true}, `hx-vals='{"type":"retry"}'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := renderHTML(t, Status(tt.status, true))
			assert.Contains(t, html, `id="history-status"`)
			assert.Contains(t, html, tt.want)
		})
	}
}

func TestTripHeaderComponent(t *testing.T) {
	trip := Trip{Name: "Trip 1", From: "IGI Airport, T3", To: "Sector 28", ImageURL: "/static/trip.svg"}

	html := renderHTML(t, TripHeader(trip, false))

	assert.Contains(t, html, "Trip 1")
	assert.Contains(t, html, "IGI Airport, T3")
	assert.Contains(t, html, "Sector 28")
	assert.Contains(t, html, `data-region="trip-menu-toggle"`)
	assert.Contains(t, html, `<div id="trip-menu" hidden></div>`)
	assert.NotContains(t, html, "Share Number")
}

func TestTripMenuComponent(t *testing.T) {
	html := renderHTML(t, TripMenu(true, true))

	assert.Contains(t, html, `data-region="trip-menu"`)
	assert.Contains(t, html, `hx-swap-oob="true"`)
	for _, item := range []string{"Members", "Share Number", "Report"} {
		assert.Contains(t, html, item)
	}
}

func TestComposerComponent(t *testing.T) {
	html := renderHTML(t, Composer("Rohit Yadav", false))

	assert.Contains(t, html, `placeholder="Reply to @Rohit Yadav"`)
	assert.Contains(t, html, `data-region="attachment-toggle"`)
	assert.Contains(t, html, `<div id="attachment-menu" hidden></div>`)
}

func TestAttachmentMenuComponent(t *testing.T) {
	html := renderHTML(t, AttachmentMenu(true, false))

	assert.Contains(t, html, `data-region="attachment-menu"`)
	assert.NotContains(t, html, "hx-swap-oob")
	for _, item := range []string{"Camera", "Video", "Document"} {
		assert.Contains(t, html, item)
	}
}

func TestChatPageComponent(t *testing.T) {
	html := renderHTML(t, ChatPage(PageProps{
		Trip:    Trip{Name: "Trip 1", From: "A", To: "B"},
		ReplyTo: "Rohit Yadav",
		WsPath:  "/ws",
	}))

	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, `ws-connect="/ws"`)
	assert.Contains(t, html, `id="chat-history"`)
	assert.Contains(t, html, `id="history-status"`)
	assert.Contains(t, html, `hx-trigger="scroll from:window throttle:150ms"`)
	assert.Contains(t, html, `hx-trigger="scroll from:window delay:200ms"`)
	assert.Contains(t, html, `hx-trigger="click from:document"`)
	assert.Contains(t, html, "Reply to @Rohit Yadav")
}

// The throttled trigger drops the last scroll of a burst, so a settled
// trigger must carry the same viewport values.
func TestChatPageReportsSettledScroll(t *testing.T) {
	html := renderHTML(t, ChatPage(PageProps{WsPath: "/ws"}))

	vals := `hx-vals='js:{type: "scroll", scroll_top: window.scrollY, client_height: document.documentElement.clientHeight, scroll_height: document.documentElement.scrollHeight}'`
	for _, trigger := range []string{"throttle:150ms", "delay:200ms"} {
		tag := `<div hidden ws-send hx-trigger="scroll from:window ` + trigger + `" ` + vals + `></div>`
		assert.Contains(t, html, tag)
	}
}

func TestChatPageStartsLoading(t *testing.T) {
	html := renderHTML(t, ChatPage(PageProps{Trip: Trip{Name: "<Trip>"}, WsPath: "/ws"}))

	assert.Contains(t, html, `<div id="chat-history" class="history"></div>`)
	assert.Contains(t, html, "history-status__loading")
	assert.Contains(t, html, "<title>&lt;Trip&gt;</title>")
}

func TestComponentsStopOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := ChatPage(PageProps{WsPath: "/ws"}).Render(ctx, &buf)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/johndosdos/tripchat/internal/chat"
	"github.com/johndosdos/tripchat/internal/markup"
	"github.com/johndosdos/tripchat/internal/observability"
	ws "github.com/johndosdos/tripchat/internal/websocket"
)

// PageFactory builds the controller for a newly opened page.
type PageFactory func(log *slog.Logger) *chat.Page

// WsOptions tunes the page socket.
type WsOptions struct {
	EventRequests int
	EventWindow   time.Duration
	// OriginPatterns are passed to websocket.Accept. Empty means same origin.
	OriginPatterns []string
}

// ServeWs mounts a page for the lifetime of the client's websocket.
func ServeWs(h *ws.Hub, newPage PageFactory, text *markup.Renderer, opts WsOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to accept page socket", "error", err)
			return
		}

		id := uuid.New()
		ctx = observability.WithSessionID(ctx, id.String())
		log := observability.FromContext(ctx)

		page := newPage(log)
		c := ws.NewClient(id, conn, page, text, log)
		if opts.EventRequests > 0 && opts.EventWindow > 0 {
			c.SetEventLimiter(opts.EventRequests, opts.EventWindow)
		}

		if err := h.Join(ctx, c); err != nil {
			page.Unmount()
			conn.Close(websocket.StatusTryAgainLater, "server shutting down")
			return
		}

		log.InfoContext(ctx, "page mounted")

		page.Mount()

		// We block on ReadMessage because the request context is cancelled
		// as soon as the handler returns.
		go c.WriteMessage(ctx)
		c.ReadMessage(ctx)

		log.InfoContext(ctx, "page unmounted")
	}
}

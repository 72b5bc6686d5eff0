package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/a-h/templ"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	components "github.com/johndosdos/tripchat/components/chat"
	"github.com/johndosdos/tripchat/internal/chat"
	"github.com/johndosdos/tripchat/internal/markup"
)

const writeTimeout = 10 * time.Second

// Client is one mounted chat page and its socket.
type Client struct {
	ID       uuid.UUID
	conn     *websocket.Conn
	page     *chat.Page
	text     *markup.Renderer
	Hub      *Hub
	eventLim *rate.Limiter
	log      *slog.Logger
}

// NewClient binds a page to its socket. id identifies the session in logs.
func NewClient(id uuid.UUID, conn *websocket.Conn, page *chat.Page, text *markup.Renderer, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		ID:   id,
		conn: conn,
		page: page,
		text: text,
		log:  log,
	}
}

// SetEventLimiter caps how many browser events per window reach the page.
// Events over the limit are dropped.
func (c *Client) SetEventLimiter(requests int, window time.Duration) {
	c.eventLim = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
}

// WriteMessage renders page updates to the socket until the page unmounts or
// ctx is cancelled.
func (c *Client) WriteMessage(ctx context.Context) {
	for {
		select {
		case update, ok := <-c.page.Updates():
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "page unmounted")
				return
			}

			content := c.fragment(update)

			var buf bytes.Buffer
			if err := content.Render(ctx, &buf); err != nil {
				c.log.ErrorContext(ctx, "failed to render component",
					"error", err,
					"update_kind", update.Kind)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, buf.Bytes())
			cancel()
			if err != nil {
				c.log.WarnContext(ctx, "failed to write page update",
					"error", err)
				c.conn.CloseNow()
				return
			}

		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "context cancelled")
			return
		}
	}
}

// fragment maps an update to the out-of-band swaps that redraw it.
func (c *Client) fragment(u chat.Update) templ.Component {
	switch u.Kind {
	case chat.UpdateOverlay:
		return templ.Join(
			components.TripMenu(u.Overlay == chat.OverlayTripMenu, true),
			components.AttachmentMenu(u.Overlay == chat.OverlayAttachmentMenu, true),
		)

	case chat.UpdateFailure:
		return templ.Join(
			components.History(u.Groups, c.text, true),
			components.Status(components.HistoryStatus{Failed: true}, true),
		)

	default:
		return templ.Join(
			components.History(u.Groups, c.text, true),
			components.Status(components.HistoryStatus{
				Loading:   u.Fetching || (len(u.Groups) == 0 && !u.Exhausted),
				Exhausted: u.Exhausted,
			}, true),
		)
	}
}

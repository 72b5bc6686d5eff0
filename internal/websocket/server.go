package websocket

import (
	"context"
	"errors"

	"github.com/coder/websocket"

	"github.com/johndosdos/tripchat/internal/chat"
	"github.com/johndosdos/tripchat/internal/observability"
)

// ReadMessage reads browser events from the socket and feeds them to the
// page. It returns when the socket closes; the page is unmounted on the way
// out, whatever fetch was in flight.
func (c *Client) ReadMessage(ctx context.Context) {
	defer func() {
		c.page.Unmount()
		if c.Hub != nil {
			c.Hub.Leave(c)
		}
		c.conn.CloseNow()
	}()

	for {
		msgType, p, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				c.log.WarnContext(ctx, "page socket closed", "error", err)
			}
			return
		}

		// Pages only send JSON text frames.
		if msgType != websocket.MessageText {
			continue
		}

		ev, err := DecodeEvent(p)
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				c.log.DebugContext(ctx, "ignoring page event", "error", err)
			} else {
				c.log.WarnContext(ctx, "failed to process page event", "error", err)
			}
			continue
		}

		if !c.admit(ev) {
			continue
		}

		observability.PageEventsTotal.WithLabelValues(string(ev.Type)).Inc()
		c.page.Handle(ev)
	}
}

// admit applies the event limiter. A scroll that reaches the bottom and a
// retry always pass: dropping either would leave the history stuck.
func (c *Client) admit(ev chat.Event) bool {
	if c.eventLim == nil {
		return true
	}

	switch {
	case ev.Type == chat.EventRetry:
		return true
	case ev.Type == chat.EventScroll && ev.Viewport.AtBottom():
		return true
	}

	return c.eventLim.Allow()
}

package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	components "github.com/johndosdos/tripchat/components/chat"
	"github.com/johndosdos/tripchat/internal/chat"
	"github.com/johndosdos/tripchat/internal/markup"
)

// ServeMessages renders one upstream page grouped by date, without any
// session state. It backs clients that cannot hold a page socket.
func ServeMessages(fetcher chat.Fetcher, text *markup.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		page := 0
		if raw := r.URL.Query().Get("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "Invalid page.", http.StatusBadRequest)
				return
			}
			page = n
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		messages, err := fetcher.FetchPage(ctx, page)
		if err != nil {
			slog.ErrorContext(ctx, "failed to load chat history page",
				slog.Int("page", page),
				slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadGateway)
			if err := components.Status(components.HistoryStatus{Failed: true}, false).Render(ctx, w); err != nil {
				slog.ErrorContext(ctx, "failed to render component", "error", err)
			}
			return
		}

		groups := chat.GroupByDate(messages)
		if err := components.History(groups, text, false).Render(ctx, w); err != nil {
			slog.ErrorContext(ctx, "failed to render component", "error", err)
			return
		}
	}
}

package handler

import (
	"log/slog"
	"net/http"

	components "github.com/johndosdos/tripchat/components/chat"
)

// ServeChat renders the page shell. The history arrives over the page socket.
func ServeChat(props components.PageProps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := components.ChatPage(props).Render(ctx, w); err != nil {
			slog.ErrorContext(ctx, "failed to render chat page", "error", err)
			return
		}
	}
}

// ServeHealth reports liveness.
func ServeHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

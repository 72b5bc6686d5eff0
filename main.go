// Package main our entry point.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	components "github.com/johndosdos/tripchat/components/chat"
	"github.com/johndosdos/tripchat/internal/chat"
	"github.com/johndosdos/tripchat/internal/config"
	"github.com/johndosdos/tripchat/internal/handler"
	"github.com/johndosdos/tripchat/internal/history"
	"github.com/johndosdos/tripchat/internal/markup"
	"github.com/johndosdos/tripchat/internal/middleware"
	"github.com/johndosdos/tripchat/internal/observability"
	"github.com/johndosdos/tripchat/internal/ratelimiter"
	ws "github.com/johndosdos/tripchat/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting application...",
		slog.String("history_url", cfg.ChatHistoryURL),
		slog.String("markup_mode", cfg.MarkupMode))

	historyClient, err := history.NewClient(cfg.ChatHistoryURL, cfg.FetchTimeout, slog.Default())
	if err != nil {
		slog.Error("failed to create chat history client", "error", err)
		os.Exit(1)
	}

	text, err := markup.NewRenderer(markup.Mode(cfg.MarkupMode))
	if err != nil {
		slog.Error("failed to create markup renderer", "error", err)
		os.Exit(1)
	}

	// hub.Run tracks every mounted page until shutdown.
	hub := ws.NewHub(slog.Default())
	go hub.Run(ctx)

	newPage := func(log *slog.Logger) *chat.Page {
		loader := chat.NewLoader(historyClient, chat.LoaderOptions{
			Timeout:     cfg.FetchTimeout,
			StopOnEmpty: cfg.StopOnEmptyPage,
			Logger:      log,
		})
		return chat.NewPage(loader, log)
	}

	limiter := ratelimiter.NewIPRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, ratelimiter.CleanupOpts{
		TTL:      10 * time.Minute,
		Interval: time.Minute,
	})
	defer limiter.Stop()

	props := components.PageProps{
		Trip: components.Trip{
			Name:     cfg.TripName,
			From:     cfg.TripFrom,
			To:       cfg.TripTo,
			ImageURL: cfg.TripImage,
		},
		ReplyTo: cfg.ReplyTo,
		WsPath:  "/ws",
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics())

	fs := http.FileServer(http.Dir("static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fs))

	r.Get("/", handler.ServeChat(props))
	r.Get("/messages", handler.ServeMessages(historyClient, text))
	r.With(limiter.Middleware).Get("/ws", handler.ServeWs(hub, newPage, text, handler.WsOptions{
		EventRequests: cfg.PageEventRequests,
		EventWindow:   cfg.PageEventWindow,
	}))
	r.Get("/health", handler.ServeHealth())
	r.Handle("/metrics", promhttp.Handler())

	// No read or write timeouts: page sockets stay open for the whole visit.
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		slog.Info("Server starting", slog.String("addr", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
		slog.Warn("pages still mounted at shutdown deadline", slog.Int("count", hub.Active()))
	}

	slog.Info("Server stopped")
}

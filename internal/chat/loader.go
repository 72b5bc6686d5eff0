// Package chat holds the page-side logic of the trip chat: paging through the
// history endpoint, grouping what has been loaded, and the overlay state of
// the page.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/johndosdos/tripchat/internal/model"
	"github.com/johndosdos/tripchat/internal/observability"
)

var (
	ErrBusy      = errors.New("chat: a page fetch is already in flight")
	ErrExhausted = errors.New("chat: chat history exhausted")
	ErrReleased  = errors.New("chat: loader released")
)

// Fetcher returns one page of chat history.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) ([]model.ChatMessage, error)
}

// Viewport is the browser's scroll position, in CSS pixels.
type Viewport struct {
	ScrollTop    float64
	ClientHeight float64
	ScrollHeight float64
}

// AtBottom reports whether the visible area reaches the end of the content.
func (v Viewport) AtBottom() bool {
	return math.Ceil(v.ScrollTop+v.ClientHeight) >= v.ScrollHeight
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Timeout bounds each fetch. Zero means no bound beyond the caller's ctx.
	Timeout time.Duration

	// StopOnEmpty marks the history exhausted once a page adds no new
	// messages. Without it the loader keeps asking for further pages.
	StopOnEmpty bool

	Logger *slog.Logger
}

// PageResult describes one settled fetch.
type PageResult struct {
	Page      int
	Received  int
	Added     int
	Exhausted bool
}

// Snapshot is a read-only view of the loader state.
type Snapshot struct {
	Messages  []model.ChatMessage
	NextPage  int
	Fetching  bool
	Exhausted bool
	Err       error
}

// Loader pages through chat history. Messages only ever get appended, and
// at most one fetch is in flight at a time.
type Loader struct {
	fetcher     Fetcher
	timeout     time.Duration
	stopOnEmpty bool
	log         *slog.Logger

	// done is cancelled by Release and aborts the in-flight fetch.
	done   context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	accumulated []model.ChatMessage
	seen        map[string]struct{}
	nextPage    int
	fetching    bool
	exhausted   bool
	released    bool
	lastErr     error
}

// NewLoader returns a Loader that starts at page 0.
func NewLoader(fetcher Fetcher, opts LoaderOptions) *Loader {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	done, cancel := context.WithCancel(context.Background())

	return &Loader{
		fetcher:     fetcher,
		timeout:     opts.Timeout,
		stopOnEmpty: opts.StopOnEmpty,
		log:         log,
		done:        done,
		cancel:      cancel,
		seen:        make(map[string]struct{}),
	}
}

// LoadNextPage fetches the next page and appends its messages.
//
// It returns ErrBusy without touching the network when another fetch is in
// flight, ErrExhausted once the history has ended and ErrReleased after
// Release. On a failed fetch the messages and the page counter stay as they
// were, so the same page is asked for again next time.
func (l *Loader) LoadNextPage(ctx context.Context) (PageResult, error) {
	return l.loadNextPage(ctx, nil)
}

// loadNextPage is LoadNextPage with a hook that runs once the fetch has been
// claimed, before the request goes out. Snapshot reports Fetching inside it.
func (l *Loader) loadNextPage(ctx context.Context, started func()) (PageResult, error) {
	l.mu.Lock()
	switch {
	case l.released:
		l.mu.Unlock()
		return PageResult{}, ErrReleased
	case l.fetching:
		l.mu.Unlock()
		return PageResult{}, ErrBusy
	case l.exhausted:
		l.mu.Unlock()
		return PageResult{}, ErrExhausted
	}
	l.fetching = true
	page := l.nextPage
	l.mu.Unlock()

	if started != nil {
		started()
	}

	messages, err := l.fetch(ctx, page)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.fetching = false

	if l.released {
		observability.HistoryFetchesTotal.WithLabelValues(observability.FetchDropped).Inc()
		return PageResult{Page: page}, ErrReleased
	}

	if err != nil {
		l.lastErr = err
		observability.HistoryFetchesTotal.WithLabelValues(observability.FetchFailed).Inc()
		l.log.ErrorContext(ctx, "failed to load chat history page",
			slog.Int("page", page),
			slog.String("error", err.Error()))
		return PageResult{Page: page}, fmt.Errorf("chat: load page %d: %w", page, err)
	}

	fresh := lo.Filter(messages, func(m model.ChatMessage, _ int) bool {
		if _, dup := l.seen[m.ID]; dup {
			return false
		}
		l.seen[m.ID] = struct{}{}
		return true
	})
	if dropped := len(messages) - len(fresh); dropped > 0 {
		l.log.WarnContext(ctx, "dropped duplicate chat messages",
			slog.Int("page", page),
			slog.Int("dropped", dropped))
	}

	l.accumulated = append(l.accumulated, fresh...)
	l.nextPage++
	l.lastErr = nil

	result := observability.FetchOK
	if len(fresh) == 0 {
		result = observability.FetchEmpty
		if l.stopOnEmpty {
			l.exhausted = true
		}
	}
	observability.HistoryFetchesTotal.WithLabelValues(result).Inc()

	l.log.DebugContext(ctx, "loaded chat history page",
		slog.Int("page", page),
		slog.Int("received", len(messages)),
		slog.Int("added", len(fresh)),
		slog.Bool("exhausted", l.exhausted))

	return PageResult{
		Page:      page,
		Received:  len(messages),
		Added:     len(fresh),
		Exhausted: l.exhausted,
	}, nil
}

func (l *Loader) fetch(ctx context.Context, page int) ([]model.ChatMessage, error) {
	var cancel context.CancelFunc
	if l.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	stop := context.AfterFunc(l.done, cancel)
	defer stop()

	return l.fetcher.FetchPage(ctx, page)
}

// ShouldLoad reports whether a scroll to v must trigger the next fetch.
func (l *Loader) ShouldLoad(v Viewport) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fetching || l.exhausted || l.released {
		return false
	}
	return v.AtBottom()
}

// Snapshot copies the current state.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Snapshot{
		Messages:  append([]model.ChatMessage(nil), l.accumulated...),
		NextPage:  l.nextPage,
		Fetching:  l.fetching,
		Exhausted: l.exhausted,
		Err:       l.lastErr,
	}
}

// Err returns the error of the last fetch, or nil once a fetch succeeded.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Release aborts any in-flight fetch and turns every later call into a
// no-op. A fetch that settles after Release is discarded.
func (l *Loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.released = true
	l.cancel()
}

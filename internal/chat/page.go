package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// EventType is the kind of browser event a page reacts to.
type EventType string

const (
	EventScroll EventType = "scroll"
	EventClick  EventType = "click"
	EventRetry  EventType = "retry"
)

// Event is one browser interaction.
type Event struct {
	Type     EventType
	Viewport Viewport
	Region   Region
}

// UpdateKind says which part of the page an Update redraws.
type UpdateKind int

const (
	UpdateHistory UpdateKind = iota
	UpdateOverlay
	UpdateFailure
)

// Update is a redraw request produced by the page.
type Update struct {
	Kind UpdateKind

	// Set for UpdateHistory and UpdateFailure.
	Groups    []DateGroup
	Fetching  bool
	Exhausted bool
	Err       error

	// Set for UpdateOverlay.
	Overlay Overlay
}

const updateBuffer = 16

// Page is the controller of one mounted chat page. It owns the loader and the
// overlay state; the view only learns about changes through Updates.
type Page struct {
	loader *Loader
	log    *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	updates chan Update
	wg      sync.WaitGroup

	mu         sync.Mutex
	overlay    Overlay
	unmounting bool
	closed     bool
}

// NewPage returns an unmounted page over loader.
func NewPage(loader *Loader, log *slog.Logger) *Page {
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Page{
		loader:  loader,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan Update, updateBuffer),
	}
}

// Updates is closed after Unmount.
func (p *Page) Updates() <-chan Update {
	return p.updates
}

// Overlay returns the open overlay.
func (p *Page) Overlay() Overlay {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlay
}

// Mount loads the first page. The loading state is drawn as soon as the
// fetch starts.
func (p *Page) Mount() {
	p.loadAsync()
}

// Handle applies one browser event.
func (p *Page) Handle(ev Event) {
	switch ev.Type {
	case EventScroll:
		if p.loader.ShouldLoad(ev.Viewport) {
			p.loadAsync()
		}

	case EventClick:
		p.mu.Lock()
		prev := p.overlay
		p.overlay = prev.Click(ev.Region)
		next := p.overlay
		p.mu.Unlock()

		if next != prev {
			p.publish(Update{Kind: UpdateOverlay, Overlay: next})
		}

	case EventRetry:
		// Only offered after a failed fetch.
		if p.loader.Err() != nil {
			p.loadAsync()
		}

	default:
		p.log.Warn("ignoring unknown page event", slog.String("type", string(ev.Type)))
	}
}

// Unmount releases the loader, waits for background fetches and closes
// Updates. It is safe to call more than once.
func (p *Page) Unmount() {
	p.cancel()

	p.mu.Lock()
	if p.unmounting {
		p.mu.Unlock()
		return
	}
	p.unmounting = true
	p.mu.Unlock()

	p.loader.Release()
	p.wg.Wait()

	p.mu.Lock()
	p.closed = true
	close(p.updates)
	p.mu.Unlock()
}

func (p *Page) loadAsync() {
	p.mu.Lock()
	if p.unmounting {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		p.load()
	}()
}

func (p *Page) load() {
	// Every fetch redraws the status first, so a retry replaces the failure
	// line with the loading one.
	_, err := p.loader.loadNextPage(p.ctx, func() {
		p.publish(p.historyUpdate(UpdateHistory))
	})
	switch {
	case err == nil:
		p.publish(p.historyUpdate(UpdateHistory))
	case errors.Is(err, ErrBusy), errors.Is(err, ErrExhausted), errors.Is(err, ErrReleased):
	default:
		p.publish(p.historyUpdate(UpdateFailure))
	}
}

func (p *Page) historyUpdate(kind UpdateKind) Update {
	snap := p.loader.Snapshot()
	return Update{
		Kind:      kind,
		Groups:    GroupByDate(snap.Messages),
		Fetching:  snap.Fetching,
		Exhausted: snap.Exhausted,
		Err:       snap.Err,
	}
}

func (p *Page) publish(u Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	select {
	case p.updates <- u:
	case <-p.ctx.Done():
	}
}

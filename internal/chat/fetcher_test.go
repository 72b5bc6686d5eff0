package chat

import (
	"context"
	"sync"

	"github.com/johndosdos/tripchat/internal/model"
)

type fetchResult struct {
	messages []model.ChatMessage
	err      error
}

// fakeFetcher serves pages from a map and records requested pages. When
// hold is set, every FetchPage blocks until a value is sent on it or ctx ends.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[int]fetchResult
	requests []int
	hold     chan struct{}
	started  chan int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:   make(map[int]fetchResult),
		started: make(chan int, 64),
	}
}

func (f *fakeFetcher) setPage(page int, messages ...model.ChatMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page] = fetchResult{messages: messages}
}

func (f *fakeFetcher) failPage(page int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page] = fetchResult{err: err}
}

func (f *fakeFetcher) holdAll() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = make(chan struct{})
	return f.hold
}

func (f *fakeFetcher) Requests() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.requests...)
}

func (f *fakeFetcher) FetchPage(ctx context.Context, page int) ([]model.ChatMessage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, page)
	res := f.pages[page]
	hold := f.hold
	f.mu.Unlock()

	f.started <- page

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return res.messages, res.err
}

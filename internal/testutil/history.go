// Package testutil provides a fake chat-history upstream for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// Sender mirrors the upstream sender object.
type Sender struct {
	Image         string `json:"image"`
	IsKYCVerified bool   `json:"is_kyc_verified"`
	Self          bool   `json:"self"`
	UserID        string `json:"user_id"`
}

// Chat mirrors one upstream chat record.
type Chat struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Sender  Sender `json:"sender"`
	Time    string `json:"time"`
}

// NewChat returns a well-formed record sent by someone else.
func NewChat(id, message, at string) Chat {
	return Chat{
		ID:      id,
		Message: message,
		Sender: Sender{
			Image:         "https://example.com/avatar/" + id + ".png",
			IsKYCVerified: true,
			UserID:        "user-" + id,
		},
		Time: at,
	}
}

// NewSelfChat returns a well-formed record sent by the viewer.
func NewSelfChat(id, message, at string) Chat {
	c := NewChat(id, message, at)
	c.Sender.Self = true
	return c
}

// HistoryServer is an httptest server that serves fixed pages of chats.
// Pages past the end are served empty, like the real endpoint.
type HistoryServer struct {
	*httptest.Server

	mu       sync.Mutex
	pages    [][]Chat
	requests []int
	status   int
	raw      map[int]string
	gate     chan struct{}
}

// NewHistoryServer starts a server and closes it when the test ends.
func NewHistoryServer(t testing.TB, pages ...[]Chat) *HistoryServer {
	t.Helper()

	hs := &HistoryServer{
		pages:  pages,
		status: http.StatusOK,
		raw:    make(map[int]string),
	}
	hs.Server = httptest.NewServer(http.HandlerFunc(hs.serve))
	t.Cleanup(hs.Close)

	return hs
}

// Requests returns the page numbers requested so far, in order.
func (hs *HistoryServer) Requests() []int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return append([]int(nil), hs.requests...)
}

// SetStatus makes every following response use status.
func (hs *HistoryServer) SetStatus(status int) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.status = status
}

// SetRawPage serves body verbatim for page.
func (hs *HistoryServer) SetRawPage(page int, body string) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.raw[page] = body
}

// Hold blocks every following response until the returned func is called.
func (hs *HistoryServer) Hold() (release func()) {
	gate := make(chan struct{})
	hs.mu.Lock()
	hs.gate = gate
	hs.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			hs.mu.Lock()
			hs.gate = nil
			hs.mu.Unlock()
			close(gate)
		})
	}
}

func (hs *HistoryServer) serve(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		http.Error(w, "bad page", http.StatusBadRequest)
		return
	}

	hs.mu.Lock()
	hs.requests = append(hs.requests, page)
	status := hs.status
	gate := hs.gate
	raw, hasRaw := hs.raw[page]
	var chats []Chat
	if page < len(hs.pages) {
		chats = hs.pages[page]
	}
	hs.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if hasRaw {
		fmt.Fprint(w, raw) //nolint:errcheck
		return
	}

	if chats == nil {
		chats = []Chat{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"chats": chats,
		"page":  page,
	})
}

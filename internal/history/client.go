// Package history talks to the remote chat-history endpoint.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/johndosdos/tripchat/internal/model"
	"github.com/johndosdos/tripchat/internal/observability"
)

// maxBodyBytes caps a single page response.
const maxBodyBytes = 4 << 20

var (
	ErrUnexpectedStatus  = errors.New("unexpected status from chat history endpoint")
	ErrMalformedResponse = errors.New("malformed chat history response")
	ErrMalformedRecord   = errors.New("malformed chat record")
)

// Client fetches pages of chat history.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	validate   *validator.Validate
	log        *slog.Logger
}

// NewClient returns a Client for the endpoint at baseURL. timeout bounds
// every request.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("history: invalid base url: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		validate: validator.New(),
		log:      log,
	}, nil
}

// FetchPage requests page (0-based) and returns its valid messages in the
// order upstream sent them. Records that fail validation are skipped.
func (c *Client) FetchPage(ctx context.Context, page int) ([]model.ChatMessage, error) {
	if page < 0 {
		return nil, fmt.Errorf("history: negative page %d", page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(page), nil)
	if err != nil {
		return nil, fmt.Errorf("history: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	observability.HistoryFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("history: failed to fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("history: page %d: %w: %d", page, ErrUnexpectedStatus, resp.StatusCode)
	}

	var body pageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("history: page %d: %w: %v", page, ErrMalformedResponse, err)
	}
	if body.Chats == nil {
		return nil, fmt.Errorf("history: page %d: %w: missing chats field", page, ErrMalformedResponse)
	}

	messages := make([]model.ChatMessage, 0, len(body.Chats))
	for i, raw := range body.Chats {
		msg, err := c.decodeRecord(raw)
		if err != nil {
			observability.MalformedRecordsTotal.Inc()
			c.log.WarnContext(ctx, "skipping chat record",
				slog.Int("page", page),
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (c *Client) pageURL(page int) string {
	u := *c.baseURL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) decodeRecord(raw json.RawMessage) (model.ChatMessage, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.ChatMessage{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	if err := c.validate.Struct(rec); err != nil {
		return model.ChatMessage{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	return rec.toModel()
}

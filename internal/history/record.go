package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/johndosdos/tripchat/internal/model"
)

// timeLayouts are tried in order. Upstream sends "2006-01-02 15:04:05".
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339Nano,
	"2006-01-02",
}

type pageResponse struct {
	Chats []json.RawMessage `json:"chats"`
}

type record struct {
	ID      string       `json:"id" validate:"required"`
	Message string       `json:"message"`
	Sender  recordSender `json:"sender"`
	Time    string       `json:"time" validate:"required"`
}

type recordSender struct {
	Image         string `json:"image" validate:"omitempty,url"`
	IsKYCVerified bool   `json:"is_kyc_verified"`
	Self          bool   `json:"self"`
	UserID        string `json:"user_id" validate:"required"`
}

func (r record) toModel() (model.ChatMessage, error) {
	ts, err := ParseTime(r.Time)
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	return model.ChatMessage{
		ID:   r.ID,
		Text: r.Message,
		Sender: model.Sender{
			UserID:     r.Sender.UserID,
			ImageURL:   r.Sender.Image,
			IsVerified: r.Sender.IsKYCVerified,
			IsSelf:     r.Sender.Self,
		},
		Timestamp: ts,
		DateKey:   DateKey(r.Time),
	}, nil
}

// DateKey returns the first whitespace-delimited token of an upstream time
// string.
func DateKey(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	// RFC 3339 has no space; cut at the T.
	date, _, _ := strings.Cut(fields[0], "T")
	return date
}

// ParseTime parses an upstream time string.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

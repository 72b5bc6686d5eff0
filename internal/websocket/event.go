package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/johndosdos/tripchat/internal/chat"
)

var ErrUnknownEvent = errors.New("unknown page event")

// inboundEvent is what htmx's ws-send posts. HTMX also sends a HEADERS field,
// which is ignored.
type inboundEvent struct {
	Type         string `json:"type"`
	ScrollTop    number `json:"scroll_top"`
	ClientHeight number `json:"client_height"`
	ScrollHeight number `json:"scroll_height"`
	Region       string `json:"region"`
}

// number accepts both JSON numbers and numeric strings; htmx sends either
// depending on how the value was collected.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*n = number(f)
	return nil
}

// DecodeEvent parses one frame sent by the page.
func DecodeEvent(p []byte) (chat.Event, error) {
	var in inboundEvent
	if err := json.Unmarshal(p, &in); err != nil {
		return chat.Event{}, fmt.Errorf("failed to decode page event: %w", err)
	}

	switch chat.EventType(in.Type) {
	case chat.EventScroll:
		return chat.Event{
			Type: chat.EventScroll,
			Viewport: chat.Viewport{
				ScrollTop:    float64(in.ScrollTop),
				ClientHeight: float64(in.ClientHeight),
				ScrollHeight: float64(in.ScrollHeight),
			},
		}, nil

	case chat.EventClick:
		region := chat.Region(in.Region)
		if region == "" {
			region = chat.RegionOutside
		}
		return chat.Event{Type: chat.EventClick, Region: region}, nil

	case chat.EventRetry:
		return chat.Event{Type: chat.EventRetry}, nil
	}

	return chat.Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, in.Type)
}

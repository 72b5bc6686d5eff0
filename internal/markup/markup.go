// Package markup decides how much of a message's markup reaches the page.
package markup

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
)

// Mode selects how message text is rendered.
type Mode string

const (
	// ModeSanitize keeps formatting markup and strips scripts, handlers and
	// unsafe URLs.
	ModeSanitize Mode = "sanitize"
	// ModePlain escapes everything and shows the text as typed.
	ModePlain Mode = "plain"
	// ModeRaw writes upstream markup untouched. Only for trusted upstreams.
	ModeRaw Mode = "raw"
)

type sanitizer interface {
	Sanitize(s string) string
}

// Renderer turns message text into a templ component.
type Renderer struct {
	mode      Mode
	sanitizer sanitizer
}

// NewRenderer returns a Renderer for mode.
func NewRenderer(mode Mode) (*Renderer, error) {
	switch mode {
	case ModeSanitize, ModePlain, ModeRaw:
	default:
		return nil, fmt.Errorf("markup: unknown mode %q", mode)
	}

	return &Renderer{
		mode:      mode,
		sanitizer: bluemonday.UGCPolicy(),
	}, nil
}

// Mode reports the configured mode.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// Text renders s according to the mode.
func (r *Renderer) Text(s string) templ.Component {
	switch r.mode {
	case ModeRaw:
		return templ.Raw(s)
	case ModePlain:
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, templ.EscapeString(s))
			return err
		})
	default:
		return templ.Raw(r.sanitizer.Sanitize(s))
	}
}

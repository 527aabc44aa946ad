package scenario

import (
	"context"

	"github.com/wallarm/gotestflow/internal/browser"
	"github.com/wallarm/gotestflow/internal/poll"
	"github.com/wallarm/gotestflow/internal/snapshot"
)

// Element is a node the UI steps can act on.
type Element interface {
	poll.Toggle
	poll.Gate
	poll.Visible
	poll.Fillable
	snapshot.Capturer
}

// Surface is the rendered application.
type Surface interface {
	Navigate(ctx context.Context, path string) error
	Element(selector string) Element
	Page() snapshot.Capturer
	Hide(ctx context.Context, selector string, opts poll.Options) error
}

type browserSurface struct {
	b *browser.Browser
}

var _ Surface = (*browserSurface)(nil)

// FromBrowser adapts a Chrome tab.
func FromBrowser(b *browser.Browser) Surface {
	return &browserSurface{b: b}
}

func (s *browserSurface) Navigate(ctx context.Context, path string) error {
	return s.b.Navigate(ctx, path)
}

func (s *browserSurface) Element(selector string) Element {
	return s.b.Element(selector)
}

func (s *browserSurface) Page() snapshot.Capturer {
	return s.b.Page()
}

func (s *browserSurface) Hide(ctx context.Context, selector string, opts poll.Options) error {
	return s.b.Hide(ctx, selector, opts)
}

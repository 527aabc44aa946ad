package browser

import (
	"context"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"

	"github.com/wallarm/gotestflow/internal/poll"
	"github.com/wallarm/gotestflow/internal/snapshot"
)

var (
	_ poll.Toggle       = (*Element)(nil)
	_ poll.Gate         = (*Element)(nil)
	_ poll.Visible      = (*Element)(nil)
	_ poll.Fillable     = (*Element)(nil)
	_ snapshot.Capturer = (*Element)(nil)
)

// Element addresses a node by CSS selector. The node is looked up again on
// every call.
type Element struct {
	browser  *Browser
	selector string
}

func (e *Element) Selector() string {
	return e.selector
}

func (e *Element) eval(ctx context.Context, body string, res any) error {
	return e.browser.Run(ctx, chromedp.Evaluate(jsQuery(e.selector, body), res))
}

func (e *Element) Click(ctx context.Context) error {
	return errors.Wrapf(
		e.browser.Run(ctx, chromedp.Click(e.selector, chromedp.ByQuery)),
		"couldn't click %s", e.selector,
	)
}

func (e *Element) IsChecked(ctx context.Context) (bool, error) {
	var checked bool
	err := e.eval(ctx, jsChecked, &checked)
	return checked, errors.Wrapf(err, "couldn't read checked state of %s", e.selector)
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.eval(ctx, jsEnabled, &enabled)
	return enabled, errors.Wrapf(err, "couldn't read enabled state of %s", e.selector)
}

func (e *Element) IsVisible(ctx context.Context) (bool, error) {
	var visible bool
	err := e.eval(ctx, jsVisible, &visible)
	return visible, errors.Wrapf(err, "couldn't read visibility of %s", e.selector)
}

// Fill replaces the input value by typing it.
func (e *Element) Fill(ctx context.Context, value string) error {
	return errors.Wrapf(
		e.browser.Run(ctx,
			chromedp.SetValue(e.selector, "", chromedp.ByQuery),
			chromedp.SendKeys(e.selector, value, chromedp.ByQuery),
		),
		"couldn't fill %s", e.selector,
	)
}

func (e *Element) Value(ctx context.Context) (string, error) {
	var value string
	err := e.eval(ctx, jsInputValue, &value)
	return value, errors.Wrapf(err, "couldn't read value of %s", e.selector)
}

// Capture takes a PNG screenshot of the node.
func (e *Element) Capture(ctx context.Context) ([]byte, error) {
	var buf []byte

	err := e.browser.Run(ctx, chromedp.Screenshot(e.selector, &buf, chromedp.NodeVisible, chromedp.ByQuery))
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't take screenshot of %s", e.selector)
	}

	return buf, nil
}

// Page captures the whole page.
type Page struct {
	browser *Browser
}

var _ snapshot.Capturer = (*Page)(nil)

// Page returns a capturer of the full page.
func (b *Browser) Page() *Page {
	return &Page{browser: b}
}

func (p *Page) Capture(ctx context.Context) ([]byte, error) {
	var buf []byte

	// quality 100 produces PNG
	if err := p.browser.Run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, errors.Wrap(err, "couldn't take page screenshot")
	}

	return buf, nil
}

// Hide waits until the node is displayed and then hides it with an
// injected style rule. Used for overlays that cover captured elements.
func (b *Browser) Hide(ctx context.Context, selector string, opts poll.Options) error {
	if opts.Name == "" {
		opts.Name = "visibility of " + selector
	}

	el := b.Element(selector)
	if err := poll.Wait(ctx, el.IsVisible, opts); err != nil {
		return err
	}

	var ok bool
	if err := b.Run(ctx, chromedp.Evaluate(jsHideRule(selector), &ok)); err != nil {
		return errors.Wrapf(err, "couldn't hide %s", selector)
	}

	return nil
}

// Package browser drives a Chrome tab through chromedp for the UI steps of
// a case.
package browser

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wallarm/gotestflow/internal/helpers"
)

const DefaultActionTimeout = 15 * time.Second

var DefaultExecAllocatorOptions = append(
	chromedp.DefaultExecAllocatorOptions[:],
	chromedp.Flag("disable-gpu", true),
)

type Options struct {
	Headless      bool
	WindowWidth   int
	WindowHeight  int
	Proxy         string
	TLSVerify     bool
	Headers       map[string]string
	ActionTimeout time.Duration
}

// Browser owns one Chrome process and one tab. It is not safe for
// concurrent use; the UI steps of a case run sequentially.
type Browser struct {
	ctx    context.Context
	cancel context.CancelFunc

	base          *url.URL
	actionTimeout time.Duration

	logger *logrus.Logger
}

func discardLogs(string, ...any) {}

// New starts Chrome and opens a tab. The tab lives until Close.
func New(ctx context.Context, logger *logrus.Logger, baseURL string, opts Options) (*Browser, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't parse base URL")
	}

	allocOptions := append([]chromedp.ExecAllocatorOption{}, DefaultExecAllocatorOptions...)
	allocOptions = append(allocOptions, chromedp.Flag("headless", opts.Headless))

	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOptions = append(allocOptions, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}

	if opts.Proxy != "" {
		allocOptions = append(
			allocOptions,
			chromedp.ProxyServer(opts.Proxy),
			chromedp.Flag("proxy-bypass-list", "<-loopback>"),
		)
	}

	if !opts.TLSVerify {
		allocOptions = append(
			allocOptions,
			chromedp.Flag("ignore-certificate-errors", "1"),
			chromedp.Flag("allow-insecure-localhost", "1"),
		)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOptions...)

	var logOptions []chromedp.ContextOption
	if logger.GetLevel() < logrus.DebugLevel {
		logOptions = append(
			logOptions,
			chromedp.WithLogf(discardLogs),
			chromedp.WithDebugf(discardLogs),
			chromedp.WithErrorf(discardLogs),
		)
	} else {
		logOptions = append(logOptions, chromedp.WithLogf(logger.Debugf))
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx, logOptions...)

	b := &Browser{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		base:          base,
		actionTimeout: opts.ActionTimeout,
		logger:        logger,
	}

	if b.actionTimeout <= 0 {
		b.actionTimeout = DefaultActionTimeout
	}

	headers := make(network.Headers)
	for k, v := range opts.Headers {
		if strings.EqualFold(k, "host") {
			continue
		}
		headers[k] = v
	}

	// the first Run starts the browser
	startup := chromedp.Tasks{network.Enable()}
	if len(headers) > 0 {
		startup = append(startup, network.SetExtraHTTPHeaders(headers))
	}

	if err = chromedp.Run(tabCtx, startup); err != nil {
		b.cancel()
		return nil, errors.Wrap(err, "couldn't start Chrome")
	}

	return b, nil
}

// Close shuts the tab and the browser down.
func (b *Browser) Close() {
	if err := chromedp.Cancel(b.ctx); err != nil {
		b.logger.WithError(err).Debug("Chrome cancel returned an error")
	}
	b.cancel()
}

// Run executes actions in the tab. The run is bounded by the action timeout
// and canceled together with ctx.
func (b *Browser) Run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, b.actionTimeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	return err
}

// Navigate opens path relative to the base URL.
func (b *Browser) Navigate(ctx context.Context, path string) error {
	target, err := helpers.ResolvePath(b.base, path)
	if err != nil {
		return err
	}

	b.logger.WithField("url", target.String()).Debug("Navigate")

	return errors.Wrapf(
		b.Run(ctx, chromedp.Navigate(target.String())),
		"couldn't navigate to %s", target,
	)
}

// Element returns a handle to the first node matching the CSS selector.
func (b *Browser) Element(selector string) *Element {
	return &Element{browser: b, selector: selector}
}

// SessionStorage reads a sessionStorage value of the current page. Missing
// keys read as an empty string.
func (b *Browser) SessionStorage(ctx context.Context, key string) (string, error) {
	var value string

	err := b.Run(ctx, chromedp.Evaluate(
		"window.sessionStorage.getItem("+jsString(key)+") || ''",
		&value,
	))
	if err != nil {
		return "", errors.Wrapf(err, "couldn't read sessionStorage %s", key)
	}

	return value, nil
}

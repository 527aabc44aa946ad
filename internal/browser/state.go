package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"

	"github.com/wallarm/gotestflow/internal/helpers"
	"github.com/wallarm/gotestflow/internal/session"
)

// ApplyStorageState loads the cookies of the artifact into the browser and
// restores the local storage of the base origin.
func (b *Browser) ApplyStorageState(ctx context.Context, state *session.StorageState) error {
	origin := helpers.Origin(b.base)
	now := time.Now()

	var params []*network.CookieParam

	for _, c := range state.Cookies {
		if c.Expired(now) {
			continue
		}

		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if param.Domain == "" {
			param.URL = origin
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expires
		}
		switch c.SameSite {
		case "Strict", "Lax", "None":
			param.SameSite = network.CookieSameSite(c.SameSite)
		}

		params = append(params, param)
	}

	if len(params) > 0 {
		if err := b.Run(ctx, network.SetCookies(params)); err != nil {
			return errors.Wrap(err, "couldn't set cookies")
		}
	}

	var items []session.NameValue
	for _, o := range state.Origins {
		if o.Origin == origin {
			items = o.LocalStorage
		}
	}
	if len(items) == 0 {
		return nil
	}

	// local storage is per origin, so the origin has to be open first
	if err := b.Navigate(ctx, "/"); err != nil {
		return err
	}

	var tasks chromedp.Tasks
	for _, item := range items {
		tasks = append(tasks, chromedp.Evaluate(
			"window.localStorage.setItem("+jsString(item.Name)+", "+jsString(item.Value)+")",
			nil,
		))
	}

	return errors.Wrap(b.Run(ctx, tasks), "couldn't restore local storage")
}

// StorageState captures the cookies and local storage of the current page.
func (b *Browser) StorageState(ctx context.Context) (*session.StorageState, error) {
	var (
		cookies []*network.Cookie
		entries [][]string
	)

	err := b.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
		chromedp.Evaluate(`Object.entries(window.localStorage)`, &entries),
	)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't capture storage state")
	}

	state := &session.StorageState{
		Cookies: make([]session.Cookie, 0, len(cookies)),
		Origins: []session.OriginState{{Origin: helpers.Origin(b.base)}},
	}

	for _, c := range cookies {
		expires := c.Expires
		if c.Session {
			expires = -1
		}

		state.Cookies = append(state.Cookies, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}

	for _, entry := range entries {
		if len(entry) != 2 {
			continue
		}
		state.Origins[0].LocalStorage = append(state.Origins[0].LocalStorage, session.NameValue{
			Name:  entry[0],
			Value: entry[1],
		})
	}

	return state, nil
}

package browser

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wallarm/gotestflow/internal/poll"
	"github.com/wallarm/gotestflow/internal/session"
)

// LoginSelectors locate the sign-in form.
type LoginSelectors struct {
	Mail     string
	Password string
	Submit   string

	// Ready is displayed once the user is signed in.
	Ready string
}

type Credentials struct {
	Mail     string
	Password string
}

// Login signs in through the form on the base page and returns the
// resulting storage state.
func (b *Browser) Login(ctx context.Context, creds Credentials, sel LoginSelectors, opts poll.Options) (*session.StorageState, error) {
	if creds.Mail == "" || creds.Password == "" {
		return nil, errors.New("login mail and password are required")
	}

	if err := b.Navigate(ctx, "/"); err != nil {
		return nil, err
	}

	mail := b.Element(sel.Mail)
	password := b.Element(sel.Password)
	submit := b.Element(sel.Submit)

	for _, el := range []*Element{mail, password} {
		waitOpts := opts
		waitOpts.Name = "editable " + el.Selector()

		if err := poll.Wait(ctx, el.IsEnabled, waitOpts); err != nil {
			return nil, err
		}
	}

	if err := poll.UntilFilled(ctx, mail, creds.Mail, opts); err != nil {
		return nil, errors.Wrap(err, "couldn't fill login mail")
	}
	if err := poll.UntilFilled(ctx, password, creds.Password, opts); err != nil {
		return nil, errors.Wrap(err, "couldn't fill login password")
	}

	submitOpts := opts
	submitOpts.Name = "sign-in"

	// the form is submitted once
	err := poll.Wait(ctx, submit.IsEnabled, submitOpts)
	if err == nil {
		err = submit.Click(ctx)
	}
	if err == nil && sel.Ready != "" {
		readyOpts := opts
		readyOpts.Name = "signed-in marker " + sel.Ready
		err = poll.Wait(ctx, b.Element(sel.Ready).IsVisible, readyOpts)
	}
	if err != nil {
		return nil, errors.Wrap(err, "couldn't sign in")
	}

	state, err := b.StorageState(ctx)
	if err != nil {
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{
		"cookies": len(state.Cookies),
		"mail":    creds.Mail,
	}).Info("Signed in")

	return state, nil
}

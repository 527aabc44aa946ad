package browser

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os/exec"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wallarm/gotestflow/internal/poll"
	"github.com/wallarm/gotestflow/internal/session"
)

const testPage = `<!DOCTYPE html>
<html><head><title>prospects</title></head>
<body>
<form id="login">
  <input id="mail" type="email" disabled>
  <input id="password" type="password" disabled>
  <button id="signin" type="button" disabled>Sign in</button>
</form>
<div id="home" style="display:none">home</div>
<label><input id="agree" type="checkbox" checked></label>
<button id="open" disabled>open</button>
<div id="panel" style="display:none;width:40px;height:20px;background:#c00">panel</div>
<div id="balloon" style="position:fixed;top:0;left:0">tip</div>
<script>
setTimeout(() => {
  for (const id of ['mail', 'password', 'signin', 'open']) {
    document.getElementById(id).disabled = false;
  }
  sessionStorage.setItem('myCustomerId', '12345');
}, 100);
document.getElementById('open').addEventListener('click', () => {
  document.getElementById('panel').style.display = 'block';
});
document.getElementById('signin').addEventListener('click', () => {
  document.cookie = 'sid=' + document.getElementById('mail').value + '; path=/';
  localStorage.setItem('lang', 'ja');
  document.getElementById('home').style.display = 'block';
});
</script>
</body></html>`

func newTestBrowser(t *testing.T) (*Browser, *httptest.Server) {
	t.Helper()

	found := false
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("Chrome is not installed")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, testPage)
	}))
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	b, err := New(ctx, logger, srv.URL, Options{Headless: true, WindowWidth: 800, WindowHeight: 600})
	if err != nil {
		t.Skipf("couldn't start Chrome: %v", err)
	}
	t.Cleanup(b.Close)

	return b, srv
}

var testPoll = poll.Options{Interval: 50 * time.Millisecond, MaxAttempts: 40}

func TestElementConvergence(t *testing.T) {
	b, _ := newTestBrowser(t)
	ctx := context.Background()

	if err := b.Navigate(ctx, "/"); err != nil {
		t.Fatal(err)
	}

	agree := b.Element("#agree")
	if err := poll.UntilUnchecked(ctx, agree, testPoll); err != nil {
		t.Fatalf("couldn't uncheck: %v", err)
	}
	if checked, _ := agree.IsChecked(ctx); checked {
		t.Errorf("checkbox must be unchecked")
	}

	if err := poll.UntilVisible(ctx, b.Element("#open"), b.Element("#panel"), testPoll); err != nil {
		t.Fatalf("panel must become visible: %v", err)
	}

	shot, err := b.Element("#panel").Capture(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = png.Decode(bytes.NewReader(shot)); err != nil {
		t.Errorf("screenshot must be a PNG: %v", err)
	}

	if err = b.Hide(ctx, "#balloon", testPoll); err != nil {
		t.Fatal(err)
	}
	if visible, _ := b.Element("#balloon").IsVisible(ctx); visible {
		t.Errorf("balloon must be hidden")
	}
}

func TestLoginAndCustomerID(t *testing.T) {
	b, srv := newTestBrowser(t)
	ctx := context.Background()

	state, err := b.Login(ctx,
		Credentials{Mail: "qa@example.com", Password: "secret"},
		LoginSelectors{Mail: "#mail", Password: "#password", Submit: "#signin", Ready: "#home"},
		testPoll,
	)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	found := false
	for _, c := range state.Cookies {
		if c.Name == "sid" && c.Value == "qa@example.com" {
			found = true
		}
	}
	if !found {
		t.Errorf("session cookie must be captured: %+v", state.Cookies)
	}
	if v, ok := state.LocalStorage(srv.URL, "lang"); !ok || v != "ja" {
		t.Errorf("local storage must be captured: %+v", state.Origins)
	}

	source := &SessionStorageSource{Browser: b, Poll: testPoll}
	base, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	id, err := source.CustomerID(ctx, base, &session.StorageState{})
	if err != nil {
		t.Fatal(err)
	}
	if id != "12345" {
		t.Errorf("bad customer id: %q", id)
	}
}

func TestPrintPDF(t *testing.T) {
	b, _ := newTestBrowser(t)

	pdf, err := b.PrintPDF(context.Background(), []byte("<html><body><h1>report</h1></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output is not a PDF")
	}
}

func TestJSString(t *testing.T) {
	got := jsString(`a"b</script>`)
	if got != `"a\"b\u003c/script\u003e"` {
		t.Errorf("bad literal: %s", got)
	}
}

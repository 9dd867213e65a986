package session

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/naverpost/internal/driver"
	"github.com/ibeckermayer/naverpost/internal/naver"
)

// fakeDriver is a scripted in-memory browser that records every call.
type fakeDriver struct {
	current      string
	postLoginURL string

	missing     map[string]bool // selectors that never show up
	present     map[string]bool // selectors Exists reports
	visible     map[string]bool // selectors Interactable reports
	clickErr    map[string]error
	scriptClick map[string]bool
	panicOnType bool

	cookies []*network.Cookie

	events     []string
	typed      []string
	enters     int
	closeCalls int
}

var _ driver.Driver = (*fakeDriver)(nil)

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		postLoginURL: "https://blog.naver.com/PostList.naver",
		missing:      map[string]bool{},
		present:      map[string]bool{},
		visible:      map[string]bool{},
		clickErr:     map[string]error{},
		scriptClick:  map[string]bool{},
	}
}

func (f *fakeDriver) record(format string, args ...any) {
	f.events = append(f.events, fmt.Sprintf(format, args...))
}

func (f *fakeDriver) lookup(sel string) error {
	if f.missing[sel] {
		return fmt.Errorf("%w: %s", driver.ErrNotFound, sel)
	}
	return nil
}

func (f *fakeDriver) Navigate(_ context.Context, url string) error {
	f.record("navigate %s", url)
	f.current = url
	return nil
}

func (f *fakeDriver) Location(context.Context) (string, error) {
	return f.current, nil
}

func (f *fakeDriver) WaitPresent(_ context.Context, sel string, _ time.Duration) error {
	return f.lookup(sel)
}

func (f *fakeDriver) WaitClickable(_ context.Context, sel string, _ time.Duration) error {
	return f.lookup(sel)
}

func (f *fakeDriver) EnterFrame(_ context.Context, sel string, _ time.Duration) error {
	if err := f.lookup(sel); err != nil {
		return err
	}
	f.record("frame %s", sel)
	return nil
}

func (f *fakeDriver) Click(_ context.Context, sel string) error {
	if err := f.lookup(sel); err != nil {
		return err
	}
	if err := f.clickErr[sel]; err != nil {
		return err
	}
	f.record("click %s", sel)
	if sel == naver.LoginSubmitButton && f.postLoginURL != "" {
		f.current = f.postLoginURL
	}
	return nil
}

func (f *fakeDriver) Paste(context.Context) error {
	f.record("paste")
	return nil
}

func (f *fakeDriver) TypeText(_ context.Context, text string) error {
	if f.panicOnType {
		panic("renderer crashed")
	}
	f.typed = append(f.typed, text)
	f.record("type %s", text)
	return nil
}

func (f *fakeDriver) PressKey(_ context.Context, key driver.Key) error {
	if key == driver.KeyEnter {
		f.enters++
	}
	f.record("key %s", key)
	return nil
}

func (f *fakeDriver) SendKey(_ context.Context, sel string, key driver.Key) error {
	f.record("sendkey %s %s", sel, key)
	return nil
}

func (f *fakeDriver) Exists(_ context.Context, sel string) (bool, error) {
	return f.present[sel], nil
}

func (f *fakeDriver) Interactable(_ context.Context, sel string) (bool, error) {
	return f.visible[sel], nil
}

func (f *fakeDriver) ScriptClick(_ context.Context, sel string) (bool, error) {
	if f.scriptClick[sel] {
		f.record("scriptclick %s", sel)
		return true, nil
	}
	return false, nil
}

func (f *fakeDriver) Cookies(context.Context) ([]*network.Cookie, error) {
	return f.cookies, nil
}

func (f *fakeDriver) Screenshot(context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (f *fakeDriver) Close() error {
	f.closeCalls++
	return nil
}

func (f *fakeDriver) count(event string) int {
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

type fakeClipboard struct {
	writes []string
}

func (c *fakeClipboard) Write(text string) error {
	c.writes = append(c.writes, text)
	return nil
}

func (c *fakeClipboard) Clear() error {
	return c.Write("")
}

type fakeAck struct {
	calls       int
	closesAtAck int
	drv         *fakeDriver
}

func (a *fakeAck) Acknowledge(context.Context) error {
	a.calls++
	if a.drv != nil {
		a.closesAtAck = a.drv.closeCalls
	}
	return nil
}

type fakeCookieSink struct {
	saved []*network.Cookie
}

func (s *fakeCookieSink) Save(cookies []*network.Cookie) error {
	s.saved = cookies
	return nil
}

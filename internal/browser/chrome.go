package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/ibeckermayer/naverpost/internal/driver"
)

// Launcher starts a stealth-configured Chrome per posting session.
type Launcher struct {
	Headless  bool
	UserAgent string
	// ActionTimeout bounds actions that carry no explicit timeout of their own.
	ActionTimeout time.Duration
	Logger        *zap.Logger
}

// Launch starts Chrome, opens a tab and installs the webdriver-hiding script.
func (l *Launcher) Launch(ctx context.Context) (driver.Driver, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(l.Headless, l.UserAgent)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Warnf),
	)

	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriverJS).Do(ctx)
		return err
	}))
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	timeout := l.ActionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Chrome{
		tab:     tabCtx,
		timeout: timeout,
		logger:  logger.Named("chrome"),
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}, nil
}

// Chrome drives one chromedp tab.
type Chrome struct {
	tab     context.Context
	cancel  func()
	timeout time.Duration
	logger  *zap.Logger

	// Set by EnterFrame, cleared by Navigate.
	frameSel  string
	frameNode *cdp.Node

	closed bool
}

var _ driver.Driver = (*Chrome)(nil)

// run executes actions on the tab, bounded by timeout and cancelled with ctx.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if c.closed {
		return driver.ErrClosed
	}

	runCtx, cancel := context.WithTimeout(c.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// lookup is run for waits on sel; a deadline becomes ErrNotFound.
func (c *Chrome) lookup(ctx context.Context, sel string, timeout time.Duration, actions ...chromedp.Action) error {
	err := c.run(ctx, timeout, actions...)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %v", driver.ErrNotFound, sel, timeout)
	}
	return err
}

func (c *Chrome) query() []chromedp.QueryOption {
	opts := []chromedp.QueryOption{chromedp.ByQuery}
	if c.frameNode != nil {
		opts = append(opts, chromedp.FromNode(c.frameNode))
	}
	return opts
}

// doc is the JS expression for the document selectors resolve against.
func (c *Chrome) doc() string {
	if c.frameSel == "" {
		return "document"
	}
	return fmt.Sprintf("(function(f){ return f ? f.contentDocument : null; })(document.querySelector(%s))", jsString(c.frameSel))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.frameSel, c.frameNode = "", nil
	if err := c.run(ctx, c.timeout*3, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, c.timeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

func (c *Chrome) WaitPresent(ctx context.Context, sel string, timeout time.Duration) error {
	return c.lookup(ctx, sel, timeout, chromedp.WaitReady(sel, c.query()...))
}

func (c *Chrome) WaitClickable(ctx context.Context, sel string, timeout time.Duration) error {
	q := c.query()
	return c.lookup(ctx, sel, timeout,
		chromedp.WaitVisible(sel, q...),
		chromedp.WaitEnabled(sel, q...),
	)
}

func (c *Chrome) EnterFrame(ctx context.Context, sel string, timeout time.Duration) error {
	var nodes []*cdp.Node
	if err := c.lookup(ctx, sel, timeout, chromedp.Nodes(sel, &nodes, c.query()...)); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: %s", driver.ErrNotFound, sel)
	}

	var hasDoc bool
	js := fmt.Sprintf(`(function(f){ return !!(f && f.contentDocument); })(document.querySelector(%s))`, jsString(sel))
	if err := c.run(ctx, c.timeout, chromedp.Evaluate(js, &hasDoc)); err != nil {
		return fmt.Errorf("failed to inspect frame %s: %w", sel, err)
	}
	if !hasDoc {
		return fmt.Errorf("%w: %s", driver.ErrNoFrame, sel)
	}

	// Queries scope to the frame's own document when the tree exposes it.
	scope := nodes[0]
	if scope.ContentDocument != nil {
		scope = scope.ContentDocument
	}
	c.frameSel, c.frameNode = sel, scope
	c.logger.Debug("entered frame", zap.String("selector", sel))
	return nil
}

func (c *Chrome) Click(ctx context.Context, sel string) error {
	return c.lookup(ctx, sel, c.timeout, chromedp.Click(sel, c.query()...))
}

// pasteModifier is the platform's paste chord modifier.
func pasteModifier() input.Modifier {
	if runtime.GOOS == "darwin" {
		return input.ModifierMeta
	}
	return input.ModifierCtrl
}

func (c *Chrome) Paste(ctx context.Context) error {
	mod := pasteModifier()
	return c.run(ctx, c.timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		down := input.DispatchKeyEvent(input.KeyDown).
			WithKey("v").
			WithCode("KeyV").
			WithWindowsVirtualKeyCode(86).
			WithModifiers(mod).
			WithCommands([]string{"paste"})
		if err := down.Do(ctx); err != nil {
			return err
		}
		return input.DispatchKeyEvent(input.KeyUp).
			WithKey("v").
			WithCode("KeyV").
			WithWindowsVirtualKeyCode(86).
			WithModifiers(mod).
			Do(ctx)
	}))
}

func (c *Chrome) TypeText(ctx context.Context, text string) error {
	return c.run(ctx, c.timeout, chromedp.KeyEvent(text))
}

func keyString(k driver.Key) (string, error) {
	switch k {
	case driver.KeyEnter:
		return kb.Enter, nil
	case driver.KeyEscape:
		return kb.Escape, nil
	default:
		return "", fmt.Errorf("unsupported key %q", k)
	}
}

func (c *Chrome) PressKey(ctx context.Context, key driver.Key) error {
	s, err := keyString(key)
	if err != nil {
		return err
	}
	return c.run(ctx, c.timeout, chromedp.KeyEvent(s))
}

func (c *Chrome) SendKey(ctx context.Context, sel string, key driver.Key) error {
	s, err := keyString(key)
	if err != nil {
		return err
	}
	return c.lookup(ctx, sel, c.timeout, chromedp.SendKeys(sel, s, c.query()...))
}

func (c *Chrome) Exists(ctx context.Context, sel string) (bool, error) {
	var ok bool
	js := fmt.Sprintf(`(function(d){ return !!d && d.querySelector(%s) !== null; })(%s)`, jsString(sel), c.doc())
	if err := c.run(ctx, c.timeout, chromedp.Evaluate(js, &ok)); err != nil {
		return false, fmt.Errorf("failed to query %s: %w", sel, err)
	}
	return ok, nil
}

func (c *Chrome) Interactable(ctx context.Context, sel string) (bool, error) {
	var ok bool
	js := fmt.Sprintf(`(function(d){
		const el = d && d.querySelector(%s);
		if (!el) return false;
		const style = d.defaultView.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		const shown = style.display !== 'none' && style.visibility !== 'hidden' && rect.width > 0 && rect.height > 0;
		return shown && !el.disabled;
	})(%s)`, jsString(sel), c.doc())
	if err := c.run(ctx, c.timeout, chromedp.Evaluate(js, &ok)); err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", sel, err)
	}
	return ok, nil
}

func (c *Chrome) ScriptClick(ctx context.Context, sel string) (bool, error) {
	var clicked bool
	js := fmt.Sprintf(`(function(d){
		const el = d && d.querySelector(%s);
		if (el && el.offsetParent !== null) {
			el.click();
			return true;
		}
		return false;
	})(%s)`, jsString(sel), c.doc())
	if err := c.run(ctx, c.timeout, chromedp.Evaluate(js, &clicked)); err != nil {
		return false, fmt.Errorf("failed to script-click %s: %w", sel, err)
	}
	return clicked, nil
}

func (c *Chrome) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := c.run(ctx, c.timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	return cookies, nil
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := c.run(ctx, c.timeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the tab and the browser process down.
func (c *Chrome) Close() error {
	if c.closed {
		return driver.ErrClosed
	}
	c.closed = true
	c.cancel()
	c.logger.Debug("browser closed")
	return nil
}

// Package session drives one end-to-end posting attempt: sign in, open the
// blog editor, fill the title and body, save.
//
// Every step converts its failure into a false return after logging it, so
// callers chain steps with && and the first failure short-circuits the rest.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ibeckermayer/naverpost/internal/config"
	"github.com/ibeckermayer/naverpost/internal/driver"
	"github.com/ibeckermayer/naverpost/internal/naver"
	"github.com/ibeckermayer/naverpost/internal/pacing"
	"github.com/ibeckermayer/naverpost/internal/types"
)

// Clipboard receives text that is then pasted into a focused field.
type Clipboard interface {
	Write(text string) error
	Clear() error
}

// Acknowledger blocks until an operator has looked at the browser.
type Acknowledger interface {
	Acknowledge(ctx context.Context) error
}

// CookieSink persists the cookies of a signed-in browser.
type CookieSink interface {
	Save(cookies []*network.Cookie) error
}

// Credentials for the Naver account.
type Credentials struct {
	ID       string
	Password string
}

// Options configures a Session. Launcher, Clipboard and Pacer are required.
type Options struct {
	Launcher    driver.Launcher
	Clipboard   Clipboard
	Pacer       pacing.Pacer
	Credentials Credentials
	Timing      config.TimingConfig

	// Optional.
	Ack                 Acknowledger
	Cookies             CookieSink
	ScreenshotOnFailure bool
	Logger              *zap.Logger
}

// Session owns the browser for the duration of one run.
type Session struct {
	launcher driver.Launcher
	clip     Clipboard
	pacer    pacing.Pacer
	creds    Credentials
	timing   config.TimingConfig
	ack      Acknowledger
	cookies  CookieSink
	shoot    bool
	logger   *zap.Logger

	drv      driver.Driver
	report   *types.RunReport
	progress *rate.Sometimes
	typed    int
}

// New creates a session. Nothing is launched until AcquireDriver or Run.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		launcher: opts.Launcher,
		clip:     opts.Clipboard,
		pacer:    opts.Pacer,
		creds:    opts.Credentials,
		timing:   opts.Timing,
		ack:      opts.Ack,
		cookies:  opts.Cookies,
		shoot:    opts.ScreenshotOnFailure,
		logger:   logger.Named("session"),
		progress: &rate.Sometimes{Interval: 2 * time.Second},
	}
}

// Report returns the report of the current or last run.
func (s *Session) Report() *types.RunReport {
	return s.currentReport()
}

func (s *Session) currentReport() *types.RunReport {
	if s.report == nil {
		s.report = &types.RunReport{ID: ulid.Make().String(), StartedAt: time.Now()}
	}
	return s.report
}

// step runs fn as the named step, recording and logging its outcome.
// Panics inside fn count as failures.
func (s *Session) step(ctx context.Context, name types.StepName, required bool, fn func(ctx context.Context) error) (ok bool) {
	log := s.logger.With(zap.String("step", string(name)))
	start := time.Now()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		ok = err == nil

		res := types.StepResult{Step: name, OK: ok, StartedAt: start, Duration: time.Since(start)}
		report := s.currentReport()
		if !ok {
			res.Error = err.Error()
			log.Error("step failed", zap.Error(err), zap.Duration("elapsed", res.Duration))
			if required && report.FailedStep == "" {
				report.FailedStep = name
			}
		} else {
			log.Info("step done", zap.Duration("elapsed", res.Duration))
		}
		report.Steps = append(report.Steps, res)
	}()

	log.Info("step starting")
	err = fn(ctx)
	return err == nil
}

func (s *Session) settle(ctx context.Context, d config.Duration) error {
	return pacing.Sleep(ctx, d.Duration)
}

var errNoDriver = errors.New("browser is not running")

func (s *Session) active() (driver.Driver, error) {
	if s.drv == nil {
		return nil, errNoDriver
	}
	return s.drv, nil
}

// AcquireDriver launches the browser with its anti-automation settings.
func (s *Session) AcquireDriver(ctx context.Context) bool {
	return s.step(ctx, types.StepAcquireDriver, true, func(ctx context.Context) error {
		if s.drv != nil {
			return nil
		}
		d, err := s.launcher.Launch(ctx)
		if err != nil {
			return err
		}
		s.drv = d
		return nil
	})
}

// SignedIn reports whether rawURL is a Naver page other than the login form.
// This URL check is the only sign-in criterion; a wrong password simply
// leaves the browser on the login page.
func SignedIn(rawURL string) bool {
	return signedIn(rawURL, naver.SiteDomain, naver.LoginPathToken)
}

func signedIn(rawURL, domain, loginToken string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return false
	}
	return !strings.Contains(rawURL, loginToken)
}

// SignIn fills the login form by clipboard paste and submits it.
func (s *Session) SignIn(ctx context.Context, id, password string) bool {
	return s.step(ctx, types.StepSignIn, true, func(ctx context.Context) error {
		d, err := s.active()
		if err != nil {
			return err
		}

		if err := d.Navigate(ctx, naver.LoginURL); err != nil {
			return err
		}
		if err := s.settle(ctx, s.timing.LoginPageSettle); err != nil {
			return err
		}

		s.logger.Info("entering id")
		if err := s.pasteInto(ctx, d, naver.LoginIDInput, id); err != nil {
			return fmt.Errorf("id field: %w", err)
		}
		s.logger.Info("entering password")
		if err := s.pasteInto(ctx, d, naver.LoginPasswordInput, password); err != nil {
			return fmt.Errorf("password field: %w", err)
		}
		if err := s.clip.Clear(); err != nil {
			s.logger.Debug("could not clear clipboard", zap.Error(err))
		}

		s.logger.Info("submitting login form")
		if err := s.clickWhenReady(ctx, d, naver.LoginSubmitButton); err != nil {
			return err
		}
		if err := s.settle(ctx, s.timing.LoginSettle); err != nil {
			return err
		}

		current, err := d.Location(ctx)
		if err != nil {
			return err
		}
		s.currentReport().FinalURL = current
		if !SignedIn(current) {
			return fmt.Errorf("still on %s after submitting; check the account credentials", current)
		}

		s.captureCookies(ctx, d)
		return nil
	})
}

func (s *Session) pasteInto(ctx context.Context, d driver.Driver, sel, value string) error {
	if err := s.clickWhenReady(ctx, d, sel); err != nil {
		return err
	}
	if err := s.settle(ctx, s.timing.FieldClickSettle); err != nil {
		return err
	}
	if err := s.clip.Write(value); err != nil {
		return err
	}
	if err := d.Paste(ctx); err != nil {
		return err
	}
	return s.settle(ctx, s.timing.PasteSettle)
}

func (s *Session) clickWhenReady(ctx context.Context, d driver.Driver, sel string) error {
	if err := d.WaitClickable(ctx, sel, s.timing.WaitTimeout.Duration); err != nil {
		return err
	}
	return d.Click(ctx, sel)
}

// captureCookies hands the session cookies to the sink; failure is only logged.
func (s *Session) captureCookies(ctx context.Context, d driver.Driver) {
	if s.cookies == nil {
		return
	}
	cookies, err := d.Cookies(ctx)
	if err == nil {
		err = s.cookies.Save(cookies)
	}
	if err != nil {
		s.logger.Warn("could not store session cookies", zap.Error(err))
		return
	}
	s.logger.Debug("stored session cookies", zap.Int("count", len(cookies)))
}

// NavigateToEditor opens the blog authoring page.
func (s *Session) NavigateToEditor(ctx context.Context) bool {
	return s.step(ctx, types.StepNavigateToEditor, true, func(ctx context.Context) error {
		d, err := s.active()
		if err != nil {
			return err
		}
		if err := s.settle(ctx, s.timing.EditorPreSettle); err != nil {
			return err
		}
		if err := d.Navigate(ctx, naver.BlogWriteURL); err != nil {
			return err
		}
		if err := s.settle(ctx, s.timing.EditorSettle); err != nil {
			return err
		}
		if current, err := d.Location(ctx); err == nil {
			s.currentReport().FinalURL = current
			s.logger.Info("editor page loaded", zap.String("url", current))
		}
		return nil
	})
}

// EnterEditorFrame moves focus into the iframe hosting the editor controls.
func (s *Session) EnterEditorFrame(ctx context.Context) bool {
	return s.step(ctx, types.StepEnterEditorFrame, true, func(ctx context.Context) error {
		d, err := s.active()
		if err != nil {
			return err
		}
		if err := d.EnterFrame(ctx, naver.EditorFrame, s.timing.WaitTimeout.Duration); err != nil {
			return err
		}
		return s.settle(ctx, s.timing.FrameSettle)
	})
}

// DismissOverlay closes the first popup it can find, then presses Escape.
// It always succeeds: nothing to close is the normal case.
func (s *Session) DismissOverlay(ctx context.Context) bool {
	return s.step(ctx, types.StepDismissOverlay, false, func(ctx context.Context) error {
		d, err := s.active()
		if err != nil {
			s.logger.Info("no browser to dismiss overlays in")
			return nil
		}

		if sel, ok := s.closeFirstOverlay(ctx, d); ok {
			s.logger.Info("closed overlay", zap.String("selector", sel))
			_ = s.settle(ctx, s.timing.OverlaySettle)
		} else {
			s.logger.Info("no overlay to close")
		}

		if err := d.SendKey(ctx, naver.PageBody, driver.KeyEscape); err != nil {
			s.logger.Debug("escape key not delivered", zap.Error(err))
		} else {
			_ = s.settle(ctx, s.timing.OverlaySettle)
		}
		return nil
	})
}

func (s *Session) closeFirstOverlay(ctx context.Context, d driver.Driver) (string, bool) {
	for _, sel := range naver.OverlayCloseCandidates {
		if ctx.Err() != nil {
			return "", false
		}
		exists, err := d.Exists(ctx, sel)
		if err != nil || !exists {
			continue
		}

		visible, err := d.Interactable(ctx, sel)
		if err != nil || !visible {
			continue
		}
		if err := d.Click(ctx, sel); err == nil {
			return sel, true
		}

		// The native click was intercepted; try from page script.
		clicked, serr := d.ScriptClick(ctx, sel)
		if serr == nil && clicked {
			return sel, true
		}
	}
	return "", false
}

// typeText emits text one rune at a time, pacing after each.
func (s *Session) typeText(ctx context.Context, d driver.Driver, text string) error {
	for _, r := range text {
		if err := d.TypeText(ctx, string(r)); err != nil {
			return err
		}
		s.typed++
		s.progress.Do(func() {
			s.logger.Debug("typing", zap.Int("characters", s.typed))
		})
		if err := s.pacer.Pause(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) focusField(ctx context.Context, d driver.Driver, sel string) error {
	if err := s.clickWhenReady(ctx, d, sel); err != nil {
		return err
	}
	return s.settle(ctx, s.timing.FieldFocusSettle)
}

// EnterTitle types the post title into the title section.
func (s *Session) EnterTitle(ctx context.Context, text string) bool {
	return s.step(ctx, types.StepEnterTitle, true, func(ctx context.Context) error {
		d, err := s.active()
		if err != nil {
			return err
		}
		if err := s.focusField(ctx, d, naver.TitleSection); err != nil {
			return err
		}
		if err := s.typeText(ctx, d, text); err != nil {
			return err
		}
		s.logger.Info("title entered", zap.String("title", text))
		return nil
	})
}

// EnterBody types text lines times into the body, one Enter between lines.
func (s *Session) EnterBody(ctx context.Context, text string, lines int) bool {
	return s.step(ctx, types.StepEnterBody, true, func(ctx context.Context) error {
		d, err := s.active()
		if err != nil {
			return err
		}
		if err := s.focusField(ctx, d, naver.BodySection); err != nil {
			return err
		}
		for line := 0; line < lines; line++ {
			if err := s.typeText(ctx, d, text); err != nil {
				return fmt.Errorf("line %d: %w", line+1, err)
			}
			if line == lines-1 {
				break
			}
			if err := d.PressKey(ctx, driver.KeyEnter); err != nil {
				return fmt.Errorf("line break after line %d: %w", line+1, err)
			}
			if err := s.pacer.Pause(ctx); err != nil {
				return err
			}
		}
		s.logger.Info("body entered", zap.Int("lines", lines))
		return nil
	})
}

// Save clicks the editor's save button.
func (s *Session) Save(ctx context.Context) bool {
	return s.step(ctx, types.StepSave, true, func(ctx context.Context) error {
		d, err := s.active()
		if err != nil {
			return err
		}
		if err := s.clickWhenReady(ctx, d, naver.SaveButton); err != nil {
			return err
		}
		return s.settle(ctx, s.timing.SaveSettle)
	})
}

// RunFullPost fills and saves the draft on an already loaded editor page.
// Overlay dismissal is attempted but never blocks the post.
func (s *Session) RunFullPost(ctx context.Context, draft types.Draft) bool {
	s.logger.Info("writing post", zap.String("title", draft.Title))

	if !s.EnterEditorFrame(ctx) {
		return false
	}
	s.DismissOverlay(ctx)

	ok := s.EnterTitle(ctx, draft.Title) &&
		s.EnterBody(ctx, draft.Body, draft.Lines) &&
		s.Save(ctx)
	if ok {
		s.logger.Info("post saved")
	}
	return ok
}

// Run performs the whole posting attempt and always releases the browser.
// It waits for the acknowledger before closing, whether or not the post
// succeeded and even when no browser could be started.
func (s *Session) Run(ctx context.Context, draft types.Draft) *types.RunReport {
	s.report = &types.RunReport{
		ID:        ulid.Make().String(),
		Title:     draft.Title,
		StartedAt: time.Now(),
	}
	report := s.report
	log := s.logger.With(zap.String("run", report.ID))
	log.Info("posting run starting")

	defer func() {
		s.release(log)
		report.FinishedAt = time.Now()
	}()

	ok := s.AcquireDriver(ctx) &&
		s.SignIn(ctx, s.creds.ID, s.creds.Password) &&
		s.NavigateToEditor(ctx) &&
		s.RunFullPost(ctx, draft)
	report.Success = ok

	if ok {
		log.Info("posting run succeeded")
	} else {
		log.Error("posting run failed", zap.String("failed_step", string(report.FailedStep)))
		s.screenshot(log)
	}

	if s.ack != nil {
		if err := s.ack.Acknowledge(ctx); err != nil {
			log.Warn("acknowledgment interrupted", zap.Error(err))
		}
	}
	return report
}

// screenshot keeps an image of a failed page. It uses a fresh context so a
// cancelled run can still be captured.
func (s *Session) screenshot(log *zap.Logger) {
	if !s.shoot || s.drv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timing.WaitTimeout.Duration)
	defer cancel()
	buf, err := s.drv.Screenshot(ctx)
	if err != nil {
		log.Warn("could not capture failure screenshot", zap.Error(err))
		return
	}
	s.report.Screenshot = buf
}

func (s *Session) release(log *zap.Logger) {
	if s.drv == nil {
		return
	}
	if err := s.drv.Close(); err != nil {
		log.Warn("closing browser", zap.Error(err))
	}
	s.drv = nil
	log.Info("browser closed")
}

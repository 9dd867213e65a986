package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/ibeckermayer/naverpost/internal/auth"
	chrome "github.com/ibeckermayer/naverpost/internal/browser"
	"github.com/ibeckermayer/naverpost/internal/clipboard"
	"github.com/ibeckermayer/naverpost/internal/config"
	"github.com/ibeckermayer/naverpost/internal/driver"
	"github.com/ibeckermayer/naverpost/internal/notifier"
	"github.com/ibeckermayer/naverpost/internal/pacing"
	"github.com/ibeckermayer/naverpost/internal/report"
	"github.com/ibeckermayer/naverpost/internal/scheduler"
	"github.com/ibeckermayer/naverpost/internal/session"
	"github.com/ibeckermayer/naverpost/internal/store"
	"github.com/ibeckermayer/naverpost/internal/types"
)

// ReportSender mails a rendered report.
type ReportSender interface {
	SendReport(r *report.Report) error
}

// Deps are the collaborators of an App. Nil optional fields disable the
// matching feature.
type Deps struct {
	Launcher  driver.Launcher
	Clipboard session.Clipboard
	Auth      *auth.Manager
	Store     *store.Store
	Cache     *store.Cache
	Notifier  ReportSender
	Logger    *zap.Logger
}

// App holds the application state.
type App struct {
	config  *config.Config
	deps    Deps
	logger  *zap.Logger
	reports *report.Builder
}

// New creates a new App instance.
func New(cfg *config.Config, deps Deps) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Schedule.Timezone, err)
	}
	builder, err := report.New(loc)
	if err != nil {
		return nil, err
	}

	return &App{
		config:  cfg,
		deps:    deps,
		logger:  logger.Named("app"),
		reports: builder,
	}, nil
}

// NewFromConfig wires the production collaborators: Chrome, the system
// clipboard, the cookie file, the run history database and SMTP.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := Deps{
		Launcher: &chrome.Launcher{
			Headless:      cfg.Browser.Headless,
			UserAgent:     cfg.Browser.UserAgent,
			ActionTimeout: cfg.Timing.WaitTimeout.Duration,
			Logger:        logger,
		},
		Clipboard: clipboard.System{},
		Logger:    logger,
	}

	if cfg.Browser.SaveCookies {
		path, err := auth.DefaultCookieStorePath()
		if err != nil {
			return nil, fmt.Errorf("failed to get cookie store path: %w", err)
		}
		deps.Auth = auth.NewManager(auth.NewCookieStore(path), logger)
	}

	dbPath, err := store.DefaultPath()
	if err != nil {
		return nil, err
	}
	st, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	deps.Store = st

	cache, err := store.DefaultCache()
	if err != nil {
		st.Close()
		return nil, err
	}
	deps.Cache = cache

	if cfg.Email.Enabled {
		n, err := notifier.NewFromConfig(cfg.Email)
		if err != nil {
			st.Close()
			return nil, err
		}
		deps.Notifier = n
	}

	return New(cfg, deps)
}

// Close releases the run history database.
func (a *App) Close() error {
	if a.deps.Store == nil {
		return nil
	}
	return a.deps.Store.Close()
}

func (a *App) newSession(ack session.Acknowledger) (*session.Session, error) {
	pacer, err := pacing.New(a.config.Pacing.Strategy, a.config.Pacing.Min.Duration, a.config.Pacing.Max.Duration)
	if err != nil {
		return nil, fmt.Errorf("invalid pacing: %w", err)
	}

	opts := session.Options{
		Launcher:  a.deps.Launcher,
		Clipboard: a.deps.Clipboard,
		Pacer:     pacer,
		Credentials: session.Credentials{
			ID:       a.config.Account.ID,
			Password: a.config.Account.Password,
		},
		Timing:              a.config.Timing,
		Ack:                 ack,
		ScreenshotOnFailure: a.config.Browser.ScreenshotOn,
		Logger:              a.logger,
	}
	// A nil *auth.Manager inside the interface would not compare equal to nil.
	if a.deps.Auth != nil {
		opts.Cookies = a.deps.Auth
	}
	return session.New(opts), nil
}

// PostOnce runs one posting session and records its outcome. ack may be nil
// for unattended runs. Only setup errors are returned; a failed run is
// reported through the RunReport.
func (a *App) PostOnce(ctx context.Context, ack session.Acknowledger) (*types.RunReport, error) {
	sess, err := a.newSession(ack)
	if err != nil {
		return nil, err
	}

	r := sess.Run(ctx, a.config.Draft)
	a.record(r)
	return r, nil
}

// record persists and announces a finished run. Failures here are logged
// and never change the run outcome.
func (a *App) record(r *types.RunReport) {
	log := a.logger.With(zap.String("run", r.ID))

	if a.deps.Store != nil {
		if err := a.deps.Store.SaveRun(r); err != nil {
			log.Warn("failed to save run history", zap.Error(err))
		}
	}

	if a.deps.Cache != nil {
		if !r.Success && len(r.Screenshot) > 0 {
			if path, err := a.deps.Cache.SaveBytes(store.KindScreenshots, r.ID, r.Screenshot, ".png"); err != nil {
				log.Warn("failed to save screenshot", zap.Error(err))
			} else {
				log.Info("saved failure screenshot", zap.String("path", path))
			}
		}
		if _, err := store.SaveJSON(a.deps.Cache, store.KindReports, r.ID, r); err != nil {
			log.Warn("failed to cache report", zap.Error(err))
		}
	}

	rendered, err := a.reports.Build(r)
	if err != nil {
		log.Warn("failed to render report", zap.Error(err))
		return
	}

	if a.deps.Cache != nil {
		if path, err := a.deps.Cache.SaveBytes(store.KindReports, r.ID, []byte(rendered.HTMLBody), ".html"); err != nil {
			log.Warn("failed to cache rendered report", zap.Error(err))
		} else {
			log.Info("report saved", zap.String("path", path))
		}
	}

	if a.deps.Notifier != nil {
		if err := a.deps.Notifier.SendReport(rendered); err != nil {
			log.Warn("failed to email report", zap.Error(err))
		} else {
			log.Info("report emailed")
		}
	}
}

// Schedule posts on the configured cron schedule until ctx is done.
func (a *App) Schedule(ctx context.Context) error {
	sched, err := scheduler.New(a.config.Schedule.Timezone, a.logger)
	if err != nil {
		return err
	}

	err = sched.AddPostJob(a.config.Schedule.Cron, func(ctx context.Context) error {
		r, err := a.PostOnce(ctx, nil)
		if err != nil {
			return err
		}
		if !r.Success {
			return fmt.Errorf("run %s failed at %s", r.ID, r.FailedStep)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sched.Run(ctx)
	return nil
}

// History returns the most recent runs, newest first.
func (a *App) History(limit int) ([]store.RunSummary, error) {
	if a.deps.Store == nil {
		return nil, fmt.Errorf("run history is not available")
	}
	return a.deps.Store.RecentRuns(limit)
}

// ViewLastReport opens the most recent rendered report.
func (a *App) ViewLastReport() error {
	if a.deps.Cache == nil {
		return fmt.Errorf("report cache is not available")
	}
	path, err := a.deps.Cache.Latest(store.KindReports, ".html")
	if err != nil {
		return err
	}

	a.logger.Info("opening report", zap.String("path", path))
	return browser.OpenFile(path)
}

// Command nbp is a dev CLI for naverpost maintenance and debugging tasks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/ibeckermayer/naverpost/internal/app"
	"github.com/ibeckermayer/naverpost/internal/auth"
	chrome "github.com/ibeckermayer/naverpost/internal/browser"
	"github.com/ibeckermayer/naverpost/internal/config"
	"github.com/ibeckermayer/naverpost/internal/logging"
	"github.com/ibeckermayer/naverpost/internal/session"
)

const botTestURL = "https://bot.sannysoft.com"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logger, err := logging.New(os.Getenv("NAVERPOST_DEBUG") != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "post":
		err = runPost(ctx, logger, args)
	case "schedule":
		err = runSchedule(ctx, logger)
	case "history":
		err = runHistory(logger, args)
	case "report":
		err = runReport(logger)
	case "bot-test":
		err = runBotTest(ctx, logger)
	case "status":
		err = runStatus(logger)
	case "logout":
		err = runLogout(logger)
	case "open":
		if len(args) < 1 {
			fmt.Println("Usage: nbp open <config|cache>")
			os.Exit(1)
		}
		err = runOpen(args[0])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error(os.Args[1]+" failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: nbp <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  post [-title T] [-body B] [-lines N]   Write and save one post")
	fmt.Println("  schedule                               Post on the configured cron schedule")
	fmt.Println("  history [-n N]                         List recent runs")
	fmt.Println("  report                                 Open the latest run report")
	fmt.Println("  bot-test                               Open bot.sannysoft.com to audit browser fingerprint")
	fmt.Println("  status                                 Show the stored Naver session")
	fmt.Println("  logout                                 Delete stored Naver cookies")
	fmt.Println("  open config                            Open config file in default editor")
	fmt.Println("  open cache                             Open cache directory in file explorer")
}

func loadConfig(logger *zap.Logger) (*config.Config, error) {
	cfg, created, err := config.LoadOrCreate()
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if created {
		path, _ := config.ConfigPath()
		logger.Info("created default config", zap.String("path", path))
	}
	return cfg, nil
}

func newApp(logger *zap.Logger, cfg *config.Config) (*app.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.NewFromConfig(cfg, logger)
}

func runPost(ctx context.Context, logger *zap.Logger, args []string) error {
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("post", flag.ExitOnError)
	title := fs.String("title", cfg.Draft.Title, "post title")
	body := fs.String("body", cfg.Draft.Body, "text typed on every body line")
	lines := fs.Int("lines", cfg.Draft.Lines, "number of body lines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Draft.Title, cfg.Draft.Body, cfg.Draft.Lines = *title, *body, *lines

	a, err := newApp(logger, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.PostOnce(ctx, session.PromptAck{In: os.Stdin, Out: os.Stdout})
	if err != nil {
		return err
	}
	if r.Success {
		logger.Info("post saved", zap.String("run", r.ID))
	} else {
		logger.Warn("post not saved", zap.String("run", r.ID), zap.String("failed_step", string(r.FailedStep)))
	}
	return nil
}

func runSchedule(ctx context.Context, logger *zap.Logger) error {
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	a, err := newApp(logger, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Schedule(ctx)
}

func runHistory(logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	n := fs.Int("n", 10, "number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	a, err := app.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.History(*n)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tTOOK\tRESULT\tTITLE")
	for _, r := range runs {
		result := "saved"
		if !r.Success {
			result = "failed: " + string(r.FailedStep)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Duration().Round(time.Second), result, r.Title)
	}
	return w.Flush()
}

func runReport(logger *zap.Logger) error {
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	a, err := app.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.ViewLastReport()
}

func runBotTest(ctx context.Context, logger *zap.Logger) error {
	logger.Info("opening fingerprint audit with stealth browser options", zap.String("url", botTestURL))

	// non-headless so you can see it
	launcher := &chrome.Launcher{Headless: false, Logger: logger}
	drv, err := launcher.Launch(ctx)
	if err != nil {
		return err
	}
	defer drv.Close()

	if err := drv.Navigate(ctx, botTestURL); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	if err := (session.PromptAck{In: os.Stdin, Out: os.Stdout}).Acknowledge(ctx); err != nil {
		return err
	}
	logger.Info("done")
	return nil
}

func cookieManager(logger *zap.Logger) (*auth.Manager, error) {
	path, err := auth.DefaultCookieStorePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get cookie store path: %w", err)
	}
	return auth.NewManager(auth.NewCookieStore(path), logger), nil
}

func runStatus(logger *zap.Logger) error {
	m, err := cookieManager(logger)
	if err != nil {
		return err
	}
	fmt.Println("Naver session:", m.Status())
	return nil
}

func runLogout(logger *zap.Logger) error {
	m, err := cookieManager(logger)
	if err != nil {
		return err
	}
	if err := m.Logout(); err != nil {
		return err
	}
	logger.Info("stored cookies cleared")
	return nil
}

func runOpen(target string) error {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "cache":
		path, err = config.CacheDir()
	default:
		return fmt.Errorf("unknown target: %s", target)
	}

	if err != nil {
		return fmt.Errorf("failed to get path: %w", err)
	}

	return browser.OpenFile(path)
}

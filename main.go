// Command naverpost signs in to Naver, writes one blog post draft and saves
// it, then waits for Enter before closing the browser.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ibeckermayer/naverpost/internal/app"
	"github.com/ibeckermayer/naverpost/internal/config"
	"github.com/ibeckermayer/naverpost/internal/logging"
	"github.com/ibeckermayer/naverpost/internal/session"
)

func main() {
	logger, err := logging.New(os.Getenv("NAVERPOST_DEBUG") != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return
	}
	defer logger.Sync()

	// Load or create configuration
	cfg, created, err := config.LoadOrCreate()
	if err != nil {
		logger.Warn("could not load config, using defaults", zap.Error(err))
		cfg = config.Default()
		cfg.ApplyEnv()
	} else if created {
		path, _ := config.ConfigPath()
		logger.Info("created default config", zap.String("path", path))
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error("setup failed", zap.Error(err))
		return
	}
	defer a.Close()

	logger.Info("naverpost starting", zap.String("title", cfg.Draft.Title))

	r, err := a.PostOnce(ctx, session.PromptAck{In: os.Stdin, Out: os.Stdout})
	if err != nil {
		logger.Error("posting run could not start", zap.Error(err))
		return
	}

	// The exit status stays 0 whatever the outcome; the report carries it.
	if r.Success {
		logger.Info("post saved", zap.String("run", r.ID), zap.Duration("took", r.Duration()))
	} else {
		logger.Warn("post not saved", zap.String("run", r.ID), zap.String("failed_step", string(r.FailedStep)))
	}
}

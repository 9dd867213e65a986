package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ibeckermayer/naverpost/internal/config"
	"github.com/ibeckermayer/naverpost/internal/driver"
	"github.com/ibeckermayer/naverpost/internal/report"
	"github.com/ibeckermayer/naverpost/internal/store"
	"github.com/ibeckermayer/naverpost/internal/types"
)

type recordingSender struct {
	sent []*report.Report
	err  error
}

func (s *recordingSender) SendReport(r *report.Report) error {
	s.sent = append(s.sent, r)
	return s.err
}

type nopClipboard struct{}

func (nopClipboard) Write(string) error { return nil }
func (nopClipboard) Clear() error       { return nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Account.ID = "writer"
	cfg.Account.Password = "secret"
	cfg.Schedule.Timezone = "UTC"
	cfg.Pacing.Strategy = "none"
	return cfg
}

func failingLauncher(err error) driver.Launcher {
	return driver.LauncherFunc(func(context.Context) (driver.Driver, error) {
		return nil, err
	})
}

func newTestApp(t *testing.T, cfg *config.Config, sender ReportSender) (*App, *store.Store, *store.Cache) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.New(filepath.Join(dir, "naverpost.db"))
	require.NoError(t, err)
	cache := store.NewCache(dir)

	a, err := New(cfg, Deps{
		Launcher:  failingLauncher(errors.New("chrome not installed")),
		Clipboard: nopClipboard{},
		Store:     st,
		Cache:     cache,
		Notifier:  sender,
		Logger:    zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, st, cache
}

func TestPostOnceRecordsFailedRun(t *testing.T) {
	sender := &recordingSender{}
	a, st, cache := newTestApp(t, testConfig(), sender)

	r, err := a.PostOnce(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, types.StepAcquireDriver, r.FailedStep)

	saved, err := st.GetRun(r.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StepAcquireDriver, saved.FailedStep)
	require.Len(t, saved.Steps, 1)

	jsonPath, err := cache.Latest(store.KindReports, ".json")
	require.NoError(t, err)
	cached, err := store.LoadJSON[types.RunReport](jsonPath)
	require.NoError(t, err)
	assert.Equal(t, r.ID, cached.ID)

	_, err = cache.Latest(store.KindReports, ".html")
	assert.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, r.ID, sender.sent[0].RunID)
	assert.Contains(t, sender.sent[0].Subject, "failed at acquire_driver")
}

func TestPostOnceIgnoresNotifierErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	a, _, _ := newTestApp(t, testConfig(), sender)

	r, err := a.PostOnce(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, r)
	assert.Len(t, sender.sent, 1)
}

func TestPostOnceRejectsBadPacing(t *testing.T) {
	cfg := testConfig()
	cfg.Pacing.Strategy = "sloth"
	a, _, _ := newTestApp(t, cfg, nil)

	_, err := a.PostOnce(context.Background(), nil)
	assert.ErrorContains(t, err, "invalid pacing")
}

func TestHistory(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig(), nil)

	for range 3 {
		_, err := a.PostOnce(context.Background(), nil)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	runs, err := a.History(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}

func TestScheduleRejectsBadCron(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule.Cron = "whenever"
	a, _, _ := newTestApp(t, cfg, nil)

	assert.Error(t, a.Schedule(context.Background()))
}

func TestNewRejectsBadTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule.Timezone = "Nowhere/Special"
	_, err := New(cfg, Deps{})
	assert.Error(t, err)
}

package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"
)

// Manager tracks the Naver session captured by posting runs
type Manager struct {
	cookieStore *CookieStore
	logger      *zap.Logger
}

// NewManager creates a new auth manager
func NewManager(cookieStore *CookieStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cookieStore: cookieStore, logger: logger.Named("auth")}
}

// Save stores the cookies of a freshly signed-in browser.
func (m *Manager) Save(cookies []*network.Cookie) error {
	if err := m.cookieStore.Save(cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	m.logger.Debug("stored session cookies",
		zap.Int("count", len(cookies)),
		zap.String("path", m.cookieStore.Path()))
	return nil
}

// Status describes the stored session for display.
func (m *Manager) Status() string {
	stored, err := m.cookieStore.Load()
	if errors.Is(err, os.ErrNotExist) {
		return "no stored session"
	}
	if err != nil {
		return fmt.Sprintf("unreadable session file: %v", err)
	}
	state := "expired or incomplete"
	if m.cookieStore.IsValid() {
		state = "valid"
	}
	return fmt.Sprintf("%s, captured %s", state, stored.CapturedAt.Format(time.RFC3339))
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	return m.cookieStore.Clear()
}

package auth

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/naverpost/internal/config"
	"github.com/ibeckermayer/naverpost/internal/naver"
)

// Naver session cookies set by a successful sign-in.
const (
	CookieNIDAut = "NID_AUT"
	CookieNIDSes = "NID_SES"
)

// CookieStore persists the Naver session cookies captured after sign-in
type CookieStore struct {
	path string
	now  func() time.Time
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at,omitzero"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path, now: time.Now}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// Path returns where the cookies are written.
func (cs *CookieStore) Path() string {
	return cs.path
}

// Save persists the naver.com cookies among cookies. The file is plaintext
// and readable by the owner only.
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(cs.path), 0700); err != nil {
		return err
	}

	kept := naverCookies(cookies)

	// Earliest expiry among the session cookies; session-only cookies
	// (Expires <= 0) carry no expiry.
	var earliestExpiry time.Time
	for _, c := range kept {
		if !isSessionCookie(c.Name) || c.Expires <= 0 {
			continue
		}
		exp := time.Unix(int64(c.Expires), 0)
		if earliestExpiry.IsZero() || exp.Before(earliestExpiry) {
			earliestExpiry = exp
		}
	}

	stored := StoredCookies{
		Cookies:    kept,
		CapturedAt: cs.now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid reports whether both session cookies are stored and unexpired.
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}

	if !stored.ExpiresAt.IsZero() && cs.now().After(stored.ExpiresAt) {
		return false
	}

	hasAut, hasSes := false, false
	for _, c := range stored.Cookies {
		switch {
		case c.Value == "":
		case c.Name == CookieNIDAut:
			hasAut = true
		case c.Name == CookieNIDSes:
			hasSes = true
		}
	}
	return hasAut && hasSes
}

// Clear removes stored cookies. A missing file is not an error.
func (cs *CookieStore) Clear() error {
	if err := os.Remove(cs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func isSessionCookie(name string) bool {
	return name == CookieNIDAut || name == CookieNIDSes
}

func naverCookies(cookies []*network.Cookie) []*network.Cookie {
	var out []*network.Cookie
	for _, c := range cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == naver.SiteDomain || strings.HasSuffix(domain, "."+naver.SiteDomain) {
			out = append(out, c)
		}
	}
	return out
}

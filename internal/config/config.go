package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ibeckermayer/naverpost/internal/pacing"
	"github.com/ibeckermayer/naverpost/internal/scheduler"
	"github.com/ibeckermayer/naverpost/internal/types"
)

const appName = "naverpost"

// Environment variables that take precedence over the config file.
// Credentials belong here rather than on disk.
const (
	EnvNaverID       = "NAVER_ID"
	EnvNaverPassword = "NAVER_PASSWORD"
	EnvSMTPPassword  = "NAVERPOST_SMTP_PASS"
)

// ErrMissingCredentials is returned by Validate when no id or password is set.
var ErrMissingCredentials = errors.New("naver id and password must be set")

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Account  AccountConfig  `toml:"account"`
	Browser  BrowserConfig  `toml:"browser"`
	Timing   TimingConfig   `toml:"timing"`
	Pacing   PacingConfig   `toml:"pacing"`
	Draft    types.Draft    `toml:"draft"`
	Schedule ScheduleConfig `toml:"schedule"`
	Email    EmailConfig    `toml:"email"`
}

// AccountConfig holds the Naver credentials. Leave them empty in the file
// and export NAVER_ID / NAVER_PASSWORD instead.
type AccountConfig struct {
	ID       string `toml:"id"`
	Password string `toml:"password"`
}

type BrowserConfig struct {
	Headless     bool   `toml:"headless"`
	UserAgent    string `toml:"user_agent"`
	// SaveCookies writes the signed-in session cookies to cookies.json for
	// `nbp status`. They are stored unencrypted, so it is off by default.
	SaveCookies  bool   `toml:"save_cookies"`
	ScreenshotOn bool   `toml:"screenshot_on_failure"`
}

// Duration wraps time.Duration so it reads and writes as "1.5s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func dur(d time.Duration) Duration { return Duration{d} }

// TimingConfig holds the bounded wait and the settle delays between steps.
type TimingConfig struct {
	WaitTimeout      Duration `toml:"wait_timeout"`
	LoginPageSettle  Duration `toml:"login_page_settle"`
	FieldClickSettle Duration `toml:"field_click_settle"`
	PasteSettle      Duration `toml:"paste_settle"`
	LoginSettle      Duration `toml:"login_settle"`
	EditorPreSettle  Duration `toml:"editor_pre_settle"`
	EditorSettle     Duration `toml:"editor_settle"`
	FrameSettle      Duration `toml:"frame_settle"`
	OverlaySettle    Duration `toml:"overlay_settle"`
	FieldFocusSettle Duration `toml:"field_focus_settle"`
	SaveSettle       Duration `toml:"save_settle"`
}

// PacingConfig selects how typed characters are spaced.
type PacingConfig struct {
	Strategy string   `toml:"strategy"` // "fixed", "jitter" or "none"
	Min      Duration `toml:"min"`
	Max      Duration `toml:"max"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

type EmailConfig struct {
	Enabled  bool   `toml:"enabled"`
	Provider string `toml:"provider"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Browser: BrowserConfig{
			Headless:     false,
			SaveCookies:  false,
			ScreenshotOn: true,
		},
		Timing: DefaultTiming(),
		Pacing: PacingConfig{
			Strategy: pacing.StrategyFixed,
			Min:      dur(30 * time.Millisecond),
			Max:      dur(120 * time.Millisecond),
		},
		Draft: types.Draft{
			Title: "제목 테스트",
			Body:  "안녕하세요 내용을 입력하고 있습니다.",
			Lines: 5,
		},
		Schedule: ScheduleConfig{
			Cron:     "0 9 * * *",
			Timezone: "Asia/Seoul",
		},
		Email: EmailConfig{
			Provider: "smtp",
			SMTPPort: 587,
		},
	}
}

// DefaultTiming returns the waits the editor has been observed to need.
func DefaultTiming() TimingConfig {
	return TimingConfig{
		WaitTimeout:      dur(10 * time.Second),
		LoginPageSettle:  dur(2 * time.Second),
		FieldClickSettle: dur(500 * time.Millisecond),
		PasteSettle:      dur(time.Second),
		LoginSettle:      dur(3 * time.Second),
		EditorPreSettle:  dur(2 * time.Second),
		EditorSettle:     dur(3 * time.Second),
		FrameSettle:      dur(2 * time.Second),
		OverlaySettle:    dur(time.Second),
		FieldFocusSettle: dur(time.Second),
		SaveSettle:       dur(2 * time.Second),
	}
}

// ApplyEnv overlays credentials and secrets from the environment.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvNaverID); ok && v != "" {
		c.Account.ID = v
	}
	if v, ok := os.LookupEnv(EnvNaverPassword); ok && v != "" {
		c.Account.Password = v
	}
	if v, ok := os.LookupEnv(EnvSMTPPassword); ok && v != "" {
		c.Email.SMTPPass = v
	}
}

// Validate checks the settings a posting run cannot do without.
func (c *Config) Validate() error {
	if c.Account.ID == "" || c.Account.Password == "" {
		return fmt.Errorf("%w (set %s and %s)", ErrMissingCredentials, EnvNaverID, EnvNaverPassword)
	}
	if c.Timing.WaitTimeout.Duration <= 0 {
		return fmt.Errorf("timing.wait_timeout must be positive")
	}
	if _, err := pacing.New(c.Pacing.Strategy, c.Pacing.Min.Duration, c.Pacing.Max.Duration); err != nil {
		return fmt.Errorf("invalid pacing: %w", err)
	}
	if c.Schedule.Cron != "" {
		if err := scheduler.ValidateSchedule(c.Schedule.Cron); err != nil {
			return err
		}
	}
	if c.Email.Enabled && (c.Email.SMTPHost == "" || c.Email.ToAddr == "") {
		return fmt.Errorf("email is enabled but smtp_host or to_address is empty")
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// Load reads config from disk and overlays the environment
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Keys missing from the file keep their
// default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadOrCreate loads the config file, writing the defaults first when it
// does not exist yet. created reports whether that happened.
func LoadOrCreate() (cfg *Config, created bool, err error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, false, err
	}

	cfg, err = LoadFile(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	cfg = Default()
	if err := cfg.SaveFile(path); err != nil {
		return nil, false, fmt.Errorf("could not save default config: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, true, nil
}

// SaveFile writes config to path. Credentials supplied through the
// environment are never written back.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	out := *c
	if _, ok := os.LookupEnv(EnvNaverPassword); ok {
		out.Account.Password = ""
	}
	if _, ok := os.LookupEnv(EnvSMTPPassword); ok {
		out.Email.SMTPPass = ""
	}

	encoder := toml.NewEncoder(f)
	return encoder.Encode(out)
}

// Package driver defines the browser operations a posting session needs.
//
// The session only ever talks to a Driver, which keeps the step logic
// independent of chromedp and lets tests substitute a scripted fake.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/cdproto/network"
)

var (
	// ErrNotFound is returned when an element does not show up in time.
	ErrNotFound = errors.New("element not found")
	// ErrNoFrame is returned when a frame exists but has no content document.
	ErrNoFrame = errors.New("frame has no document")
	// ErrClosed is returned by any call made after Close.
	ErrClosed = errors.New("driver closed")
)

// Key is a named non-text key.
type Key string

const (
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
)

// Driver is a single browser tab under automation.
//
// All selectors are CSS selectors. After EnterFrame succeeds, every selector
// and script is resolved against the frame's document.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)

	// WaitPresent waits up to timeout for sel to be attached to the DOM.
	WaitPresent(ctx context.Context, sel string, timeout time.Duration) error
	// WaitClickable waits up to timeout for sel to be visible and enabled.
	WaitClickable(ctx context.Context, sel string, timeout time.Duration) error

	EnterFrame(ctx context.Context, sel string, timeout time.Duration) error

	Click(ctx context.Context, sel string) error
	// Paste emulates a Ctrl+V into the focused element.
	Paste(ctx context.Context) error
	// TypeText dispatches a single character-input event carrying text.
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key Key) error
	// SendKey focuses sel and presses key on it.
	SendKey(ctx context.Context, sel string, key Key) error

	// Exists reports whether document.querySelector(sel) matches, via script.
	Exists(ctx context.Context, sel string) (bool, error)
	// Interactable reports whether sel is displayed and enabled.
	Interactable(ctx context.Context, sel string) (bool, error)
	// ScriptClick clicks sel from page script if it is rendered.
	ScriptClick(ctx context.Context, sel string) (bool, error)

	Cookies(ctx context.Context) ([]*network.Cookie, error)
	Screenshot(ctx context.Context) ([]byte, error)

	Close() error
}

// Launcher starts a browser and returns a Driver bound to it.
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Driver, error)

func (f LauncherFunc) Launch(ctx context.Context) (Driver, error) { return f(ctx) }

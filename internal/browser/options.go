// Package browser provides shared chromedp configuration with anti-bot-detection
// measures and the chromedp-backed driver used by posting sessions.
package browser

import "github.com/chromedp/chromedp"

// DefaultUserAgent is a realistic Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// hideWebdriverJS runs before any page script on every new document.
const hideWebdriverJS = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// flag is one Chrome command-line switch.
type flag struct {
	name  string
	value any
}

// stealthFlags returns the switches applied on top of chromedp's defaults.
func stealthFlags(headless bool, userAgent string) []flag {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	flags := []flag{
		{"headless", headless},

		// Prevent navigator.webdriver = true detection
		{"disable-blink-features", "AutomationControlled"},

		// Drop the "controlled by automated software" switch chromedp adds by default
		{"enable-automation", false},

		{"user-agent", userAgent},

		// Realistic window size
		{"window-size", "1920,1080"},

		{"disable-extensions", true},
		{"disable-default-apps", true},
		{"disable-infobars", true},
		{"no-first-run", true},
		{"no-default-browser-check", true},
	}

	if headless {
		flags = append(flags, flag{"disable-gpu", true})
	}

	return flags
}

// Options returns chromedp allocator options with anti-bot-detection measures.
// All browser instances should use this to ensure consistent stealth configuration.
func Options(headless bool, userAgent string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range stealthFlags(headless, userAgent) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	return opts
}

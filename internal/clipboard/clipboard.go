// Package clipboard exposes the system clipboard used for paste-based
// credential entry.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// System writes to the OS clipboard.
type System struct{}

// Write replaces the clipboard contents with text.
func (System) Write(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility available on this system")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// Clear empties the clipboard so credentials do not linger after sign-in.
func (s System) Clear() error {
	return s.Write("")
}

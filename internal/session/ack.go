package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// PromptAck asks the operator to press Enter before the browser is closed,
// leaving the final page open for inspection.
type PromptAck struct {
	In     io.Reader
	Out    io.Writer
	Prompt string
}

// Acknowledge prints the prompt and returns once a line is read, the input
// ends, or ctx is done.
func (p PromptAck) Acknowledge(ctx context.Context) error {
	prompt := p.Prompt
	if prompt == "" {
		prompt = "Press Enter to close the browser..."
	}
	if p.Out != nil {
		fmt.Fprintln(p.Out, prompt)
	}

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(p.In).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
)

// ConsoleTransport writes flow output to a terminal. It stands in for a
// chat-server transport when running flows locally.
type ConsoleTransport struct {
	out io.Writer
}

// NewConsoleTransport creates a transport writing to out.
func NewConsoleTransport(out io.Writer) *ConsoleTransport {
	return &ConsoleTransport{out: out}
}

// SendMessage prints the rendered node text.
func (t *ConsoleTransport) SendMessage(_ context.Context, _ string, text string) error {
	_, err := fmt.Fprintf(t.out, "< %s\n", text)
	return err
}

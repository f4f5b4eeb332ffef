package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// WriterNotifier delivers replies to a terminal or any io.Writer.
type WriterNotifier struct {
	mu     sync.Mutex
	w      io.Writer
	render RenderFunc
	prefix string
}

// NotifierOption configures a WriterNotifier.
type NotifierOption func(*WriterNotifier)

// WithRenderer passes every reply through fn before writing it.
func WithRenderer(fn RenderFunc) NotifierOption {
	return func(n *WriterNotifier) {
		n.render = fn
	}
}

// WithPrefix sets the text written before each plain reply.
func WithPrefix(prefix string) NotifierOption {
	return func(n *WriterNotifier) {
		n.prefix = prefix
	}
}

// NewWriterNotifier creates a notifier writing to w.
func NewWriterNotifier(w io.Writer, opts ...NotifierOption) *WriterNotifier {
	n := &WriterNotifier{w: w, prefix: "nutri> "}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send writes text. The user id is ignored: a terminal has one reader.
func (n *WriterNotifier) Send(ctx context.Context, userID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.render != nil {
		out, err := n.render(text)
		if err == nil {
			_, err = io.WriteString(n.w, out)
			return err
		}
		// Fall back to plain text.
	}
	for _, line := range strings.Split(text, "\n") {
		if _, err := fmt.Fprintf(n.w, "%s%s\n", n.prefix, line); err != nil {
			return err
		}
	}
	return nil
}

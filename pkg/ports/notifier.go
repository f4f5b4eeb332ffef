package ports

import "context"

// Notifier delivers an outbound plain-text message to a user.
// Delivery failures are reported to the caller for logging only.
type Notifier interface {
	Send(ctx context.Context, userID, text string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, userID, text string) error

// Send calls f(ctx, userID, text).
func (f NotifierFunc) Send(ctx context.Context, userID, text string) error {
	return f(ctx, userID, text)
}

package memory

import (
	"context"
	"sync"
)

// Sent is one message delivered through the Outbox.
type Sent struct {
	UserID string
	Text   string
}

// Outbox is a ports.Notifier that keeps every message in memory.
type Outbox struct {
	mu   sync.Mutex
	sent []Sent
	err  error
}

// NewOutbox creates an empty Outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Send records the message, or returns the error set by Fail.
func (o *Outbox) Send(ctx context.Context, userID, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, Sent{UserID: userID, Text: text})
	return nil
}

// Fail makes every following Send return err. A nil err restores delivery.
func (o *Outbox) Fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

// Messages returns the delivered messages in order.
func (o *Outbox) Messages() []Sent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Sent, len(o.sent))
	copy(out, o.sent)
	return out
}

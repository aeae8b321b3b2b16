package notify

import (
	"context"
	"sync"
)

// Message is an outbound email with an optional PDF attachment.
type Message struct {
	To             string
	Subject        string
	HTMLBody       string
	PDFAttachment  []byte
	AttachmentName string
}

// Result mirrors the email function response.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Dispatcher delivers email messages.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// InMemoryDispatcher records messages instead of sending them. Setting Fail
// makes every send report an unsuccessful result with that message.
type InMemoryDispatcher struct {
	mu   sync.Mutex
	sent []Message
	Fail string
}

// Send records msg.
func (d *InMemoryDispatcher) Send(_ context.Context, msg Message) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Fail != "" {
		return Result{Success: false, Error: d.Fail}, nil
	}
	d.sent = append(d.sent, msg)
	return Result{Success: true}, nil
}

// Sent returns a copy of the recorded messages.
func (d *InMemoryDispatcher) Sent() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message(nil), d.sent...)
}

package service

import "context"

// Message is an outbound notification.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Notifier delivers messages. Send blocks until the provider acknowledges the
// message or ctx is done.
type Notifier interface {
	Send(ctx context.Context, msg *Message) error
}

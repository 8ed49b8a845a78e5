package ports

import "context"

// EmailMessage is one outbound notification.
type EmailMessage struct {
	Recipient string
	Subject   string
	Body      string
}

// Notifier delivers account emails. The flows treat delivery as
// fire-and-forget: a failure is reported and logged but never rolls back
// the persisted principal or token.
type Notifier interface {
	Send(ctx context.Context, msg EmailMessage) error
}

package interfaces

import "context"

// EventPublisher delivers ledger notifications. Failures never roll back
// ledger state.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

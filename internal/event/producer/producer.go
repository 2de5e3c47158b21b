package producer

import (
	"context"

	"member-auth-service/internal/event"
)

// Producer publishes auth events to the event stream.
type Producer interface {
	Emit(ctx context.Context, e event.AuthEvent) error
	Close() error
}

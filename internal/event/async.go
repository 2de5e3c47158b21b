package event

import (
	"context"
	"log"
	"time"
)

const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long callers should wait on shutdown for
// in-flight async emits to finish before closing the producer.
const ShutdownDrainDuration = 2 * time.Second

// Emitter is the minimal sink EmitAsync needs.
type Emitter interface {
	Emit(ctx context.Context, e AuthEvent) error
}

// EmitAsync publishes an event on a background goroutine so request
// handling never blocks on the event stream. Failures are logged and
// dropped. A nil emitter is a no-op.
func EmitAsync(emitter Emitter, e AuthEvent) {
	if emitter == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, e); err != nil {
			log.Printf("event emit failed: type=%s err=%v", e.EventType, err)
		}
	}()
}

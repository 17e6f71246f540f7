// Package announce implements the fanout change-notification channel:
// after every successful write the server broadcasts the change, and every
// connected reader patches its local view state from the stream.
package announce

import (
	"context"

	"github.com/pressline/articles-service/pkg/bus"
)

// Publisher is the interface for broadcasting change notifications.
type Publisher interface {
	PublishChange(ctx context.Context, typeTag string, result *bus.Result) error
}

// NoOpPublisher is a Publisher that does nothing (for in-process usage
// without notifications).
type NoOpPublisher struct{}

// PublishChange is a no-op.
func (p *NoOpPublisher) PublishChange(_ context.Context, _ string, _ *bus.Result) error {
	return nil
}

// CallbackPublisher is a Publisher that calls a callback function (for
// testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, typeTag string, result *bus.Result) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, typeTag string, result *bus.Result) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishChange calls the callback.
func (p *CallbackPublisher) PublishChange(ctx context.Context, typeTag string, result *bus.Result) error {
	return p.callback(ctx, typeTag, result)
}

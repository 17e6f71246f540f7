package announce

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/pressline/articles-service/pkg/bus"
	"github.com/pressline/articles-service/pkg/commsutil"
)

const subscriberLogPrefix = "announce:subscriber"

// Handler consumes one announcement.
type Handler func(*bus.Message)

// SubscriberOpts configures a Subscriber. Zero values use defaults.
type SubscriberOpts struct {
	// Subject overrides the fanout subject.
	Subject string
	// IgnoreOrigin, when non-empty, drops announcements published with the
	// same origin tag (self-suppression).
	IgnoreOrigin string
}

// Subscriber consumes the fanout subject. Every subscriber has its own
// subscription, so all of them see every announcement. There is no retry on
// this channel: notification loss is tolerated, the request/response path is
// the source of truth.
type Subscriber struct {
	nc           *comms.Conn
	subject      string
	ignoreOrigin string
}

// NewSubscriber creates a Subscriber over an existing connection.
func NewSubscriber(nc *comms.Conn, opts SubscriberOpts) *Subscriber {
	s := &Subscriber{nc: nc, subject: commsutil.SubjectAnnounce, ignoreOrigin: opts.IgnoreOrigin}
	if opts.Subject != "" {
		s.subject = opts.Subject
	}
	return s
}

// Subscribe delivers announcements to the handler until ctx is cancelled,
// then unsubscribes. Undecodable announcements are logged and dropped.
func (s *Subscriber) Subscribe(ctx context.Context, handler Handler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *comms.Msg) {
		env, err := bus.DecodeMessage(msg.Data)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - discarding undecodable announcement: %v", subscriberLogPrefix, err))
			return
		}
		if s.ignoreOrigin != "" && env.Origin == s.ignoreOrigin {
			slog.Debug(fmt.Sprintf("%s - suppressing own announcement %s", subscriberLogPrefix, env.Type))
			return
		}
		handler(env)
	})
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", subscriberLogPrefix, s.subject, err)
	}
	slog.Info(fmt.Sprintf("%s - subscribed to %s", subscriberLogPrefix, s.subject))

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		slog.Warn(fmt.Sprintf("%s - unsubscribe failed: %v", subscriberLogPrefix, err))
	}
	return ctx.Err()
}

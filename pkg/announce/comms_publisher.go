package announce

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/pressline/articles-service/pkg/bus"
	"github.com/pressline/articles-service/pkg/commsutil"
)

const commsPublisherLogPrefix = "announce:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use
// defaults.
type CommsPublisherOpts struct {
	// Subject overrides the fanout subject.
	Subject string
	// Origin tags announcements with the publishing application's identity,
	// letting subscribers suppress their own writes.
	Origin string
}

// CommsPublisher broadcasts change notifications on the fanout subject.
type CommsPublisher struct {
	nc      *comms.Conn
	subject string
	origin  string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use
// defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	p := &CommsPublisher{nc: nc, subject: commsutil.SubjectAnnounce}
	if opts != nil {
		if opts.Subject != "" {
			p.subject = opts.Subject
		}
		p.origin = opts.Origin
	}
	return p
}

// PublishChange broadcasts the result of a write under its command type tag.
// Announcements reuse the request/response envelope shape verbatim.
func (p *CommsPublisher) PublishChange(_ context.Context, typeTag string, result *bus.Result) error {
	body, err := commsutil.EncodePayload(result)
	if err != nil {
		return fmt.Errorf("%s - failed to encode result: %w", commsPublisherLogPrefix, err)
	}
	env := &bus.Message{
		Type:   typeTag,
		Origin: p.origin,
		Body:   body,
	}
	data, err := bus.EncodeMessage(env)
	if err != nil {
		return fmt.Errorf("%s - failed to encode announcement: %w", commsPublisherLogPrefix, err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish %s to %s: %v", commsPublisherLogPrefix, typeTag, p.subject, err))
		return err
	}
	slog.Debug(fmt.Sprintf("%s - Published %s to %s", commsPublisherLogPrefix, typeTag, p.subject))
	return nil
}

package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"

	"github.com/pressline/articles-service/pkg/commsutil"
)

const providerLogPrefix = "bus:provider"

// DefaultRequestTimeout bounds how long SendRequest waits for a reply.
const DefaultRequestTimeout = 10 * time.Second

// TimeoutError is returned when no correlation-matching reply arrives within
// the request timeout. The request may still have been accepted and executed
// server-side; callers must not assume non-delivery.
type TimeoutError struct {
	Subject string
	Type    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("communication timeout: no reply for %s on %s within %s; the request was accepted and may still be executed",
		e.Type, e.Subject, e.Timeout)
}

// RequestProvider publishes command requests on a work-queue subject and
// awaits correlation-matched replies on a per-request reply subject.
//
// Concurrent SendRequest calls are independent: each carries its own
// correlation id and reply subscription, so providers are safe for use from
// multiple goroutines.
type RequestProvider struct {
	nc       *comms.Conn
	ownsConn bool
	timeout  time.Duration
}

// ProviderOpts configures a RequestProvider. Zero values use defaults.
type ProviderOpts struct {
	// Timeout overrides DefaultRequestTimeout.
	Timeout time.Duration
	// OwnsConn marks the connection as owned by the provider; Close then
	// closes it. Borrowed connections are never closed by the provider.
	OwnsConn bool
}

// NewRequestProvider creates a RequestProvider over an existing connection.
// Pass nil for opts to use defaults.
func NewRequestProvider(nc *comms.Conn, opts *ProviderOpts) *RequestProvider {
	p := &RequestProvider{nc: nc, timeout: DefaultRequestTimeout}
	if opts != nil {
		if opts.Timeout > 0 {
			p.timeout = opts.Timeout
		}
		p.ownsConn = opts.OwnsConn
	}
	return p
}

// Close releases the underlying connection if the provider owns it.
func (p *RequestProvider) Close() {
	if p.ownsConn && p.nc != nil && !p.nc.IsClosed() {
		p.nc.Close()
	}
}

// SendRequest publishes a command on the given subject and waits for the
// matching reply. Replies whose correlation id does not match are ignored;
// the first of {matching reply, timeout, ctx cancellation} wins.
func (p *RequestProvider) SendRequest(ctx context.Context, subject, msgType string, body []byte) (*Result, error) {
	correlationID := uuid.NewString()
	replyTo := commsutil.BuildReplySubject(correlationID)

	sub, err := p.nc.SubscribeSync(replyTo)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to reply subject %s: %w", providerLogPrefix, replyTo, err)
	}
	defer sub.Unsubscribe()

	env := &Message{
		CorrelationID: correlationID,
		ReplyTo:       replyTo,
		Type:          msgType,
		Body:          body,
	}
	data, err := EncodeMessage(env)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode request: %w", providerLogPrefix, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return nil, fmt.Errorf("%s - failed to publish request: %w", providerLogPrefix, err)
	}
	slog.Debug(fmt.Sprintf("%s - sent %s id=%s replyTo=%s", providerLogPrefix, msgType, correlationID, replyTo))

	deadline := time.Now().Add(p.timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{Subject: subject, Type: msgType, Timeout: p.timeout}
		}

		waitCtx, cancel := context.WithTimeout(ctx, remaining)
		msg, err := sub.NextMsgWithContext(waitCtx)
		cancel()
		if err != nil {
			// A deadline expiry, whether the provider's own or the caller's,
			// means the same thing to the user: no reply arrived in time.
			// Only cancellation propagates as a plain error.
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &TimeoutError{Subject: subject, Type: msgType, Timeout: p.timeout}
			}
			return nil, fmt.Errorf("%s - waiting for reply: %w", providerLogPrefix, err)
		}

		reply, err := DecodeMessage(msg.Data)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - discarding undecodable reply on %s: %v", providerLogPrefix, replyTo, err))
			continue
		}
		if reply.CorrelationID != correlationID {
			// A stale reply from a reused subject; not ours.
			slog.Debug(fmt.Sprintf("%s - ignoring reply with correlation id %s, want %s", providerLogPrefix, reply.CorrelationID, correlationID))
			continue
		}

		var result Result
		if err := commsutil.DecodePayload(reply.Body, &result); err != nil {
			return nil, fmt.Errorf("%s - failed to decode result body: %w", providerLogPrefix, err)
		}
		slog.Debug(fmt.Sprintf("%s - resolved %s id=%s success=%t", providerLogPrefix, msgType, correlationID, result.Success))
		return &result, nil
	}
}

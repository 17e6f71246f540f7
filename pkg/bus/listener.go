package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/pressline/articles-service/pkg/commsutil"
)

const listenerLogPrefix = "bus:listener"

// Listener reconnection defaults.
const (
	DefaultListenerBackoff    = 10 * time.Second
	DefaultListenerMaxRetries = 10
)

// Dispatcher routes a delivered message to its executor. A nil result means
// no reply is sent (e.g. an unrecognized type tag, which the dispatcher is
// expected to log).
type Dispatcher interface {
	Dispatch(ctx context.Context, m *Message) *Result
}

// Listener consumes the request work queue one message at a time, dispatches
// each command, and replies on the request's replyTo subject.
type Listener struct {
	url      string
	name     string
	mu       sync.Mutex
	nc       *comms.Conn
	ownsConn bool

	subject    string
	queue      string
	dispatcher Dispatcher

	backoff    time.Duration
	maxRetries int

	// OnAccepted, when set, is invoked for every delivered message before
	// dispatch.
	OnAccepted func(*Message)
}

// ListenerOpts configures a Listener. Zero values use defaults.
type ListenerOpts struct {
	// Subject and Queue override the default work-queue subject and group.
	Subject string
	Queue   string
	// Backoff is the wait between reconnection attempts.
	Backoff time.Duration
	// MaxRetries bounds consecutive failed (re)starts before giving up.
	MaxRetries int
	// Conn is an existing connection to borrow; the listener never closes
	// it. When nil, the listener owns its connections and dials URL lazily.
	Conn *comms.Conn
	// URL and Name are used for owned connections.
	URL  string
	Name string
}

// NewListener creates a Listener. The dispatcher is required.
func NewListener(dispatcher Dispatcher, opts ListenerOpts) *Listener {
	l := &Listener{
		url:        opts.URL,
		name:       opts.Name,
		nc:         opts.Conn,
		ownsConn:   opts.Conn == nil,
		subject:    opts.Subject,
		queue:      opts.Queue,
		dispatcher: dispatcher,
		backoff:    opts.Backoff,
		maxRetries: opts.MaxRetries,
	}
	if l.subject == "" {
		l.subject = commsutil.SubjectRequests
	}
	if l.queue == "" {
		l.queue = commsutil.QueueWorkers
	}
	if l.backoff <= 0 {
		l.backoff = DefaultListenerBackoff
	}
	if l.maxRetries <= 0 {
		l.maxRetries = DefaultListenerMaxRetries
	}
	return l
}

// Listen consumes the work queue until ctx is cancelled. Transport failures
// are retried with a fixed backoff, up to the configured number of
// consecutive retries; exhausting the budget is fatal and the last error
// propagates. The retry counter resets after every successful (re)start.
func (l *Listener) Listen(ctx context.Context) error {
	retries := 0
	for {
		started, err := l.listenOnce(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			l.closeOwnedConn()
			return err
		}
		if started {
			retries = 0
		}

		retries++
		if retries > l.maxRetries {
			l.closeOwnedConn()
			return fmt.Errorf("%s - giving up after %d consecutive retries: %w", listenerLogPrefix, l.maxRetries, err)
		}

		slog.Error(fmt.Sprintf("%s - transport failure (retry %d/%d in %s): %v", listenerLogPrefix, retries, l.maxRetries, l.backoff, err))
		select {
		case <-ctx.Done():
			l.closeOwnedConn()
			return ctx.Err()
		case <-time.After(l.backoff):
		}
	}
}

// listenOnce subscribes and processes messages until an error or
// cancellation. started reports whether the subscription was established, so
// the caller can reset its retry counter.
func (l *Listener) listenOnce(ctx context.Context) (started bool, err error) {
	nc, err := l.conn()
	if err != nil {
		return false, err
	}

	sub, err := nc.QueueSubscribeSync(l.subject, l.queue)
	if err != nil {
		return false, fmt.Errorf("%s - failed to subscribe to %s: %w", listenerLogPrefix, l.subject, err)
	}
	defer sub.Unsubscribe()

	slog.Info(fmt.Sprintf("%s - listening on %s (queue %s)", listenerLogPrefix, l.subject, l.queue))

	// One unprocessed message at a time: the next delivery is not taken
	// until the current one has been fully handled.
	for {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Info(fmt.Sprintf("%s - cancelled, stopping", listenerLogPrefix))
				return true, context.Canceled
			}
			return true, fmt.Errorf("%s - receive failed: %w", listenerLogPrefix, err)
		}
		l.handle(ctx, nc, msg)
	}
}

// handle processes a single delivery. Handler failures are logged and the
// message is considered consumed either way, so a poison message can never
// wedge the queue.
func (l *Listener) handle(ctx context.Context, nc *comms.Conn, msg *comms.Msg) {
	env, err := DecodeMessage(msg.Data)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - discarding undecodable message: %v", listenerLogPrefix, err))
		return
	}

	slog.Debug(fmt.Sprintf("%s - accepted %s id=%s", listenerLogPrefix, env.Type, env.CorrelationID))
	if l.OnAccepted != nil {
		l.OnAccepted(env)
	}

	result := l.dispatch(ctx, env)
	if result == nil || env.ReplyTo == "" {
		return
	}

	body, err := commsutil.EncodePayload(result)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode result for %s: %v", listenerLogPrefix, env.CorrelationID, err))
		return
	}
	reply := &Message{
		CorrelationID: env.CorrelationID,
		Type:          TypeResult,
		Body:          body,
	}
	data, err := EncodeMessage(reply)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode reply for %s: %v", listenerLogPrefix, env.CorrelationID, err))
		return
	}
	if err := nc.Publish(env.ReplyTo, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish reply to %s: %v", listenerLogPrefix, env.ReplyTo, err))
	}
}

// dispatch invokes the dispatcher, containing panics from handler defects so
// the listen loop survives them.
func (l *Listener) dispatch(ctx context.Context, env *Message) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - handler panic for %s id=%s: %v", listenerLogPrefix, env.Type, env.CorrelationID, r))
			result = nil
		}
	}()
	return l.dispatcher.Dispatch(ctx, env)
}

// conn returns a usable connection, dialing a new one only when the listener
// owns its connections and none exists or the previous one has closed.
func (l *Listener) conn() (*comms.Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.nc != nil && !l.nc.IsClosed() {
		return l.nc, nil
	}
	if !l.ownsConn {
		return nil, fmt.Errorf("%s - borrowed connection is closed", listenerLogPrefix)
	}
	nc, err := commsutil.Connect(l.url, l.name)
	if err != nil {
		return nil, err
	}
	l.nc = nc
	return nc, nil
}

func (l *Listener) closeOwnedConn() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ownsConn && l.nc != nil && !l.nc.IsClosed() {
		l.nc.Close()
	}
}

// dropConn force-closes the current connection. Test hook for exercising the
// reconnection path.
func (l *Listener) dropConn() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.nc != nil && !l.nc.IsClosed() {
		l.nc.Close()
	}
}

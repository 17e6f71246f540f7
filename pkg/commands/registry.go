package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pressline/articles-service/pkg/announce"
	"github.com/pressline/articles-service/pkg/blog"
	"github.com/pressline/articles-service/pkg/bus"
	"github.com/pressline/articles-service/pkg/commsutil"
)

const registryLogPrefix = "commands:registry"

// Executor runs one command body and produces the result envelope.
type Executor func(ctx context.Context, body []byte) *bus.Result

// Registry is the immutable type-tag to executor table. It is constructed
// explicitly with its collaborators and injected into the listener; there is
// no process-global state.
type Registry struct {
	executors map[Kind]Executor
}

// NewRegistry builds the executor table over the blog service. Successful
// writes are broadcast through the publisher; pass nil to skip announcing.
func NewRegistry(svc *blog.Service, publisher announce.Publisher) *Registry {
	if publisher == nil {
		publisher = &announce.NoOpPublisher{}
	}
	r := &Registry{executors: make(map[Kind]Executor, 6)}
	for _, kind := range Kinds() {
		kind := kind
		r.executors[kind] = func(ctx context.Context, body []byte) *bus.Result {
			return execute(ctx, svc, publisher, kind, body)
		}
	}
	return r
}

// Get returns the executor for a wire type tag, or nil for an unrecognized
// tag.
func (r *Registry) Get(tag string) Executor {
	kind, err := ParseKind(tag)
	if err != nil {
		return nil
	}
	return r.executors[kind]
}

// Dispatch implements bus.Dispatcher. Unrecognized tags are logged and
// produce no reply, so the caller eventually times out.
func (r *Registry) Dispatch(ctx context.Context, m *bus.Message) *bus.Result {
	kind, err := ParseKind(m.Type)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - dropping message id=%s: %v", registryLogPrefix, m.CorrelationID, err))
		return nil
	}
	return r.executors[kind](ctx, m.Body)
}

// execute decodes the body, runs the mutation and wraps the outcome.
// Validation and not-found failures are values, never errors: they come back
// as failed result envelopes with the message shown verbatim to users.
func execute(ctx context.Context, svc *blog.Service, publisher announce.Publisher, kind Kind, body []byte) *bus.Result {
	slog.Debug(fmt.Sprintf("%s - executing %s", registryLogPrefix, kind))

	var (
		record  interface{}
		removed bool
		err     error
	)
	switch kind {
	case KindArticleCreate:
		var a blog.Article
		if decodeErr := commsutil.DecodePayload(body, &a); decodeErr != nil {
			return bus.FailResult(fmt.Sprintf("failed to decode article: %v", decodeErr))
		}
		record, err = svc.CreateArticle(ctx, &a)
	case KindArticleUpdate:
		var a blog.Article
		if decodeErr := commsutil.DecodePayload(body, &a); decodeErr != nil {
			return bus.FailResult(fmt.Sprintf("failed to decode article: %v", decodeErr))
		}
		record, err = svc.UpdateArticle(ctx, &a)
	case KindArticleDelete:
		var req blog.DeleteRequest
		if decodeErr := commsutil.DecodePayload(body, &req); decodeErr != nil {
			return bus.FailResult(fmt.Sprintf("failed to decode delete request: %v", decodeErr))
		}
		removed, err = svc.DeleteArticle(ctx, req.ID)
		record = req
	case KindCommentCreate:
		var c blog.Comment
		if decodeErr := commsutil.DecodePayload(body, &c); decodeErr != nil {
			return bus.FailResult(fmt.Sprintf("failed to decode comment: %v", decodeErr))
		}
		record, err = svc.CreateComment(ctx, &c)
	case KindCommentUpdate:
		var c blog.Comment
		if decodeErr := commsutil.DecodePayload(body, &c); decodeErr != nil {
			return bus.FailResult(fmt.Sprintf("failed to decode comment: %v", decodeErr))
		}
		record, err = svc.UpdateComment(ctx, &c)
	case KindCommentDelete:
		var req blog.DeleteRequest
		if decodeErr := commsutil.DecodePayload(body, &req); decodeErr != nil {
			return bus.FailResult(fmt.Sprintf("failed to decode delete request: %v", decodeErr))
		}
		removed, err = svc.DeleteComment(ctx, req.ID)
		record = req
	}

	if err != nil {
		var vErr *blog.ValidationError
		var nfErr *blog.NotFoundError
		switch {
		case errors.As(err, &vErr), errors.As(err, &nfErr):
			slog.Info(fmt.Sprintf("%s - %s rejected: %v", registryLogPrefix, kind, err))
		default:
			slog.Error(fmt.Sprintf("%s - %s failed: %v", registryLogPrefix, kind, err))
		}
		return bus.FailResult(err.Error())
	}

	result, encodeErr := bus.OkResult(record)
	if encodeErr != nil {
		slog.Error(fmt.Sprintf("%s - %s result encode failed: %v", registryLogPrefix, kind, encodeErr))
		return bus.FailResult(encodeErr.Error())
	}

	// Deletes of unknown ids succeed but change nothing, so there is nothing
	// to announce.
	isDelete := kind == KindArticleDelete || kind == KindCommentDelete
	if !isDelete || removed {
		if pubErr := publisher.PublishChange(ctx, kind.Tag(), result); pubErr != nil {
			// Notification loss is tolerated; the reply still carries the
			// authoritative outcome.
			slog.Warn(fmt.Sprintf("%s - %s announce failed: %v", registryLogPrefix, kind, pubErr))
		}
	}

	slog.Debug(fmt.Sprintf("%s - executed %s success=true", registryLogPrefix, kind))
	return result
}

// Package bus implements the COMMS messaging layer: the message envelope,
// the uniform result envelope, the request provider and the work-queue
// listener.
package bus

import (
	"encoding/json"
	"fmt"

	"github.com/pressline/articles-service/pkg/commsutil"
)

// Command type tags. These are a cross-process contract: every front-end,
// listener and announce subscriber must agree on them byte for byte.
const (
	TypeArticleCreate = "article-create"
	TypeArticleUpdate = "article-update"
	TypeArticleDelete = "article-delete"
	TypeCommentCreate = "comment-create"
	TypeCommentUpdate = "comment-update"
	TypeCommentDelete = "comment-delete"

	// TypeResult tags reply messages published on a request's replyTo subject.
	TypeResult = "result"
)

// Message is the wire envelope exchanged over COMMS. The body is opaque to
// the transport; Type determines its schema.
type Message struct {
	CorrelationID string `json:"correlationId"`
	ReplyTo       string `json:"replyTo,omitempty"`
	Type          string `json:"type"`
	Origin        string `json:"origin,omitempty"`
	Body          []byte `json:"body,omitempty"`
}

// EncodeMessage serializes an envelope for publishing.
func EncodeMessage(m *Message) ([]byte, error) {
	return commsutil.EncodePayload(m)
}

// DecodeMessage deserializes an envelope received from COMMS.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := commsutil.DecodePayload(data, &m); err != nil {
		return nil, fmt.Errorf("bus:message - failed to decode envelope: %w", err)
	}
	return &m, nil
}

// Result is the uniform success/failure/data wrapper returned by every
// operation and carried by every announcement.
//
// Invariant: Success implies Message is empty and Data holds the well-formed
// record; failure implies Data is null and Message explains why.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// OkResult wraps a record in a successful Result.
func OkResult(v interface{}) (*Result, error) {
	data, err := commsutil.EncodePayload(v)
	if err != nil {
		return nil, fmt.Errorf("bus:message - failed to encode result data: %w", err)
	}
	return &Result{Success: true, Data: data}, nil
}

// FailResult builds a failed Result carrying a human-readable message.
func FailResult(message string) *Result {
	return &Result{Success: false, Message: message}
}

// DecodeInto decodes the result's data into the given target. It fails on
// unsuccessful results, which carry no data.
func (r *Result) DecodeInto(v interface{}) error {
	if !r.Success {
		return fmt.Errorf("bus:message - result is a failure: %s", r.Message)
	}
	return commsutil.DecodePayload(r.Data, v)
}

package commsutil

import "fmt"

// Default COMMS subjects and queue groups.
const (
	// SubjectRequests is the work-queue subject where write commands arrive.
	SubjectRequests = "articles.requests"
	// QueueWorkers is the queue group for request listeners; messages on
	// SubjectRequests are delivered to exactly one member of the group.
	QueueWorkers = "articles-workers"
	// SubjectAnnounce is the fanout subject for change notifications; every
	// subscriber receives every announcement.
	SubjectAnnounce = "articles.changed"
)

// BuildReplySubject builds a per-request reply subject from a correlation id.
func BuildReplySubject(correlationID string) string {
	return fmt.Sprintf("articles.reply.%s", correlationID)
}

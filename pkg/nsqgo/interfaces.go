package nsqgo

import (
	"context"
	"time"
)

// LookupService resolves a topic to a set of broker "host:port" endpoints.
// Discovery itself is an external collaborator (spec section 6); the
// lookupd subpackage ships a default HTTP implementation against
// nsqlookupd's /lookup endpoint.
type LookupService interface {
	LookupHosts(ctx context.Context, topic string) ([]string, error)
}

// DedupeService is an opaque membership set keyed by (topic, channel,
// message id). ContainsAndAdd must test and add atomically from the
// client's point of view. The dedupe subpackage ships a default
// probabilistic implementation.
type DedupeService interface {
	ContainsAndAdd(topic, channel, messageID string) bool
	Erase(topic, channel, messageID string)
}

// RequeueStrategy maps a message's attempt count to either a requeue delay
// or nil ("drop"). The requeue subpackage ships a default exponential
// backoff implementation.
type RequeueStrategy interface {
	ShouldRequeue(attempts uint16) *time.Duration
}

// Callback processes one delivered message. A nil return acks the message.
// Returning ExpiredMessage acks without requeue. Returning RequeueMessage
// requeues with the given delay. Any other non-nil error consults the
// configured RequeueStrategy before falling back to ack.
type Callback func(*Message) error

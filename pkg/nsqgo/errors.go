package nsqgo

import (
	"errors"
	"fmt"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	pkgerrors "github.com/pkg/errors"
)

var (
	errNotConnected          = errors.New("nsqgo: connection not established")
	errMalformedFrameSize    = errors.New("nsqgo: frame size smaller than header")
	errMalformedMessageFrame = errors.New("nsqgo: message frame shorter than fixed header")
	errUnexpectedFrame       = errors.New("nsqgo: unexpected frame")
	errNotAMessageFrame      = errors.New("nsqgo: frame is not a MESSAGE frame")
)

// SocketError covers connect failure, write failure, read timeout and EOF
// mid-frame (spec section 4.2).
type SocketError struct {
	Addr string
	Op   string
	Err  error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("nsqgo: socket error during %s to %s: %s", e.Op, e.Addr, e.Err)
}

func (e *SocketError) Unwrap() error { return e.Err }

// Cause satisfies github.com/pkg/errors.Causer so callers using that
// package's errors.Cause(...) can unwrap a SocketError the same way they
// unwrap errors.Wrap'd errors elsewhere in this client.
func (e *SocketError) Cause() error { return e.Err }

func wrapSocketErr(addr, op string, err error) error {
	return &SocketError{Addr: addr, Op: op, Err: pkgerrors.Wrap(err, op)}
}

// ProtocolError covers an unexpected frame, malformed length, or unknown
// frame type surfaced out of the subscribe dispatch loop.
type ProtocolError struct {
	Frame *Frame
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Frame != nil {
		return fmt.Sprintf("nsqgo: protocol error: %s (frame type %d)", e.Err, e.Frame.Type)
	}
	return fmt.Sprintf("nsqgo: protocol error: %s", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// PublishError is raised when fewer than Required nodes confirmed receipt
// of a published message within their retry budget.
type PublishError struct {
	Required int
	Achieved int
	Errs     *multierror.Error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("nsqgo: publish consistency not met: required %d, achieved %d: %s", e.Required, e.Achieved, e.Errs)
}

func (e *PublishError) Unwrap() error {
	if e.Errs == nil {
		return nil
	}
	return e.Errs.ErrorOrNil()
}

// LookupError wraps a LookupService failure.
type LookupError struct {
	Topic string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("nsqgo: lookup failed for topic %q: %s", e.Topic, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// ConfigurationError is raised synchronously at call time: an invalid
// consistency level, unachievable consistency, a missing LookupService on
// subscribe, or an invalid callback.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "nsqgo: " + e.Reason }

// ExpiredMessage is a decision carrier, not a true error: a callback
// returning this tells the dispatch loop to FIN the message without
// consulting the RequeueStrategy.
type ExpiredMessage struct{}

func (ExpiredMessage) Error() string { return "nsqgo: message expired" }

// RequeueMessage is a decision carrier: a callback returning this tells the
// dispatch loop to REQ the message with Delay instead of FIN'ing it.
type RequeueMessage struct {
	Delay time.Duration
}

func (RequeueMessage) Error() string { return "nsqgo: message requeued" }

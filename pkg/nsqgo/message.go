package nsqgo

import "time"

// Message is an immutable value decoded from a MESSAGE frame. It lives for
// the duration of one callback invocation plus the ack/requeue write that
// follows; a callback must not retain it past return if it intends to rely
// on FIN/REQ semantics (spec section 3).
type Message struct {
	ID        string
	Timestamp time.Time
	Attempts  uint16
	Body      []byte
}

func newMessageFromFrame(f *Frame) (*Message, error) {
	if !f.IsMessage() {
		return nil, &ProtocolError{Frame: f, Err: errNotAMessageFrame}
	}
	return &Message{
		ID:        f.MessageID,
		Timestamp: time.Unix(0, f.MessageTimestamp),
		Attempts:  f.MessageAttempts,
		Body:      f.MessageBody,
	}, nil
}

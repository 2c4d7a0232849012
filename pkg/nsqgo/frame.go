package nsqgo

import (
	"encoding/binary"
	"io"
)

// FrameType tags every inbound NSQ wire frame (spec section 4.1).
type FrameType int32

const (
	FrameTypeResponse FrameType = 0
	FrameTypeError    FrameType = 1
	FrameTypeMessage  FrameType = 2
)

const heartbeatBody = "_heartbeat_"

// messageFrameHeaderLen is the fixed-size prefix of a MESSAGE frame's
// payload: 8-byte timestamp + 2-byte attempts + 16-byte id.
const messageFrameHeaderLen = 8 + 2 + 16

// Frame is a decoded NSQ wire frame. For FrameTypeMessage, the fixed
// header is pre-parsed into the Message* fields; Body always holds the
// frame's full, undecoded payload so WriteFrame can reproduce the exact
// inbound bytes.
type Frame struct {
	Type FrameType
	Body []byte

	MessageID        string
	MessageTimestamp int64
	MessageAttempts  uint16
	MessageBody      []byte
}

// IsHeartbeat reports whether f is a Response frame whose body is the
// literal heartbeat sentinel.
func (f *Frame) IsHeartbeat() bool {
	return f.Type == FrameTypeResponse && string(f.Body) == heartbeatBody
}

// IsResponse reports whether f is a Response frame with exactly the given
// text body.
func (f *Frame) IsResponse(text string) bool {
	return f.Type == FrameTypeResponse && string(f.Body) == text
}

// IsOK reports whether f is Response("OK").
func (f *Frame) IsOK() bool { return f.IsResponse("OK") }

// IsMessage reports whether f carries a decoded MESSAGE frame.
func (f *Frame) IsMessage() bool { return f.Type == FrameTypeMessage }

// IsError reports whether f is an Error frame.
func (f *Frame) IsError() bool { return f.Type == FrameTypeError }

// ReadFrame decodes exactly one NSQ wire frame from r: a 4-byte big-endian
// size (exclusive of itself), a 4-byte big-endian frame type, then
// size-4 payload bytes. A partial read is surfaced verbatim so Connection
// can classify it as a SocketError (EOF mid-frame).
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[0:4])
	if size < 4 {
		return nil, errMalformedFrameSize
	}
	frameType := FrameType(binary.BigEndian.Uint32(header[4:8]))

	payload := make([]byte, size-4)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	f := &Frame{Type: frameType, Body: payload}
	if frameType == FrameTypeMessage {
		if err := f.decodeMessageBody(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Frame) decodeMessageBody() error {
	if len(f.Body) < messageFrameHeaderLen {
		return errMalformedMessageFrame
	}
	f.MessageTimestamp = int64(binary.BigEndian.Uint64(f.Body[0:8]))
	f.MessageAttempts = binary.BigEndian.Uint16(f.Body[8:10])
	f.MessageID = string(f.Body[10:26])
	f.MessageBody = f.Body[26:]
	return nil
}

// WriteFrame encodes f back into the inbound wire format. Because Body
// always holds the full original payload, WriteFrame(w, ReadFrame(r)) is
// byte-identical to what ReadFrame consumed for every well-formed frame —
// the round-trip law spec section 8 requires.
func WriteFrame(w io.Writer, f *Frame) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(f.Body)+4))
	binary.BigEndian.PutUint32(header[4:8], uint32(f.Type))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(f.Body) == 0 {
		return nil
	}
	_, err := w.Write(f.Body)
	return err
}

// NewMessageFrame builds a Frame carrying a MESSAGE payload, used by test
// harnesses that synthesize broker traffic.
func NewMessageFrame(id string, timestamp int64, attempts uint16, body []byte) *Frame {
	idBytes := make([]byte, 16)
	copy(idBytes, id)

	payload := make([]byte, messageFrameHeaderLen+len(body))
	binary.BigEndian.PutUint64(payload[0:8], uint64(timestamp))
	binary.BigEndian.PutUint16(payload[8:10], attempts)
	copy(payload[10:26], idBytes)
	copy(payload[26:], body)

	f := &Frame{Type: FrameTypeMessage, Body: payload}
	_ = f.decodeMessageBody()
	return f
}

// NewResponseFrame builds a plain Response frame, used by test harnesses.
func NewResponseFrame(text string) *Frame {
	return &Frame{Type: FrameTypeResponse, Body: []byte(text)}
}

// NewErrorFrame builds an Error frame, used by test harnesses.
func NewErrorFrame(text string) *Frame {
	return &Frame{Type: FrameTypeError, Body: []byte(text)}
}

// NewHeartbeatFrame builds the canonical heartbeat Response frame.
func NewHeartbeatFrame() *Frame {
	return NewResponseFrame(heartbeatBody)
}

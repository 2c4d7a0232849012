package nsqgo

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// IdentifyResponse is the metadata a broker may reply with after IDENTIFY.
// This client does not negotiate TLS or stream compression upgrades (see
// DESIGN.md), so TLSv1/Deflate/Snappy are surfaced read-only for
// observability and testing rather than acted on.
type IdentifyResponse struct {
	MaxRdyCount int64 `json:"max_rdy_count"`
	TLSv1       bool  `json:"tls_v1"`
	Deflate     bool  `json:"deflate"`
	Snappy      bool  `json:"snappy"`
}

// decodeIdentifyResponse mirrors go-nsq's identify(): a bare OK response
// means the broker didn't negotiate capabilities (nil, nil is returned); a
// JSON payload is decoded into IdentifyResponse; an Error frame fails.
func decodeIdentifyResponse(f *Frame) (*IdentifyResponse, error) {
	if f.IsError() {
		return nil, &ProtocolError{Frame: f, Err: fmt.Errorf("IDENTIFY failed: %s", string(f.Body))}
	}
	if len(f.Body) == 0 || f.Body[0] != '{' {
		return nil, nil
	}
	resp := &IdentifyResponse{}
	if err := json.Unmarshal(f.Body, resp); err != nil {
		return nil, &ProtocolError{Frame: f, Err: err}
	}
	return resp, nil
}

// DefaultIdentifyParams builds the IDENTIFY payload most NSQ clients send:
// long_id is clientID when it is non-empty, otherwise the local hostname,
// or a generated uuid when the hostname can't be resolved; short_id is
// long_id cut at its first dot. Callers pass the result to Client.Subscribe's params argument;
// it is not sent automatically (spec section 4.1 treats IDENTIFY params as
// caller-supplied).
func DefaultIdentifyParams(clientID string) map[string]interface{} {
	long := clientID
	if long == "" {
		if h, err := os.Hostname(); err == nil && h != "" {
			long = h
		} else {
			long = uuid.NewString()
		}
	}
	short := long
	if idx := strings.IndexByte(short, '.'); idx > 0 {
		short = short[:idx]
	}
	return map[string]interface{}{
		"short_id":            short,
		"long_id":             long,
		"user_agent":          "nsqgo/1.0",
		"feature_negotiation": true,
	}
}
